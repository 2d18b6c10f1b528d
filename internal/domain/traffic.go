package domain

import "time"

// Season names, ordered as they appear on chart axes
const (
	SeasonWinter = "Winter"
	SeasonSpring = "Spring"
	SeasonSummer = "Summer"
	SeasonFall   = "Fall"
)

// Field defaults applied when a raw row leaves a column empty
const (
	DefaultLocation = "Unknown"
	DefaultWeather  = "clear"
	DefaultRoadType = "highway"
)

// Seasons lists the four season buckets in display order
var Seasons = []string{SeasonWinter, SeasonSpring, SeasonSummer, SeasonFall}

// Weekdays lists day names indexed by time.Weekday
var Weekdays = []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// TrafficRecord is one normalized sensor observation.
// Derived fields (DayOfWeek through Season) are computed from Timestamp only.
type TrafficRecord struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	Volume      int       `json:"volume"`
	Speed       float64   `json:"speed"`
	Occupancy   float64   `json:"occupancy"`
	Location    string    `json:"location"`
	Weather     string    `json:"weather"`
	Temperature *float64  `json:"temperature,omitempty"`
	Visibility  *float64  `json:"visibility,omitempty"`
	RoadType    string    `json:"roadType"`
	IsHoliday   bool      `json:"isHoliday"`

	DayOfWeek string `json:"dayOfWeek"`
	IsWeekend bool   `json:"isWeekend"`
	Hour      int    `json:"hour"`
	Month     int    `json:"month"`
	Season    string `json:"season"`
}

// MonthKey returns the record's calendar month as YYYY-MM
func (r TrafficRecord) MonthKey() string {
	return r.Timestamp.Format("2006-01")
}

// SeasonOf maps a calendar month (1-12) to its meteorological season
func SeasonOf(month time.Month) string {
	switch month {
	case time.December, time.January, time.February:
		return SeasonWinter
	case time.March, time.April, time.May:
		return SeasonSpring
	case time.June, time.July, time.August:
		return SeasonSummer
	default:
		return SeasonFall
	}
}

// IsWeekend reports whether the weekday is Saturday or Sunday
func IsWeekend(day time.Weekday) bool {
	return day == time.Saturday || day == time.Sunday
}

// Dataset is the record set currently loaded into the application
type Dataset struct {
	Name     string          `json:"name"`
	LoadedAt time.Time       `json:"loadedAt"`
	Records  []TrafficRecord `json:"-"`
}

// DatasetInfo describes the current dataset without its records
type DatasetInfo struct {
	Name     string    `json:"name"`
	LoadedAt time.Time `json:"loadedAt"`
	Count    int       `json:"count"`
}

// Info returns the dataset description without its records
func (d Dataset) Info() DatasetInfo {
	return DatasetInfo{Name: d.Name, LoadedAt: d.LoadedAt, Count: len(d.Records)}
}
