package domain

// LocationStat is one row of the per-location breakdown
type LocationStat struct {
	Location     string `json:"location"`
	TotalVolume  int    `json:"totalVolume"`
	AvgVolume    int    `json:"avgVolume"`
	AvgSpeed     int    `json:"avgSpeed"`
	AvgOccupancy int    `json:"avgOccupancy"`
	Count        int    `json:"count"`
	PeakVolume   int    `json:"peakVolume"`
	PeakTime     string `json:"peakTime"`
}

// HourlyStat is one hour-of-day slot (0-23)
type HourlyStat struct {
	Hour         int    `json:"hour"`
	Label        string `json:"label"`
	TotalVolume  int    `json:"totalVolume"`
	AvgVolume    int    `json:"avgVolume"`
	AvgSpeed     int    `json:"avgSpeed"`
	AvgOccupancy int    `json:"avgOccupancy"`
	Count        int    `json:"count"`
}

// DailyStat is one day-of-week slot
type DailyStat struct {
	Day         string `json:"day"`
	Short       string `json:"short"`
	TotalVolume int    `json:"totalVolume"`
	AvgVolume   int    `json:"avgVolume"`
	AvgSpeed    int    `json:"avgSpeed"`
	Count       int    `json:"count"`
}

// MonthlyStat is one calendar month present in the data
type MonthlyStat struct {
	Month       string `json:"month"`
	TotalVolume int    `json:"totalVolume"`
	AvgVolume   int    `json:"avgVolume"`
	AvgSpeed    int    `json:"avgSpeed"`
	Count       int    `json:"count"`
}

// SeasonStat is one of the four fixed seasons
type SeasonStat struct {
	Season      string `json:"season"`
	TotalVolume int    `json:"totalVolume"`
	AvgVolume   int    `json:"avgVolume"`
	AvgSpeed    int    `json:"avgSpeed"`
	Count       int    `json:"count"`
}

// WeatherStat is one weather condition present in the data
type WeatherStat struct {
	Weather     string `json:"weather"`
	TotalVolume int    `json:"totalVolume"`
	AvgVolume   int    `json:"avgVolume"`
	AvgSpeed    int    `json:"avgSpeed"`
	Count       int    `json:"count"`
}

// WeatherImpact compares a weather group against the clear-weather baseline.
// Nil percentages mean the baseline mean is zero.
type WeatherImpact struct {
	WeatherStat
	VolumeImpact *float64 `json:"volumeImpact"`
	SpeedImpact  *float64 `json:"speedImpact"`
}

// Trend labels for month-over-month growth
const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendUndefined  = "undefined"
)

// GrowthMetrics compares the two most recent months.
// VolumeGrowth and SpeedChange are nil when the previous month's mean is zero.
type GrowthMetrics struct {
	Latest       string   `json:"latest"`
	Previous     string   `json:"previous"`
	VolumeGrowth *float64 `json:"volumeGrowth"`
	SpeedChange  *float64 `json:"speedChange"`
	Trend        string   `json:"trend"`
}

// TemperaturePoint is one scatter point of temperature against traffic
type TemperaturePoint struct {
	Temperature float64 `json:"temperature"`
	Volume      int     `json:"volume"`
	Speed       float64 `json:"speed"`
}

// Heatmap holds average volume per weekday (rows, Sunday first) and hour (columns)
type Heatmap struct {
	Days   []string   `json:"days"`
	Values [7][24]int `json:"values"`
	Max    int        `json:"max"`
}

// Volume status labels used by the recent activity feed
const (
	VolumeHigh   = "High"
	VolumeMedium = "Medium"
	VolumeLow    = "Low"
)

// RecentEntry is a record annotated with its volume status
type RecentEntry struct {
	TrafficRecord
	Status string `json:"status"`
}

// Summary holds the headline figures for the dashboard cards
type Summary struct {
	Records          int     `json:"records"`
	TotalVolume      int     `json:"totalVolume"`
	TotalVolumeLabel string  `json:"totalVolumeLabel"`
	AvgSpeed         float64 `json:"avgSpeed"`
	PeakTime         string  `json:"peakTime"`
	PeakVolume       int     `json:"peakVolume"`
	Locations        int     `json:"locations"`
}

// TimePoint is one hour group of the time-range chart
type TimePoint struct {
	Time      string `json:"time"`
	Hour      int    `json:"hour"`
	Volume    int    `json:"volume"`
	Speed     int    `json:"speed"`
	Occupancy int    `json:"occupancy"`
	Count     int    `json:"count"`
}
