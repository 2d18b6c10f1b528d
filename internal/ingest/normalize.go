package ingest

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/smartcity/trafficlens/internal/domain"
)

// ErrInvalidTimestamp is returned when a row's timestamp cannot be parsed
var ErrInvalidTimestamp = errors.New("invalid timestamp")

// RowError ties a normalization failure to a 1-based data row
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// RawRow is one ingested row keyed by column header
type RawRow map[string]string

// Get returns the trimmed value of the first key present, matching headers
// case-insensitively.
func (r RawRow) Get(keys ...string) string {
	for _, key := range keys {
		if v, ok := r[key]; ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
			continue
		}
		for k, v := range r {
			if strings.EqualFold(strings.TrimSpace(k), key) {
				if v = strings.TrimSpace(v); v != "" {
					return v
				}
			}
		}
	}
	return ""
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006/01/02",
	// US month-first; "1" and "2" also take two digits
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"1/2/06 15:04:05",
	"1/2/06 15:04",
	"1/2/06",
}

// Normalizer turns raw rows into TrafficRecords.
// Zone-less timestamps are read in Location, and derived fields use it too.
type Normalizer struct {
	Location *time.Location
	Now      func() time.Time
}

// NewNormalizer creates a normalizer for the given location (UTC when nil)
func NewNormalizer(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{Location: loc, Now: time.Now}
}

var defaultNormalizer = NewNormalizer(time.UTC)

// Normalize converts a row using UTC and the wall clock
func Normalize(row RawRow, index int) (domain.TrafficRecord, error) {
	return defaultNormalizer.Normalize(row, index)
}

// NormalizeAll converts rows using UTC and the wall clock
func NormalizeAll(rows []RawRow) ([]domain.TrafficRecord, error) {
	return defaultNormalizer.NormalizeAll(rows)
}

// NormalizeAll converts every row, preserving order. The first row with an
// unusable timestamp aborts the batch.
func (n *Normalizer) NormalizeAll(rows []RawRow) ([]domain.TrafficRecord, error) {
	records := make([]domain.TrafficRecord, 0, len(rows))
	for i, row := range rows {
		rec, err := n.Normalize(row, i)
		if err != nil {
			return nil, &RowError{Row: i + 1, Err: err}
		}
		records = append(records, rec)
	}
	return records, nil
}

// Normalize converts one row. Index is only used for the fallback id.
func (n *Normalizer) Normalize(row RawRow, index int) (domain.TrafficRecord, error) {
	ts, err := n.resolveTimestamp(row)
	if err != nil {
		return domain.TrafficRecord{}, err
	}

	id := row.Get("id")
	if id == "" {
		id = fmt.Sprintf("parsed-%d", index)
	}

	rec := domain.TrafficRecord{
		ID:          id,
		Timestamp:   ts,
		Date:        ts.Format("2006-01-02"),
		Time:        ts.Format("15:04"),
		Volume:      parseVolume(row.Get("volume")),
		Speed:       parseNonNegative(row.Get("speed")),
		Occupancy:   parseOrZero(row.Get("occupancy")),
		Location:    orDefault(row.Get("location"), domain.DefaultLocation),
		Weather:     orDefault(row.Get("weather"), domain.DefaultWeather),
		Temperature: parseOptional(row.Get("temperature")),
		Visibility:  parseOptional(row.Get("visibility")),
		RoadType:    orDefault(row.Get("roadtype", "road_type"), domain.DefaultRoadType),
		IsHoliday:   strings.EqualFold(row.Get("isholiday", "is_holiday"), "true"),
	}
	applyDerived(&rec)

	return rec, nil
}

// applyDerived fills the calendar fields from the record's timestamp
func applyDerived(rec *domain.TrafficRecord) {
	ts := rec.Timestamp
	rec.DayOfWeek = domain.Weekdays[ts.Weekday()]
	rec.IsWeekend = domain.IsWeekend(ts.Weekday())
	rec.Hour = ts.Hour()
	rec.Month = int(ts.Month())
	rec.Season = domain.SeasonOf(ts.Month())
}

func (n *Normalizer) resolveTimestamp(row RawRow) (time.Time, error) {
	loc := n.Location
	if loc == nil {
		loc = time.UTC
	}

	raw := row.Get("timestamp")
	if raw == "" {
		date, clock := row.Get("date"), row.Get("time")
		switch {
		case date != "" && clock != "":
			raw = date + " " + clock
		case date != "":
			raw = date
		}
	}
	if raw == "" {
		now := time.Now
		if n.Now != nil {
			now = n.Now
		}
		return now().In(loc), nil
	}

	ts, err := ParseTimestamp(raw, loc)
	if err != nil {
		return time.Time{}, err
	}
	return ts, nil
}

// ParseTimestamp parses s with the accepted layouts. Zone-less values are
// interpreted in loc; zoned values are converted to loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
}

func orDefault(value, def string) string {
	if value == "" {
		return def
	}
	return value
}

func parseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// parseVolume accepts integer or decimal text, truncating toward zero
func parseVolume(s string) int {
	if v, err := strconv.Atoi(s); err == nil {
		if v < 0 {
			return 0
		}
		return v
	}
	f, ok := parseFloat(s)
	if !ok || f < 0 || f > math.MaxInt32 {
		return 0
	}
	return int(f)
}

func parseNonNegative(s string) float64 {
	f, ok := parseFloat(s)
	if !ok || f < 0 {
		return 0
	}
	return f
}

func parseOrZero(s string) float64 {
	f, _ := parseFloat(s)
	return f
}

func parseOptional(s string) *float64 {
	f, ok := parseFloat(s)
	if !ok {
		return nil
	}
	return &f
}
