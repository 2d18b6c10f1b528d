package ingest

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/smartcity/trafficlens/internal/domain"
)

func TestNormalizeExampleRow(t *testing.T) {
	row := RawRow{
		"timestamp": "2024-01-15 08:00:00",
		"location":  "Highway 101",
		"volume":    "120",
		"speed":     "45",
		"occupancy": "80",
	}

	rec, err := Normalize(row, 0)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if rec.Hour != 8 || rec.DayOfWeek != "Monday" || rec.IsWeekend || rec.Season != domain.SeasonWinter || rec.Month != 1 {
		t.Errorf("derived fields = hour %d, day %s, weekend %v, season %s, month %d",
			rec.Hour, rec.DayOfWeek, rec.IsWeekend, rec.Season, rec.Month)
	}
	if rec.Volume != 120 || rec.Speed != 45 || rec.Occupancy != 80 {
		t.Errorf("numerics = %d/%v/%v", rec.Volume, rec.Speed, rec.Occupancy)
	}
	if rec.ID != "parsed-0" {
		t.Errorf("ID = %q, want parsed-0", rec.ID)
	}
	if rec.Weather != "clear" || rec.RoadType != "highway" {
		t.Errorf("defaults = weather %q, roadType %q", rec.Weather, rec.RoadType)
	}
	if rec.Date != "2024-01-15" || rec.Time != "08:00" {
		t.Errorf("date/time = %q %q", rec.Date, rec.Time)
	}
	if rec.Temperature != nil || rec.Visibility != nil {
		t.Error("temperature and visibility should be absent")
	}
}

func TestNormalizeDefaults(t *testing.T) {
	row := RawRow{
		"timestamp": "2024-03-02 17:30",
		"volume":    "lots",
		"speed":     "-4",
		"location":  "   ",
	}

	rec, err := Normalize(row, 7)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if rec.Volume != 0 {
		t.Errorf("malformed volume = %d, want 0", rec.Volume)
	}
	if rec.Speed != 0 {
		t.Errorf("negative speed = %v, want 0", rec.Speed)
	}
	if rec.Occupancy != 0 {
		t.Errorf("missing occupancy = %v, want 0", rec.Occupancy)
	}
	if rec.Location != domain.DefaultLocation {
		t.Errorf("blank location = %q, want %q", rec.Location, domain.DefaultLocation)
	}
	if rec.ID != "parsed-7" {
		t.Errorf("ID = %q", rec.ID)
	}
	if !rec.IsWeekend || rec.DayOfWeek != "Saturday" {
		t.Errorf("2024-03-02 should be a Saturday weekend, got %s %v", rec.DayOfWeek, rec.IsWeekend)
	}
}

func TestNormalizeHeaderMatching(t *testing.T) {
	row := RawRow{
		" TimeStamp ": "2024-07-04T12:00:00",
		"Location":    " Route 280 ",
		"ROAD_TYPE":   "arterial",
		"Is_Holiday":  "TRUE",
		"Volume":      "12.9",
		"Temperature": "0",
		"Visibility":  "n/a",
	}

	rec, err := Normalize(row, 0)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if rec.Location != "Route 280" {
		t.Errorf("Location = %q", rec.Location)
	}
	if rec.RoadType != "arterial" {
		t.Errorf("RoadType = %q", rec.RoadType)
	}
	if !rec.IsHoliday {
		t.Error("IsHoliday should be true")
	}
	if rec.Volume != 12 {
		t.Errorf("decimal volume = %d, want 12", rec.Volume)
	}
	if rec.Temperature == nil || *rec.Temperature != 0 {
		t.Errorf("zero temperature should be present, got %v", rec.Temperature)
	}
	if rec.Visibility != nil {
		t.Errorf("malformed visibility should be absent, got %v", *rec.Visibility)
	}
	if rec.Season != domain.SeasonSummer {
		t.Errorf("Season = %s", rec.Season)
	}
}

func TestNormalizeIgnoresRawDerivedColumns(t *testing.T) {
	row := RawRow{
		"timestamp": "2024-01-17 23:10:00",
		"hour":      "4",
		"isweekend": "true",
		"dayofweek": "Sunday",
		"season":    "Summer",
	}

	rec, err := Normalize(row, 0)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if rec.Hour != 23 || rec.IsWeekend || rec.DayOfWeek != "Wednesday" || rec.Season != domain.SeasonWinter {
		t.Errorf("derived from raw columns: %+v", rec)
	}
}

func TestNormalizeDateAndTimeColumns(t *testing.T) {
	rec, err := Normalize(RawRow{"date": "2024-10-05", "time": "07:45"}, 0)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	want := time.Date(2024, 10, 5, 7, 45, 0, 0, time.UTC)
	if !rec.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", rec.Timestamp, want)
	}
	if rec.Season != domain.SeasonFall {
		t.Errorf("Season = %s", rec.Season)
	}

	rec, err = Normalize(RawRow{"date": "2024-10-05"}, 0)
	if err != nil {
		t.Fatalf("Normalize date only failed: %v", err)
	}
	if rec.Hour != 0 || rec.Date != "2024-10-05" {
		t.Errorf("date only = %v", rec.Timestamp)
	}
}

func TestNormalizeFallsBackToNow(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	n := NewNormalizer(time.UTC)
	n.Now = func() time.Time { return fixed }

	rec, err := n.Normalize(RawRow{"volume": "5"}, 3)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if !rec.Timestamp.Equal(fixed) {
		t.Errorf("Timestamp = %v, want %v", rec.Timestamp, fixed)
	}
	if rec.DayOfWeek != "Sunday" || rec.Hour != 9 {
		t.Errorf("derived = %s %d", rec.DayOfWeek, rec.Hour)
	}
}

func TestNormalizeInvalidTimestamp(t *testing.T) {
	_, err := Normalize(RawRow{"timestamp": "yesterday-ish"}, 0)
	if !errors.Is(err, ErrInvalidTimestamp) {
		t.Fatalf("expected ErrInvalidTimestamp, got %v", err)
	}

	_, err = NormalizeAll([]RawRow{
		{"timestamp": "2024-01-15 08:00:00"},
		{"timestamp": "2024-13-45 99:00"},
	})
	var rowErr *RowError
	if !errors.As(err, &rowErr) {
		t.Fatalf("expected RowError, got %v", err)
	}
	if rowErr.Row != 2 {
		t.Errorf("Row = %d, want 2", rowErr.Row)
	}
	if !errors.Is(err, ErrInvalidTimestamp) {
		t.Error("RowError should unwrap to ErrInvalidTimestamp")
	}
}

func TestParseTimestampUSDates(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"1/15/2024 8:00", time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)},
		{"1/15/2024", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"01/15/2024 08:00:30", time.Date(2024, 1, 15, 8, 0, 30, 0, time.UTC)},
		{"12/3/2023 17:45", time.Date(2023, 12, 3, 17, 45, 0, 0, time.UTC)},
		{"1/15/24 08:00", time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseTimestamp(tt.in, time.UTC)
		if err != nil {
			t.Errorf("ParseTimestamp(%q) failed: %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeTimezone(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	n := NewNormalizer(est)

	rec, err := n.Normalize(RawRow{"timestamp": "2024-01-15T03:00:00Z"}, 0)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if rec.Hour != 22 || rec.DayOfWeek != "Sunday" {
		t.Errorf("zoned instant in EST = hour %d %s, want 22 Sunday", rec.Hour, rec.DayOfWeek)
	}

	rec, err = n.Normalize(RawRow{"timestamp": "2024-01-15 03:00:00"}, 0)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if rec.Hour != 3 || rec.DayOfWeek != "Monday" {
		t.Errorf("zone-less timestamp = hour %d %s, want 3 Monday", rec.Hour, rec.DayOfWeek)
	}
}

func TestSeasonForEveryMonth(t *testing.T) {
	want := map[int]string{
		1: "Winter", 2: "Winter", 3: "Spring", 4: "Spring", 5: "Spring", 6: "Summer",
		7: "Summer", 8: "Summer", 9: "Fall", 10: "Fall", 11: "Fall", 12: "Winter",
	}
	for month := 1; month <= 12; month++ {
		ts := fmt.Sprintf("2023-%02d-15 12:00:00", month)
		rec, err := Normalize(RawRow{"timestamp": ts}, 0)
		if err != nil {
			t.Fatalf("Normalize(%s) failed: %v", ts, err)
		}
		if rec.Month != month {
			t.Errorf("%s: Month = %d", ts, rec.Month)
		}
		if rec.Season != want[month] {
			t.Errorf("%s: Season = %s, want %s", ts, rec.Season, want[month])
		}
	}
}

func TestDayOfWeekMatchesCalendar(t *testing.T) {
	start := time.Date(2024, 2, 25, 10, 0, 0, 0, time.UTC) // Sunday
	for i := 0; i < 14; i++ {
		ts := start.AddDate(0, 0, i)
		rec, err := Normalize(RawRow{"timestamp": ts.Format("2006-01-02 15:04:05")}, i)
		if err != nil {
			t.Fatalf("Normalize failed: %v", err)
		}
		if rec.DayOfWeek != ts.Weekday().String() {
			t.Errorf("%s: DayOfWeek = %s, want %s", ts.Format("2006-01-02"), rec.DayOfWeek, ts.Weekday())
		}
		wantWeekend := ts.Weekday() == time.Saturday || ts.Weekday() == time.Sunday
		if rec.IsWeekend != wantWeekend {
			t.Errorf("%s: IsWeekend = %v", ts.Format("2006-01-02"), rec.IsWeekend)
		}
	}
}

func TestNormalizeRoundTrip(t *testing.T) {
	inputs := []RawRow{
		{"timestamp": "2024-01-15 08:00:00", "location": "Highway 101", "volume": "120", "speed": "45.5"},
		{"date": "2023-08-31", "time": "23:59", "weather": "fog", "temperature": "61"},
		{"timestamp": "2024-12-01T00:15:00Z", "isholiday": "true"},
	}

	for _, in := range inputs {
		first, err := Normalize(in, 1)
		if err != nil {
			t.Fatalf("Normalize(%v) failed: %v", in, err)
		}

		raw := RawRow{
			"id":        first.ID,
			"timestamp": first.Timestamp.Format(time.RFC3339),
			"volume":    fmt.Sprint(first.Volume),
			"speed":     fmt.Sprint(first.Speed),
			"occupancy": fmt.Sprint(first.Occupancy),
			"location":  first.Location,
			"weather":   first.Weather,
			"roadtype":  first.RoadType,
			"isholiday": fmt.Sprint(first.IsHoliday),
		}
		second, err := Normalize(raw, 99)
		if err != nil {
			t.Fatalf("re-normalize failed: %v", err)
		}

		if first.DayOfWeek != second.DayOfWeek || first.IsWeekend != second.IsWeekend ||
			first.Hour != second.Hour || first.Month != second.Month || first.Season != second.Season {
			t.Errorf("derived fields changed: %+v vs %+v", first, second)
		}
		if first.ID != second.ID || first.Volume != second.Volume || first.Speed != second.Speed ||
			first.Location != second.Location || first.IsHoliday != second.IsHoliday {
			t.Errorf("fields changed: %+v vs %+v", first, second)
		}
	}
}
