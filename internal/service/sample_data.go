package service

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"time"

	"github.com/smartcity/trafficlens/internal/domain"
	"github.com/smartcity/trafficlens/internal/ingest"
	"github.com/smartcity/trafficlens/pkg/utils"
)

// sampleSpan is how far back the synthetic readings reach
const sampleSpan = 90 * 24 * time.Hour

// Monitored corridors with their relative load
var sampleLocations = []struct {
	name     string
	roadType string
	weight   float64
}{
	{"Highway 101", "highway", 1.2},
	{"Interstate 5", "interstate", 1.3},
	{"Route 280", "highway", 0.9},
	{"Highway 85", "highway", 1.0},
	{"Interstate 880", "interstate", 1.1},
}

type sampleCondition struct {
	condition string
	slowdown  float64 // speed multiplier
	odds      float64
}

var sampleWeather = []sampleCondition{
	{domain.DefaultWeather, 1.0, 0.6},
	{"cloudy", 0.95, 0.2},
	{"rain", 0.8, 0.15},
	{"fog", 0.7, 0.05},
}

// SampleData generates n readings spread over the 90 days before now,
// following rush hour, night and weekend patterns. The rows go through the
// normal ingestion path so derived fields match uploaded data.
func SampleData(n int, now time.Time, rng *rand.Rand) []ingest.RawRow {
	if rng == nil {
		rng = rand.New(rand.NewSource(now.UnixNano()))
	}

	rows := make([]ingest.RawRow, 0, n)
	for i := 0; i < n; i++ {
		ts := now.Add(-time.Duration(i) * sampleSpan / time.Duration(max(n, 1))).Truncate(time.Minute)
		loc := sampleLocations[i%len(sampleLocations)]
		weather := pickWeather(rng)

		congestion := utils.Clamp(congestionIndex(ts.Hour(), ts.Weekday(), rng)*loc.weight/weather.slowdown, 0, 100)
		volume := int(congestion*1.8 + rng.Float64()*20)
		speed := 65 * (1 - congestion/100) * weather.slowdown
		occupancy := congestion * (0.8 + rng.Float64()*0.2)

		rows = append(rows, ingest.RawRow{
			"id":          fmt.Sprintf("sample-%d", i),
			"timestamp":   ts.Format(time.RFC3339),
			"location":    loc.name,
			"roadtype":    loc.roadType,
			"volume":      strconv.Itoa(volume),
			"speed":       strconv.FormatFloat(speed, 'f', 1, 64),
			"occupancy":   strconv.FormatFloat(occupancy, 'f', 1, 64),
			"weather":     weather.condition,
			"temperature": strconv.FormatFloat(sampleTemperature(ts, rng), 'f', 1, 64),
			"visibility":  strconv.FormatFloat(10*weather.slowdown, 'f', 1, 64),
		})
	}
	return rows
}

// congestionIndex returns 0-100 based on time patterns
func congestionIndex(hour int, weekday time.Weekday, rng *rand.Rand) float64 {
	if domain.IsWeekend(weekday) {
		return 25 + rng.Float64()*20
	}

	switch {
	case hour >= 7 && hour <= 9: // morning rush
		return 70 + rng.Float64()*25
	case hour >= 17 && hour <= 19: // evening rush
		return 75 + rng.Float64()*20
	case hour >= 12 && hour <= 14: // lunch
		return 50 + rng.Float64()*15
	case hour >= 22 || hour <= 5: // night
		return 10 + rng.Float64()*10
	default:
		return 35 + rng.Float64()*20
	}
}

func pickWeather(rng *rand.Rand) sampleCondition {
	roll := rng.Float64()
	for _, w := range sampleWeather {
		if roll < w.odds {
			return w
		}
		roll -= w.odds
	}
	return sampleWeather[0]
}

// sampleTemperature follows a yearly cycle in Fahrenheit peaking mid-July
func sampleTemperature(ts time.Time, rng *rand.Rand) float64 {
	phase := 2 * math.Pi * float64(ts.YearDay()-196) / 365
	return utils.RoundTo(62+18*math.Cos(phase)+rng.Float64()*8-4, 1)
}
