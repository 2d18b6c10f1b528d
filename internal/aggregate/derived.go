package aggregate

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/smartcity/trafficlens/internal/domain"
	"github.com/smartcity/trafficlens/pkg/utils"
)

// ErrInvalidWindow is returned for an unrecognized time range
var ErrInvalidWindow = errors.New("invalid time window")

// percentChange returns (current-previous)/previous*100 rounded to one
// decimal, or nil when previous is zero.
func percentChange(current, previous int) *float64 {
	if previous == 0 {
		return nil
	}
	v := utils.RoundTo(float64(current-previous)/float64(previous)*100, 1)
	return &v
}

// Growth compares the two most recent months of an ascending month series.
// ok is false when fewer than two months exist.
func Growth(months []domain.MonthlyStat) (metrics domain.GrowthMetrics, ok bool) {
	if len(months) < 2 {
		return domain.GrowthMetrics{}, false
	}
	latest := months[len(months)-1]
	previous := months[len(months)-2]

	metrics = domain.GrowthMetrics{
		Latest:       latest.Month,
		Previous:     previous.Month,
		VolumeGrowth: percentChange(latest.AvgVolume, previous.AvgVolume),
		SpeedChange:  percentChange(latest.AvgSpeed, previous.AvgSpeed),
		Trend:        domain.TrendUndefined,
	}
	if metrics.VolumeGrowth != nil {
		if *metrics.VolumeGrowth > 0 {
			metrics.Trend = domain.TrendIncreasing
		} else {
			metrics.Trend = domain.TrendDecreasing
		}
	}
	return metrics, true
}

// WeatherImpact expresses each weather group relative to clear weather.
// Without a clear group there is no baseline and the result is empty.
func WeatherImpact(stats []domain.WeatherStat) []domain.WeatherImpact {
	var baseline *domain.WeatherStat
	for i := range stats {
		if stats[i].Weather == domain.DefaultWeather {
			baseline = &stats[i]
			break
		}
	}
	if baseline == nil {
		return []domain.WeatherImpact{}
	}

	impacts := make([]domain.WeatherImpact, 0, len(stats))
	for _, s := range stats {
		impacts = append(impacts, domain.WeatherImpact{
			WeatherStat:  s,
			VolumeImpact: percentChange(s.AvgVolume, baseline.AvgVolume),
			SpeedImpact:  percentChange(s.AvgSpeed, baseline.AvgSpeed),
		})
	}
	return impacts
}

// PeakHours returns the n busiest hours by average volume; earlier hours win ties
func PeakHours(hourly []domain.HourlyStat, n int) []domain.HourlyStat {
	sorted := make([]domain.HourlyStat, len(hourly))
	copy(sorted, hourly)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].AvgVolume > sorted[j].AvgVolume
	})
	if n >= 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// Heatmap averages volume per weekday and hour
func Heatmap(records []domain.TrafficRecord) domain.Heatmap {
	var sums, counts [7][24]int
	for _, r := range records {
		day := int(r.Timestamp.Weekday())
		if r.Hour < 0 || r.Hour > 23 {
			continue
		}
		sums[day][r.Hour] += r.Volume
		counts[day][r.Hour]++
	}

	hm := domain.Heatmap{Days: make([]string, 7)}
	for day := 0; day < 7; day++ {
		hm.Days[day] = domain.Weekdays[day][:3]
		for hour := 0; hour < 24; hour++ {
			v := utils.MeanRounded(float64(sums[day][hour]), counts[day][hour])
			hm.Values[day][hour] = v
			if v > hm.Max {
				hm.Max = v
			}
		}
	}
	return hm
}

// TemperatureSeries returns one point per record that reports a temperature
func TemperatureSeries(records []domain.TrafficRecord) []domain.TemperaturePoint {
	points := make([]domain.TemperaturePoint, 0)
	for _, r := range records {
		if r.Temperature == nil {
			continue
		}
		points = append(points, domain.TemperaturePoint{
			Temperature: *r.Temperature,
			Volume:      r.Volume,
			Speed:       r.Speed,
		})
	}
	return points
}

// AverageTemperature is the rounded mean temperature of the points, nil when
// there are none
func AverageTemperature(points []domain.TemperaturePoint) *int {
	if len(points) == 0 {
		return nil
	}
	var sum float64
	for _, p := range points {
		sum += p.Temperature
	}
	avg := utils.MeanRounded(sum, len(points))
	return &avg
}

var numberPrinter = message.NewPrinter(language.English)

// Summary computes the dashboard headline figures
func Summary(records []domain.TrafficRecord) domain.Summary {
	s := domain.Summary{Records: len(records), PeakTime: "N/A"}
	if len(records) == 0 {
		s.TotalVolumeLabel = "0"
		return s
	}

	var speedSum float64
	locations := make(map[string]struct{})
	for i, r := range records {
		s.TotalVolume += r.Volume
		speedSum += r.Speed
		locations[r.Location] = struct{}{}
		// unlike the location peak, a tie moves to the later reading
		if i == 0 || r.Volume >= s.PeakVolume {
			s.PeakVolume = r.Volume
			s.PeakTime = r.Time
		}
	}
	s.AvgSpeed = utils.RoundTo(speedSum/float64(len(records)), 1)
	s.Locations = len(locations)
	s.TotalVolumeLabel = numberPrinter.Sprintf("%d", s.TotalVolume)
	return s
}

// VolumeStatus classifies a single reading
func VolumeStatus(volume int) string {
	switch {
	case volume > 100:
		return domain.VolumeHigh
	case volume > 50:
		return domain.VolumeMedium
	default:
		return domain.VolumeLow
	}
}

// Recent returns the n newest records, newest first. The input is not reordered.
func Recent(records []domain.TrafficRecord, n int) []domain.RecentEntry {
	sorted := make([]domain.TrafficRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})
	if n >= 0 && n < len(sorted) {
		sorted = sorted[:n]
	}

	entries := make([]domain.RecentEntry, 0, len(sorted))
	for _, r := range sorted {
		entries = append(entries, domain.RecentEntry{TrafficRecord: r, Status: VolumeStatus(r.Volume)})
	}
	return entries
}

// ParseWindow accepts durations like 24h, 7d or 30d
func ParseWindow(s string) (time.Duration, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil || days <= 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidWindow, s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWindow, s)
	}
	return d, nil
}

// TimeSeries averages records no older than window by hour of day, ordered
// by hour. Hours without readings are omitted.
func TimeSeries(records []domain.TrafficRecord, window time.Duration, now time.Time) []domain.TimePoint {
	recent := make([]domain.TrafficRecord, 0, len(records))
	for _, r := range records {
		if now.Sub(r.Timestamp) <= window {
			recent = append(recent, r)
		}
	}

	buckets := fold(recent, nil, func(r domain.TrafficRecord) int { return r.Hour })
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].key < buckets[j].key })

	points := make([]domain.TimePoint, 0, len(buckets))
	for _, b := range buckets {
		points = append(points, domain.TimePoint{
			Time:      fmt.Sprintf("%d:00", b.key),
			Hour:      b.key,
			Volume:    b.avgVolume(),
			Speed:     b.avgSpeed(),
			Occupancy: b.avgOccupancy(),
			Count:     b.count,
		})
	}
	return points
}
