package aggregate

import (
	"fmt"
	"sort"

	"github.com/smartcity/trafficlens/internal/domain"
)

var hours = func() []int {
	h := make([]int, 24)
	for i := range h {
		h[i] = i
	}
	return h
}()

// ByLocation groups by location in first-seen order. Locations are data
// driven, so an empty input yields no rows.
func ByLocation(records []domain.TrafficRecord) []domain.LocationStat {
	buckets := fold(records, nil, func(r domain.TrafficRecord) string { return r.Location })

	stats := make([]domain.LocationStat, 0, len(buckets))
	for _, b := range buckets {
		stats = append(stats, domain.LocationStat{
			Location:     b.key,
			TotalVolume:  b.volumeSum,
			AvgVolume:    b.avgVolume(),
			AvgSpeed:     b.avgSpeed(),
			AvgOccupancy: b.avgOccupancy(),
			Count:        b.count,
			PeakVolume:   b.peakVolume,
			PeakTime:     b.peakTime,
		})
	}
	return stats
}

// ByHour always returns 24 rows, hour 0 first
func ByHour(records []domain.TrafficRecord) []domain.HourlyStat {
	buckets := fold(records, hours, func(r domain.TrafficRecord) int { return r.Hour })

	stats := make([]domain.HourlyStat, 0, len(hours))
	for _, b := range buckets[:len(hours)] {
		stats = append(stats, domain.HourlyStat{
			Hour:         b.key,
			Label:        fmt.Sprintf("%d:00", b.key),
			TotalVolume:  b.volumeSum,
			AvgVolume:    b.avgVolume(),
			AvgSpeed:     b.avgSpeed(),
			AvgOccupancy: b.avgOccupancy(),
			Count:        b.count,
		})
	}
	return stats
}

// ByDayOfWeek always returns 7 rows, Sunday first
func ByDayOfWeek(records []domain.TrafficRecord) []domain.DailyStat {
	buckets := fold(records, domain.Weekdays, func(r domain.TrafficRecord) string { return r.DayOfWeek })

	stats := make([]domain.DailyStat, 0, len(domain.Weekdays))
	for _, b := range buckets[:len(domain.Weekdays)] {
		stats = append(stats, domain.DailyStat{
			Day:         b.key,
			Short:       b.key[:3],
			TotalVolume: b.volumeSum,
			AvgVolume:   b.avgVolume(),
			AvgSpeed:    b.avgSpeed(),
			Count:       b.count,
		})
	}
	return stats
}

// ByMonth returns one row per YYYY-MM present, ascending
func ByMonth(records []domain.TrafficRecord) []domain.MonthlyStat {
	buckets := fold(records, nil, domain.TrafficRecord.MonthKey)
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].key < buckets[j].key })

	stats := make([]domain.MonthlyStat, 0, len(buckets))
	for _, b := range buckets {
		stats = append(stats, domain.MonthlyStat{
			Month:       b.key,
			TotalVolume: b.volumeSum,
			AvgVolume:   b.avgVolume(),
			AvgSpeed:    b.avgSpeed(),
			Count:       b.count,
		})
	}
	return stats
}

// BySeason always returns Winter, Spring, Summer, Fall
func BySeason(records []domain.TrafficRecord) []domain.SeasonStat {
	buckets := fold(records, domain.Seasons, func(r domain.TrafficRecord) string { return r.Season })

	stats := make([]domain.SeasonStat, 0, len(domain.Seasons))
	for _, b := range buckets[:len(domain.Seasons)] {
		stats = append(stats, domain.SeasonStat{
			Season:      b.key,
			TotalVolume: b.volumeSum,
			AvgVolume:   b.avgVolume(),
			AvgSpeed:    b.avgSpeed(),
			Count:       b.count,
		})
	}
	return stats
}

// ByWeather groups by weather condition in first-seen order. A blank
// condition counts as clear.
func ByWeather(records []domain.TrafficRecord) []domain.WeatherStat {
	buckets := fold(records, nil, func(r domain.TrafficRecord) string {
		if r.Weather == "" {
			return domain.DefaultWeather
		}
		return r.Weather
	})

	stats := make([]domain.WeatherStat, 0, len(buckets))
	for _, b := range buckets {
		stats = append(stats, domain.WeatherStat{
			Weather:     b.key,
			TotalVolume: b.volumeSum,
			AvgVolume:   b.avgVolume(),
			AvgSpeed:    b.avgSpeed(),
			Count:       b.count,
		})
	}
	return stats
}
