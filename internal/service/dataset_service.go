package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/smartcity/trafficlens/internal/aggregate"
	"github.com/smartcity/trafficlens/internal/domain"
	"github.com/smartcity/trafficlens/internal/ingest"
)

// DatasetService owns the currently loaded dataset and answers analytics
// queries against it. A load replaces the dataset wholesale.
type DatasetService struct {
	normalizer *ingest.Normalizer
	repo       Repository

	mu      sync.RWMutex
	current domain.Dataset

	wgBg sync.WaitGroup // tracks background goroutines for graceful shutdown
}

// NewDatasetService creates a new dataset service
func NewDatasetService(normalizer *ingest.Normalizer, repo Repository) *DatasetService {
	if normalizer == nil {
		normalizer = ingest.NewNormalizer(time.UTC)
	}
	return &DatasetService{
		normalizer: normalizer,
		repo:       repo,
	}
}

// WaitBackground blocks until all background save goroutines complete.
// Call during graceful shutdown to avoid dropped writes.
func (s *DatasetService) WaitBackground() {
	s.wgBg.Wait()
}

// Load parses and normalizes an uploaded file and makes it the current
// dataset. On any error the previous dataset stays in place.
func (s *DatasetService) Load(ctx context.Context, name string, r io.Reader) (domain.DatasetInfo, error) {
	records, err := ingest.Load(name, r, s.normalizer)
	if err != nil {
		return domain.DatasetInfo{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.DatasetInfo{}, fmt.Errorf("service: load of %s cancelled: %w", name, err)
	}

	info := s.Replace(name, records)
	log.Printf("Loaded dataset %s: %d records", info.Name, info.Count)
	return info, nil
}

// LoadFile loads a dataset from disk, named after the file
func (s *DatasetService) LoadFile(ctx context.Context, path string) (domain.DatasetInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.DatasetInfo{}, fmt.Errorf("service: failed to open %s: %w", path, err)
	}
	defer f.Close()
	return s.Load(ctx, filepath.Base(path), f)
}

// LoadSample replaces the dataset with n synthetic readings ending at now
func (s *DatasetService) LoadSample(n int, now time.Time, rng *rand.Rand) (domain.DatasetInfo, error) {
	records, err := s.normalizer.NormalizeAll(SampleData(n, now, rng))
	if err != nil {
		return domain.DatasetInfo{}, fmt.Errorf("service: failed to build sample data: %w", err)
	}
	return s.Replace("sample", records), nil
}

// Replace swaps in an already normalized record set and records a summary
// snapshot in the background.
func (s *DatasetService) Replace(name string, records []domain.TrafficRecord) domain.DatasetInfo {
	ds := domain.Dataset{
		Name:     name,
		LoadedAt: time.Now(),
		Records:  records,
	}

	s.mu.Lock()
	s.current = ds
	s.mu.Unlock()

	info := ds.Info()
	summary := aggregate.Summary(records)

	s.wgBg.Add(1)
	go func() {
		defer s.wgBg.Done()
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.repo.SaveSummarySnapshot(bgCtx, info, summary); err != nil {
			log.Printf("Failed to save summary snapshot: %v", err)
		}
	}()

	return info
}

// Info describes the current dataset
func (s *DatasetService) Info() domain.DatasetInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Info()
}

// Records returns the current record slice. Callers must not modify it.
func (s *DatasetService) Records() []domain.TrafficRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Records
}

// SnapshotSummary records the current headline figures in the repository
func (s *DatasetService) SnapshotSummary(ctx context.Context) error {
	s.mu.RLock()
	ds := s.current
	s.mu.RUnlock()

	if err := s.repo.SaveSummarySnapshot(ctx, ds.Info(), aggregate.Summary(ds.Records)); err != nil {
		return fmt.Errorf("service: failed to snapshot summary: %w", err)
	}
	return nil
}

// Summary returns the dashboard headline figures
func (s *DatasetService) Summary() domain.Summary {
	return aggregate.Summary(s.Records())
}

// Locations returns per-location statistics
func (s *DatasetService) Locations() []domain.LocationStat {
	return aggregate.ByLocation(s.Records())
}

// Hourly returns the 24 hour-of-day rows
func (s *DatasetService) Hourly() []domain.HourlyStat {
	return aggregate.ByHour(s.Records())
}

// Daily returns the 7 day-of-week rows
func (s *DatasetService) Daily() []domain.DailyStat {
	return aggregate.ByDayOfWeek(s.Records())
}

// Monthly returns one row per month, ascending
func (s *DatasetService) Monthly() []domain.MonthlyStat {
	return aggregate.ByMonth(s.Records())
}

// Seasons returns the 4 season rows
func (s *DatasetService) Seasons() []domain.SeasonStat {
	return aggregate.BySeason(s.Records())
}

// Weather returns per-condition statistics
func (s *DatasetService) Weather() []domain.WeatherStat {
	return aggregate.ByWeather(s.Records())
}

// WeatherImpact compares each condition against clear weather
func (s *DatasetService) WeatherImpact() []domain.WeatherImpact {
	return aggregate.WeatherImpact(aggregate.ByWeather(s.Records()))
}

// Temperature returns the temperature/volume scatter
func (s *DatasetService) Temperature() []domain.TemperaturePoint {
	return aggregate.TemperatureSeries(s.Records())
}

// Heatmap returns the weekday by hour volume grid
func (s *DatasetService) Heatmap() domain.Heatmap {
	return aggregate.Heatmap(s.Records())
}

// Growth compares the two latest months
func (s *DatasetService) Growth() (domain.GrowthMetrics, bool) {
	return aggregate.Growth(aggregate.ByMonth(s.Records()))
}

// PeakHours returns the n busiest hours
func (s *DatasetService) PeakHours(n int) []domain.HourlyStat {
	return aggregate.PeakHours(aggregate.ByHour(s.Records()), n)
}

// Recent returns the n newest readings
func (s *DatasetService) Recent(n int) []domain.RecentEntry {
	return aggregate.Recent(s.Records(), n)
}

// TimeSeries returns hourly averages of readings within window of now
func (s *DatasetService) TimeSeries(window time.Duration, now time.Time) []domain.TimePoint {
	return aggregate.TimeSeries(s.Records(), window, now)
}

// Export writes all aggregate tables as an XLSX workbook
func (s *DatasetService) Export(w io.Writer) error {
	return aggregate.ExportXLSX(w, s.Records())
}
