package postgres

import (
	"context"
	"sync"

	"github.com/smartcity/trafficlens/internal/domain"
)

// Snapshot is one recorded summary
type Snapshot struct {
	Dataset domain.DatasetInfo
	Summary domain.Summary
}

// mockLogSize bounds each in-memory log; older entries are dropped first
const mockLogSize = 100

// MockRepository implements domain.Repository in memory for tests and
// demo mode, when no database is configured.
type MockRepository struct {
	mu          sync.Mutex
	predictions []domain.PredictionResult
	runs        []domain.TrainingJob
	snapshots   []Snapshot
}

// NewMockRepository creates a new mock repository
func NewMockRepository() *MockRepository {
	return &MockRepository{}
}

// SavePredictionLog records the prediction
func (r *MockRepository) SavePredictionLog(ctx context.Context, result domain.PredictionResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.predictions = appendCapped(r.predictions, result)
	return nil
}

// SaveTrainingRun records the job
func (r *MockRepository) SaveTrainingRun(ctx context.Context, job domain.TrainingJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = appendCapped(r.runs, job)
	return nil
}

// SaveSummarySnapshot records the snapshot
func (r *MockRepository) SaveSummarySnapshot(ctx context.Context, dataset domain.DatasetInfo, summary domain.Summary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = appendCapped(r.snapshots, Snapshot{Dataset: dataset, Summary: summary})
	return nil
}

func appendCapped[T any](entries []T, entry T) []T {
	entries = append(entries, entry)
	if len(entries) > mockLogSize {
		entries = append(entries[:0:0], entries[len(entries)-mockLogSize:]...)
	}
	return entries
}

// Health always returns nil in mock mode
func (r *MockRepository) Health(ctx context.Context) error {
	return nil
}

// Predictions returns the recorded predictions
func (r *MockRepository) Predictions() []domain.PredictionResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.PredictionResult(nil), r.predictions...)
}

// TrainingRuns returns the recorded training jobs
func (r *MockRepository) TrainingRuns() []domain.TrainingJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.TrainingJob(nil), r.runs...)
}

// Snapshots returns the recorded summaries
func (r *MockRepository) Snapshots() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Snapshot(nil), r.snapshots...)
}
