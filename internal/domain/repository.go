package domain

import "context"

// Repository defines the interface for the audit log store.
// The dataset itself is never persisted; only predictions, training runs
// and periodic summary snapshots are recorded.
type Repository interface {
	// SavePredictionLog persists a prediction request/response
	SavePredictionLog(ctx context.Context, result PredictionResult) error

	// SaveTrainingRun persists a finished training job
	SaveTrainingRun(ctx context.Context, job TrainingJob) error

	// SaveSummarySnapshot persists the dashboard headline figures of a dataset
	SaveSummarySnapshot(ctx context.Context, dataset DatasetInfo, summary Summary) error

	// Health checks store connectivity
	Health(ctx context.Context) error
}
