package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smartcity/trafficlens/internal/domain"
)

// schema creates the audit log tables. Statements are idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS prediction_logs (
		id TEXT PRIMARY KEY,
		request_date DATE,
		request_time TEXT,
		location TEXT NOT NULL,
		weather TEXT,
		temperature DOUBLE PRECISION,
		is_weekend BOOLEAN,
		is_holiday BOOLEAN,
		predicted INTEGER NOT NULL,
		confidence DOUBLE PRECISION NOT NULL,
		is_mock BOOLEAN NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS training_runs (
		id TEXT PRIMARY KEY,
		model_type TEXT NOT NULL,
		config JSONB NOT NULL,
		data_size INTEGER NOT NULL,
		status TEXT NOT NULL,
		metrics JSONB,
		error TEXT,
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS summary_snapshots (
		id BIGSERIAL PRIMARY KEY,
		dataset_name TEXT NOT NULL,
		loaded_at TIMESTAMPTZ NOT NULL,
		records INTEGER NOT NULL,
		total_volume BIGINT NOT NULL,
		avg_speed DOUBLE PRECISION NOT NULL,
		peak_volume INTEGER NOT NULL,
		peak_time TEXT NOT NULL,
		locations INTEGER NOT NULL,
		taken_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// PostgresRepository implements domain.Repository
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates missing tables
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: failed to apply schema: %w", err)
		}
	}
	return nil
}

// SavePredictionLog persists a prediction request/response to PostgreSQL
func (r *PostgresRepository) SavePredictionLog(ctx context.Context, result domain.PredictionResult) error {
	query := `
		INSERT INTO prediction_logs (
			id, request_date, request_time, location, weather, temperature,
			is_weekend, is_holiday, predicted, confidence, is_mock, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	// nil keeps the nullable DATE column empty
	var date interface{}
	if result.Request.Date != "" {
		date = result.Request.Date
	}

	req := result.Request
	_, err := r.pool.Exec(ctx, query,
		result.ID, date, req.Time, req.Location, req.Weather, req.Temperature,
		req.IsWeekend, req.IsHoliday, result.Predicted, result.Confidence, result.IsMock, result.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save prediction log: %w", err)
	}

	return nil
}

// SaveTrainingRun persists a finished training job
func (r *PostgresRepository) SaveTrainingRun(ctx context.Context, job domain.TrainingJob) error {
	config, err := json.Marshal(job.Config)
	if err != nil {
		return fmt.Errorf("postgres: failed to encode training config: %w", err)
	}
	var metrics []byte
	if job.Metrics != nil {
		if metrics, err = json.Marshal(job.Metrics); err != nil {
			return fmt.Errorf("postgres: failed to encode training metrics: %w", err)
		}
	}

	query := `
		INSERT INTO training_runs (
			id, model_type, config, data_size, status, metrics, error, started_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status, metrics = EXCLUDED.metrics,
			error = EXCLUDED.error, finished_at = EXCLUDED.finished_at
	`

	_, err = r.pool.Exec(ctx, query,
		job.ID, job.Config.ModelType, config, job.DataSize, job.Status, metrics, job.Error,
		job.StartedAt, job.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save training run: %w", err)
	}

	return nil
}

// SaveSummarySnapshot persists the headline figures of a dataset
func (r *PostgresRepository) SaveSummarySnapshot(ctx context.Context, dataset domain.DatasetInfo, summary domain.Summary) error {
	query := `
		INSERT INTO summary_snapshots (
			dataset_name, loaded_at, records, total_volume, avg_speed,
			peak_volume, peak_time, locations
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		dataset.Name, dataset.LoadedAt, summary.Records, summary.TotalVolume, summary.AvgSpeed,
		summary.PeakVolume, summary.PeakTime, summary.Locations,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save summary snapshot: %w", err)
	}

	return nil
}

// Health checks database connectivity
func (r *PostgresRepository) Health(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}
