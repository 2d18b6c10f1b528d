package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smartcity/trafficlens/internal/domain"
	"github.com/smartcity/trafficlens/internal/ingest"
	"github.com/smartcity/trafficlens/pkg/utils"
)

var (
	// ErrInvalidConfig is returned for a model config that cannot be trained
	ErrInvalidConfig = errors.New("invalid model config")
	// ErrJobNotFound is returned for an unknown training job id
	ErrJobNotFound = errors.New("training job not found")
)

// Trainer fits a model on records. progress is called with 0-100.
type Trainer interface {
	Train(ctx context.Context, cfg domain.ModelConfig, records []domain.TrafficRecord, progress func(int)) (domain.ModelMetrics, error)
}

// SimulatedTrainer advances progress on a ticker and reports placeholder
// metrics. No model is actually fitted.
type SimulatedTrainer struct {
	tick time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// defaultTrainingTick is used when a trainer is given a non-positive tick
const defaultTrainingTick = 100 * time.Millisecond

// NewSimulatedTrainer creates a trainer advancing 2% per tick
func NewSimulatedTrainer(tick time.Duration, rng *rand.Rand) *SimulatedTrainer {
	if tick <= 0 {
		tick = defaultTrainingTick
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &SimulatedTrainer{tick: tick, rng: rng}
}

// Train implements Trainer
func (t *SimulatedTrainer) Train(ctx context.Context, _ domain.ModelConfig, _ []domain.TrafficRecord, progress func(int)) (domain.ModelMetrics, error) {
	ticker := time.NewTicker(t.tick)
	defer ticker.Stop()

	for p := 0; p < 100; {
		select {
		case <-ctx.Done():
			return domain.ModelMetrics{}, ctx.Err()
		case <-ticker.C:
			p += 2
			progress(p)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return domain.ModelMetrics{
		Accuracy:     utils.RoundTo(0.85+t.rng.Float64()*0.1, 3),
		MSE:          utils.RoundTo(50+t.rng.Float64()*20, 2),
		MAE:          utils.RoundTo(15+t.rng.Float64()*10, 2),
		R2Score:      utils.RoundTo(0.8+t.rng.Float64()*0.15, 3),
		TrainingTime: utils.RoundTo(120+t.rng.Float64()*60, 1),
	}, nil
}

// TrainingService runs training jobs in the background and tracks their state
type TrainingService struct {
	trainer  Trainer
	datasets *DatasetService
	repo     Repository

	mu   sync.RWMutex
	jobs map[string]*domain.TrainingJob

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTrainingService creates a new training service
func NewTrainingService(trainer Trainer, datasets *DatasetService, repo Repository) *TrainingService {
	ctx, cancel := context.WithCancel(context.Background())
	return &TrainingService{
		trainer:  trainer,
		datasets: datasets,
		repo:     repo,
		jobs:     make(map[string]*domain.TrainingJob),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// ValidateConfig checks a model config before training
func ValidateConfig(cfg domain.ModelConfig) error {
	switch cfg.ModelType {
	case domain.ModelLinear, domain.ModelNeural, domain.ModelEnsemble:
	default:
		return fmt.Errorf("%w: unknown model type %q", ErrInvalidConfig, cfg.ModelType)
	}
	if len(cfg.Features) == 0 {
		return fmt.Errorf("%w: at least one feature is required", ErrInvalidConfig)
	}
	for _, f := range cfg.Features {
		if !slices.Contains(domain.TrainableFeatures, f) {
			return fmt.Errorf("%w: unknown feature %q", ErrInvalidConfig, f)
		}
	}
	if cfg.ValidationSplit <= 0 || cfg.ValidationSplit >= 1 {
		return fmt.Errorf("%w: validationSplit must be between 0 and 1", ErrInvalidConfig)
	}
	if cfg.Epochs != nil && *cfg.Epochs <= 0 {
		return fmt.Errorf("%w: epochs must be positive", ErrInvalidConfig)
	}
	if cfg.BatchSize != nil && *cfg.BatchSize <= 0 {
		return fmt.Errorf("%w: batchSize must be positive", ErrInvalidConfig)
	}
	return nil
}

// SplitSizes returns the training and validation set sizes for n records
func SplitSizes(n int, validationSplit float64) (train, validation int) {
	return utils.RoundHalfUp(float64(n) * (1 - validationSplit)),
		utils.RoundHalfUp(float64(n) * validationSplit)
}

// Start validates cfg and launches a job on the current dataset
func (s *TrainingService) Start(cfg domain.ModelConfig) (domain.TrainingJob, error) {
	if err := ValidateConfig(cfg); err != nil {
		return domain.TrainingJob{}, err
	}
	records := s.datasets.Records()
	if len(records) == 0 {
		return domain.TrainingJob{}, fmt.Errorf("service: nothing to train on: %w", ingest.ErrEmptyDataset)
	}

	job := &domain.TrainingJob{
		ID:        uuid.NewString(),
		Config:    cfg,
		DataSize:  len(records),
		Status:    domain.JobRunning,
		StartedAt: time.Now(),
	}
	job.TrainSize, job.ValidationSize = SplitSizes(len(records), cfg.ValidationSplit)

	s.mu.Lock()
	s.jobs[job.ID] = job
	snapshot := *job
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(job.ID, cfg, records)

	log.Printf("Training job %s started: %s model, %d records", job.ID, cfg.ModelType, len(records))
	return snapshot, nil
}

func (s *TrainingService) run(id string, cfg domain.ModelConfig, records []domain.TrafficRecord) {
	defer s.wg.Done()

	metrics, err := s.trainer.Train(s.ctx, cfg, records, func(p int) {
		s.mu.Lock()
		s.jobs[id].Progress = p
		s.mu.Unlock()
	})

	finished := time.Now()
	s.mu.Lock()
	job := s.jobs[id]
	job.FinishedAt = &finished
	if err != nil {
		job.Status = domain.JobFailed
		job.Error = err.Error()
	} else {
		job.Status = domain.JobCompleted
		job.Progress = 100
		job.Metrics = &metrics
	}
	snapshot := *job
	s.mu.Unlock()

	if err != nil {
		log.Printf("Training job %s failed: %v", id, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.repo.SaveTrainingRun(ctx, snapshot); err != nil {
		log.Printf("Failed to save training run: %v", err)
	}
}

// Job returns a copy of the job's current state
func (s *TrainingService) Job(id string) (domain.TrainingJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return domain.TrainingJob{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return *job, nil
}

// Close cancels running jobs and waits for them to record their outcome
func (s *TrainingService) Close() {
	s.cancel()
	s.wg.Wait()
}
