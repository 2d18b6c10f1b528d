package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smartcity/trafficlens/internal/domain"
	"github.com/smartcity/trafficlens/pkg/utils"
)

// historySize is how many predictions are kept for the chart
const historySize = 10

// ErrInvalidRequest is returned for an incomplete prediction request
var ErrInvalidRequest = errors.New("invalid prediction request")

// Predictor estimates traffic volume. Implementations fill Predicted,
// Confidence and IsMock; the service stamps the rest.
type Predictor interface {
	Predict(ctx context.Context, req domain.PredictionRequest) (domain.PredictionResult, error)
}

// SimulatedPredictor answers after a fixed delay with a random estimate
type SimulatedPredictor struct {
	delay time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulatedPredictor creates a simulated predictor
func NewSimulatedPredictor(delay time.Duration, rng *rand.Rand) *SimulatedPredictor {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &SimulatedPredictor{delay: delay, rng: rng}
}

// Predict implements Predictor
func (p *SimulatedPredictor) Predict(ctx context.Context, _ domain.PredictionRequest) (domain.PredictionResult, error) {
	if p.delay > 0 {
		timer := time.NewTimer(p.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return domain.PredictionResult{}, ctx.Err()
		case <-timer.C:
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return domain.PredictionResult{
		Predicted:  utils.RoundHalfUp(50 + p.rng.Float64()*100),
		Confidence: utils.RoundTo(0.8+p.rng.Float64()*0.15, 3),
		IsMock:     true,
	}, nil
}

// PredictionService validates requests, delegates to a Predictor and keeps
// the most recent results.
type PredictionService struct {
	predictor Predictor
	repo      Repository

	mu      sync.RWMutex
	history []domain.PredictionResult // newest first

	wgBg sync.WaitGroup
}

// NewPredictionService creates a new prediction service
func NewPredictionService(predictor Predictor, repo Repository) *PredictionService {
	return &PredictionService{
		predictor: predictor,
		repo:      repo,
	}
}

// WaitBackground blocks until pending prediction logs are written
func (s *PredictionService) WaitBackground() {
	s.wgBg.Wait()
}

// ValidateRequest checks the required prediction inputs
func ValidateRequest(req domain.PredictionRequest) error {
	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidRequest)
	}
	if _, err := time.Parse("15:04", req.Time); err != nil {
		return fmt.Errorf("%w: time must be HH:MM", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.Location) == "" {
		return fmt.Errorf("%w: location is required", ErrInvalidRequest)
	}
	return nil
}

// Predict runs one prediction and records it
func (s *PredictionService) Predict(ctx context.Context, req domain.PredictionRequest) (domain.PredictionResult, error) {
	if err := ValidateRequest(req); err != nil {
		return domain.PredictionResult{}, err
	}
	if req.Weather == "" {
		req.Weather = domain.DefaultWeather
	}

	result, err := s.predictor.Predict(ctx, req)
	if err != nil {
		return domain.PredictionResult{}, fmt.Errorf("service: prediction failed: %w", err)
	}
	result.ID = uuid.NewString()
	result.Timestamp = time.Now()
	result.Request = req

	s.mu.Lock()
	s.history = append([]domain.PredictionResult{result}, s.history...)
	if len(s.history) > historySize {
		s.history = s.history[:historySize]
	}
	s.mu.Unlock()

	s.wgBg.Add(1)
	go func() {
		defer s.wgBg.Done()
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.repo.SavePredictionLog(bgCtx, result); err != nil {
			log.Printf("Failed to save prediction log: %v", err)
		}
	}()

	return result, nil
}

// History returns the kept predictions, newest first
func (s *PredictionService) History() []domain.PredictionResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := make([]domain.PredictionResult, len(s.history))
	copy(history, s.history)
	return history
}

// ChartPoints returns the history oldest first with a confidence band
func (s *PredictionService) ChartPoints() []domain.PredictionPoint {
	history := s.History()
	points := make([]domain.PredictionPoint, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		points = append(points, bandPoint(len(points)+1, history[i]))
	}
	return points
}

func bandPoint(index int, r domain.PredictionResult) domain.PredictionPoint {
	spread := (1 - r.Confidence) * 0.5
	return domain.PredictionPoint{
		Index:      index,
		Predicted:  r.Predicted,
		Confidence: r.Confidence,
		UpperBound: utils.RoundTo(float64(r.Predicted)*(1+spread), 1),
		LowerBound: utils.RoundTo(float64(r.Predicted)*(1-spread), 1),
	}
}
