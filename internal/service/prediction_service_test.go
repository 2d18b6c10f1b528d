package service

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smartcity/trafficlens/internal/domain"
	"github.com/smartcity/trafficlens/internal/repository/postgres"
)

func predictionRequest() domain.PredictionRequest {
	return domain.PredictionRequest{
		Date:     "2024-03-04",
		Time:     "08:15",
		Location: "Highway 101",
	}
}

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.PredictionRequest)
	}{
		{"missing date", func(r *domain.PredictionRequest) { r.Date = "" }},
		{"bad date", func(r *domain.PredictionRequest) { r.Date = "04/03/2024" }},
		{"bad time", func(r *domain.PredictionRequest) { r.Time = "8am" }},
		{"blank location", func(r *domain.PredictionRequest) { r.Location = "  " }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := predictionRequest()
			tt.mutate(&req)
			if err := ValidateRequest(req); !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
	if err := ValidateRequest(predictionRequest()); err != nil {
		t.Errorf("valid request rejected: %v", err)
	}
}

func TestPredictionService(t *testing.T) {
	repo := postgres.NewMockRepository()
	svc := NewPredictionService(NewSimulatedPredictor(0, rand.New(rand.NewSource(1))), repo)

	result, err := svc.Predict(context.Background(), predictionRequest())
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if result.Predicted < 50 || result.Predicted > 150 {
		t.Errorf("predicted = %d", result.Predicted)
	}
	if result.Confidence < 0.8 || result.Confidence > 0.95 {
		t.Errorf("confidence = %v", result.Confidence)
	}
	if result.ID == "" || !result.IsMock || result.Request.Weather != domain.DefaultWeather {
		t.Errorf("result = %+v", result)
	}

	if _, err := svc.Predict(context.Background(), domain.PredictionRequest{}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}

	svc.WaitBackground()
	if logs := repo.Predictions(); len(logs) != 1 || logs[0].ID != result.ID {
		t.Errorf("logged predictions = %+v", logs)
	}
}

func TestPredictionHistory(t *testing.T) {
	svc := NewPredictionService(NewSimulatedPredictor(0, rand.New(rand.NewSource(4))), postgres.NewMockRepository())
	if h := svc.History(); h == nil || len(h) != 0 {
		t.Errorf("empty history = %#v", h)
	}

	var ids []string
	for i := 0; i < historySize+3; i++ {
		r, err := svc.Predict(context.Background(), predictionRequest())
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, r.ID)
	}
	svc.WaitBackground()

	history := svc.History()
	if len(history) != historySize {
		t.Fatalf("history length = %d", len(history))
	}
	if history[0].ID != ids[len(ids)-1] {
		t.Error("history should be newest first")
	}

	points := svc.ChartPoints()
	if len(points) != historySize || points[0].Index != 1 || points[historySize-1].Predicted != history[0].Predicted {
		t.Errorf("chart points = %+v", points)
	}
	for _, p := range points {
		if p.LowerBound > float64(p.Predicted) || p.UpperBound < float64(p.Predicted) {
			t.Errorf("band does not contain prediction: %+v", p)
		}
	}
}

func TestBandPoint(t *testing.T) {
	p := bandPoint(1, domain.PredictionResult{Predicted: 100, Confidence: 0.9})
	if p.UpperBound != 105 || p.LowerBound != 95 {
		t.Errorf("band = %v..%v, want 95..105", p.LowerBound, p.UpperBound)
	}
}

func TestSimulatedPredictorCancel(t *testing.T) {
	p := NewSimulatedPredictor(time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Predict(ctx, predictionRequest()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRemotePredictor(t *testing.T) {
	var got domain.PredictionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/predict":
			if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"predicted": 123.0, "confidence": 0.91}`))
		case "/health":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	remote := NewRemotePredictor(server.URL, NewSimulatedPredictor(0, nil))
	result, err := remote.Predict(context.Background(), predictionRequest())
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if result.Predicted != 123 || result.Confidence != 0.91 || result.IsMock {
		t.Errorf("result = %+v", result)
	}
	if got.Location != "Highway 101" {
		t.Errorf("service received %+v", got)
	}
	if err := remote.Health(context.Background()); err != nil {
		t.Errorf("Health failed: %v", err)
	}
}

func TestRemotePredictorFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	remote := NewRemotePredictor(server.URL, NewSimulatedPredictor(0, rand.New(rand.NewSource(5))))
	result, err := remote.Predict(context.Background(), predictionRequest())
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if !result.IsMock {
		t.Error("failed remote call should fall back to the simulated predictor")
	}
	if err := remote.Health(context.Background()); err == nil {
		t.Error("expected health failure on 500")
	}
}
