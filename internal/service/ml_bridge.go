package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/smartcity/trafficlens/internal/domain"
	"github.com/smartcity/trafficlens/pkg/utils"
)

// RemotePredictor handles communication with the external ML service.
// Transport failures and non-200 answers fall back to another Predictor.
type RemotePredictor struct {
	serviceURL string
	httpClient *http.Client
	fallback   Predictor
}

// NewRemotePredictor creates a new ML bridge
func NewRemotePredictor(serviceURL string, fallback Predictor) *RemotePredictor {
	return &RemotePredictor{
		serviceURL: serviceURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		fallback: fallback,
	}
}

func (b *RemotePredictor) endpoint(path string) string {
	return strings.TrimRight(b.serviceURL, "/") + path
}

// remotePrediction is the ML service's /predict response body
type remotePrediction struct {
	Predicted  float64 `json:"predicted"`
	Confidence float64 `json:"confidence"`
}

// Predict calls the ML service for a volume estimate
func (b *RemotePredictor) Predict(ctx context.Context, req domain.PredictionRequest) (domain.PredictionResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return domain.PredictionResult{}, fmt.Errorf("ml_bridge: failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint("/predict"), bytes.NewReader(body))
	if err != nil {
		return domain.PredictionResult{}, fmt.Errorf("ml_bridge: failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return b.fallback.Predict(ctx, req)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return b.fallback.Predict(ctx, req)
	}

	var prediction remotePrediction
	if err := json.NewDecoder(resp.Body).Decode(&prediction); err != nil {
		return domain.PredictionResult{}, fmt.Errorf("ml_bridge: failed to decode response: %w", err)
	}

	return domain.PredictionResult{
		Predicted:  utils.RoundHalfUp(prediction.Predicted),
		Confidence: prediction.Confidence,
	}, nil
}

// Health checks ML service connectivity
func (b *RemotePredictor) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.endpoint("/health"), nil)
	if err != nil {
		return fmt.Errorf("ml_bridge: failed to create health request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ml_bridge: health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ml_bridge: health check returned status %d", resp.StatusCode)
	}

	return nil
}
