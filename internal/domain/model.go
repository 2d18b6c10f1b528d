package domain

import "time"

// Model types accepted by the trainer
const (
	ModelLinear   = "linear"
	ModelNeural   = "neural"
	ModelEnsemble = "ensemble"
)

// TrainableFeatures lists the record attributes a model may be trained on
var TrainableFeatures = []string{
	"volume", "speed", "occupancy", "hour", "dayOfWeek", "month",
	"temperature", "weather", "isWeekend", "isHoliday",
}

// ModelConfig describes a training run
type ModelConfig struct {
	ModelType       string         `json:"modelType"`
	Features        []string       `json:"features"`
	Hyperparameters map[string]any `json:"hyperparameters,omitempty"`
	ValidationSplit float64        `json:"validationSplit"`
	Epochs          *int           `json:"epochs,omitempty"`
	BatchSize       *int           `json:"batchSize,omitempty"`
}

// ModelMetrics are the placeholder scores reported after training
type ModelMetrics struct {
	Accuracy     float64 `json:"accuracy"`
	MSE          float64 `json:"mse"`
	MAE          float64 `json:"mae"`
	R2Score      float64 `json:"r2Score"`
	TrainingTime float64 `json:"trainingTime"`
}

// Training job states
const (
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// TrainingJob tracks one background training run
type TrainingJob struct {
	ID       string      `json:"id"`
	Config   ModelConfig `json:"config"`
	DataSize int         `json:"dataSize"`
	// set sizes are each rounded, so they need not sum to DataSize
	TrainSize      int           `json:"trainSize"`
	ValidationSize int           `json:"validationSize"`
	Status         string        `json:"status"`
	Progress       int           `json:"progress"`
	Metrics        *ModelMetrics `json:"metrics,omitempty"`
	Error          string        `json:"error,omitempty"`
	StartedAt      time.Time     `json:"startedAt"`
	FinishedAt     *time.Time    `json:"finishedAt,omitempty"`
}

// PredictionRequest represents input for a traffic volume prediction
type PredictionRequest struct {
	Date        string   `json:"date"`
	Time        string   `json:"time"`
	Location    string   `json:"location"`
	Weather     string   `json:"weather"`
	Temperature *float64 `json:"temperature,omitempty"`
	IsWeekend   bool     `json:"isWeekend"`
	IsHoliday   bool     `json:"isHoliday"`
}

// PredictionResult represents a prediction output
type PredictionResult struct {
	ID         string            `json:"id"`
	Predicted  int               `json:"predicted"`
	Actual     *int              `json:"actual,omitempty"`
	Confidence float64           `json:"confidence"`
	Timestamp  time.Time         `json:"timestamp"`
	Request    PredictionRequest `json:"request"`
	IsMock     bool              `json:"is_mock"`
}

// PredictionPoint is one chart point with a confidence band
type PredictionPoint struct {
	Index      int     `json:"index"`
	Predicted  int     `json:"predicted"`
	Confidence float64 `json:"confidence"`
	UpperBound float64 `json:"upperBound"`
	LowerBound float64 `json:"lowerBound"`
}
