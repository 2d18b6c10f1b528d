package http

import (
	"bytes"
	"context"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/smartcity/trafficlens/internal/domain"
	"github.com/smartcity/trafficlens/internal/ingest"
	"github.com/smartcity/trafficlens/internal/service"
)

const (
	defaultRecordLimit = 100
	maxRecordLimit     = 1000
	recentCount        = 10
)

// HealthChecker reports the reachability of an optional dependency
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Handler contains all HTTP handlers
type Handler struct {
	datasets    *service.DatasetService
	training    *service.TrainingService
	predictions *service.PredictionService
	repo        service.Repository
	ml          HealthChecker
	now         func() time.Time
}

// NewHandler creates a new handler. ml may be nil when no ML service is configured.
func NewHandler(
	datasets *service.DatasetService,
	training *service.TrainingService,
	predictions *service.PredictionService,
	repo service.Repository,
	ml HealthChecker,
) *Handler {
	return &Handler{
		datasets:    datasets,
		training:    training,
		predictions: predictions,
		repo:        repo,
		ml:          ml,
		now:         time.Now,
	}
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	database := "ok"
	if err := h.repo.Health(ctx); err != nil {
		database = "unavailable"
	}
	ml := "disabled"
	if h.ml != nil {
		ml = "ok"
		if err := h.ml.Health(ctx); err != nil {
			ml = "unavailable"
		}
	}

	return c.JSON(fiber.Map{
		"status":   "ok",
		"service":  "trafficlens",
		"version":  "1.0.0",
		"database": database,
		"ml":       ml,
		"dataset":  h.datasets.Info(),
	})
}

// UploadDataset replaces the current dataset with an uploaded CSV or XLSX file
func (h *Handler) UploadDataset(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Missing upload field \"file\"")
	}

	f, err := fh.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Failed to read upload")
	}
	defer f.Close()

	info, err := h.datasets.Load(c.UserContext(), fh.Filename, f)
	if err != nil {
		return ingestError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    info,
	})
}

// GetDataset describes the current dataset
func (h *Handler) GetDataset(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.datasets.Info(),
	})
}

// ExportDataset streams every aggregate table as a workbook
func (h *Handler) ExportDataset(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if err := h.datasets.Export(&buf); err != nil {
		log.Printf("Export failed: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to export dataset")
	}

	c.Attachment("traffic-analytics.xlsx")
	return c.Send(buf.Bytes())
}

// GetRecords returns the first records of the current dataset
func (h *Handler) GetRecords(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultRecordLimit)
	if limit < 1 {
		limit = defaultRecordLimit
	}
	if limit > maxRecordLimit {
		limit = maxRecordLimit
	}

	records := h.datasets.Records()
	total := len(records)
	if limit < total {
		records = records[:limit]
	}
	if records == nil {
		records = []domain.TrafficRecord{}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    records,
		"count":   len(records),
		"total":   total,
	})
}

// GetRecentRecords returns the newest readings with a volume status
func (h *Handler) GetRecentRecords(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.datasets.Recent(recentCount),
	})
}

// StartTraining launches a background training job
func (h *Handler) StartTraining(c *fiber.Ctx) error {
	var cfg domain.ModelConfig
	if err := c.BodyParser(&cfg); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	job, err := h.training.Start(cfg)
	switch {
	case errors.Is(err, service.ErrInvalidConfig):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ingest.ErrEmptyDataset):
		return fiber.NewError(fiber.StatusUnprocessableEntity, "No dataset loaded")
	case err != nil:
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to start training")
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"success": true,
		"data":    job,
	})
}

// GetTrainingJob returns a job's progress and, once done, its metrics
func (h *Handler) GetTrainingJob(c *fiber.Ctx) error {
	job, err := h.training.Job(c.Params("id"))
	if errors.Is(err, service.ErrJobNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "Training job not found")
	}
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch training job")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    job,
	})
}

// Predict estimates traffic volume for a date, time and location
func (h *Handler) Predict(c *fiber.Ctx) error {
	var req domain.PredictionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	result, err := h.predictions.Predict(c.UserContext(), req)
	if errors.Is(err, service.ErrInvalidRequest) {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err != nil {
		log.Printf("Prediction failed: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to get prediction")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    result,
	})
}

// GetPredictions returns recent predictions and their chart points
func (h *Handler) GetPredictions(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.predictions.History(),
		"chart":   h.predictions.ChartPoints(),
	})
}

// ingestError maps a dataset load failure to an HTTP error
func ingestError(err error) error {
	var parseErr *ingest.ParseError
	var rowErr *ingest.RowError
	switch {
	case errors.Is(err, ingest.ErrUnsupportedFormat):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ingest.ErrEmptyDataset),
		errors.As(err, &parseErr),
		errors.As(err, &rowErr),
		errors.Is(err, ingest.ErrInvalidTimestamp):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	default:
		log.Printf("Dataset load failed: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to load dataset")
	}
}
