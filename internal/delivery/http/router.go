package http

import (
	"github.com/gofiber/fiber/v2"
)

// SetupRoutes configures all HTTP routes
func SetupRoutes(app *fiber.App, handler *Handler) {
	// Health check
	app.Get("/health", handler.HealthCheck)

	// API v1 routes
	api := app.Group("/api/v1")
	{
		// Dataset lifecycle
		api.Post("/datasets", handler.UploadDataset)
		api.Get("/datasets/current", handler.GetDataset)
		api.Get("/datasets/current/export", handler.ExportDataset)
		api.Get("/records", handler.GetRecords)
		api.Get("/records/recent", handler.GetRecentRecords)

		// Aggregations over the current dataset
		analytics := api.Group("/analytics")
		analytics.Get("/summary", handler.GetSummary)
		analytics.Get("/locations", handler.GetLocations)
		analytics.Get("/hourly", handler.GetHourly)
		analytics.Get("/daily", handler.GetDaily)
		analytics.Get("/monthly", handler.GetMonthly)
		analytics.Get("/seasons", handler.GetSeasons)
		analytics.Get("/weather", handler.GetWeather)
		analytics.Get("/weather-impact", handler.GetWeatherImpact)
		analytics.Get("/temperature", handler.GetTemperature)
		analytics.Get("/heatmap", handler.GetHeatmap)
		analytics.Get("/growth", handler.GetGrowth)
		analytics.Get("/peak-hours", handler.GetPeakHours)
		analytics.Get("/timeseries", handler.GetTimeSeries)

		// Simulated model lifecycle
		api.Post("/training", handler.StartTraining)
		api.Get("/training/:id", handler.GetTrainingJob)
		api.Post("/predictions", handler.Predict)
		api.Get("/predictions", handler.GetPredictions)
	}
}

// ErrorHandler renders errors as {"error": true, "message": ...}
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
