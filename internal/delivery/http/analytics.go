package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/smartcity/trafficlens/internal/aggregate"
)

const defaultPeakHours = 3

func respond(c *fiber.Ctx, data interface{}) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

// GetSummary returns the dashboard headline figures
func (h *Handler) GetSummary(c *fiber.Ctx) error {
	return respond(c, h.datasets.Summary())
}

// GetLocations returns per-location statistics
func (h *Handler) GetLocations(c *fiber.Ctx) error {
	return respond(c, h.datasets.Locations())
}

// GetHourly returns the 24 hour-of-day rows
func (h *Handler) GetHourly(c *fiber.Ctx) error {
	return respond(c, h.datasets.Hourly())
}

// GetDaily returns the 7 day-of-week rows
func (h *Handler) GetDaily(c *fiber.Ctx) error {
	return respond(c, h.datasets.Daily())
}

// GetMonthly returns one row per month
func (h *Handler) GetMonthly(c *fiber.Ctx) error {
	return respond(c, h.datasets.Monthly())
}

// GetSeasons returns the 4 season rows
func (h *Handler) GetSeasons(c *fiber.Ctx) error {
	return respond(c, h.datasets.Seasons())
}

// GetWeather returns per-condition statistics
func (h *Handler) GetWeather(c *fiber.Ctx) error {
	return respond(c, h.datasets.Weather())
}

// GetWeatherImpact returns each condition relative to clear weather
func (h *Handler) GetWeatherImpact(c *fiber.Ctx) error {
	return respond(c, h.datasets.WeatherImpact())
}

// GetTemperature returns the temperature/volume scatter. average is null
// when no reading carries a temperature.
func (h *Handler) GetTemperature(c *fiber.Ctx) error {
	points := h.datasets.Temperature()
	return c.JSON(fiber.Map{
		"success": true,
		"data":    points,
		"average": aggregate.AverageTemperature(points),
	})
}

// GetHeatmap returns the weekday by hour grid
func (h *Handler) GetHeatmap(c *fiber.Ctx) error {
	return respond(c, h.datasets.Heatmap())
}

// GetGrowth compares the two latest months. data is null with fewer than two.
func (h *Handler) GetGrowth(c *fiber.Ctx) error {
	growth, available := h.datasets.Growth()
	if !available {
		return c.JSON(fiber.Map{
			"success":   true,
			"available": false,
			"data":      nil,
		})
	}
	return c.JSON(fiber.Map{
		"success":   true,
		"available": true,
		"data":      growth,
	})
}

// GetPeakHours returns the busiest hours, ?n= defaults to 3
func (h *Handler) GetPeakHours(c *fiber.Ctx) error {
	n := c.QueryInt("n", defaultPeakHours)
	if n < 1 || n > 24 {
		n = defaultPeakHours
	}
	return respond(c, h.datasets.PeakHours(n))
}

// GetTimeSeries returns hourly averages for ?range=24h|7d|30d
func (h *Handler) GetTimeSeries(c *fiber.Ctx) error {
	window, err := aggregate.ParseWindow(c.Query("range", "24h"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return respond(c, h.datasets.TimeSeries(window, h.now()))
}
