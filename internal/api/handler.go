package api

import (
	"errors"
	"time"

	"github.com/bobby-s-dev/weather-refresh/internal/models"
	"github.com/bobby-s-dev/weather-refresh/internal/scheduler"
	"github.com/bobby-s-dev/weather-refresh/internal/screen"
	"github.com/bobby-s-dev/weather-refresh/internal/storage"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var validate = validator.New()

type DisplayReader interface {
	Snapshot() models.DisplayFields
}

type StatusReporter interface {
	Status() screen.Status
}

type StatsReader interface {
	Stats() scheduler.Stats
}

type Handler struct {
	display   DisplayReader
	fixes     storage.FixStore
	screen    StatusReporter
	stats     StatsReader
	logger    *zap.Logger
	now       func() time.Time
	startTime time.Time
}

func NewHandler(display DisplayReader, fixes storage.FixStore, status StatusReporter, stats StatsReader, logger *zap.Logger) *Handler {
	return &Handler{
		display:   display,
		fixes:     fixes,
		screen:    status,
		stats:     stats,
		logger:    logger,
		now:       time.Now,
		startTime: time.Now(),
	}
}

// locationRequest is the body of POST /api/v1/location.
type locationRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Accuracy  float64  `json:"accuracy" validate:"gte=0"`
}

// GetHealth handles GET /api/v1/health
func (h *Handler) GetHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": h.now(),
		"uptime":    h.now().Sub(h.startTime).String(),
		"screen":    h.screen.Status(),
	})
}

// GetDisplay handles GET /api/v1/display
func (h *Handler) GetDisplay(c *fiber.Ctx) error {
	return c.JSON(h.display.Snapshot())
}

// GetLocation handles GET /api/v1/location
func (h *Handler) GetLocation(c *fiber.Ctx) error {
	fix, err := h.fixes.LastFix(c.UserContext())
	if err != nil {
		if errors.Is(err, storage.ErrNoFix) {
			return fiber.NewError(fiber.StatusNotFound, "no location fix recorded")
		}
		h.logger.Error("Failed to read location fix", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "failed to read location fix")
	}

	return c.JSON(fix)
}

// PostLocation handles POST /api/v1/location
func (h *Handler) PostLocation(c *fiber.Ctx) error {
	var req locationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid location body")
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	fix := models.Fix{
		Coordinate: models.Coordinate{
			Latitude:  *req.Latitude,
			Longitude: *req.Longitude,
		},
		Accuracy:   req.Accuracy,
		RecordedAt: h.now().UTC(),
		Source:     "api",
	}
	if err := h.fixes.SaveFix(c.UserContext(), fix); err != nil {
		h.logger.Error("Failed to save location fix", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "failed to save location fix")
	}

	h.logger.Info("Location fix recorded",
		zap.Float64("latitude", fix.Latitude),
		zap.Float64("longitude", fix.Longitude),
		zap.Float64("accuracy", fix.Accuracy))

	return c.SendStatus(fiber.StatusNoContent)
}

// GetMetrics handles GET /api/v1/metrics
func (h *Handler) GetMetrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"metrics":   h.stats.Stats(),
		"timestamp": h.now(),
	})
}

// ErrorHandler renders every handler error as JSON.
func ErrorHandler(c *fiber.Ctx, err error) error {
	zap.L().Error("HTTP error",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err))

	// Default to 500 status code
	code := fiber.StatusInternalServerError

	// Check if it's a Fiber error
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   err.Error(),
		"success": false,
	})
}
