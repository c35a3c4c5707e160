package services

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/bobby-s-dev/weather-refresh/internal/models"
	"go.uber.org/zap"
)

// Renderer draws the display fields after every update.
type Renderer interface {
	Render(fields models.DisplayFields)
}

// DisplayState maps field names to the text currently shown. It has one
// writer, the UI loop; the lock is for HTTP readers.
type DisplayState struct {
	mu        sync.RWMutex
	fields    map[string]string
	updatedAt time.Time
	renderer  Renderer
	logger    *zap.Logger
	now       func() time.Time
}

func NewDisplayState(renderer Renderer, logger *zap.Logger) *DisplayState {
	return &DisplayState{
		fields:   make(map[string]string),
		renderer: renderer,
		logger:   logger,
		now:      time.Now,
	}
}

// Update replaces all four fields from the reading.
//
// The rain sentence is a fixed phrase: the reading carries no precipitation
// data, so it does not reflect actual conditions.
func (d *DisplayState) Update(reading models.WeatherReading) {
	fields := map[string]string{
		models.FieldTemperature: fmt.Sprintf("%d°C", roundCelsius(reading.TemperatureC)),
		models.FieldCondition:   reading.Description,
		models.FieldDetails:     fmt.Sprintf("Feels like %d°C", roundCelsius(reading.FeelsLikeC)),
		models.FieldRain:        fmt.Sprintf("Heavy rain is expected. The low will be %d°C.", roundCelsius(reading.TempMinC)),
	}

	d.mu.Lock()
	d.fields = fields
	d.updatedAt = d.now()
	snapshot := d.snapshotLocked()
	d.mu.Unlock()

	d.logger.Debug("Display updated",
		zap.String("temperature", snapshot.Temperature),
		zap.String("condition", snapshot.Condition))

	if d.renderer != nil {
		d.renderer.Render(snapshot)
	}
}

// Field returns the current value of a field and whether it has been set.
func (d *DisplayState) Field(name string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.fields[name]
	return v, ok
}

func (d *DisplayState) Snapshot() models.DisplayFields {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snapshotLocked()
}

func (d *DisplayState) snapshotLocked() models.DisplayFields {
	return models.DisplayFields{
		Temperature: d.fields[models.FieldTemperature],
		Condition:   d.fields[models.FieldCondition],
		Details:     d.fields[models.FieldDetails],
		Rain:        d.fields[models.FieldRain],
		UpdatedAt:   d.updatedAt,
	}
}

// roundCelsius rounds half away from zero. Going through int means -0.4
// shows as "0°C", not the "-0°C" a "%.0f" format would print.
func roundCelsius(c float64) int {
	return int(math.Round(c))
}
