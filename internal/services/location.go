package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/bobby-s-dev/weather-refresh/internal/models"
	"github.com/bobby-s-dev/weather-refresh/internal/storage"
	"go.uber.org/zap"
)

// ErrLocationUnavailable means no cached fix could be returned. It is not a
// failure of the tick.
var ErrLocationUnavailable = errors.New("location unavailable")

// LocationSource serves the last known position from the fix store. It
// never acquires a fresh fix.
type LocationSource struct {
	capability Capability
	fixes      storage.FixStore
	logger     *zap.Logger
}

func NewLocationSource(capability Capability, fixes storage.FixStore, logger *zap.Logger) *LocationSource {
	return &LocationSource{
		capability: capability,
		fixes:      fixes,
		logger:     logger,
	}
}

func (l *LocationSource) LastKnownPosition(ctx context.Context) (models.Coordinate, error) {
	if !l.capability.Granted() {
		return models.Coordinate{}, fmt.Errorf("%w: permission not granted", ErrLocationUnavailable)
	}

	fix, err := l.fixes.LastFix(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrNoFix) {
			l.logger.Warn("Reading last location fix failed", zap.Error(err))
		}
		return models.Coordinate{}, fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
	}

	return fix.Coordinate, nil
}
