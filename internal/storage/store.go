package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/bobby-s-dev/weather-refresh/internal/models"
)

// ErrNoFix is returned by LastFix when no fix has been recorded yet.
var ErrNoFix = errors.New("no location fix recorded")

// FixStore keeps the most recent location fix.
type FixStore interface {
	SaveFix(ctx context.Context, fix models.Fix) error
	LastFix(ctx context.Context) (models.Fix, error)
	Close() error
}

// MemoryStore is a FixStore that forgets everything on restart.
type MemoryStore struct {
	mu   sync.RWMutex
	fix  models.Fix
	seen bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) SaveFix(_ context.Context, fix models.Fix) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fix = fix
	s.seen = true
	return nil
}

func (s *MemoryStore) LastFix(_ context.Context) (models.Fix, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.seen {
		return models.Fix{}, ErrNoFix
	}
	return s.fix, nil
}

func (s *MemoryStore) Close() error { return nil }
