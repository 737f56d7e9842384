package memory

import (
	"context"
	"sync"
	"time"

	timeseries "gridpulse/internal/timeseries/domain"
)

// WatermarkStore is an in-memory watermark store for tests and local runs.
type WatermarkStore struct {
	mu    sync.RWMutex
	marks map[timeseries.EntityType]time.Time
}

// NewWatermarkStore constructs an empty WatermarkStore.
func NewWatermarkStore() *WatermarkStore {
	return &WatermarkStore{marks: make(map[timeseries.EntityType]time.Time)}
}

// Get returns the stored watermark for an entity type.
func (s *WatermarkStore) Get(_ context.Context, entity timeseries.EntityType) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ts, ok := s.marks[entity]
	return ts, ok, nil
}

// Set stores the watermark for an entity type.
func (s *WatermarkStore) Set(_ context.Context, entity timeseries.EntityType, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marks[entity] = ts.UTC()
	return nil
}
