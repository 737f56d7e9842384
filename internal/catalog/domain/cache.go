package catalog

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// Loader fetches catalog entities from durable storage.
type Loader interface {
	LoadCatalog(ctx context.Context) ([]Zone, []Region, []Interface, error)
}

// Cache holds the process-wide catalog snapshot. Reads take the snapshot
// pointer under a read lock; only Refresh replaces it (single writer).
type Cache struct {
	loader Loader
	logger *log.Logger

	mu   sync.RWMutex
	snap *Snapshot
}

// NewCache constructs a Cache.
func NewCache(loader Loader, logger *log.Logger) (*Cache, error) {
	if loader == nil {
		return nil, errors.New("catalog: nil loader")
	}
	return &Cache{loader: loader, logger: logger}, nil
}

// Refresh reloads the snapshot from the loader. On any error the previous
// snapshot stays in place.
func (c *Cache) Refresh(ctx context.Context) error {
	zones, regions, interfaces, err := c.loader.LoadCatalog(ctx)
	if err != nil {
		return err
	}
	snap, err := NewSnapshot(zones, regions, interfaces)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()
	return nil
}

// Snapshot returns the current snapshot.
func (c *Cache) Snapshot() (*Snapshot, error) {
	c.mu.RLock()
	snap := c.snap
	c.mu.RUnlock()
	if snap == nil {
		return nil, ErrNotLoaded
	}
	return snap, nil
}

// StartRefresh refreshes the cache on the given interval until ctx is done.
// The catalog changes slowly, so the cadence is much coarser than fact
// ingestion.
func (c *Cache) StartRefresh(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil && c.logger != nil {
				c.logger.Printf("catalog refresh error: %v", err)
			}
		}
	}
}
