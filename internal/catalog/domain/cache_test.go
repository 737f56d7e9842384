package catalog

import (
	"context"
	"errors"
	"testing"
)

type flakyLoader struct {
	fail bool
}

func (l *flakyLoader) LoadCatalog(context.Context) ([]Zone, []Region, []Interface, error) {
	if l.fail {
		return nil, nil, nil, errors.New("db down")
	}
	return testZones(), testRegions(), testInterfaces(), nil
}

func TestCache_SnapshotBeforeRefresh(t *testing.T) {
	cache, err := NewCache(&flakyLoader{}, nil)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	if _, err := cache.Snapshot(); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}
}

func TestCache_FailedRefreshKeepsSnapshot(t *testing.T) {
	loader := &flakyLoader{}
	cache, err := NewCache(loader, nil)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	if err := cache.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	loader.fail = true
	if err := cache.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}

	// The stale snapshot still serves reads.
	snap, err := cache.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if _, ok := snap.Zone("NYCW"); !ok {
		t.Fatal("expected previous snapshot to survive a failed refresh")
	}
}
