package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	timeseries "gridpulse/internal/timeseries/domain"
)

func priceBatch(zone string, ts time.Time, price float64) timeseries.Batch {
	return timeseries.Batch{
		Prices: []timeseries.PriceRecord{
			{Zone: zone, TS: ts, Market: timeseries.MarketDayAhead, Price: price},
		},
	}
}

func TestFactStore_UpsertIsIdempotent(t *testing.T) {
	store := NewFactStore()
	ts := time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC)

	if _, err := store.UpsertBatch(context.Background(), priceBatch("NYCW", ts, 30)); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	// Re-ingesting the same window with a revised value must replace, not
	// duplicate.
	if _, err := store.UpsertBatch(context.Background(), priceBatch("NYCW", ts, 31.5)); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if store.Len() != 1 {
		t.Fatalf("expected 1 stored row, got %d", store.Len())
	}
	records, err := store.ScanPrices(context.Background(), timeseries.PriceFilter{
		Range: timeseries.TimeRange{Start: ts.Add(-time.Hour), End: ts.Add(time.Hour)},
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(records) != 1 || records[0].Price != 31.5 {
		t.Fatalf("expected revised price 31.5, got %+v", records)
	}
}

func TestFactStore_RejectsInvalidRecord(t *testing.T) {
	store := NewFactStore()
	batch := timeseries.Batch{
		Loads: []timeseries.LoadRecord{{Zone: "", TS: time.Now(), LoadMW: 7000}},
	}
	if _, err := store.UpsertBatch(context.Background(), batch); !errors.Is(err, timeseries.ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store after rejected batch, got %d rows", store.Len())
	}
}

func TestFactStore_ScanRangeIsHalfOpen(t *testing.T) {
	store := NewFactStore()
	start := time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	for _, ts := range []time.Time{start.Add(-time.Minute), start, end.Add(-time.Minute), end} {
		if _, err := store.UpsertBatch(context.Background(), priceBatch("NYCW", ts, 10)); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	records, err := store.ScanPrices(context.Background(), timeseries.PriceFilter{
		Range: timeseries.TimeRange{Start: start, End: end},
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records inside [start, end), got %d", len(records))
	}
	if !records[0].TS.Equal(start) {
		t.Fatalf("expected inclusive start %s, got %s", start, records[0].TS)
	}
}

func TestFactStore_ConcurrentScanDuringUpsert(t *testing.T) {
	store := NewFactStore()
	base := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	scanRange := timeseries.TimeRange{Start: base, End: base.Add(48 * time.Hour)}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				ts := base.Add(time.Duration(i*50+j) * time.Minute)
				if _, err := store.UpsertBatch(context.Background(), priceBatch("NYCW", ts, float64(j))); err != nil {
					t.Errorf("upsert: %v", err)
					return
				}
			}
		}(i)
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if _, err := store.ScanPrices(context.Background(), timeseries.PriceFilter{Range: scanRange}); err != nil {
					t.Errorf("scan: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if store.Len() != 400 {
		t.Fatalf("expected 400 rows after concurrent upserts, got %d", store.Len())
	}
}

func TestFactStore_ISOFilterUsesZoneMapping(t *testing.T) {
	store := NewFactStore()
	store.SetZoneISO("NYCW", "NYISO")
	store.SetZoneISO("BOSTN", "ISO-NE")
	ts := time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC)
	batch := timeseries.Batch{
		Loads: []timeseries.LoadRecord{
			{Zone: "NYCW", TS: ts, LoadMW: 7000, LoadWithLossesMW: 7350},
			{Zone: "BOSTN", TS: ts, LoadMW: 2500, LoadWithLossesMW: 2625},
		},
	}
	if _, err := store.UpsertBatch(context.Background(), batch); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	records, err := store.ScanLoads(context.Background(), timeseries.LoadFilter{
		Range:  timeseries.TimeRange{Start: ts.Add(-time.Hour), End: ts.Add(time.Hour)},
		ISORTO: "NYISO",
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(records) != 1 || records[0].Zone != "NYCW" {
		t.Fatalf("expected only NYISO zones, got %+v", records)
	}
}
