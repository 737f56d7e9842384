package forecast

import (
	"context"
	"errors"
	"testing"
	"time"

	catalog "gridpulse/internal/catalog/domain"
	timeseries "gridpulse/internal/timeseries/domain"
	"gridpulse/internal/timeseries/infrastructure/memory"
)

type stubLoader struct{}

func (stubLoader) LoadCatalog(context.Context) ([]catalog.Zone, []catalog.Region, []catalog.Interface, error) {
	regions := []catalog.Region{
		{Code: "NYC", Name: "New York City", State: "NY", Timezone: "America/New_York", Latitude: 40.78, Longitude: -73.97},
	}
	zones := []catalog.Zone{
		{Code: "NYCW", Name: "N.Y.C. West", State: "NY", ISORTO: "NYISO", RegionCode: "NYC", Timezone: "America/New_York"},
	}
	return zones, regions, nil, nil
}

func newTestReconciler(t *testing.T, store *memory.FactStore) *Reconciler {
	t.Helper()
	cache, err := catalog.NewCache(stubLoader{}, nil)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	if err := cache.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh catalog: %v", err)
	}
	reconciler, err := NewReconciler(store, cache, nil)
	if err != nil {
		t.Fatalf("new reconciler: %v", err)
	}
	return reconciler
}

func seedDay(t *testing.T, store *memory.FactStore, dayStart time.Time, forecastHours, actualHours int) {
	t.Helper()
	batch := timeseries.Batch{}
	for i := 0; i < forecastHours; i++ {
		batch.Weather = append(batch.Weather, timeseries.WeatherRecord{
			Region:       "NYC",
			TS:           dayStart.Add(time.Duration(i) * time.Hour).UTC(),
			IsForecast:   true,
			TemperatureF: 70 + float64(i),
		})
	}
	for i := 0; i < actualHours; i++ {
		batch.Weather = append(batch.Weather, timeseries.WeatherRecord{
			Region:       "NYC",
			TS:           dayStart.Add(time.Duration(i) * time.Hour).UTC(),
			IsForecast:   false,
			TemperatureF: 72 + float64(i),
		})
	}
	if _, err := store.UpsertBatch(context.Background(), batch); err != nil {
		t.Fatalf("seed weather: %v", err)
	}
}

func TestCompare_PartialDay(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	dayStart := time.Date(2025, 6, 10, 0, 0, 0, 0, loc)
	store := memory.NewFactStore()
	seedDay(t, store, dayStart, 24, 18)
	reconciler := newTestReconciler(t, store)

	comparison, err := reconciler.Compare(context.Background(), "NYC", dayStart, "")
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if !comparison.Partial {
		t.Fatal("expected partial comparison")
	}
	if len(comparison.Hours) != 24 {
		t.Fatalf("expected 24 forecast hours, got %d", len(comparison.Hours))
	}
	if comparison.PairedHours != 18 {
		t.Fatalf("expected 18 paired hours, got %d", comparison.PairedHours)
	}
	// Every actual runs 2 degrees above its forecast, so the MAE over the
	// paired hours is exactly 2.
	if comparison.MAE != 2 {
		t.Fatalf("expected MAE 2, got %v", comparison.MAE)
	}
	paired := 0
	for _, hour := range comparison.Hours {
		if hour.Actual != nil {
			if hour.Delta == nil || *hour.Delta != 2 {
				t.Fatalf("expected delta 2, got %+v", hour)
			}
			paired++
		} else if hour.Delta != nil {
			t.Fatalf("unmatched hour must carry nil delta: %+v", hour)
		}
	}
	if paired != 18 {
		t.Fatalf("expected 18 paired deltas, got %d", paired)
	}
}

func TestCompare_FullDayNotPartial(t *testing.T) {
	loc, _ := time.LoadLocation("America/New_York")
	dayStart := time.Date(2025, 6, 9, 0, 0, 0, 0, loc)
	store := memory.NewFactStore()
	seedDay(t, store, dayStart, 24, 24)
	reconciler := newTestReconciler(t, store)

	comparison, err := reconciler.Compare(context.Background(), "NYC", dayStart, "")
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if comparison.Partial {
		t.Fatal("expected complete comparison")
	}
	if comparison.PairedHours != 24 {
		t.Fatalf("expected 24 paired hours, got %d", comparison.PairedHours)
	}
}

func TestCompare_DefaultDayIsRegionLocal(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	// 03:30 UTC on June 11 is still 23:30 on June 10 in New York, so the
	// default day must resolve to June 10, not the UTC date.
	now := time.Date(2025, 6, 11, 3, 30, 0, 0, time.UTC)
	dayStart := time.Date(2025, 6, 10, 0, 0, 0, 0, loc)
	store := memory.NewFactStore()
	seedDay(t, store, dayStart, 24, 24)
	reconciler := newTestReconciler(t, store)
	reconciler.clock = func() time.Time { return now }

	comparison, err := reconciler.Compare(context.Background(), "NYC", time.Time{}, "")
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if comparison.Date != "2025-06-10" {
		t.Fatalf("expected region-local day 2025-06-10, got %s", comparison.Date)
	}
	if comparison.PairedHours != 24 {
		t.Fatalf("expected 24 paired hours, got %d", comparison.PairedHours)
	}
}

func TestCompare_NoForecastData(t *testing.T) {
	loc, _ := time.LoadLocation("America/New_York")
	dayStart := time.Date(2025, 6, 10, 0, 0, 0, 0, loc)
	reconciler := newTestReconciler(t, memory.NewFactStore())

	_, err := reconciler.Compare(context.Background(), "NYC", dayStart, "")
	if !errors.Is(err, ErrNoForecastData) {
		t.Fatalf("expected ErrNoForecastData, got %v", err)
	}
}

func TestCompare_UnknownRegion(t *testing.T) {
	reconciler := newTestReconciler(t, memory.NewFactStore())

	_, err := reconciler.Compare(context.Background(), "XXX", time.Now(), "")
	if !errors.Is(err, catalog.ErrUnknownRegion) {
		t.Fatalf("expected unknown region error, got %v", err)
	}
}
