package application

import (
	"context"
	"errors"
	"testing"
	"time"

	analytics "gridpulse/internal/analytics/domain"
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

type recordingCache struct {
	entries map[string][]analytics.Series
	gets    int
	hits    int
}

func newRecordingCache() *recordingCache {
	return &recordingCache{entries: make(map[string][]analytics.Series)}
}

func (c *recordingCache) Get(_ context.Context, key string) ([]analytics.Series, bool, error) {
	c.gets++
	series, ok := c.entries[key]
	if ok {
		c.hits++
	}
	return series, ok, nil
}

func (c *recordingCache) Set(_ context.Context, key string, series []analytics.Series) error {
	c.entries[key] = series
	return nil
}

func newTestEngine(t *testing.T, store *memory.FactStore, results ResultCache) *Engine {
	t.Helper()
	cache, err := catalog.NewCache(stubLoader{}, nil)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	if err := cache.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh catalog: %v", err)
	}
	engine, err := NewEngine(store, cache, results, 5*time.Second, nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func seedPrices(t *testing.T, store *memory.FactStore) time.Time {
	t.Helper()
	base := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	batch := timeseries.Batch{}
	for i, price := range []float64{10, 20, 30, 40} {
		batch.Prices = append(batch.Prices, timeseries.PriceRecord{
			Zone:   "NYCW",
			TS:     base.Add(time.Duration(i) * 15 * time.Minute),
			Market: timeseries.MarketDayAhead,
			Price:  price,
		})
	}
	if _, err := store.UpsertBatch(context.Background(), batch); err != nil {
		t.Fatalf("seed prices: %v", err)
	}
	return base
}

func TestEngine_AggregateHourlyPriceAverage(t *testing.T) {
	store := memory.NewFactStore()
	base := seedPrices(t, store)
	engine := newTestEngine(t, store, nil)

	series, err := engine.Aggregate(context.Background(), Request{
		Entity: timeseries.EntityPrice,
		Zones:  []string{"NYCW"},
		Range:  timeseries.TimeRange{Start: base, End: base.Add(time.Hour)},
	})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(series) != 1 || len(series[0].Points) != 1 {
		t.Fatalf("expected one series with one bucket, got %+v", series)
	}
	if got := series[0].Points[0].Value; got != 25 {
		t.Fatalf("expected hourly average 25, got %v", got)
	}
	if series[0].Key.Zone != "NYCW" || series[0].Key.Market != timeseries.MarketDayAhead {
		t.Fatalf("unexpected series key %+v", series[0].Key)
	}
}

func TestEngine_RejectsSumOverPrice(t *testing.T) {
	store := memory.NewFactStore()
	base := seedPrices(t, store)
	engine := newTestEngine(t, store, nil)

	_, err := engine.Aggregate(context.Background(), Request{
		Entity: timeseries.EntityPrice,
		Zones:  []string{"NYCW"},
		Range:  timeseries.TimeRange{Start: base, End: base.Add(time.Hour)},
		Func:   analytics.FuncSum,
	})
	if !errors.Is(err, analytics.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestEngine_RejectsMalformedRange(t *testing.T) {
	engine := newTestEngine(t, memory.NewFactStore(), nil)

	_, err := engine.Aggregate(context.Background(), Request{
		Entity: timeseries.EntityPrice,
		Range:  timeseries.TimeRange{Start: time.Now(), End: time.Now().Add(-time.Hour)},
	})
	if !errors.Is(err, analytics.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestEngine_ResultCacheHit(t *testing.T) {
	store := memory.NewFactStore()
	base := seedPrices(t, store)
	results := newRecordingCache()
	engine := newTestEngine(t, store, results)

	req := Request{
		Entity: timeseries.EntityPrice,
		Zones:  []string{"NYCW"},
		Range:  timeseries.TimeRange{Start: base, End: base.Add(time.Hour)},
	}
	first, err := engine.Aggregate(context.Background(), req)
	if err != nil {
		t.Fatalf("first aggregate: %v", err)
	}
	second, err := engine.Aggregate(context.Background(), req)
	if err != nil {
		t.Fatalf("second aggregate: %v", err)
	}
	if results.hits != 1 {
		t.Fatalf("expected 1 cache hit, got %d", results.hits)
	}
	if len(first) != len(second) || first[0].Points[0].Value != second[0].Points[0].Value {
		t.Fatalf("expected identical results, got %+v vs %+v", first, second)
	}
}

// slowQuery blocks every scan until the query context expires.
type slowQuery struct{}

func (slowQuery) ScanPrices(ctx context.Context, _ timeseries.PriceFilter) ([]timeseries.PriceRecord, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (slowQuery) ScanLoads(ctx context.Context, _ timeseries.LoadFilter) ([]timeseries.LoadRecord, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (slowQuery) ScanFuelMix(ctx context.Context, _ timeseries.FuelMixFilter) ([]timeseries.FuelMixRecord, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (slowQuery) ScanFlows(ctx context.Context, _ timeseries.FlowFilter) ([]timeseries.InterfaceFlowRecord, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (slowQuery) ScanWeather(ctx context.Context, _ timeseries.WeatherFilter) ([]timeseries.WeatherRecord, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestEngine_QueryTimeout(t *testing.T) {
	cache, err := catalog.NewCache(stubLoader{}, nil)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	if err := cache.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh catalog: %v", err)
	}
	engine, err := NewEngine(slowQuery{}, cache, nil, 5*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	_, err = engine.Aggregate(context.Background(), Request{
		Entity: timeseries.EntityPrice,
		Zones:  []string{"NYCW"},
		Range:  timeseries.TimeRange{Start: time.Now().Add(-time.Hour), End: time.Now()},
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestEngine_GroupRenewableFuelMix(t *testing.T) {
	store := memory.NewFactStore()
	ts := time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC)
	batch := timeseries.Batch{
		FuelMix: []timeseries.FuelMixRecord{
			{ISORTO: "NYISO", TS: ts, FuelType: "WND", GenerationMW: 200, IsRenewable: timeseries.IsRenewableFuel("WND")},
			{ISORTO: "NYISO", TS: ts, FuelType: "WAT", GenerationMW: 100, IsRenewable: timeseries.IsRenewableFuel("WAT")},
			// The source's "other renewables" bucket counts as renewable.
			{ISORTO: "NYISO", TS: ts, FuelType: "OTH", GenerationMW: 50, IsRenewable: timeseries.IsRenewableFuel("OTH")},
			{ISORTO: "NYISO", TS: ts, FuelType: "NG", GenerationMW: 300},
		},
	}
	if _, err := store.UpsertBatch(context.Background(), batch); err != nil {
		t.Fatalf("seed fuel mix: %v", err)
	}
	engine := newTestEngine(t, store, nil)

	series, err := engine.Aggregate(context.Background(), Request{
		Entity:         timeseries.EntityFuelMix,
		ISORTO:         "NYISO",
		GroupRenewable: true,
		Range:          timeseries.TimeRange{Start: ts.Add(-time.Hour), End: ts.Add(time.Hour)},
	})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(series) != 2 {
		t.Fatalf("expected renewable and other series, got %d", len(series))
	}
	byGroup := make(map[string]float64)
	for _, s := range series {
		byGroup[s.Key.FuelType] = s.Points[0].Value
	}
	if byGroup["renewable"] != 350 || byGroup["other"] != 300 {
		t.Fatalf("unexpected grouped sums: %v", byGroup)
	}
}
