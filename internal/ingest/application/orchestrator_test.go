package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	catalog "gridpulse/internal/catalog/domain"
	"gridpulse/internal/ingest/adapters"
	ingestmem "gridpulse/internal/ingest/infrastructure/memory"
	"gridpulse/internal/ingest/normalize"
	timeseries "gridpulse/internal/timeseries/domain"
	tsmem "gridpulse/internal/timeseries/infrastructure/memory"
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

type stubAdapter struct {
	mu       sync.Mutex
	calls    int
	windows  []timeseries.TimeRange
	payload  adapters.Payload
	failures []error
	block    chan struct{}
	started  chan struct{}
}

func (a *stubAdapter) Source() adapters.SourceKind { return adapters.SourceGrid }

func (a *stubAdapter) Entities() []timeseries.EntityType {
	return []timeseries.EntityType{timeseries.EntityLoad}
}

func (a *stubAdapter) Fetch(ctx context.Context, _ timeseries.EntityType, since, until time.Time) (adapters.Payload, error) {
	a.mu.Lock()
	a.calls++
	call := a.calls
	a.windows = append(a.windows, timeseries.TimeRange{Start: since, End: until})
	a.mu.Unlock()

	if a.started != nil && call == 1 {
		close(a.started)
	}
	if a.block != nil {
		select {
		case <-a.block:
		case <-ctx.Done():
			return adapters.Payload{}, ctx.Err()
		}
	}
	if call <= len(a.failures) {
		return adapters.Payload{}, a.failures[call-1]
	}
	return a.payload, nil
}

func (a *stubAdapter) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func (a *stubAdapter) window(i int) timeseries.TimeRange {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.windows[i]
}

func loadPayload(records ...adapters.RawRecord) adapters.Payload {
	return adapters.Payload{
		Source:   adapters.SourceGrid,
		Entity:   timeseries.EntityLoad,
		Timezone: "UTC",
		Records:  records,
	}
}

func loadRecord(zone, period string, mw float64) adapters.RawRecord {
	return adapters.RawRecord{
		EntityCode: zone,
		Period:     period,
		Values:     map[string]float64{"value": mw},
	}
}

func newTestOrchestrator(t *testing.T, adapter *stubAdapter, store timeseries.Store, watermarks WatermarkStore, clock func() time.Time) *Orchestrator {
	t.Helper()
	cache, err := catalog.NewCache(stubLoader{}, nil)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	if err := cache.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh catalog: %v", err)
	}
	normalizer, err := normalize.New(cache)
	if err != nil {
		t.Fatalf("new normalizer: %v", err)
	}
	opts := Options{
		Overlap:  2 * time.Hour,
		Backfill: 24 * time.Hour,
		Retry:    RetryPolicy{MaxAttempts: 3, Initial: time.Millisecond, Max: 5 * time.Millisecond},
		Clock:    clock,
	}
	orchestrator, err := NewOrchestrator([]adapters.SourceAdapter{adapter}, normalizer, store, watermarks, opts, nil)
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	return orchestrator
}

func TestOrchestrator_RunAdvancesWatermark(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	adapter := &stubAdapter{payload: loadPayload(loadRecord("NYCW", "2025-06-10T10", 7250))}
	store := tsmem.NewFactStore()
	watermarks := ingestmem.NewWatermarkStore()
	orchestrator := newTestOrchestrator(t, adapter, store, watermarks, func() time.Time { return now })

	result, err := orchestrator.Run(context.Background(), timeseries.EntityLoad)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Upserted != 1 {
		t.Fatalf("expected 1 upserted row, got %d", result.Upserted)
	}
	if got := result.Window.Start; !got.Equal(now.Add(-24 * time.Hour)) {
		t.Fatalf("expected backfill window start %s, got %s", now.Add(-24*time.Hour), got)
	}

	watermark, ok, err := watermarks.Get(context.Background(), timeseries.EntityLoad)
	if err != nil || !ok {
		t.Fatalf("expected watermark, ok=%v err=%v", ok, err)
	}
	if !watermark.Equal(now) {
		t.Fatalf("expected watermark %s, got %s", now, watermark)
	}

	// The next run re-fetches an overlap margin behind the watermark so
	// late revisions are picked up.
	later := now.Add(time.Hour)
	orchestrator.clock = func() time.Time { return later }
	if _, err := orchestrator.Run(context.Background(), timeseries.EntityLoad); err != nil {
		t.Fatalf("second run: %v", err)
	}
	second := adapter.window(1)
	if !second.Start.Equal(now.Add(-2 * time.Hour)) {
		t.Fatalf("expected overlap window start %s, got %s", now.Add(-2*time.Hour), second.Start)
	}
	if !second.End.Equal(later) {
		t.Fatalf("expected window end %s, got %s", later, second.End)
	}
}

func TestOrchestrator_FailedRunLeavesWatermark(t *testing.T) {
	adapter := &stubAdapter{
		failures: []error{
			adapters.NewError(adapters.ErrAuth, "fetch", errors.New("bad key")),
		},
	}
	watermarks := ingestmem.NewWatermarkStore()
	orchestrator := newTestOrchestrator(t, adapter, tsmem.NewFactStore(), watermarks, time.Now)

	if _, err := orchestrator.Run(context.Background(), timeseries.EntityLoad); err == nil {
		t.Fatal("expected run error")
	}
	if _, ok, _ := watermarks.Get(context.Background(), timeseries.EntityLoad); ok {
		t.Fatal("expected no watermark after failed run")
	}
}

func TestOrchestrator_RetriesTransientFetch(t *testing.T) {
	adapter := &stubAdapter{
		payload: loadPayload(loadRecord("NYCW", "2025-06-10T10", 7250)),
		failures: []error{
			adapters.NewError(adapters.ErrNetwork, "fetch", errors.New("timeout")),
			adapters.NewError(adapters.ErrRateLimited, "fetch", errors.New("429")),
		},
	}
	orchestrator := newTestOrchestrator(t, adapter, tsmem.NewFactStore(), ingestmem.NewWatermarkStore(), time.Now)

	result, err := orchestrator.Run(context.Background(), timeseries.EntityLoad)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if adapter.callCount() != 3 {
		t.Fatalf("expected 3 fetch attempts, got %d", adapter.callCount())
	}
	if result.Upserted != 1 {
		t.Fatalf("expected 1 upserted row, got %d", result.Upserted)
	}
}

func TestOrchestrator_AuthFailureNotRetried(t *testing.T) {
	adapter := &stubAdapter{
		failures: []error{
			adapters.NewError(adapters.ErrAuth, "fetch", errors.New("bad key")),
			adapters.NewError(adapters.ErrAuth, "fetch", errors.New("bad key")),
		},
	}
	orchestrator := newTestOrchestrator(t, adapter, tsmem.NewFactStore(), ingestmem.NewWatermarkStore(), time.Now)

	if _, err := orchestrator.Run(context.Background(), timeseries.EntityLoad); err == nil {
		t.Fatal("expected run error")
	}
	if adapter.callCount() != 1 {
		t.Fatalf("expected 1 fetch attempt, got %d", adapter.callCount())
	}
}

func TestOrchestrator_UnknownEntityRejectedNotRetried(t *testing.T) {
	adapter := &stubAdapter{
		payload: loadPayload(
			loadRecord("NYCW", "2025-06-10T10", 7250),
			loadRecord("ZZZZ", "2025-06-10T10", 120),
		),
	}
	watermarks := ingestmem.NewWatermarkStore()
	orchestrator := newTestOrchestrator(t, adapter, tsmem.NewFactStore(), watermarks, time.Now)

	result, err := orchestrator.Run(context.Background(), timeseries.EntityLoad)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if adapter.callCount() != 1 {
		t.Fatalf("expected 1 fetch attempt, got %d", adapter.callCount())
	}
	if result.Rejected != 1 {
		t.Fatalf("expected 1 rejection, got %d", result.Rejected)
	}
	if result.Upserted != 1 {
		t.Fatalf("expected 1 upserted row, got %d", result.Upserted)
	}
	// A partial batch still commits, so the watermark advances.
	if _, ok, _ := watermarks.Get(context.Background(), timeseries.EntityLoad); !ok {
		t.Fatal("expected watermark after partial run")
	}
}

func TestOrchestrator_ConcurrentTriggersJoin(t *testing.T) {
	adapter := &stubAdapter{
		payload: loadPayload(loadRecord("NYCW", "2025-06-10T10", 7250)),
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	orchestrator := newTestOrchestrator(t, adapter, tsmem.NewFactStore(), ingestmem.NewWatermarkStore(), time.Now)

	type outcome struct {
		result RunResult
		err    error
	}
	first := make(chan outcome, 1)
	go func() {
		result, err := orchestrator.Run(context.Background(), timeseries.EntityLoad)
		first <- outcome{result, err}
	}()
	<-adapter.started

	second := make(chan outcome, 1)
	entered := make(chan struct{})
	go func() {
		close(entered)
		result, err := orchestrator.Run(context.Background(), timeseries.EntityLoad)
		second <- outcome{result, err}
	}()
	<-entered
	time.Sleep(20 * time.Millisecond)

	close(adapter.block)

	firstOut := <-first
	secondOut := <-second
	if firstOut.err != nil || secondOut.err != nil {
		t.Fatalf("run errors: first=%v second=%v", firstOut.err, secondOut.err)
	}
	if adapter.callCount() != 1 {
		t.Fatalf("expected a single fetch across concurrent triggers, got %d", adapter.callCount())
	}
	if !secondOut.result.Joined {
		t.Fatal("expected second trigger to join the in-flight run")
	}
	if secondOut.result.RunID != firstOut.result.RunID {
		t.Fatalf("expected joined run to share run id, got %s vs %s", secondOut.result.RunID, firstOut.result.RunID)
	}
}

func TestOrchestrator_NoAdapter(t *testing.T) {
	adapter := &stubAdapter{payload: loadPayload()}
	orchestrator := newTestOrchestrator(t, adapter, tsmem.NewFactStore(), ingestmem.NewWatermarkStore(), time.Now)

	if _, err := orchestrator.Run(context.Background(), timeseries.EntityPrice); !errors.Is(err, ErrNoAdapter) {
		t.Fatalf("expected ErrNoAdapter, got %v", err)
	}
}
