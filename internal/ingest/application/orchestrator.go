package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"gridpulse/internal/ingest/adapters"
	"gridpulse/internal/ingest/normalize"
	"gridpulse/internal/observability/metrics"
	timeseries "gridpulse/internal/timeseries/domain"
)

// WatermarkStore tracks the end of the last committed fetch window per
// entity type.
type WatermarkStore interface {
	Get(ctx context.Context, entity timeseries.EntityType) (time.Time, bool, error)
	Set(ctx context.Context, entity timeseries.EntityType, ts time.Time) error
}

// RetryPolicy bounds fetch retries within one run.
type RetryPolicy struct {
	MaxAttempts int
	Initial     time.Duration
	Max         time.Duration
}

// DefaultRetryPolicy returns the standard run retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Initial: time.Second, Max: 30 * time.Second}
}

func (p RetryPolicy) interval(attempt int) time.Duration {
	d := p.Initial
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.Max {
			return p.Max
		}
	}
	if d > p.Max {
		return p.Max
	}
	return d
}

// RunResult summarizes one ingestion run for one entity type.
type RunResult struct {
	RunID    string
	Entity   timeseries.EntityType
	Window   timeseries.TimeRange
	Fetched  int
	Upserted int
	Rejected int
	// Joined is true when this caller attached to an already running
	// ingestion for the same entity type instead of starting a new one.
	Joined  bool
	Started time.Time
	Elapsed time.Duration
}

// Report aggregates results of a full ingestion sweep.
type Report struct {
	Results []RunResult
	Errors  map[timeseries.EntityType]error
}

// Failed returns true when any entity type failed.
func (r Report) Failed() bool { return len(r.Errors) > 0 }

type call struct {
	done   chan struct{}
	result RunResult
	err    error
}

// Options tunes orchestrator windowing and retries.
type Options struct {
	// Overlap is subtracted from the watermark so late revisions of
	// already ingested intervals are re-fetched. Idempotent upserts make
	// the re-read harmless.
	Overlap time.Duration
	// Backfill bounds the first window when no watermark exists yet.
	Backfill time.Duration
	Retry    RetryPolicy
	Clock    func() time.Time
}

// Orchestrator drives fetch, normalize, and store for every registered
// entity type. Concurrent triggers for the same entity type join the
// in-flight run instead of starting a duplicate.
type Orchestrator struct {
	adapters   map[timeseries.EntityType]adapters.SourceAdapter
	normalizer *normalize.Normalizer
	store      timeseries.Store
	watermarks WatermarkStore
	overlap    time.Duration
	backfill   time.Duration
	retry      RetryPolicy
	clock      func() time.Time
	logger     *log.Logger

	mu       sync.Mutex
	inflight map[timeseries.EntityType]*call
}

// NewOrchestrator constructs an Orchestrator over the given adapters.
func NewOrchestrator(sources []adapters.SourceAdapter, normalizer *normalize.Normalizer, store timeseries.Store, watermarks WatermarkStore, opts Options, logger *log.Logger) (*Orchestrator, error) {
	if len(sources) == 0 {
		return nil, errors.New("ingest: no source adapters")
	}
	if normalizer == nil {
		return nil, errors.New("ingest: nil normalizer")
	}
	if store == nil {
		return nil, errors.New("ingest: nil store")
	}
	if watermarks == nil {
		return nil, errors.New("ingest: nil watermark store")
	}

	byEntity := make(map[timeseries.EntityType]adapters.SourceAdapter)
	for _, src := range sources {
		for _, entity := range src.Entities() {
			if _, dup := byEntity[entity]; dup {
				return nil, fmt.Errorf("ingest: duplicate adapter for entity type %s", entity)
			}
			byEntity[entity] = src
		}
	}

	if opts.Overlap <= 0 {
		opts.Overlap = 2 * time.Hour
	}
	if opts.Backfill <= 0 {
		opts.Backfill = 7 * 24 * time.Hour
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = DefaultRetryPolicy()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &Orchestrator{
		adapters:   byEntity,
		normalizer: normalizer,
		store:      store,
		watermarks: watermarks,
		overlap:    opts.Overlap,
		backfill:   opts.Backfill,
		retry:      opts.Retry,
		clock:      opts.Clock,
		logger:     logger,
		inflight:   make(map[timeseries.EntityType]*call),
	}, nil
}

// Entities returns the registered entity types, sorted.
func (o *Orchestrator) Entities() []timeseries.EntityType {
	out := make([]timeseries.EntityType, 0, len(o.adapters))
	for entity := range o.adapters {
		out = append(out, entity)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Run executes one ingestion run for an entity type. If a run for the
// same entity type is already in flight, the caller blocks until it
// finishes and gets its result with Joined set.
func (o *Orchestrator) Run(ctx context.Context, entity timeseries.EntityType) (RunResult, error) {
	adapter, ok := o.adapters[entity]
	if !ok {
		return RunResult{}, fmt.Errorf("%w: %s", ErrNoAdapter, entity)
	}

	o.mu.Lock()
	if existing, running := o.inflight[entity]; running {
		o.mu.Unlock()
		select {
		case <-existing.done:
		case <-ctx.Done():
			return RunResult{}, ctx.Err()
		}
		result := existing.result
		result.Joined = true
		metrics.ObserveIngestRun(string(entity), metrics.ResultJoined, 0)
		return result, existing.err
	}
	c := &call{done: make(chan struct{})}
	o.inflight[entity] = c
	o.mu.Unlock()

	result, err := o.runOnce(ctx, entity, adapter)

	o.mu.Lock()
	c.result, c.err = result, err
	delete(o.inflight, entity)
	o.mu.Unlock()
	close(c.done)

	return result, err
}

// RunAll executes one run per registered entity type in parallel.
func (o *Orchestrator) RunAll(ctx context.Context) Report {
	entities := o.Entities()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make([]RunResult, 0, len(entities))
		errs    = make(map[timeseries.EntityType]error)
	)
	for _, entity := range entities {
		wg.Add(1)
		go func(entity timeseries.EntityType) {
			defer wg.Done()
			result, err := o.Run(ctx, entity)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs[entity] = err
				return
			}
			results = append(results, result)
		}(entity)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Entity < results[j].Entity })
	return Report{Results: results, Errors: errs}
}

func (o *Orchestrator) runOnce(ctx context.Context, entity timeseries.EntityType, adapter adapters.SourceAdapter) (RunResult, error) {
	started := o.clock().UTC()
	result := RunResult{
		RunID:   uuid.NewString(),
		Entity:  entity,
		Started: started,
	}

	window, err := o.window(ctx, entity, started)
	if err != nil {
		metrics.ObserveIngestRun(string(entity), metrics.ResultError, o.clock().UTC().Sub(started))
		return result, err
	}
	result.Window = window

	payload, err := o.fetch(ctx, entity, adapter, window)
	if err != nil {
		metrics.ObserveIngestRun(string(entity), metrics.ResultError, o.clock().UTC().Sub(started))
		return result, err
	}
	result.Fetched = len(payload.Records)

	normalized, err := o.normalizer.Normalize(payload, normalize.Options{Partial: true})
	if err != nil {
		metrics.ObserveIngestRun(string(entity), metrics.ResultError, o.clock().UTC().Sub(started))
		return result, fmt.Errorf("normalize %s: %w", entity, err)
	}
	result.Rejected = len(normalized.Rejections)
	for _, rejection := range normalized.Rejections {
		metrics.AddRejectedRecords(string(entity), rejectionReason(rejection.Err), 1)
		if o.logger != nil {
			o.logger.Printf("ingest reject: run=%s entity=%s code=%s err=%v",
				result.RunID, entity, rejection.Record.EntityCode, rejection.Err)
		}
	}

	upserted, err := o.store.UpsertBatch(ctx, normalized.Batch)
	if err != nil {
		metrics.ObserveIngestRun(string(entity), metrics.ResultError, o.clock().UTC().Sub(started))
		return result, fmt.Errorf("upsert %s: %w", entity, err)
	}
	result.Upserted = upserted
	metrics.AddUpsertedRows(string(entity), upserted)

	// The watermark only advances after a fully committed run, so a
	// failed tick leaves the window to be re-fetched next time.
	if err := o.watermarks.Set(ctx, entity, window.End); err != nil {
		metrics.ObserveIngestRun(string(entity), metrics.ResultError, o.clock().UTC().Sub(started))
		return result, err
	}
	metrics.SetWatermarkAge(string(entity), o.clock().UTC().Sub(window.End))

	result.Elapsed = o.clock().UTC().Sub(started)
	metrics.ObserveIngestRun(string(entity), metrics.ResultSuccess, result.Elapsed)
	if o.logger != nil {
		o.logger.Printf("ingest run: run=%s entity=%s window=[%s,%s) fetched=%d upserted=%d rejected=%d elapsed=%s",
			result.RunID, entity, window.Start.Format(time.RFC3339), window.End.Format(time.RFC3339),
			result.Fetched, result.Upserted, result.Rejected, result.Elapsed)
	}
	return result, nil
}

// window resolves the fetch window for this run: from the watermark minus
// the overlap margin, or a bounded backfill when no watermark exists.
func (o *Orchestrator) window(ctx context.Context, entity timeseries.EntityType, now time.Time) (timeseries.TimeRange, error) {
	watermark, ok, err := o.watermarks.Get(ctx, entity)
	if err != nil {
		return timeseries.TimeRange{}, err
	}

	var start time.Time
	if ok {
		start = watermark.Add(-o.overlap)
	} else {
		start = now.Add(-o.backfill)
	}
	if !start.Before(now) {
		return timeseries.TimeRange{}, ErrEmptyWindow
	}
	window := timeseries.TimeRange{Start: start.UTC(), End: now}
	if err := window.Validate(); err != nil {
		return timeseries.TimeRange{}, err
	}
	return window, nil
}

func (o *Orchestrator) fetch(ctx context.Context, entity timeseries.EntityType, adapter adapters.SourceAdapter, window timeseries.TimeRange) (adapters.Payload, error) {
	var lastErr error
	for attempt := 1; attempt <= o.retry.MaxAttempts; attempt++ {
		payload, err := adapter.Fetch(ctx, entity, window.Start, window.End)
		if err == nil {
			return payload, nil
		}
		lastErr = err

		if !retryableFetch(err) || attempt == o.retry.MaxAttempts {
			break
		}
		metrics.IncCycleRetry(string(entity))
		if o.logger != nil {
			o.logger.Printf("ingest retry: entity=%s attempt=%d err=%v", entity, attempt, err)
		}
		select {
		case <-time.After(o.retry.interval(attempt)):
		case <-ctx.Done():
			return adapters.Payload{}, ctx.Err()
		}
	}
	return adapters.Payload{}, fmt.Errorf("fetch %s: %w", entity, lastErr)
}

// retryableFetch retries transient upstream failures only. Auth failures
// and malformed responses repeat identically, so retrying them wastes the
// rate budget.
func retryableFetch(err error) bool {
	switch adapters.KindOf(err) {
	case adapters.ErrNetwork, adapters.ErrRateLimited:
		return true
	default:
		return false
	}
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, normalize.ErrUnknownEntity):
		return "unknown_entity"
	case errors.Is(err, normalize.ErrUnitMismatch):
		return "unit_mismatch"
	case errors.Is(err, normalize.ErrMalformedRecord):
		return "malformed_record"
	default:
		return "other"
	}
}
