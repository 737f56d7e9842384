package timeseries

import (
	"context"
	"fmt"
	"time"
)

// TimeRange is a half-open interval [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Validate checks the range is non-empty.
func (r TimeRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() || !r.End.After(r.Start) {
		return fmt.Errorf("%w: [%s, %s)", ErrInvalidRange, r.Start, r.End)
	}
	return nil
}

// Contains reports whether ts falls inside the range.
func (r TimeRange) Contains(ts time.Time) bool {
	return !ts.Before(r.Start) && ts.Before(r.End)
}

// PriceFilter selects price records. Zones and ISORTO compose: ISORTO
// resolves through the zone→ISO mapping.
type PriceFilter struct {
	Zones  []string
	ISORTO string
	Market MarketType
	Range  TimeRange
}

// LoadFilter selects load records.
type LoadFilter struct {
	Zones  []string
	ISORTO string
	Range  TimeRange
}

// FuelMixFilter selects fuel mix records. An empty Zones slice matches the
// ISO/RTO level aggregate rows (zone stored as empty).
type FuelMixFilter struct {
	ISORTO        string
	Zones         []string
	FuelTypes     []string
	RenewableOnly bool
	Range         TimeRange
}

// FlowFilter selects interface flow records.
type FlowFilter struct {
	InterfaceIDs []string
	Range        TimeRange
}

// WeatherFilter selects weather records of one kind (forecast or actual).
type WeatherFilter struct {
	Regions  []string
	Forecast bool
	Range    TimeRange
}

// Store is the durable upsert side of the time-series store. UpsertBatch is
// all-or-nothing: a partial failure rolls back the whole batch.
type Store interface {
	UpsertBatch(ctx context.Context, batch Batch) (int, error)
}

// Query is the range-scan side of the time-series store. Every scan returns
// records ordered ascending by timestamp and bounded by the filter's range.
type Query interface {
	ScanPrices(ctx context.Context, filter PriceFilter) ([]PriceRecord, error)
	ScanLoads(ctx context.Context, filter LoadFilter) ([]LoadRecord, error)
	ScanFuelMix(ctx context.Context, filter FuelMixFilter) ([]FuelMixRecord, error)
	ScanFlows(ctx context.Context, filter FlowFilter) ([]InterfaceFlowRecord, error)
	ScanWeather(ctx context.Context, filter WeatherFilter) ([]WeatherRecord, error)
}
