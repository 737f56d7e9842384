package adapters

import (
	"context"
	"time"

	timeseries "gridpulse/internal/timeseries/domain"
)

// SourceKind names an upstream data source.
type SourceKind string

const (
	// SourceGrid is the grid-operations source (prices, load, fuel mix, flows).
	SourceGrid SourceKind = "grid"
	// SourceWeather is the weather source (observations, forecasts).
	SourceWeather SourceKind = "weather"
)

// RawRecord is one upstream record before normalization. Values stay in
// source units and timestamps in the source's published layout/timezone;
// only the Normalizer converts them.
type RawRecord struct {
	EntityCode string
	Period     string
	Values     map[string]float64
	Labels     map[string]string
}

// Payload is one fetched batch of raw records for a single entity type.
type Payload struct {
	Source   SourceKind
	Entity   timeseries.EntityType
	Timezone string
	Records  []RawRecord
}

// SourceAdapter is the upstream client contract. An adapter is the only
// place that knows its source's wire format and authentication.
type SourceAdapter interface {
	Source() SourceKind
	Entities() []timeseries.EntityType
	Fetch(ctx context.Context, entity timeseries.EntityType, since, until time.Time) (Payload, error)
}
