package analytics

import (
	"strings"
	"time"

	timeseries "gridpulse/internal/timeseries/domain"
)

// Point is one resampled bucket.
type Point struct {
	TS    time.Time `json:"timestamp"`
	Value float64   `json:"value"`
}

// SeriesKey identifies one series within a grouped result. Only the
// dimensions relevant to the queried fact type are set.
type SeriesKey struct {
	Zone        string                `json:"zone,omitempty"`
	Region      string                `json:"region,omitempty"`
	InterfaceID string                `json:"interface_id,omitempty"`
	FuelType    string                `json:"fuel_type,omitempty"`
	Market      timeseries.MarketType `json:"market_type,omitempty"`
	Metric      string                `json:"metric,omitempty"`
}

// Label renders a stable, human-readable series label.
func (k SeriesKey) Label() string {
	parts := make([]string, 0, 6)
	for _, part := range []string{k.Zone, k.Region, k.InterfaceID, k.FuelType, string(k.Market), k.Metric} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, "/")
}

// compare orders keys deterministically.
func (k SeriesKey) compare(other SeriesKey) int {
	return strings.Compare(k.sortKey(), other.sortKey())
}

func (k SeriesKey) sortKey() string {
	return strings.Join([]string{k.Zone, k.Region, k.InterfaceID, k.FuelType, string(k.Market), k.Metric}, "\x00")
}

// Series is one ordered sequence of resampled points.
type Series struct {
	Key    SeriesKey `json:"key"`
	Points []Point   `json:"points"`
}
