package timeseries

import (
	"fmt"
	"time"
)

// EntityType identifies a canonical fact table. Weather observations and
// forecasts ingest on separate cadences, so they are distinct entity types
// even though they share one table.
type EntityType string

const (
	EntityPrice              EntityType = "price"
	EntityLoad               EntityType = "load"
	EntityFuelMix            EntityType = "fuel_mix"
	EntityInterfaceFlow      EntityType = "interface_flow"
	EntityWeatherObservation EntityType = "weather_observation"
	EntityWeatherForecast    EntityType = "weather_forecast"
)

// AllEntityTypes returns every ingestible entity type in a stable order.
func AllEntityTypes() []EntityType {
	return []EntityType{
		EntityPrice,
		EntityLoad,
		EntityFuelMix,
		EntityInterfaceFlow,
		EntityWeatherObservation,
		EntityWeatherForecast,
	}
}

// ParseEntityType parses an entity type string.
func ParseEntityType(value string) (EntityType, error) {
	for _, entity := range AllEntityTypes() {
		if string(entity) == value {
			return entity, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEntityType, value)
}

// MarketType distinguishes day-ahead from real-time prices.
type MarketType string

const (
	MarketDayAhead MarketType = "DA"
	MarketRealTime MarketType = "RT"
)

// ParseMarketType parses a market type string.
func ParseMarketType(value string) (MarketType, error) {
	switch MarketType(value) {
	case MarketDayAhead, MarketRealTime:
		return MarketType(value), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMarketType, value)
	}
}

// PriceRecord is a locational marginal price fact.
// Natural key: (zone, ts, market).
type PriceRecord struct {
	Zone                string
	TS                  time.Time
	Market              MarketType
	Price               float64
	LossComponent       float64
	CongestionComponent float64
}

// LoadRecord is a zone load fact. Natural key: (zone, ts).
type LoadRecord struct {
	Zone             string
	TS               time.Time
	LoadMW           float64
	LoadWithLossesMW float64
}

// FuelMixRecord is a generation-by-fuel fact. Zone is empty for ISO/RTO
// level aggregates. Natural key: (iso_rto, zone, ts, fuel_type).
type FuelMixRecord struct {
	ISORTO       string
	Zone         string
	TS           time.Time
	FuelType     string
	GenerationMW float64
	IsRenewable  bool
}

// InterfaceFlowRecord is a zone interface flow fact.
// Natural key: (interface_id, ts).
type InterfaceFlowRecord struct {
	InterfaceID     string
	TS              time.Time
	FlowMW          float64
	ScheduledFlowMW float64
	LimitMW         *float64
}

// WeatherRecord is a per-region observation or forecast fact. Forecast and
// actual rows at the same instant are independent facts.
// Natural key: (region, ts, is_forecast).
type WeatherRecord struct {
	Region           string
	TS               time.Time
	IsForecast       bool
	TemperatureF     float64
	HumidityPct      float64
	WindSpeedMPH     float64
	WindDirectionDeg int
	PrecipitationIn  float64
	CloudCoverPct    float64
}

// Batch is a heterogeneous set of canonical records destined for one
// all-or-nothing upsert.
type Batch struct {
	Prices  []PriceRecord
	Loads   []LoadRecord
	FuelMix []FuelMixRecord
	Flows   []InterfaceFlowRecord
	Weather []WeatherRecord
}

// Len returns the total record count across fact types.
func (b Batch) Len() int {
	return len(b.Prices) + len(b.Loads) + len(b.FuelMix) + len(b.Flows) + len(b.Weather)
}

// Merge appends another batch's records.
func (b *Batch) Merge(other Batch) {
	b.Prices = append(b.Prices, other.Prices...)
	b.Loads = append(b.Loads, other.Loads...)
	b.FuelMix = append(b.FuelMix, other.FuelMix...)
	b.Flows = append(b.Flows, other.Flows...)
	b.Weather = append(b.Weather, other.Weather...)
}
