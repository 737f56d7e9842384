package application

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	analytics "gridpulse/internal/analytics/domain"
	timeseries "gridpulse/internal/timeseries/domain"
)

// Weather metric selectors.
const (
	MetricTemperature   = "temperature"
	MetricHumidity      = "humidity"
	MetricWindSpeed     = "wind_speed"
	MetricWindDirection = "wind_direction"
	MetricPrecipitation = "precipitation"
	MetricCloudCover    = "cloud_cover"
)

// Load metric selectors.
const (
	MetricLoad           = "load"
	MetricLoadWithLosses = "load_with_losses"
)

// Flow metric selectors.
const (
	MetricFlow          = "flow"
	MetricScheduledFlow = "scheduled_flow"
)

// Renewable grouping labels.
const (
	groupRenewable = "renewable"
	groupOther     = "other"
)

// Request describes one aggregation query.
type Request struct {
	Entity       timeseries.EntityType
	Zones        []string
	Regions      []string
	InterfaceIDs []string
	ISORTO       string
	Market       timeseries.MarketType
	FuelTypes    []string
	// RenewableOnly narrows fuel mix to renewable fuel types.
	RenewableOnly bool
	// GroupRenewable collapses fuel mix series into renewable vs other.
	GroupRenewable bool
	// Forecast selects forecast weather rows instead of observations.
	Forecast bool
	// Metric picks the value column for load, flow, and weather facts.
	Metric   string
	Range    timeseries.TimeRange
	Interval analytics.Interval
	Func     analytics.Func
}

// withDefaults fills interval, function, and metric defaults.
func (r Request) withDefaults() Request {
	if r.Interval == "" {
		r.Interval = analytics.IntervalHourly
	}
	if r.Func == "" {
		r.Func = analytics.DefaultFunc(r.Entity)
	}
	if r.Metric == "" {
		switch r.Entity {
		case timeseries.EntityLoad:
			r.Metric = MetricLoad
		case timeseries.EntityInterfaceFlow:
			r.Metric = MetricFlow
		case timeseries.EntityWeatherObservation, timeseries.EntityWeatherForecast:
			r.Metric = MetricTemperature
		}
	}
	return r
}

func (r Request) validate() error {
	if _, err := timeseries.ParseEntityType(string(r.Entity)); err != nil {
		return fmt.Errorf("%w: %v", analytics.ErrValidation, err)
	}
	if err := r.Range.Validate(); err != nil {
		return fmt.Errorf("%w: %v", analytics.ErrValidation, err)
	}
	if _, err := analytics.ParseInterval(string(r.Interval)); err != nil {
		return err
	}
	if _, err := analytics.ParseFunc(string(r.Func)); err != nil {
		return err
	}
	if err := analytics.ValidateFunc(r.Entity, r.Func); err != nil {
		return err
	}
	return r.validateMetric()
}

func (r Request) validateMetric() error {
	var allowed []string
	switch r.Entity {
	case timeseries.EntityLoad:
		allowed = []string{MetricLoad, MetricLoadWithLosses}
	case timeseries.EntityInterfaceFlow:
		allowed = []string{MetricFlow, MetricScheduledFlow}
	case timeseries.EntityWeatherObservation, timeseries.EntityWeatherForecast:
		allowed = []string{MetricTemperature, MetricHumidity, MetricWindSpeed, MetricWindDirection, MetricPrecipitation, MetricCloudCover}
	default:
		if r.Metric == "" {
			return nil
		}
		return fmt.Errorf("%w: metric %q not applicable to %s", analytics.ErrValidation, r.Metric, r.Entity)
	}
	for _, candidate := range allowed {
		if r.Metric == candidate {
			return nil
		}
	}
	return fmt.Errorf("%w: unknown metric %q for %s", analytics.ErrValidation, r.Metric, r.Entity)
}

// cacheKey derives a stable key from every request dimension. Identical
// requests against the same store state hit the same cache slot.
func (r Request) cacheKey() string {
	canonical := struct {
		Entity         string   `json:"entity"`
		Zones          []string `json:"zones,omitempty"`
		Regions        []string `json:"regions,omitempty"`
		InterfaceIDs   []string `json:"interface_ids,omitempty"`
		ISORTO         string   `json:"iso_rto,omitempty"`
		Market         string   `json:"market,omitempty"`
		FuelTypes      []string `json:"fuel_types,omitempty"`
		RenewableOnly  bool     `json:"renewable_only,omitempty"`
		GroupRenewable bool     `json:"group_renewable,omitempty"`
		Forecast       bool     `json:"forecast,omitempty"`
		Metric         string   `json:"metric,omitempty"`
		Start          string   `json:"start"`
		End            string   `json:"end"`
		Interval       string   `json:"interval"`
		Func           string   `json:"func"`
	}{
		Entity:         string(r.Entity),
		Zones:          r.Zones,
		Regions:        r.Regions,
		InterfaceIDs:   r.InterfaceIDs,
		ISORTO:         r.ISORTO,
		Market:         string(r.Market),
		FuelTypes:      r.FuelTypes,
		RenewableOnly:  r.RenewableOnly,
		GroupRenewable: r.GroupRenewable,
		Forecast:       r.Forecast,
		Metric:         r.Metric,
		Start:          r.Range.Start.UTC().Format(time.RFC3339Nano),
		End:            r.Range.End.UTC().Format(time.RFC3339Nano),
		Interval:       string(r.Interval),
		Func:           string(r.Func),
	}
	raw, _ := json.Marshal(canonical)
	digest := sha256.Sum256(raw)
	return "agg:" + hex.EncodeToString(digest[:])
}
