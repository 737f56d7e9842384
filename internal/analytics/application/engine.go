package application

import (
	"context"
	"errors"
	"log"
	"time"

	analytics "gridpulse/internal/analytics/domain"
	catalog "gridpulse/internal/catalog/domain"
	"gridpulse/internal/observability/metrics"
	timeseries "gridpulse/internal/timeseries/domain"
)

// ResultCache caches finished aggregation results. Aggregate is a pure
// function of its arguments for a fixed store state, so cached entries
// only need a short TTL to absorb dashboard refresh storms.
type ResultCache interface {
	Get(ctx context.Context, key string) ([]analytics.Series, bool, error)
	Set(ctx context.Context, key string, series []analytics.Series) error
}

// Engine resolves aggregation requests against the time-series store.
type Engine struct {
	query   timeseries.Query
	catalog *catalog.Cache
	results ResultCache
	timeout time.Duration
	logger  *log.Logger
}

// NewEngine constructs an Engine. results may be nil to disable caching.
func NewEngine(query timeseries.Query, cache *catalog.Cache, results ResultCache, timeout time.Duration, logger *log.Logger) (*Engine, error) {
	if query == nil {
		return nil, errors.New("analytics: nil query")
	}
	if cache == nil {
		return nil, errors.New("analytics: nil catalog cache")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Engine{
		query:   query,
		catalog: cache,
		results: results,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Aggregate resamples stored records into the requested resolution and
// returns one ordered series per grouping key.
func (e *Engine) Aggregate(ctx context.Context, req Request) ([]analytics.Series, error) {
	started := time.Now()
	req = req.withDefaults()
	if err := req.validate(); err != nil {
		metrics.ObserveQuery(string(req.Entity), metrics.ResultError, time.Since(started))
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	key := req.cacheKey()
	if e.results != nil {
		cached, ok, err := e.results.Get(ctx, key)
		if err != nil && e.logger != nil {
			e.logger.Printf("result cache get failed: %v", err)
		}
		if ok {
			metrics.IncCacheLookup(metrics.CacheHit)
			metrics.ObserveQuery(string(req.Entity), metrics.ResultSuccess, time.Since(started))
			return cached, nil
		}
		metrics.IncCacheLookup(metrics.CacheMiss)
	}

	snap, err := e.catalog.Snapshot()
	if err != nil {
		metrics.ObserveQuery(string(req.Entity), metrics.ResultError, time.Since(started))
		return nil, err
	}

	samples, err := e.collect(ctx, req)
	if err != nil {
		metrics.ObserveQuery(string(req.Entity), metrics.ResultError, time.Since(started))
		return nil, err
	}

	series := analytics.Resample(samples, req.Interval, req.Func, localCalendar(snap))

	if e.results != nil {
		if err := e.results.Set(ctx, key, series); err != nil && e.logger != nil {
			e.logger.Printf("result cache set failed: %v", err)
		}
	}
	metrics.ObserveQuery(string(req.Entity), metrics.ResultSuccess, time.Since(started))
	return series, nil
}

// localCalendar resolves the local day calendar for daily buckets. Keys
// without a zone or region (interface flows, ISO-level fuel mix) stay on
// UTC days.
func localCalendar(snap *catalog.Snapshot) func(analytics.SeriesKey) *time.Location {
	return func(key analytics.SeriesKey) *time.Location {
		if key.Zone != "" {
			if loc, err := snap.ZoneLocation(key.Zone); err == nil {
				return loc
			}
		}
		if key.Region != "" {
			if loc, err := snap.RegionLocation(key.Region); err == nil {
				return loc
			}
		}
		return time.UTC
	}
}

func (e *Engine) collect(ctx context.Context, req Request) ([]analytics.Sample, error) {
	switch req.Entity {
	case timeseries.EntityPrice:
		records, err := e.query.ScanPrices(ctx, timeseries.PriceFilter{
			Zones:  req.Zones,
			ISORTO: req.ISORTO,
			Market: req.Market,
			Range:  req.Range,
		})
		if err != nil {
			return nil, err
		}
		samples := make([]analytics.Sample, 0, len(records))
		for _, r := range records {
			samples = append(samples, analytics.Sample{
				Key:   analytics.SeriesKey{Zone: r.Zone, Market: r.Market},
				TS:    r.TS,
				Value: r.Price,
			})
		}
		return samples, nil

	case timeseries.EntityLoad:
		records, err := e.query.ScanLoads(ctx, timeseries.LoadFilter{
			Zones:  req.Zones,
			ISORTO: req.ISORTO,
			Range:  req.Range,
		})
		if err != nil {
			return nil, err
		}
		samples := make([]analytics.Sample, 0, len(records))
		for _, r := range records {
			value := r.LoadMW
			if req.Metric == MetricLoadWithLosses {
				value = r.LoadWithLossesMW
			}
			samples = append(samples, analytics.Sample{
				Key:   analytics.SeriesKey{Zone: r.Zone},
				TS:    r.TS,
				Value: value,
			})
		}
		return samples, nil

	case timeseries.EntityFuelMix:
		records, err := e.query.ScanFuelMix(ctx, timeseries.FuelMixFilter{
			ISORTO:        req.ISORTO,
			Zones:         req.Zones,
			FuelTypes:     req.FuelTypes,
			RenewableOnly: req.RenewableOnly,
			Range:         req.Range,
		})
		if err != nil {
			return nil, err
		}
		samples := make([]analytics.Sample, 0, len(records))
		for _, r := range records {
			fuel := r.FuelType
			if req.GroupRenewable {
				fuel = groupOther
				if r.IsRenewable {
					fuel = groupRenewable
				}
			}
			samples = append(samples, analytics.Sample{
				Key:   analytics.SeriesKey{Zone: r.Zone, FuelType: fuel},
				TS:    r.TS,
				Value: r.GenerationMW,
			})
		}
		return samples, nil

	case timeseries.EntityInterfaceFlow:
		records, err := e.query.ScanFlows(ctx, timeseries.FlowFilter{
			InterfaceIDs: req.InterfaceIDs,
			Range:        req.Range,
		})
		if err != nil {
			return nil, err
		}
		samples := make([]analytics.Sample, 0, len(records))
		for _, r := range records {
			value := r.FlowMW
			if req.Metric == MetricScheduledFlow {
				value = r.ScheduledFlowMW
			}
			samples = append(samples, analytics.Sample{
				Key:   analytics.SeriesKey{InterfaceID: r.InterfaceID},
				TS:    r.TS,
				Value: value,
			})
		}
		return samples, nil

	case timeseries.EntityWeatherObservation, timeseries.EntityWeatherForecast:
		records, err := e.query.ScanWeather(ctx, timeseries.WeatherFilter{
			Regions:  req.Regions,
			Forecast: req.Entity == timeseries.EntityWeatherForecast || req.Forecast,
			Range:    req.Range,
		})
		if err != nil {
			return nil, err
		}
		samples := make([]analytics.Sample, 0, len(records))
		for _, r := range records {
			samples = append(samples, analytics.Sample{
				Key:   analytics.SeriesKey{Region: r.Region, Metric: req.Metric},
				TS:    r.TS,
				Value: weatherValue(r, req.Metric),
			})
		}
		return samples, nil

	default:
		return nil, timeseries.ErrUnknownEntityType
	}
}

func weatherValue(r timeseries.WeatherRecord, metric string) float64 {
	switch metric {
	case MetricHumidity:
		return r.HumidityPct
	case MetricWindSpeed:
		return r.WindSpeedMPH
	case MetricWindDirection:
		return float64(r.WindDirectionDeg)
	case MetricPrecipitation:
		return r.PrecipitationIn
	case MetricCloudCover:
		return r.CloudCoverPct
	default:
		return r.TemperatureF
	}
}
