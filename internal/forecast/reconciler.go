package forecast

import (
	"context"
	"errors"
	"log"
	"math"
	"sort"
	"time"

	catalog "gridpulse/internal/catalog/domain"
	timeseries "gridpulse/internal/timeseries/domain"
)

// ErrNoForecastData means no forecast rows exist for the requested day.
// It is an expected state for days outside the forecast horizon.
var ErrNoForecastData = errors.New("forecast: no forecast data for day")

// Metric selectors for the compared weather value.
const (
	MetricTemperature   = "temperature"
	MetricHumidity      = "humidity"
	MetricWindSpeed     = "wind_speed"
	MetricPrecipitation = "precipitation"
	MetricCloudCover    = "cloud_cover"
)

// HourPoint pairs one forecast hour with its realized actual. Actual and
// Delta are nil for hours whose observation is not ingested yet.
type HourPoint struct {
	TS       time.Time `json:"timestamp"`
	Forecast float64   `json:"forecast"`
	Actual   *float64  `json:"actual"`
	Delta    *float64  `json:"delta"`
}

// Comparison is a forecast-vs-actual reconciliation for one region day.
type Comparison struct {
	Region      string      `json:"region"`
	Date        string      `json:"date"`
	Metric      string      `json:"metric"`
	Hours       []HourPoint `json:"hours"`
	PairedHours int         `json:"paired_hours"`
	// MAE is the mean absolute error over paired hours only; unmatched
	// forecast hours are excluded, not treated as zero error.
	MAE float64 `json:"mean_absolute_error"`
	// Partial is true when actuals cover only part of the forecast day,
	// the normal state for the current day.
	Partial bool `json:"partial"`
}

// Reconciler pairs forecast rows with realized actuals on demand.
type Reconciler struct {
	query   timeseries.Query
	catalog *catalog.Cache
	logger  *log.Logger
	clock   func() time.Time
}

// NewReconciler constructs a Reconciler.
func NewReconciler(query timeseries.Query, cache *catalog.Cache, logger *log.Logger) (*Reconciler, error) {
	if query == nil {
		return nil, errors.New("forecast: nil query")
	}
	if cache == nil {
		return nil, errors.New("forecast: nil catalog cache")
	}
	return &Reconciler{query: query, catalog: cache, logger: logger, clock: time.Now}, nil
}

// Compare reconciles forecast against actual weather for one region and
// one local calendar day. A zero date means the region's current local
// day: near midnight the UTC date can already be tomorrow, so "today" has
// to be resolved in the region's timezone.
func (r *Reconciler) Compare(ctx context.Context, region string, date time.Time, metric string) (Comparison, error) {
	if metric == "" {
		metric = MetricTemperature
	}

	snap, err := r.catalog.Snapshot()
	if err != nil {
		return Comparison{}, err
	}
	if _, ok := snap.Region(region); !ok {
		return Comparison{}, catalog.UnknownRegionError(region)
	}
	loc, err := snap.RegionLocation(region)
	if err != nil {
		return Comparison{}, err
	}

	if date.IsZero() {
		date = r.clock().In(loc)
	}
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	day := timeseries.TimeRange{Start: dayStart.UTC(), End: dayStart.Add(24 * time.Hour).UTC()}

	forecasts, err := r.query.ScanWeather(ctx, timeseries.WeatherFilter{
		Regions:  []string{region},
		Forecast: true,
		Range:    day,
	})
	if err != nil {
		return Comparison{}, err
	}
	if len(forecasts) == 0 {
		return Comparison{}, ErrNoForecastData
	}
	actuals, err := r.query.ScanWeather(ctx, timeseries.WeatherFilter{
		Regions:  []string{region},
		Forecast: false,
		Range:    day,
	})
	if err != nil {
		return Comparison{}, err
	}

	forecastHours := bucketHourly(forecasts, metric)
	actualHours := bucketHourly(actuals, metric)

	comparison := Comparison{
		Region: region,
		Date:   dayStart.Format("2006-01-02"),
		Metric: metric,
	}
	var absErrSum float64
	for _, ts := range sortedHours(forecastHours) {
		point := HourPoint{TS: ts, Forecast: forecastHours[ts]}
		if actual, ok := actualHours[ts]; ok {
			value := actual
			delta := actual - point.Forecast
			point.Actual = &value
			point.Delta = &delta
			absErrSum += math.Abs(delta)
			comparison.PairedHours++
		}
		comparison.Hours = append(comparison.Hours, point)
	}
	if comparison.PairedHours > 0 {
		comparison.MAE = absErrSum / float64(comparison.PairedHours)
	}
	comparison.Partial = comparison.PairedHours < len(comparison.Hours)
	return comparison, nil
}

// bucketHourly floors rows to UTC hours, averaging when a source reports
// sub-hourly.
func bucketHourly(records []timeseries.WeatherRecord, metric string) map[time.Time]float64 {
	sums := make(map[time.Time]float64)
	counts := make(map[time.Time]int)
	for _, rec := range records {
		hour := rec.TS.UTC().Truncate(time.Hour)
		sums[hour] += metricValue(rec, metric)
		counts[hour]++
	}
	out := make(map[time.Time]float64, len(sums))
	for hour, sum := range sums {
		out[hour] = sum / float64(counts[hour])
	}
	return out
}

func sortedHours(values map[time.Time]float64) []time.Time {
	out := make([]time.Time, 0, len(values))
	for ts := range values {
		out = append(out, ts)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func metricValue(r timeseries.WeatherRecord, metric string) float64 {
	switch metric {
	case MetricHumidity:
		return r.HumidityPct
	case MetricWindSpeed:
		return r.WindSpeedMPH
	case MetricPrecipitation:
		return r.PrecipitationIn
	case MetricCloudCover:
		return r.CloudCoverPct
	default:
		return r.TemperatureF
	}
}
