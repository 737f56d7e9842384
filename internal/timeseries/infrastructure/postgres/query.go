package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	timeseries "gridpulse/internal/timeseries/domain"
)

// FactQuery is the Postgres implementation of timeseries.Query. ISO/RTO
// grouping filters resolve through a join on the zones catalog table.
type FactQuery struct {
	db     *sql.DB
	tables tableSet
}

// NewFactQuery constructs a query with default table names.
func NewFactQuery(db *sql.DB, opts ...QueryOption) *FactQuery {
	query := &FactQuery{db: db, tables: defaultTables()}
	for _, opt := range opts {
		opt(query)
	}
	return query
}

// QueryOption configures the fact query.
type QueryOption func(*FactQuery)

// WithQueryTablePrefix prefixes every fact table name for queries.
func WithQueryTablePrefix(prefix string) QueryOption {
	return func(query *FactQuery) {
		if query == nil || prefix == "" {
			return
		}
		query.tables.prices = prefix + query.tables.prices
		query.tables.loads = prefix + query.tables.loads
		query.tables.fuelMix = prefix + query.tables.fuelMix
		query.tables.flows = prefix + query.tables.flows
		query.tables.weather = prefix + query.tables.weather
	}
}

// condition builder shared by the scans: collects WHERE fragments and args
// with positional placeholders.
type conditions struct {
	clauses []string
	args    []any
}

func (c *conditions) add(clause string, args ...any) {
	base := len(c.args)
	for i := range args {
		clause = strings.Replace(clause, "?", fmt.Sprintf("$%d", base+i+1), 1)
	}
	c.clauses = append(c.clauses, clause)
	c.args = append(c.args, args...)
}

func (c *conditions) addIn(column string, values []string) {
	if len(values) == 0 {
		return
	}
	placeholders := make([]string, len(values))
	for i, value := range values {
		c.args = append(c.args, value)
		placeholders[i] = fmt.Sprintf("$%d", len(c.args))
	}
	c.clauses = append(c.clauses, fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")))
}

func (c *conditions) where() string {
	return strings.Join(c.clauses, "\n\tAND ")
}

// ScanPrices returns price records ascending by timestamp.
func (q *FactQuery) ScanPrices(ctx context.Context, filter timeseries.PriceFilter) ([]timeseries.PriceRecord, error) {
	if q == nil || q.db == nil {
		return nil, errors.New("fact query: nil db")
	}
	if err := filter.Range.Validate(); err != nil {
		return nil, err
	}

	cond := &conditions{}
	cond.add("p.ts >= ?", filter.Range.Start.UTC())
	cond.add("p.ts < ?", filter.Range.End.UTC())
	cond.addIn("p.zone_code", filter.Zones)
	if filter.ISORTO != "" {
		cond.add("p.zone_code IN (SELECT code FROM zones WHERE iso_rto = ?)", filter.ISORTO)
	}
	if filter.Market != "" {
		cond.add("p.market_type = ?", string(filter.Market))
	}

	query := fmt.Sprintf(`
SELECT p.zone_code, p.ts, p.market_type, p.price, p.loss_component, p.congestion_component
FROM %s p
WHERE %s
ORDER BY p.ts ASC, p.zone_code ASC, p.market_type ASC`, q.tables.prices, cond.where())

	rows, err := q.db.QueryContext(ctx, query, cond.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []timeseries.PriceRecord
	for rows.Next() {
		var rec timeseries.PriceRecord
		var market string
		if err := rows.Scan(&rec.Zone, &rec.TS, &market, &rec.Price, &rec.LossComponent, &rec.CongestionComponent); err != nil {
			return nil, err
		}
		rec.TS = rec.TS.UTC()
		rec.Market = timeseries.MarketType(market)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ScanLoads returns load records ascending by timestamp.
func (q *FactQuery) ScanLoads(ctx context.Context, filter timeseries.LoadFilter) ([]timeseries.LoadRecord, error) {
	if q == nil || q.db == nil {
		return nil, errors.New("fact query: nil db")
	}
	if err := filter.Range.Validate(); err != nil {
		return nil, err
	}

	cond := &conditions{}
	cond.add("l.ts >= ?", filter.Range.Start.UTC())
	cond.add("l.ts < ?", filter.Range.End.UTC())
	cond.addIn("l.zone_code", filter.Zones)
	if filter.ISORTO != "" {
		cond.add("l.zone_code IN (SELECT code FROM zones WHERE iso_rto = ?)", filter.ISORTO)
	}

	query := fmt.Sprintf(`
SELECT l.zone_code, l.ts, l.load_mw, l.load_with_losses_mw
FROM %s l
WHERE %s
ORDER BY l.ts ASC, l.zone_code ASC`, q.tables.loads, cond.where())

	rows, err := q.db.QueryContext(ctx, query, cond.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []timeseries.LoadRecord
	for rows.Next() {
		var rec timeseries.LoadRecord
		if err := rows.Scan(&rec.Zone, &rec.TS, &rec.LoadMW, &rec.LoadWithLossesMW); err != nil {
			return nil, err
		}
		rec.TS = rec.TS.UTC()
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ScanFuelMix returns fuel mix records ascending by timestamp.
func (q *FactQuery) ScanFuelMix(ctx context.Context, filter timeseries.FuelMixFilter) ([]timeseries.FuelMixRecord, error) {
	if q == nil || q.db == nil {
		return nil, errors.New("fact query: nil db")
	}
	if err := filter.Range.Validate(); err != nil {
		return nil, err
	}

	cond := &conditions{}
	cond.add("f.ts >= ?", filter.Range.Start.UTC())
	cond.add("f.ts < ?", filter.Range.End.UTC())
	if filter.ISORTO != "" {
		cond.add("f.iso_rto = ?", filter.ISORTO)
	}
	cond.addIn("f.zone_code", filter.Zones)
	cond.addIn("f.fuel_type", filter.FuelTypes)
	if filter.RenewableOnly {
		cond.add("f.is_renewable = TRUE")
	}

	query := fmt.Sprintf(`
SELECT f.iso_rto, f.zone_code, f.ts, f.fuel_type, f.generation_mw, f.is_renewable
FROM %s f
WHERE %s
ORDER BY f.ts ASC, f.iso_rto ASC, f.fuel_type ASC`, q.tables.fuelMix, cond.where())

	rows, err := q.db.QueryContext(ctx, query, cond.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []timeseries.FuelMixRecord
	for rows.Next() {
		var rec timeseries.FuelMixRecord
		if err := rows.Scan(&rec.ISORTO, &rec.Zone, &rec.TS, &rec.FuelType, &rec.GenerationMW, &rec.IsRenewable); err != nil {
			return nil, err
		}
		rec.TS = rec.TS.UTC()
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ScanFlows returns interface flow records ascending by timestamp.
func (q *FactQuery) ScanFlows(ctx context.Context, filter timeseries.FlowFilter) ([]timeseries.InterfaceFlowRecord, error) {
	if q == nil || q.db == nil {
		return nil, errors.New("fact query: nil db")
	}
	if err := filter.Range.Validate(); err != nil {
		return nil, err
	}

	cond := &conditions{}
	cond.add("i.ts >= ?", filter.Range.Start.UTC())
	cond.add("i.ts < ?", filter.Range.End.UTC())
	cond.addIn("i.interface_id", filter.InterfaceIDs)

	query := fmt.Sprintf(`
SELECT i.interface_id, i.ts, i.flow_mw, i.scheduled_flow_mw, i.limit_mw
FROM %s i
WHERE %s
ORDER BY i.ts ASC, i.interface_id ASC`, q.tables.flows, cond.where())

	rows, err := q.db.QueryContext(ctx, query, cond.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []timeseries.InterfaceFlowRecord
	for rows.Next() {
		var rec timeseries.InterfaceFlowRecord
		var limit sql.NullFloat64
		if err := rows.Scan(&rec.InterfaceID, &rec.TS, &rec.FlowMW, &rec.ScheduledFlowMW, &limit); err != nil {
			return nil, err
		}
		rec.TS = rec.TS.UTC()
		if limit.Valid {
			value := limit.Float64
			rec.LimitMW = &value
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ScanWeather returns weather records of one kind ascending by timestamp.
func (q *FactQuery) ScanWeather(ctx context.Context, filter timeseries.WeatherFilter) ([]timeseries.WeatherRecord, error) {
	if q == nil || q.db == nil {
		return nil, errors.New("fact query: nil db")
	}
	if err := filter.Range.Validate(); err != nil {
		return nil, err
	}

	cond := &conditions{}
	cond.add("w.ts >= ?", filter.Range.Start.UTC())
	cond.add("w.ts < ?", filter.Range.End.UTC())
	cond.add("w.is_forecast = ?", filter.Forecast)
	cond.addIn("w.region_code", filter.Regions)

	query := fmt.Sprintf(`
SELECT w.region_code, w.ts, w.is_forecast, w.temperature_f, w.humidity_pct, w.wind_speed_mph, w.wind_direction_deg, w.precipitation_in, w.cloud_cover_pct
FROM %s w
WHERE %s
ORDER BY w.ts ASC, w.region_code ASC`, q.tables.weather, cond.where())

	rows, err := q.db.QueryContext(ctx, query, cond.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []timeseries.WeatherRecord
	for rows.Next() {
		var rec timeseries.WeatherRecord
		if err := rows.Scan(&rec.Region, &rec.TS, &rec.IsForecast, &rec.TemperatureF, &rec.HumidityPct, &rec.WindSpeedMPH, &rec.WindDirectionDeg, &rec.PrecipitationIn, &rec.CloudCoverPct); err != nil {
			return nil, err
		}
		rec.TS = rec.TS.UTC()
		records = append(records, rec)
	}
	return records, rows.Err()
}
