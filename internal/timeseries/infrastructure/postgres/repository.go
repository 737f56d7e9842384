package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	timeseries "gridpulse/internal/timeseries/domain"
)

const (
	defaultPriceTable   = "price_records"
	defaultLoadTable    = "load_records"
	defaultFuelMixTable = "fuel_mix_records"
	defaultFlowTable    = "interface_flow_records"
	defaultWeatherTable = "weather_records"
)

// tableSet names the fact tables; overridable for integration tests.
type tableSet struct {
	prices  string
	loads   string
	fuelMix string
	flows   string
	weather string
}

func defaultTables() tableSet {
	return tableSet{
		prices:  defaultPriceTable,
		loads:   defaultLoadTable,
		fuelMix: defaultFuelMixTable,
		flows:   defaultFlowTable,
		weather: defaultWeatherTable,
	}
}

// FactRepository is the Postgres implementation of timeseries.Store.
type FactRepository struct {
	db     *sql.DB
	tables tableSet
}

// NewFactRepository constructs a repository with default table names.
func NewFactRepository(db *sql.DB, opts ...RepositoryOption) *FactRepository {
	repo := &FactRepository{db: db, tables: defaultTables()}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// RepositoryOption configures the repository.
type RepositoryOption func(*FactRepository)

// WithTablePrefix prefixes every fact table name.
func WithTablePrefix(prefix string) RepositoryOption {
	return func(repo *FactRepository) {
		if prefix == "" {
			return
		}
		repo.tables.prices = prefix + repo.tables.prices
		repo.tables.loads = prefix + repo.tables.loads
		repo.tables.fuelMix = prefix + repo.tables.fuelMix
		repo.tables.flows = prefix + repo.tables.flows
		repo.tables.weather = prefix + repo.tables.weather
	}
}

// UpsertBatch upserts all records in one transaction. Conflicts on the
// natural key update value fields only (last write wins); a failure on any
// record rolls back the whole batch.
func (r *FactRepository) UpsertBatch(ctx context.Context, batch timeseries.Batch) (int, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("fact repo: nil db")
	}
	if batch.Len() == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}

	count := 0
	fail := func(err error) (int, error) {
		_ = tx.Rollback()
		return 0, err
	}

	if len(batch.Prices) > 0 {
		query := fmt.Sprintf(`
INSERT INTO %s (zone_code, ts, market_type, price, loss_component, congestion_component)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (zone_code, ts, market_type)
DO UPDATE SET
	price = EXCLUDED.price,
	loss_component = EXCLUDED.loss_component,
	congestion_component = EXCLUDED.congestion_component,
	updated_at = NOW()`, r.tables.prices)
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fail(err)
		}
		for _, rec := range batch.Prices {
			if rec.Zone == "" || rec.TS.IsZero() || rec.Market == "" {
				stmt.Close()
				return fail(timeseries.ErrInvalidRecord)
			}
			if _, err := stmt.ExecContext(ctx, rec.Zone, rec.TS.UTC(), string(rec.Market), rec.Price, rec.LossComponent, rec.CongestionComponent); err != nil {
				stmt.Close()
				return fail(err)
			}
			count++
		}
		stmt.Close()
	}

	if len(batch.Loads) > 0 {
		query := fmt.Sprintf(`
INSERT INTO %s (zone_code, ts, load_mw, load_with_losses_mw)
VALUES ($1, $2, $3, $4)
ON CONFLICT (zone_code, ts)
DO UPDATE SET
	load_mw = EXCLUDED.load_mw,
	load_with_losses_mw = EXCLUDED.load_with_losses_mw,
	updated_at = NOW()`, r.tables.loads)
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fail(err)
		}
		for _, rec := range batch.Loads {
			if rec.Zone == "" || rec.TS.IsZero() {
				stmt.Close()
				return fail(timeseries.ErrInvalidRecord)
			}
			if _, err := stmt.ExecContext(ctx, rec.Zone, rec.TS.UTC(), rec.LoadMW, rec.LoadWithLossesMW); err != nil {
				stmt.Close()
				return fail(err)
			}
			count++
		}
		stmt.Close()
	}

	if len(batch.FuelMix) > 0 {
		query := fmt.Sprintf(`
INSERT INTO %s (iso_rto, zone_code, ts, fuel_type, generation_mw, is_renewable)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (iso_rto, zone_code, ts, fuel_type)
DO UPDATE SET
	generation_mw = EXCLUDED.generation_mw,
	is_renewable = EXCLUDED.is_renewable,
	updated_at = NOW()`, r.tables.fuelMix)
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fail(err)
		}
		for _, rec := range batch.FuelMix {
			if rec.ISORTO == "" || rec.TS.IsZero() || rec.FuelType == "" {
				stmt.Close()
				return fail(timeseries.ErrInvalidRecord)
			}
			if _, err := stmt.ExecContext(ctx, rec.ISORTO, rec.Zone, rec.TS.UTC(), rec.FuelType, rec.GenerationMW, rec.IsRenewable); err != nil {
				stmt.Close()
				return fail(err)
			}
			count++
		}
		stmt.Close()
	}

	if len(batch.Flows) > 0 {
		query := fmt.Sprintf(`
INSERT INTO %s (interface_id, ts, flow_mw, scheduled_flow_mw, limit_mw)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (interface_id, ts)
DO UPDATE SET
	flow_mw = EXCLUDED.flow_mw,
	scheduled_flow_mw = EXCLUDED.scheduled_flow_mw,
	limit_mw = EXCLUDED.limit_mw,
	updated_at = NOW()`, r.tables.flows)
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fail(err)
		}
		for _, rec := range batch.Flows {
			if rec.InterfaceID == "" || rec.TS.IsZero() {
				stmt.Close()
				return fail(timeseries.ErrInvalidRecord)
			}
			limit := sql.NullFloat64{}
			if rec.LimitMW != nil {
				limit = sql.NullFloat64{Float64: *rec.LimitMW, Valid: true}
			}
			if _, err := stmt.ExecContext(ctx, rec.InterfaceID, rec.TS.UTC(), rec.FlowMW, rec.ScheduledFlowMW, limit); err != nil {
				stmt.Close()
				return fail(err)
			}
			count++
		}
		stmt.Close()
	}

	if len(batch.Weather) > 0 {
		query := fmt.Sprintf(`
INSERT INTO %s (region_code, ts, is_forecast, temperature_f, humidity_pct, wind_speed_mph, wind_direction_deg, precipitation_in, cloud_cover_pct)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (region_code, ts, is_forecast)
DO UPDATE SET
	temperature_f = EXCLUDED.temperature_f,
	humidity_pct = EXCLUDED.humidity_pct,
	wind_speed_mph = EXCLUDED.wind_speed_mph,
	wind_direction_deg = EXCLUDED.wind_direction_deg,
	precipitation_in = EXCLUDED.precipitation_in,
	cloud_cover_pct = EXCLUDED.cloud_cover_pct,
	updated_at = NOW()`, r.tables.weather)
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fail(err)
		}
		for _, rec := range batch.Weather {
			if rec.Region == "" || rec.TS.IsZero() {
				stmt.Close()
				return fail(timeseries.ErrInvalidRecord)
			}
			if _, err := stmt.ExecContext(ctx, rec.Region, rec.TS.UTC(), rec.IsForecast, rec.TemperatureF, rec.HumidityPct, rec.WindSpeedMPH, rec.WindDirectionDeg, rec.PrecipitationIn, rec.CloudCoverPct); err != nil {
				stmt.Close()
				return fail(err)
			}
			count++
		}
		stmt.Close()
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return count, nil
}
