package postgres

import (
	"context"
	"database/sql"
	"errors"

	catalog "gridpulse/internal/catalog/domain"
)

// CatalogRepository is the Postgres store for the reference catalog.
type CatalogRepository struct {
	db *sql.DB
}

// NewCatalogRepository constructs a repository.
func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// SeedCatalog upserts the catalog entities in one transaction. Seeding is
// idempotent: re-running with the same seed leaves the tables unchanged.
func (r *CatalogRepository) SeedCatalog(ctx context.Context, zones []catalog.Zone, regions []catalog.Region, interfaces []catalog.Interface) error {
	if r == nil || r.db == nil {
		return errors.New("catalog repo: nil db")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	const regionQuery = `
INSERT INTO regions (code, name, state, timezone, latitude, longitude, geometry_ref)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (code)
DO UPDATE SET
	name = EXCLUDED.name,
	state = EXCLUDED.state,
	timezone = EXCLUDED.timezone,
	latitude = EXCLUDED.latitude,
	longitude = EXCLUDED.longitude,
	geometry_ref = EXCLUDED.geometry_ref`

	for _, region := range regions {
		if _, err := tx.ExecContext(ctx, regionQuery,
			region.Code, region.Name, region.State, region.Timezone,
			region.Latitude, region.Longitude, region.GeometryRef,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	const zoneQuery = `
INSERT INTO zones (code, name, state, iso_rto, region_code, timezone, geometry_ref)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (code)
DO UPDATE SET
	name = EXCLUDED.name,
	state = EXCLUDED.state,
	iso_rto = EXCLUDED.iso_rto,
	region_code = EXCLUDED.region_code,
	timezone = EXCLUDED.timezone,
	geometry_ref = EXCLUDED.geometry_ref`

	for _, zone := range zones {
		if _, err := tx.ExecContext(ctx, zoneQuery,
			zone.Code, zone.Name, zone.State, zone.ISORTO,
			zone.RegionCode, zone.Timezone, zone.GeometryRef,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	const interfaceQuery = `
INSERT INTO zone_interfaces (id, from_zone, to_zone, transfer_limit_mw)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id)
DO UPDATE SET
	from_zone = EXCLUDED.from_zone,
	to_zone = EXCLUDED.to_zone,
	transfer_limit_mw = EXCLUDED.transfer_limit_mw`

	for _, iface := range interfaces {
		limit := sql.NullFloat64{}
		if iface.TransferLimitMW != nil {
			limit = sql.NullFloat64{Float64: *iface.TransferLimitMW, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, interfaceQuery,
			iface.ID, iface.FromZone, iface.ToZone, limit,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// LoadCatalog implements catalog.Loader.
func (r *CatalogRepository) LoadCatalog(ctx context.Context) ([]catalog.Zone, []catalog.Region, []catalog.Interface, error) {
	if r == nil || r.db == nil {
		return nil, nil, nil, errors.New("catalog repo: nil db")
	}

	zones, err := r.loadZones(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	regions, err := r.loadRegions(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	interfaces, err := r.loadInterfaces(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	return zones, regions, interfaces, nil
}

func (r *CatalogRepository) loadZones(ctx context.Context) ([]catalog.Zone, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT code, name, state, iso_rto, region_code, timezone, geometry_ref
FROM zones
ORDER BY code ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var zones []catalog.Zone
	for rows.Next() {
		var zone catalog.Zone
		if err := rows.Scan(&zone.Code, &zone.Name, &zone.State, &zone.ISORTO, &zone.RegionCode, &zone.Timezone, &zone.GeometryRef); err != nil {
			return nil, err
		}
		zones = append(zones, zone)
	}
	return zones, rows.Err()
}

func (r *CatalogRepository) loadRegions(ctx context.Context) ([]catalog.Region, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT code, name, state, timezone, latitude, longitude, geometry_ref
FROM regions
ORDER BY code ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var regions []catalog.Region
	for rows.Next() {
		var region catalog.Region
		if err := rows.Scan(&region.Code, &region.Name, &region.State, &region.Timezone, &region.Latitude, &region.Longitude, &region.GeometryRef); err != nil {
			return nil, err
		}
		regions = append(regions, region)
	}
	return regions, rows.Err()
}

func (r *CatalogRepository) loadInterfaces(ctx context.Context) ([]catalog.Interface, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, from_zone, to_zone, transfer_limit_mw
FROM zone_interfaces
ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var interfaces []catalog.Interface
	for rows.Next() {
		var iface catalog.Interface
		var limit sql.NullFloat64
		if err := rows.Scan(&iface.ID, &iface.FromZone, &iface.ToZone, &limit); err != nil {
			return nil, err
		}
		if limit.Valid {
			value := limit.Float64
			iface.TransferLimitMW = &value
		}
		interfaces = append(interfaces, iface)
	}
	return interfaces, rows.Err()
}
