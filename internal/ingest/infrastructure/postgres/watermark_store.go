package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	timeseries "gridpulse/internal/timeseries/domain"
)

const watermarksTable = "ingest_watermarks"

// WatermarkStore persists per-entity ingestion watermarks.
type WatermarkStore struct {
	db    *sql.DB
	table string
}

// NewWatermarkStore constructs a WatermarkStore.
func NewWatermarkStore(db *sql.DB) (*WatermarkStore, error) {
	if db == nil {
		return nil, errors.New("postgres: nil db")
	}
	return &WatermarkStore{db: db, table: watermarksTable}, nil
}

// Get returns the stored watermark for an entity type. The second return
// is false when no run has ever committed for the entity.
func (s *WatermarkStore) Get(ctx context.Context, entity timeseries.EntityType) (time.Time, bool, error) {
	query := fmt.Sprintf(`SELECT watermark FROM %s WHERE entity_type = $1`, s.table)

	var watermark time.Time
	err := s.db.QueryRowContext(ctx, query, string(entity)).Scan(&watermark)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("get watermark %s: %w", entity, err)
	}
	return watermark.UTC(), true, nil
}

// Set stores the watermark for an entity type.
func (s *WatermarkStore) Set(ctx context.Context, entity timeseries.EntityType, ts time.Time) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (entity_type, watermark, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (entity_type) DO UPDATE SET
			watermark = EXCLUDED.watermark,
			updated_at = NOW()`, s.table)

	if _, err := s.db.ExecContext(ctx, query, string(entity), ts.UTC()); err != nil {
		return fmt.Errorf("set watermark %s: %w", entity, err)
	}
	return nil
}
