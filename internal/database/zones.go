package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/andygrunwald/oil-price-api/internal/models"
)

// ZoneExists reports whether a delivery zone with id exists.
func (q *Queries) ZoneExists(ctx context.Context, id int64) (bool, error) {
	found, err := q.exists(ctx, `SELECT 1 FROM delivery_zones WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("checking zone existence: %w", err)
	}
	return found, nil
}

// InsertZone stores a new delivery zone and returns its id.
func (q *Queries) InsertZone(ctx context.Context, in models.DeliveryZoneInput) (int64, error) {
	query := `INSERT INTO delivery_zones (name, description) VALUES ($1, $2) RETURNING id`

	var id int64
	if err := sqlxGet(ctx, q, &id, query, in.Name, in.Description); err != nil {
		return 0, fmt.Errorf("inserting zone: %w", translate(err))
	}
	return id, nil
}

// ListZones returns all delivery zones ordered by id.
func (q *Queries) ListZones(ctx context.Context) ([]models.DeliveryZone, error) {
	zones := []models.DeliveryZone{}
	if err := sqlxSelect(ctx, q, &zones, `SELECT id, name, description FROM delivery_zones ORDER BY id`); err != nil {
		return nil, fmt.Errorf("listing zones: %w", err)
	}
	return zones, nil
}

// GetZone returns the zone with id, or nil if none exists.
func (q *Queries) GetZone(ctx context.Context, id int64) (*models.DeliveryZone, error) {
	var z models.DeliveryZone
	err := sqlxGet(ctx, q, &z, `SELECT id, name, description FROM delivery_zones WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting zone: %w", err)
	}
	return &z, nil
}

// UpdateZone replaces the writable fields of a zone and reports whether it
// exists.
func (q *Queries) UpdateZone(ctx context.Context, id int64, in models.DeliveryZoneInput) (bool, error) {
	query := `UPDATE delivery_zones SET name = $1, description = $2 WHERE id = $3`

	res, err := q.ext.ExecContext(ctx, query, in.Name, in.Description, id)
	if err != nil {
		return false, fmt.Errorf("updating zone: %w", err)
	}
	return affected(res)
}

// DeleteZone removes a delivery zone and, by cascade, its provider links.
func (q *Queries) DeleteZone(ctx context.Context, id int64) error {
	if _, err := q.ext.ExecContext(ctx, `DELETE FROM delivery_zones WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting zone: %w", err)
	}
	return nil
}
