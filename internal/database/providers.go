package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/andygrunwald/oil-price-api/internal/models"
)

const providerColumns = `id, name, url, html_element, created_at, last_updated, last_accessed`

// ProviderExists reports whether a provider with id exists.
func (q *Queries) ProviderExists(ctx context.Context, id int64) (bool, error) {
	found, err := q.exists(ctx, `SELECT 1 FROM providers WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("checking provider existence: %w", err)
	}
	return found, nil
}

// InsertProvider stores a new provider and returns its id.
func (q *Queries) InsertProvider(ctx context.Context, in models.ProviderInput) (int64, error) {
	query := `INSERT INTO providers (name, url, html_element) VALUES ($1, $2, $3) RETURNING id`

	var id int64
	if err := sqlxGet(ctx, q, &id, query, in.Name, in.URL, in.HTMLElement); err != nil {
		return 0, fmt.Errorf("inserting provider: %w", translate(err))
	}

	q.logger.Debug().Int64("provider_id", id).Str("name", in.Name).Msg("inserted provider")
	return id, nil
}

// ListProviders returns all providers ordered by id.
func (q *Queries) ListProviders(ctx context.Context) ([]models.Provider, error) {
	providers := []models.Provider{}
	err := sqlxSelect(ctx, q, &providers, `SELECT `+providerColumns+` FROM providers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing providers: %w", err)
	}
	return providers, nil
}

// GetProvider returns the provider with id, or nil if none exists.
func (q *Queries) GetProvider(ctx context.Context, id int64) (*models.Provider, error) {
	var p models.Provider
	err := sqlxGet(ctx, q, &p, `SELECT `+providerColumns+` FROM providers WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting provider: %w", err)
	}
	return &p, nil
}

// UpdateProvider replaces the writable fields of a provider and bumps
// last_updated. It reports whether the provider exists.
func (q *Queries) UpdateProvider(ctx context.Context, id int64, in models.ProviderInput) (bool, error) {
	query := `
		UPDATE providers
		SET name = $1, url = $2, html_element = $3, last_updated = NOW()
		WHERE id = $4
	`

	res, err := q.ext.ExecContext(ctx, query, in.Name, in.URL, in.HTMLElement, id)
	if err != nil {
		return false, fmt.Errorf("updating provider: %w", err)
	}
	return affected(res)
}

// TouchProvider sets last_accessed to now and returns the stored value. It
// returns sql.ErrNoRows if the provider does not exist.
func (q *Queries) TouchProvider(ctx context.Context, id int64) (time.Time, error) {
	query := `UPDATE providers SET last_accessed = NOW() WHERE id = $1 RETURNING last_accessed`

	var accessed time.Time
	if err := sqlxGet(ctx, q, &accessed, query, id); err != nil {
		return time.Time{}, fmt.Errorf("touching provider: %w", err)
	}
	return accessed, nil
}

// DeleteProvider removes a provider. Zone links and prices are removed by
// the foreign key cascade.
func (q *Queries) DeleteProvider(ctx context.Context, id int64) error {
	if _, err := q.ext.ExecContext(ctx, `DELETE FROM providers WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting provider: %w", err)
	}
	return nil
}

// ListProviderZoneRows returns providers left joined to their zones, ordered
// by provider id and zone id. Providers without zones yield one row with
// NULL zone columns.
func (q *Queries) ListProviderZoneRows(ctx context.Context) ([]models.ProviderZoneRow, error) {
	query := `
		SELECT
			p.id, p.name, p.url, p.html_element, p.created_at, p.last_updated, p.last_accessed,
			z.id          AS zone_id,
			z.name        AS zone_name,
			z.description AS zone_description
		FROM providers p
		LEFT JOIN provider_zones pz ON pz.provider_id = p.id
		LEFT JOIN delivery_zones z ON z.id = pz.zone_id
		ORDER BY p.id, z.id
	`

	rows := []models.ProviderZoneRow{}
	if err := sqlxSelect(ctx, q, &rows, query); err != nil {
		return nil, fmt.Errorf("listing providers with zones: %w", err)
	}
	return rows, nil
}

// ListZonesByProvider returns the zones linked to a provider ordered by id.
func (q *Queries) ListZonesByProvider(ctx context.Context, providerID int64) ([]models.DeliveryZone, error) {
	query := `
		SELECT z.id, z.name, z.description
		FROM delivery_zones z
		JOIN provider_zones pz ON pz.zone_id = z.id
		WHERE pz.provider_id = $1
		ORDER BY z.id
	`

	zones := []models.DeliveryZone{}
	if err := sqlxSelect(ctx, q, &zones, query, providerID); err != nil {
		return nil, fmt.Errorf("listing provider zones: %w", err)
	}
	return zones, nil
}

// LinkZone associates a zone with a provider. Existing links are kept.
func (q *Queries) LinkZone(ctx context.Context, providerID, zoneID int64) error {
	query := `
		INSERT INTO provider_zones (provider_id, zone_id) VALUES ($1, $2)
		ON CONFLICT (provider_id, zone_id) DO NOTHING
	`

	if _, err := q.ext.ExecContext(ctx, query, providerID, zoneID); err != nil {
		return fmt.Errorf("linking zone: %w", err)
	}
	return nil
}

// UnlinkZone removes a zone link and reports whether it existed.
func (q *Queries) UnlinkZone(ctx context.Context, providerID, zoneID int64) (bool, error) {
	query := `DELETE FROM provider_zones WHERE provider_id = $1 AND zone_id = $2`

	res, err := q.ext.ExecContext(ctx, query, providerID, zoneID)
	if err != nil {
		return false, fmt.Errorf("unlinking zone: %w", err)
	}
	return affected(res)
}
