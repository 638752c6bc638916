package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/andygrunwald/oil-price-api/internal/models"
)

// InsertPrice stores a price for a provider and returns its id.
func (q *Queries) InsertPrice(ctx context.Context, providerID int64, price float64) (int64, error) {
	query := `INSERT INTO oil_prices (provider_id, price) VALUES ($1, $2) RETURNING id`

	var id int64
	if err := sqlxGet(ctx, q, &id, query, providerID, price); err != nil {
		return 0, fmt.Errorf("inserting price: %w", translate(err))
	}

	q.logger.Debug().
		Int64("provider_id", providerID).
		Float64("price", price).
		Msg("inserted price record")

	return id, nil
}

// ListPrices returns all prices of existing providers ordered by creation
// time.
func (q *Queries) ListPrices(ctx context.Context) ([]models.Price, error) {
	query := `
		SELECT op.id, p.id AS provider_id, op.price::float8 AS price, op.created_at
		FROM oil_prices op
		JOIN providers p ON p.id = op.provider_id
		ORDER BY op.created_at ASC, op.id ASC
	`

	prices := []models.Price{}
	if err := sqlxSelect(ctx, q, &prices, query); err != nil {
		return nil, fmt.Errorf("listing prices: %w", err)
	}
	return prices, nil
}

// ListPricesByProvider returns a page of prices of a provider ordered by
// creation time. Start and End are exclusive.
func (q *Queries) ListPricesByProvider(ctx context.Context, providerID int64, pq models.PriceQuery) ([]models.PriceDetails, error) {
	query := `
		SELECT price::float8 AS price, created_at
		FROM oil_prices
		WHERE provider_id = $1
			AND ($4::timestamptz IS NULL OR created_at > $4)
			AND ($5::timestamptz IS NULL OR created_at < $5)
		ORDER BY created_at ASC, id ASC
		LIMIT $2
		OFFSET $3
	`

	prices := []models.PriceDetails{}
	err := sqlxSelect(ctx, q, &prices, query, providerID, pq.Limit, pq.Offset, pq.Start, pq.End)
	if err != nil {
		return nil, fmt.Errorf("listing provider prices: %w", err)
	}
	return prices, nil
}

// GetPrice returns the price with id, or nil if none exists.
func (q *Queries) GetPrice(ctx context.Context, id int64) (*models.Price, error) {
	query := `SELECT id, provider_id, price::float8 AS price, created_at FROM oil_prices WHERE id = $1`

	var p models.Price
	err := sqlxGet(ctx, q, &p, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting price: %w", err)
	}
	return &p, nil
}

// DeletePrice removes a price.
func (q *Queries) DeletePrice(ctx context.Context, id int64) error {
	if _, err := q.ext.ExecContext(ctx, `DELETE FROM oil_prices WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting price: %w", err)
	}
	return nil
}
