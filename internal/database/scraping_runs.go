package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/andygrunwald/oil-price-api/internal/models"
)

// InsertScrapingRun appends a scraping run and returns its id.
func (q *Queries) InsertScrapingRun(ctx context.Context, in models.ScrapingRunInput) (int64, error) {
	query := `INSERT INTO scraping_runs (start_time, end_time) VALUES ($1, $2) RETURNING id`

	var id int64
	if err := sqlxGet(ctx, q, &id, query, in.StartTime, in.EndTime); err != nil {
		return 0, fmt.Errorf("inserting scraping run: %w", err)
	}
	return id, nil
}

// ListScrapingRuns returns all scraping runs, latest end time first.
func (q *Queries) ListScrapingRuns(ctx context.Context) ([]models.ScrapingRun, error) {
	runs := []models.ScrapingRun{}
	query := `SELECT id, start_time, end_time FROM scraping_runs ORDER BY end_time DESC, id DESC`
	if err := sqlxSelect(ctx, q, &runs, query); err != nil {
		return nil, fmt.Errorf("listing scraping runs: %w", err)
	}
	return runs, nil
}

// LastScrapingRun returns the run with the latest end time, or nil if the
// log is empty.
func (q *Queries) LastScrapingRun(ctx context.Context) (*models.ScrapingRun, error) {
	query := `SELECT id, start_time, end_time FROM scraping_runs ORDER BY end_time DESC, id DESC LIMIT 1`

	var run models.ScrapingRun
	err := sqlxGet(ctx, q, &run, query)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting last scraping run: %w", err)
	}
	return &run, nil
}
