//go:build integration

package database_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andygrunwald/oil-price-api/internal/config"
	"github.com/andygrunwald/oil-price-api/internal/database"
	"github.com/andygrunwald/oil-price-api/internal/models"
)

func setupDB(t *testing.T) *database.DB {
	t.Helper()

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Fatal("POSTGRES_DSN must be set for integration tests")
	}

	db, err := database.New(dsn, config.DefaultConfig().Database, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.MigrateDown())
	require.NoError(t, db.RunMigrations())
	return db
}

func TestMigrations(t *testing.T) {
	db := setupDB(t)

	status, err := db.MigrationVersion()
	require.NoError(t, err)
	assert.True(t, status.Applied)
	assert.False(t, status.Dirty)
	assert.Equal(t, uint(1), status.Version)

	// Re-running is a no-op.
	require.NoError(t, db.RunMigrations())
}

func TestMigrationsReleaseConnection(t *testing.T) {
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Fatal("POSTGRES_DSN must be set for integration tests")
	}

	cfg := config.DefaultConfig().Database
	cfg.MaxOpenConns = 1
	db, err := database.New(dsn, cfg, zerolog.Nop())
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.RunMigrations())
	_, err = db.MigrationVersion()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = db.GetCounts(ctx)
	require.NoError(t, err)
}

func TestCredentials(t *testing.T) {
	db := setupDB(t)
	q := db.Queries()
	ctx := context.Background()

	missing, err := q.GetCredential(ctx, "scraper")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, q.InsertCredential(ctx, models.Credential{ClientID: "scraper", PasswordHash: "$argon2id$first"}))

	err = q.InsertCredential(ctx, models.Credential{ClientID: "scraper", PasswordHash: "$argon2id$second"})
	assert.ErrorIs(t, err, database.ErrDuplicate)

	stored, err := q.GetCredential(ctx, "scraper")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "$argon2id$first", stored.PasswordHash)
	assert.False(t, stored.CreatedAt.IsZero())
}

func TestProviders(t *testing.T) {
	db := setupDB(t)
	q := db.Queries()
	ctx := context.Background()

	id, err := q.InsertProvider(ctx, models.ProviderInput{Name: "hoyer", URL: "https://hoyer.de", HTMLElement: "#price"})
	require.NoError(t, err)

	p, err := q.GetProvider(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "hoyer", p.Name)

	first, err := q.TouchProvider(ctx, id)
	require.NoError(t, err)
	second, err := q.TouchProvider(ctx, id)
	require.NoError(t, err)
	assert.False(t, second.Before(first))

	_, err = q.TouchProvider(ctx, id+1000)
	assert.Error(t, err)

	ok, err := q.UpdateProvider(ctx, id, models.ProviderInput{Name: "Hoyer", URL: "https://hoyer.de"})
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = q.UpdateProvider(ctx, id, models.ProviderInput{Name: "Hoyer", URL: "https://hoyer.de"})
	require.NoError(t, err)
	assert.True(t, ok, "identical update still matches the row")

	ok, err = q.UpdateProvider(ctx, id+1000, models.ProviderInput{Name: "x", URL: "y"})
	require.NoError(t, err)
	assert.False(t, ok)

	missing, err := q.GetProvider(ctx, id+1000)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestProviderZoneRows(t *testing.T) {
	db := setupDB(t)
	q := db.Queries()
	ctx := context.Background()

	withZones, err := q.InsertProvider(ctx, models.ProviderInput{Name: "hoyer", URL: "https://hoyer.de"})
	require.NoError(t, err)
	withoutZones, err := q.InsertProvider(ctx, models.ProviderInput{Name: "heizoel24", URL: "https://heizoel24.de"})
	require.NoError(t, err)
	zone, err := q.InsertZone(ctx, models.DeliveryZoneInput{Name: "north"})
	require.NoError(t, err)

	require.NoError(t, q.LinkZone(ctx, withZones, zone))
	require.NoError(t, q.LinkZone(ctx, withZones, zone))

	rows, err := q.ListProviderZoneRows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, withZones, rows[0].ID)
	require.NotNil(t, rows[0].ZoneID)
	assert.Equal(t, zone, *rows[0].ZoneID)
	assert.Equal(t, withoutZones, rows[1].ID)
	assert.Nil(t, rows[1].ZoneID)

	ok, err := q.UnlinkZone(ctx, withZones, zone)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = q.UnlinkZone(ctx, withZones, zone)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInTxRollsBack(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	pid, err := db.Queries().InsertProvider(ctx, models.ProviderInput{Name: "hoyer", URL: "https://hoyer.de"})
	require.NoError(t, err)
	zone, err := db.Queries().InsertZone(ctx, models.DeliveryZoneInput{Name: "north"})
	require.NoError(t, err)

	err = db.InTx(ctx, func(q *database.Queries) error {
		require.NoError(t, q.LinkZone(ctx, pid, zone))
		return boom
	})
	require.ErrorIs(t, err, boom)

	zones, err := db.Queries().ListZonesByProvider(ctx, pid)
	require.NoError(t, err)
	assert.Empty(t, zones)
}

func TestPricesAndCascade(t *testing.T) {
	db := setupDB(t)
	q := db.Queries()
	ctx := context.Background()

	pid, err := q.InsertProvider(ctx, models.ProviderInput{Name: "hoyer", URL: "https://hoyer.de"})
	require.NoError(t, err)

	for _, price := range []float64{97.5, 98.25, 99.125} {
		_, err := q.InsertPrice(ctx, pid, price)
		require.NoError(t, err)
	}

	page, err := q.ListPricesByProvider(ctx, pid, models.PriceQuery{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.InDelta(t, 98.25, page[0].Price, 0.0001)

	future := time.Now().Add(time.Hour)
	none, err := q.ListPricesByProvider(ctx, pid, models.PriceQuery{Limit: 10, Start: &future})
	require.NoError(t, err)
	assert.Empty(t, none)

	counts, err := db.GetCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts.Prices)

	require.NoError(t, q.DeleteProvider(ctx, pid))
	all, err := q.ListPrices(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestScrapingRuns(t *testing.T) {
	db := setupDB(t)
	q := db.Queries()
	ctx := context.Background()

	last, err := q.LastScrapingRun(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)

	base := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	for _, end := range []time.Duration{time.Hour, 3 * time.Hour, 2 * time.Hour} {
		_, err := q.InsertScrapingRun(ctx, models.ScrapingRunInput{StartTime: base, EndTime: base.Add(end)})
		require.NoError(t, err)
	}

	last, err = q.LastScrapingRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.True(t, last.EndTime.Equal(base.Add(3*time.Hour)))
}
