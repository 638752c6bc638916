// Package service implements the credential lifecycle and the consistency
// rules of the provider, delivery zone, price and scraping run collections.
package service

import (
	"context"
	"time"

	"github.com/andygrunwald/oil-price-api/internal/database"
	"github.com/andygrunwald/oil-price-api/internal/models"
)

// CredentialStore persists client credentials.
type CredentialStore interface {
	// GetCredential returns nil without error if clientID is unknown.
	GetCredential(ctx context.Context, clientID string) (*models.Credential, error)
	// InsertCredential returns database.ErrDuplicate if clientID is taken.
	InsertCredential(ctx context.Context, cred models.Credential) error
}

// Repository holds the catalog queries. Lookups of single rows return nil
// without error when the row does not exist.
type Repository interface {
	ProviderExists(ctx context.Context, id int64) (bool, error)
	InsertProvider(ctx context.Context, in models.ProviderInput) (int64, error)
	ListProviders(ctx context.Context) ([]models.Provider, error)
	GetProvider(ctx context.Context, id int64) (*models.Provider, error)
	// UpdateProvider reports whether a row was updated.
	UpdateProvider(ctx context.Context, id int64, in models.ProviderInput) (bool, error)
	// TouchProvider sets last_accessed to now and returns it.
	TouchProvider(ctx context.Context, id int64) (time.Time, error)
	DeleteProvider(ctx context.Context, id int64) error
	ListProviderZoneRows(ctx context.Context) ([]models.ProviderZoneRow, error)
	ListZonesByProvider(ctx context.Context, providerID int64) ([]models.DeliveryZone, error)
	// LinkZone is a no-op if the association already exists.
	LinkZone(ctx context.Context, providerID, zoneID int64) error
	// UnlinkZone reports whether an association was removed.
	UnlinkZone(ctx context.Context, providerID, zoneID int64) (bool, error)

	ZoneExists(ctx context.Context, id int64) (bool, error)
	InsertZone(ctx context.Context, in models.DeliveryZoneInput) (int64, error)
	ListZones(ctx context.Context) ([]models.DeliveryZone, error)
	GetZone(ctx context.Context, id int64) (*models.DeliveryZone, error)
	UpdateZone(ctx context.Context, id int64, in models.DeliveryZoneInput) (bool, error)
	DeleteZone(ctx context.Context, id int64) error

	InsertPrice(ctx context.Context, providerID int64, price float64) (int64, error)
	ListPrices(ctx context.Context) ([]models.Price, error)
	ListPricesByProvider(ctx context.Context, providerID int64, q models.PriceQuery) ([]models.PriceDetails, error)
	GetPrice(ctx context.Context, id int64) (*models.Price, error)
	DeletePrice(ctx context.Context, id int64) error

	InsertScrapingRun(ctx context.Context, in models.ScrapingRunInput) (int64, error)
	ListScrapingRuns(ctx context.Context) ([]models.ScrapingRun, error)
	LastScrapingRun(ctx context.Context) (*models.ScrapingRun, error)
}

// Store is a Repository that can group statements in a transaction. It also
// holds the credentials.
type Store interface {
	CredentialStore
	Repository
	// InTx runs fn in a transaction that is rolled back if fn fails.
	InTx(ctx context.Context, fn func(Repository) error) error
}

var _ Store = (*dbStore)(nil)

type dbStore struct {
	*database.Queries
	db *database.DB
}

// NewStore returns the PostgreSQL backed Store.
func NewStore(db *database.DB) Store {
	return &dbStore{Queries: db.Queries(), db: db}
}

func (s *dbStore) InTx(ctx context.Context, fn func(Repository) error) error {
	return s.db.InTx(ctx, func(q *database.Queries) error {
		return fn(q)
	})
}
