package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/andygrunwald/oil-price-api/internal/models"
)

// DefaultPriceLimit is the page size of price listings without an explicit limit.
const DefaultPriceLimit = 1000

// Catalog guards the consistency of providers, delivery zones, prices and
// scraping runs. Every error it returns is a *ResourceError.
type Catalog struct {
	store  Store
	logger zerolog.Logger
}

// NewCatalog creates a new Catalog.
func NewCatalog(store Store, logger zerolog.Logger) *Catalog {
	return &Catalog{
		store:  store,
		logger: logger.With().Str("component", "catalog").Logger(),
	}
}

// CreateProvider stores a new provider and returns its id.
func (c *Catalog) CreateProvider(ctx context.Context, in models.ProviderInput) (int64, error) {
	if err := validateProvider(in); err != nil {
		return 0, err
	}
	id, err := c.store.InsertProvider(ctx, in)
	if err != nil {
		return 0, insertError(ResourceProvider, err)
	}
	c.logger.Info().Int64("provider_id", id).Str("name", in.Name).Msg("created provider")
	return id, nil
}

// ListProviders returns all providers. It does not touch last_accessed.
func (c *Catalog) ListProviders(ctx context.Context) ([]models.Provider, error) {
	providers, err := c.store.ListProviders(ctx)
	if err != nil {
		return nil, fetchError(ResourceProvider, err)
	}
	return providers, nil
}

// GetProvider returns a provider and records the access. A failed access
// update fails the whole read.
func (c *Catalog) GetProvider(ctx context.Context, id int64) (*models.Provider, error) {
	p, err := c.store.GetProvider(ctx, id)
	if err != nil {
		return nil, fetchError(ResourceProvider, err)
	}
	if p == nil {
		return nil, notFound(ResourceProvider, id)
	}

	accessed, err := c.store.TouchProvider(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(ResourceProvider, id)
	}
	if err != nil {
		return nil, updateError(ResourceProvider, id, err)
	}
	p.LastAccessed = accessed

	return p, nil
}

// UpdateProvider replaces the writable fields of a provider. Applying the
// same update twice succeeds both times.
func (c *Catalog) UpdateProvider(ctx context.Context, id int64, in models.ProviderInput) error {
	if err := validateProvider(in); err != nil {
		return err
	}
	ok, err := c.store.UpdateProvider(ctx, id, in)
	if err != nil {
		return updateError(ResourceProvider, id, err)
	}
	if !ok {
		return notFound(ResourceProvider, id)
	}
	return nil
}

// DeleteProvider removes a provider together with its prices and zone links.
func (c *Catalog) DeleteProvider(ctx context.Context, id int64) error {
	exists, err := c.store.ProviderExists(ctx, id)
	if err != nil {
		return fetchError(ResourceProvider, err)
	}
	if !exists {
		return notFound(ResourceProvider, id)
	}
	if err := c.store.DeleteProvider(ctx, id); err != nil {
		return deleteError(ResourceProvider, id, err)
	}
	c.logger.Info().Int64("provider_id", id).Msg("deleted provider")
	return nil
}

// ListProvidersWithZones returns every provider with its zones. Providers
// without zones are included with an empty list.
func (c *Catalog) ListProvidersWithZones(ctx context.Context) ([]models.ProviderWithZones, error) {
	rows, err := c.store.ListProviderZoneRows(ctx)
	if err != nil {
		return nil, fetchError(ResourceProvider, err)
	}
	return groupProviderZones(rows), nil
}

// groupProviderZones folds join rows into providers, keeping row order.
func groupProviderZones(rows []models.ProviderZoneRow) []models.ProviderWithZones {
	result := make([]models.ProviderWithZones, 0)
	index := make(map[int64]int)

	for _, row := range rows {
		i, ok := index[row.ID]
		if !ok {
			i = len(result)
			index[row.ID] = i
			result = append(result, models.ProviderWithZones{
				Provider: row.Provider,
				Zones:    []models.DeliveryZone{},
			})
		}
		if row.ZoneID == nil {
			continue
		}
		zone := models.DeliveryZone{ID: *row.ZoneID}
		if row.ZoneName != nil {
			zone.Name = *row.ZoneName
		}
		if row.ZoneDescription != nil {
			zone.Description = *row.ZoneDescription
		}
		result[i].Zones = append(result[i].Zones, zone)
	}

	return result
}

// ListProviderZones returns the zones linked to a provider.
func (c *Catalog) ListProviderZones(ctx context.Context, providerID int64) ([]models.DeliveryZone, error) {
	exists, err := c.store.ProviderExists(ctx, providerID)
	if err != nil {
		return nil, fetchError(ResourceProvider, err)
	}
	if !exists {
		return nil, notFound(ResourceProvider, providerID)
	}
	zones, err := c.store.ListZonesByProvider(ctx, providerID)
	if err != nil {
		return nil, fetchError(ResourceDeliveryZone, err)
	}
	return zones, nil
}

// AddZonesToProvider links zoneIDs to a provider. The batch is atomic: if the
// provider or any zone is missing, no link of the batch is stored.
func (c *Catalog) AddZonesToProvider(ctx context.Context, providerID int64, zoneIDs []int64) error {
	if len(zoneIDs) == 0 {
		return invalid(ResourceProvider, "zone_ids must not be empty")
	}

	err := c.store.InTx(ctx, func(r Repository) error {
		exists, err := r.ProviderExists(ctx, providerID)
		if err != nil {
			return fetchError(ResourceProvider, err)
		}
		if !exists {
			return notFound(ResourceProvider, providerID)
		}

		for _, zoneID := range zoneIDs {
			if err := requireZone(ctx, r, zoneID); err != nil {
				return referenceError(ResourceProvider, providerID, err)
			}
			if err := r.LinkZone(ctx, providerID, zoneID); err != nil {
				return insertError(ResourceProvider, err)
			}
		}
		return nil
	})
	if err != nil {
		return asResourceError(ResourceProvider, KindInsert, err)
	}

	c.logger.Info().
		Int64("provider_id", providerID).
		Int("zones", len(zoneIDs)).
		Msg("linked zones to provider")
	return nil
}

// RemoveZoneFromProvider unlinks a zone from a provider.
func (c *Catalog) RemoveZoneFromProvider(ctx context.Context, providerID, zoneID int64) error {
	exists, err := c.store.ProviderExists(ctx, providerID)
	if err != nil {
		return fetchError(ResourceProvider, err)
	}
	if !exists {
		return notFound(ResourceProvider, providerID)
	}

	ok, err := c.store.UnlinkZone(ctx, providerID, zoneID)
	if err != nil {
		return deleteError(ResourceProvider, providerID, err)
	}
	if !ok {
		return notFound(ResourceDeliveryZone, zoneID)
	}
	return nil
}

func requireZone(ctx context.Context, r Repository, id int64) error {
	exists, err := r.ZoneExists(ctx, id)
	if err != nil {
		return fetchError(ResourceDeliveryZone, err)
	}
	if !exists {
		return notFound(ResourceDeliveryZone, id)
	}
	return nil
}

// CreateZone stores a new delivery zone and returns its id.
func (c *Catalog) CreateZone(ctx context.Context, in models.DeliveryZoneInput) (int64, error) {
	if strings.TrimSpace(in.Name) == "" {
		return 0, invalid(ResourceDeliveryZone, "name is required")
	}
	id, err := c.store.InsertZone(ctx, in)
	if err != nil {
		return 0, insertError(ResourceDeliveryZone, err)
	}
	return id, nil
}

// ListZones returns all delivery zones.
func (c *Catalog) ListZones(ctx context.Context) ([]models.DeliveryZone, error) {
	zones, err := c.store.ListZones(ctx)
	if err != nil {
		return nil, fetchError(ResourceDeliveryZone, err)
	}
	return zones, nil
}

// GetZone returns a single delivery zone.
func (c *Catalog) GetZone(ctx context.Context, id int64) (*models.DeliveryZone, error) {
	z, err := c.store.GetZone(ctx, id)
	if err != nil {
		return nil, fetchError(ResourceDeliveryZone, err)
	}
	if z == nil {
		return nil, notFound(ResourceDeliveryZone, id)
	}
	return z, nil
}

// UpdateZone replaces the writable fields of a delivery zone.
func (c *Catalog) UpdateZone(ctx context.Context, id int64, in models.DeliveryZoneInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return invalid(ResourceDeliveryZone, "name is required")
	}
	ok, err := c.store.UpdateZone(ctx, id, in)
	if err != nil {
		return updateError(ResourceDeliveryZone, id, err)
	}
	if !ok {
		return notFound(ResourceDeliveryZone, id)
	}
	return nil
}

// DeleteZone removes a delivery zone and its provider links.
func (c *Catalog) DeleteZone(ctx context.Context, id int64) error {
	if err := requireZone(ctx, c.store, id); err != nil {
		return err
	}
	if err := c.store.DeleteZone(ctx, id); err != nil {
		return deleteError(ResourceDeliveryZone, id, err)
	}
	return nil
}

// maxPrice is the exclusive upper bound of the oil_prices.price column.
const maxPrice = 1e6

// CreatePrice records a price for an existing provider.
func (c *Catalog) CreatePrice(ctx context.Context, providerID int64, price float64) (int64, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return 0, invalid(ResourcePrice, "price must be a non-negative number")
	}
	if price >= maxPrice {
		return 0, invalid(ResourcePrice, "price must be below 1000000")
	}

	var id int64
	err := c.store.InTx(ctx, func(r Repository) error {
		exists, err := r.ProviderExists(ctx, providerID)
		if err != nil {
			return fetchError(ResourceProvider, err)
		}
		if !exists {
			return referenceError(ResourcePrice, 0, notFound(ResourceProvider, providerID))
		}
		id, err = r.InsertPrice(ctx, providerID, price)
		if err != nil {
			return insertError(ResourcePrice, err)
		}
		return nil
	})
	if err != nil {
		return 0, asResourceError(ResourcePrice, KindInsert, err)
	}
	return id, nil
}

// ListPrices returns all prices ordered by creation time.
func (c *Catalog) ListPrices(ctx context.Context) ([]models.Price, error) {
	prices, err := c.store.ListPrices(ctx)
	if err != nil {
		return nil, fetchError(ResourcePrice, err)
	}
	return prices, nil
}

// ListProviderPrices returns a page of prices of one provider.
func (c *Catalog) ListProviderPrices(ctx context.Context, providerID int64, q models.PriceQuery) ([]models.PriceDetails, error) {
	if q.Limit == 0 {
		q.Limit = DefaultPriceLimit
	}
	if q.Limit < 0 || q.Offset < 0 {
		return nil, invalid(ResourcePrice, "limit and offset must not be negative")
	}
	prices, err := c.store.ListPricesByProvider(ctx, providerID, q)
	if err != nil {
		return nil, fetchError(ResourcePrice, err)
	}
	return prices, nil
}

// GetPrice returns a single price.
func (c *Catalog) GetPrice(ctx context.Context, id int64) (*models.Price, error) {
	p, err := c.store.GetPrice(ctx, id)
	if err != nil {
		return nil, fetchError(ResourcePrice, err)
	}
	if p == nil {
		return nil, notFound(ResourcePrice, id)
	}
	return p, nil
}

// DeletePrice removes a price.
func (c *Catalog) DeletePrice(ctx context.Context, id int64) error {
	p, err := c.store.GetPrice(ctx, id)
	if err != nil {
		return fetchError(ResourcePrice, err)
	}
	if p == nil {
		return notFound(ResourcePrice, id)
	}
	if err := c.store.DeletePrice(ctx, id); err != nil {
		return deleteError(ResourcePrice, id, err)
	}
	return nil
}

// CreateScrapingRun appends a scraping run to the log.
func (c *Catalog) CreateScrapingRun(ctx context.Context, in models.ScrapingRunInput) (int64, error) {
	if in.StartTime.IsZero() || in.EndTime.IsZero() {
		return 0, invalid(ResourceScrapingRun, "start_time and end_time are required")
	}
	if in.EndTime.Before(in.StartTime) {
		return 0, invalid(ResourceScrapingRun, "end_time must not be before start_time")
	}
	id, err := c.store.InsertScrapingRun(ctx, in)
	if err != nil {
		return 0, insertError(ResourceScrapingRun, err)
	}
	return id, nil
}

// ListScrapingRuns returns all scraping runs, newest first.
func (c *Catalog) ListScrapingRuns(ctx context.Context) ([]models.ScrapingRun, error) {
	runs, err := c.store.ListScrapingRuns(ctx)
	if err != nil {
		return nil, fetchError(ResourceScrapingRun, err)
	}
	return runs, nil
}

// LastScrapingRun returns the run with the latest end time. An empty log is
// a fetch error, as the caller is promised exactly one run.
func (c *Catalog) LastScrapingRun(ctx context.Context) (*models.ScrapingRun, error) {
	run, err := c.store.LastScrapingRun(ctx)
	if err != nil {
		return nil, fetchError(ResourceScrapingRun, err)
	}
	if run == nil {
		return nil, fetchError(ResourceScrapingRun, sql.ErrNoRows)
	}
	return run, nil
}

func validateProvider(in models.ProviderInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return invalid(ResourceProvider, "name is required")
	}
	if strings.TrimSpace(in.URL) == "" {
		return invalid(ResourceProvider, "url is required")
	}
	return nil
}

// asResourceError keeps ResourceErrors and wraps anything else, such as a
// failed commit, with the given kind.
func asResourceError(r Resource, kind Kind, err error) error {
	var re *ResourceError
	if errors.As(err, &re) {
		return err
	}
	return &ResourceError{Resource: r, Kind: kind, Err: err}
}
