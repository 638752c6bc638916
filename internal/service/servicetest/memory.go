// Package servicetest provides an in-memory service.Store for tests.
package servicetest

import (
	"context"
	"database/sql"
	"errors"
	"maps"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/andygrunwald/oil-price-api/internal/database"
	"github.com/andygrunwald/oil-price-api/internal/models"
	"github.com/andygrunwald/oil-price-api/internal/service"
)

type link struct{ providerID, zoneID int64 }

type memoryState struct {
	nextID      int64
	credentials map[string]models.Credential
	providers   map[int64]models.Provider
	zones       map[int64]models.DeliveryZone
	links       map[link]bool
	prices      map[int64]models.Price
	runs        map[int64]models.ScrapingRun
}

func (s *memoryState) clone() *memoryState {
	return &memoryState{
		nextID:      s.nextID,
		credentials: maps.Clone(s.credentials),
		providers:   maps.Clone(s.providers),
		zones:       maps.Clone(s.zones),
		links:       maps.Clone(s.links),
		prices:      maps.Clone(s.prices),
		runs:        maps.Clone(s.runs),
	}
}

// MemoryStore is an in-memory service.Store. Transactions run on a copy of the
// state that replaces the original only when the callback succeeds.
type MemoryStore struct {
	mu    sync.Mutex
	state *memoryState
	Clock func() time.Time

	// FailOn makes the named operation return ErrStore.
	FailOn map[string]bool
}

// ErrStore is returned by operations listed in FailOn.
var ErrStore = errors.New("connection reset by peer")

// ErrNumericOverflow mirrors the NUMERIC(10,4) bound of the price column.
var ErrNumericOverflow = errors.New("numeric field overflow")

var (
	_ service.Store           = (*MemoryStore)(nil)
	_ service.CredentialStore = (*MemoryStore)(nil)
	_ service.Repository      = (*memoryRepo)(nil)
)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: &memoryState{
			credentials: map[string]models.Credential{},
			providers:   map[int64]models.Provider{},
			zones:       map[int64]models.DeliveryZone{},
			links:       map[link]bool{},
			prices:      map[int64]models.Price{},
			runs:        map[int64]models.ScrapingRun{},
		},
		Clock:  time.Now,
		FailOn: map[string]bool{},
	}
}

// memoryRepo operates on one state, either the committed one or a
// transaction copy.
type memoryRepo struct {
	store *MemoryStore
	state *memoryState
}

func (m *MemoryStore) repo() *memoryRepo {
	return &memoryRepo{store: m, state: m.state}
}

func (m *MemoryStore) InTx(ctx context.Context, fn func(service.Repository) error) error {
	m.mu.Lock()
	tx := &memoryRepo{store: m, state: m.state.clone()}
	m.mu.Unlock()

	if err := fn(tx); err != nil {
		return err
	}
	if m.FailOn["Commit"] {
		return ErrStore
	}

	m.mu.Lock()
	m.state = tx.state
	m.mu.Unlock()
	return nil
}

func (r *memoryRepo) fail(op string) error {
	if r.store.FailOn[op] {
		return ErrStore
	}
	return nil
}

func (r *memoryRepo) id() int64 {
	r.state.nextID++
	return r.state.nextID
}

func (m *MemoryStore) GetCredential(ctx context.Context, clientID string) (*models.Credential, error) {
	return m.repo().GetCredential(ctx, clientID)
}

func (m *MemoryStore) InsertCredential(ctx context.Context, cred models.Credential) error {
	return m.repo().InsertCredential(ctx, cred)
}

func (r *memoryRepo) GetCredential(ctx context.Context, clientID string) (*models.Credential, error) {
	if err := r.fail("GetCredential"); err != nil {
		return nil, err
	}
	c, ok := r.state.credentials[clientID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *memoryRepo) InsertCredential(ctx context.Context, cred models.Credential) error {
	if err := r.fail("InsertCredential"); err != nil {
		return err
	}
	if _, ok := r.state.credentials[cred.ClientID]; ok {
		return database.ErrDuplicate
	}
	cred.CreatedAt = r.store.Clock()
	r.state.credentials[cred.ClientID] = cred
	return nil
}

func (m *MemoryStore) ProviderExists(ctx context.Context, id int64) (bool, error) {
	return m.repo().ProviderExists(ctx, id)
}

func (r *memoryRepo) ProviderExists(ctx context.Context, id int64) (bool, error) {
	if err := r.fail("ProviderExists"); err != nil {
		return false, err
	}
	_, ok := r.state.providers[id]
	return ok, nil
}

func (m *MemoryStore) InsertProvider(ctx context.Context, in models.ProviderInput) (int64, error) {
	return m.repo().InsertProvider(ctx, in)
}

func (r *memoryRepo) InsertProvider(ctx context.Context, in models.ProviderInput) (int64, error) {
	if err := r.fail("InsertProvider"); err != nil {
		return 0, err
	}
	now := r.store.Clock()
	p := models.Provider{
		ID: r.id(), Name: in.Name, URL: in.URL, HTMLElement: in.HTMLElement,
		CreatedAt: now, LastUpdated: now, LastAccessed: now,
	}
	r.state.providers[p.ID] = p
	return p.ID, nil
}

func (m *MemoryStore) ListProviders(ctx context.Context) ([]models.Provider, error) {
	return m.repo().ListProviders(ctx)
}

func (r *memoryRepo) ListProviders(ctx context.Context) ([]models.Provider, error) {
	if err := r.fail("ListProviders"); err != nil {
		return nil, err
	}
	out := []models.Provider{}
	for _, id := range slices.Sorted(maps.Keys(r.state.providers)) {
		out = append(out, r.state.providers[id])
	}
	return out, nil
}

func (m *MemoryStore) GetProvider(ctx context.Context, id int64) (*models.Provider, error) {
	return m.repo().GetProvider(ctx, id)
}

func (r *memoryRepo) GetProvider(ctx context.Context, id int64) (*models.Provider, error) {
	if err := r.fail("GetProvider"); err != nil {
		return nil, err
	}
	p, ok := r.state.providers[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *MemoryStore) UpdateProvider(ctx context.Context, id int64, in models.ProviderInput) (bool, error) {
	return m.repo().UpdateProvider(ctx, id, in)
}

func (r *memoryRepo) UpdateProvider(ctx context.Context, id int64, in models.ProviderInput) (bool, error) {
	if err := r.fail("UpdateProvider"); err != nil {
		return false, err
	}
	p, ok := r.state.providers[id]
	if !ok {
		return false, nil
	}
	p.Name, p.URL, p.HTMLElement = in.Name, in.URL, in.HTMLElement
	p.LastUpdated = r.store.Clock()
	r.state.providers[id] = p
	return true, nil
}

func (m *MemoryStore) TouchProvider(ctx context.Context, id int64) (time.Time, error) {
	return m.repo().TouchProvider(ctx, id)
}

func (r *memoryRepo) TouchProvider(ctx context.Context, id int64) (time.Time, error) {
	if err := r.fail("TouchProvider"); err != nil {
		return time.Time{}, err
	}
	p, ok := r.state.providers[id]
	if !ok {
		return time.Time{}, sql.ErrNoRows
	}
	p.LastAccessed = r.store.Clock()
	r.state.providers[id] = p
	return p.LastAccessed, nil
}

func (m *MemoryStore) DeleteProvider(ctx context.Context, id int64) error {
	return m.repo().DeleteProvider(ctx, id)
}

func (r *memoryRepo) DeleteProvider(ctx context.Context, id int64) error {
	if err := r.fail("DeleteProvider"); err != nil {
		return err
	}
	delete(r.state.providers, id)
	for l := range r.state.links {
		if l.providerID == id {
			delete(r.state.links, l)
		}
	}
	for pid, p := range r.state.prices {
		if p.ProviderID == id {
			delete(r.state.prices, pid)
		}
	}
	return nil
}

func (m *MemoryStore) ListProviderZoneRows(ctx context.Context) ([]models.ProviderZoneRow, error) {
	return m.repo().ListProviderZoneRows(ctx)
}

func (r *memoryRepo) ListProviderZoneRows(ctx context.Context) ([]models.ProviderZoneRow, error) {
	if err := r.fail("ListProviderZoneRows"); err != nil {
		return nil, err
	}
	var rows []models.ProviderZoneRow
	for _, pid := range slices.Sorted(maps.Keys(r.state.providers)) {
		p := r.state.providers[pid]
		zones, _ := r.ListZonesByProvider(ctx, pid)
		if len(zones) == 0 {
			rows = append(rows, models.ProviderZoneRow{Provider: p})
			continue
		}
		for _, z := range zones {
			rows = append(rows, models.ProviderZoneRow{
				Provider: p, ZoneID: &z.ID, ZoneName: &z.Name, ZoneDescription: &z.Description,
			})
		}
	}
	return rows, nil
}

func (m *MemoryStore) ListZonesByProvider(ctx context.Context, providerID int64) ([]models.DeliveryZone, error) {
	return m.repo().ListZonesByProvider(ctx, providerID)
}

func (r *memoryRepo) ListZonesByProvider(ctx context.Context, providerID int64) ([]models.DeliveryZone, error) {
	if err := r.fail("ListZonesByProvider"); err != nil {
		return nil, err
	}
	zones := []models.DeliveryZone{}
	for _, zid := range slices.Sorted(maps.Keys(r.state.zones)) {
		if r.state.links[link{providerID, zid}] {
			zones = append(zones, r.state.zones[zid])
		}
	}
	return zones, nil
}

func (m *MemoryStore) LinkZone(ctx context.Context, providerID, zoneID int64) error {
	return m.repo().LinkZone(ctx, providerID, zoneID)
}

func (r *memoryRepo) LinkZone(ctx context.Context, providerID, zoneID int64) error {
	if err := r.fail("LinkZone"); err != nil {
		return err
	}
	r.state.links[link{providerID, zoneID}] = true
	return nil
}

func (m *MemoryStore) UnlinkZone(ctx context.Context, providerID, zoneID int64) (bool, error) {
	return m.repo().UnlinkZone(ctx, providerID, zoneID)
}

func (r *memoryRepo) UnlinkZone(ctx context.Context, providerID, zoneID int64) (bool, error) {
	if err := r.fail("UnlinkZone"); err != nil {
		return false, err
	}
	l := link{providerID, zoneID}
	if !r.state.links[l] {
		return false, nil
	}
	delete(r.state.links, l)
	return true, nil
}

func (m *MemoryStore) ZoneExists(ctx context.Context, id int64) (bool, error) {
	return m.repo().ZoneExists(ctx, id)
}

func (r *memoryRepo) ZoneExists(ctx context.Context, id int64) (bool, error) {
	if err := r.fail("ZoneExists"); err != nil {
		return false, err
	}
	_, ok := r.state.zones[id]
	return ok, nil
}

func (m *MemoryStore) InsertZone(ctx context.Context, in models.DeliveryZoneInput) (int64, error) {
	return m.repo().InsertZone(ctx, in)
}

func (r *memoryRepo) InsertZone(ctx context.Context, in models.DeliveryZoneInput) (int64, error) {
	if err := r.fail("InsertZone"); err != nil {
		return 0, err
	}
	z := models.DeliveryZone{ID: r.id(), Name: in.Name, Description: in.Description}
	r.state.zones[z.ID] = z
	return z.ID, nil
}

func (m *MemoryStore) ListZones(ctx context.Context) ([]models.DeliveryZone, error) {
	return m.repo().ListZones(ctx)
}

func (r *memoryRepo) ListZones(ctx context.Context) ([]models.DeliveryZone, error) {
	if err := r.fail("ListZones"); err != nil {
		return nil, err
	}
	out := []models.DeliveryZone{}
	for _, id := range slices.Sorted(maps.Keys(r.state.zones)) {
		out = append(out, r.state.zones[id])
	}
	return out, nil
}

func (m *MemoryStore) GetZone(ctx context.Context, id int64) (*models.DeliveryZone, error) {
	return m.repo().GetZone(ctx, id)
}

func (r *memoryRepo) GetZone(ctx context.Context, id int64) (*models.DeliveryZone, error) {
	if err := r.fail("GetZone"); err != nil {
		return nil, err
	}
	z, ok := r.state.zones[id]
	if !ok {
		return nil, nil
	}
	return &z, nil
}

func (m *MemoryStore) UpdateZone(ctx context.Context, id int64, in models.DeliveryZoneInput) (bool, error) {
	return m.repo().UpdateZone(ctx, id, in)
}

func (r *memoryRepo) UpdateZone(ctx context.Context, id int64, in models.DeliveryZoneInput) (bool, error) {
	if err := r.fail("UpdateZone"); err != nil {
		return false, err
	}
	if _, ok := r.state.zones[id]; !ok {
		return false, nil
	}
	r.state.zones[id] = models.DeliveryZone{ID: id, Name: in.Name, Description: in.Description}
	return true, nil
}

func (m *MemoryStore) DeleteZone(ctx context.Context, id int64) error {
	return m.repo().DeleteZone(ctx, id)
}

func (r *memoryRepo) DeleteZone(ctx context.Context, id int64) error {
	if err := r.fail("DeleteZone"); err != nil {
		return err
	}
	delete(r.state.zones, id)
	for l := range r.state.links {
		if l.zoneID == id {
			delete(r.state.links, l)
		}
	}
	return nil
}

func (m *MemoryStore) InsertPrice(ctx context.Context, providerID int64, price float64) (int64, error) {
	return m.repo().InsertPrice(ctx, providerID, price)
}

func (r *memoryRepo) InsertPrice(ctx context.Context, providerID int64, price float64) (int64, error) {
	if err := r.fail("InsertPrice"); err != nil {
		return 0, err
	}
	if math.Abs(price) >= 1e6 {
		return 0, ErrNumericOverflow
	}
	p := models.Price{ID: r.id(), ProviderID: providerID, Price: price, CreatedAt: r.store.Clock()}
	r.state.prices[p.ID] = p
	return p.ID, nil
}

func (m *MemoryStore) ListPrices(ctx context.Context) ([]models.Price, error) {
	return m.repo().ListPrices(ctx)
}

func (r *memoryRepo) ListPrices(ctx context.Context) ([]models.Price, error) {
	if err := r.fail("ListPrices"); err != nil {
		return nil, err
	}
	out := []models.Price{}
	for _, id := range slices.Sorted(maps.Keys(r.state.prices)) {
		out = append(out, r.state.prices[id])
	}
	return out, nil
}

func (m *MemoryStore) ListPricesByProvider(ctx context.Context, providerID int64, q models.PriceQuery) ([]models.PriceDetails, error) {
	return m.repo().ListPricesByProvider(ctx, providerID, q)
}

func (r *memoryRepo) ListPricesByProvider(ctx context.Context, providerID int64, q models.PriceQuery) ([]models.PriceDetails, error) {
	if err := r.fail("ListPricesByProvider"); err != nil {
		return nil, err
	}
	out := []models.PriceDetails{}
	for _, id := range slices.Sorted(maps.Keys(r.state.prices)) {
		p := r.state.prices[id]
		if p.ProviderID != providerID {
			continue
		}
		if q.Start != nil && !p.CreatedAt.After(*q.Start) {
			continue
		}
		if q.End != nil && !p.CreatedAt.Before(*q.End) {
			continue
		}
		out = append(out, models.PriceDetails{Price: p.Price, CreatedAt: p.CreatedAt})
	}
	if q.Offset >= int64(len(out)) {
		return []models.PriceDetails{}, nil
	}
	out = out[q.Offset:]
	if q.Limit < int64(len(out)) {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *MemoryStore) GetPrice(ctx context.Context, id int64) (*models.Price, error) {
	return m.repo().GetPrice(ctx, id)
}

func (r *memoryRepo) GetPrice(ctx context.Context, id int64) (*models.Price, error) {
	if err := r.fail("GetPrice"); err != nil {
		return nil, err
	}
	p, ok := r.state.prices[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *MemoryStore) DeletePrice(ctx context.Context, id int64) error {
	return m.repo().DeletePrice(ctx, id)
}

func (r *memoryRepo) DeletePrice(ctx context.Context, id int64) error {
	if err := r.fail("DeletePrice"); err != nil {
		return err
	}
	delete(r.state.prices, id)
	return nil
}

func (m *MemoryStore) InsertScrapingRun(ctx context.Context, in models.ScrapingRunInput) (int64, error) {
	return m.repo().InsertScrapingRun(ctx, in)
}

func (r *memoryRepo) InsertScrapingRun(ctx context.Context, in models.ScrapingRunInput) (int64, error) {
	if err := r.fail("InsertScrapingRun"); err != nil {
		return 0, err
	}
	run := models.ScrapingRun{ID: r.id(), StartTime: in.StartTime, EndTime: in.EndTime}
	r.state.runs[run.ID] = run
	return run.ID, nil
}

func (m *MemoryStore) ListScrapingRuns(ctx context.Context) ([]models.ScrapingRun, error) {
	return m.repo().ListScrapingRuns(ctx)
}

func (r *memoryRepo) ListScrapingRuns(ctx context.Context) ([]models.ScrapingRun, error) {
	if err := r.fail("ListScrapingRuns"); err != nil {
		return nil, err
	}
	out := slices.Collect(maps.Values(r.state.runs))
	slices.SortFunc(out, func(a, b models.ScrapingRun) int {
		return b.EndTime.Compare(a.EndTime)
	})
	if out == nil {
		out = []models.ScrapingRun{}
	}
	return out, nil
}

func (m *MemoryStore) LastScrapingRun(ctx context.Context) (*models.ScrapingRun, error) {
	return m.repo().LastScrapingRun(ctx)
}

func (r *memoryRepo) LastScrapingRun(ctx context.Context) (*models.ScrapingRun, error) {
	runs, err := r.ListScrapingRuns(ctx)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}
