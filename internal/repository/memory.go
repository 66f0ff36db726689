package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/andresuchdata/backroom/internal/domain"
)

// MemoryCatalog is an in-process CatalogStore for tests and offline runs.
type MemoryCatalog struct {
	mu      sync.RWMutex
	items   map[string]domain.ItemProfile
	stock   map[string]domain.InventorySnapshot
	history map[string][]domain.SalesObservation
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		items:   make(map[string]domain.ItemProfile),
		stock:   make(map[string]domain.InventorySnapshot),
		history: make(map[string][]domain.SalesObservation),
	}
}

func (m *MemoryCatalog) PutItem(p domain.ItemProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[p.ItemID] = p
}

func (m *MemoryCatalog) PutStock(s domain.InventorySnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stock[s.ItemID] = s
}

func (m *MemoryCatalog) PutSales(itemID string, history []domain.SalesObservation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[itemID] = append([]domain.SalesObservation(nil), history...)
}

func (m *MemoryCatalog) GetItemProfile(_ context.Context, itemID string) (domain.ItemProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.items[itemID]
	if !ok {
		return domain.ItemProfile{}, domain.NotFoundf("item profile %s", itemID)
	}
	return p, nil
}

func (m *MemoryCatalog) GetCurrentStock(_ context.Context, itemID string) (domain.InventorySnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stock[itemID]
	if !ok {
		return domain.InventorySnapshot{}, domain.NotFoundf("stock for item %s", itemID)
	}
	return s, nil
}

func (m *MemoryCatalog) ListItemIDs(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.stock))
	for id := range m.stock {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MemoryCatalog) GetSalesHistory(_ context.Context, itemID string) ([]domain.SalesObservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := append([]domain.SalesObservation(nil), m.history[itemID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date.Time) })
	return out, nil
}
