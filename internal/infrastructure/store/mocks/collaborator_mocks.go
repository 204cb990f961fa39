package mocks

import (
	"context"
	"sync"

	"github.com/example/order-engine/internal/domain/address"
	"github.com/example/order-engine/internal/domain/catalog"
)

// MockCatalogStore is an in-memory catalog.Store.
type MockCatalogStore struct {
	mu       sync.RWMutex
	products map[string]*catalog.Product
}

func NewMockCatalogStore() *MockCatalogStore {
	return &MockCatalogStore{products: make(map[string]*catalog.Product)}
}

func (m *MockCatalogStore) Add(p *catalog.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
}

func (m *MockCatalogStore) Get(ctx context.Context, id string) (*catalog.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.products[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

// MockAddressStore is an in-memory address.Store.
type MockAddressStore struct {
	mu        sync.RWMutex
	addresses map[string]*address.Address
}

func NewMockAddressStore() *MockAddressStore {
	return &MockAddressStore{addresses: make(map[string]*address.Address)}
}

func (m *MockAddressStore) Add(a *address.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addresses[a.ID] = a
}

func (m *MockAddressStore) Get(ctx context.Context, userID, id string) (*address.Address, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.addresses[id]
	if !ok || a.UserID != userID {
		return nil, address.ErrAddressNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MockAddressStore) List(ctx context.Context, userID string) ([]address.Address, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var addrs []address.Address
	for _, a := range m.addresses {
		if a.UserID == userID {
			addrs = append(addrs, *a)
		}
	}
	return addrs, nil
}

func (m *MockAddressStore) SetDefault(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	target, ok := m.addresses[id]
	if !ok || target.UserID != userID {
		return address.ErrAddressNotFound
	}
	for _, a := range m.addresses {
		if a.UserID == userID {
			a.IsDefault = false
		}
	}
	target.IsDefault = true
	return nil
}

// MockPublisher records published events.
type MockPublisher struct {
	mu     sync.Mutex
	Events []PublishedEvent
	Err    error
}

// PublishedEvent records one Publish call.
type PublishedEvent struct {
	Key   string
	Event any
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, key string, event any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	m.Events = append(m.Events, PublishedEvent{Key: key, Event: event})
	return nil
}

// Published returns a copy of the recorded events.
func (m *MockPublisher) Published() []PublishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PublishedEvent(nil), m.Events...)
}
