package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/example/order-engine/internal/domain/order"
)

// MockOrderStore is an in-memory implementation of order.Store for
// testing. Writes are all-or-nothing, mirroring the transactional
// guarantees of the real store: an injected error leaves no partial
// state behind.
type MockOrderStore struct {
	mu       sync.RWMutex
	orders   map[string]*order.Order
	items    map[string][]order.Item
	payments map[string][]order.Payment
	history  map[string][]order.StatusHistory
	numbers  map[string]bool

	// For tracking calls and injecting failures in tests
	CreateCalls     []CreateOrderCall
	CreateErr       error
	TransitionCalls []TransitionCall
	TransitionErr   error

	// NumberTakenTimes makes the next N CreateOrder calls fail with
	// ErrNumberTaken, simulating order number collisions.
	NumberTakenTimes int
}

// CreateOrderCall records parameters passed to CreateOrder.
type CreateOrderCall struct {
	Order   *order.Order
	Items   []order.Item
	Payment *order.Payment
	History []order.StatusHistory
}

// TransitionCall records parameters passed to Transition.
type TransitionCall struct {
	OrderID     string
	AllowedFrom []order.Status
	To          order.Status
	History     order.StatusHistory
}

func NewMockOrderStore() *MockOrderStore {
	return &MockOrderStore{
		orders:   make(map[string]*order.Order),
		items:    make(map[string][]order.Item),
		payments: make(map[string][]order.Payment),
		history:  make(map[string][]order.StatusHistory),
		numbers:  make(map[string]bool),
	}
}

func (m *MockOrderStore) CreateOrder(ctx context.Context, o *order.Order, items []order.Item, payment *order.Payment, history []order.StatusHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CreateCalls = append(m.CreateCalls, CreateOrderCall{
		Order: o, Items: items, Payment: payment, History: history,
	})

	if m.CreateErr != nil {
		return m.CreateErr
	}
	if m.NumberTakenTimes > 0 {
		m.NumberTakenTimes--
		return order.ErrNumberTaken
	}
	if m.numbers[o.Number] {
		return order.ErrNumberTaken
	}

	cp := *o
	m.orders[o.ID] = &cp
	m.items[o.ID] = append([]order.Item(nil), items...)
	if payment != nil {
		m.payments[o.ID] = []order.Payment{*payment}
	}
	m.history[o.ID] = append([]order.StatusHistory(nil), history...)
	m.numbers[o.Number] = true
	return nil
}

func (m *MockOrderStore) GetOrder(ctx context.Context, userID, orderID string) (*order.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.orders[orderID]
	if !ok || o.UserID != userID {
		return nil, order.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *MockOrderStore) GetOrderAny(ctx context.Context, orderID string) (*order.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.orders[orderID]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *MockOrderStore) ListOrders(ctx context.Context, userID string, offset, limit int) ([]order.Summary, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var all []*order.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			all = append(all, o)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	var summaries []order.Summary
	for _, o := range all[offset:end] {
		sum := order.Summary{Order: *o, ItemCount: len(m.items[o.ID])}
		if items := m.items[o.ID]; len(items) > 0 {
			sum.FirstItemName = items[0].ProductName
			sum.FirstItemImage = items[0].ProductImage
		}
		summaries = append(summaries, sum)
	}
	return summaries, total, nil
}

func (m *MockOrderStore) GetItems(ctx context.Context, orderID string) ([]order.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]order.Item(nil), m.items[orderID]...), nil
}

func (m *MockOrderStore) GetPayments(ctx context.Context, orderID string) ([]order.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]order.Payment(nil), m.payments[orderID]...), nil
}

func (m *MockOrderStore) GetHistory(ctx context.Context, orderID string) ([]order.StatusHistory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]order.StatusHistory(nil), m.history[orderID]...), nil
}

func (m *MockOrderStore) Transition(ctx context.Context, orderID string, allowedFrom []order.Status, to order.Status, h order.StatusHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TransitionCalls = append(m.TransitionCalls, TransitionCall{
		OrderID: orderID, AllowedFrom: allowedFrom, To: to, History: h,
	})

	if m.TransitionErr != nil {
		return m.TransitionErr
	}

	o, ok := m.orders[orderID]
	if !ok {
		return order.ErrOrderNotFound
	}
	allowed := false
	for _, s := range allowedFrom {
		if o.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return order.TransitionError(o.Status, to)
	}

	o.Status = to
	o.UpdatedAt = h.CreatedAt
	m.history[orderID] = append(m.history[orderID], h)
	return nil
}

// SeedOrder installs an order with the given rows, bypassing CreateOrder
// bookkeeping. For test setup only.
func (m *MockOrderStore) SeedOrder(o *order.Order, items []order.Item, payments []order.Payment, history []order.StatusHistory) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *o
	m.orders[o.ID] = &cp
	m.items[o.ID] = append([]order.Item(nil), items...)
	m.payments[o.ID] = append([]order.Payment(nil), payments...)
	m.history[o.ID] = append([]order.StatusHistory(nil), history...)
	m.numbers[o.Number] = true
}

// OrderCount returns the number of persisted orders.
func (m *MockOrderStore) OrderCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.orders)
}

// RowCounts returns the persisted item, payment, and history row counts
// across all orders, for atomicity assertions.
func (m *MockOrderStore) RowCounts() (items, payments, history int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, v := range m.items {
		items += len(v)
	}
	for _, v := range m.payments {
		payments += len(v)
	}
	for _, v := range m.history {
		history += len(v)
	}
	return
}
