package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/example/order-engine/internal/domain/payment"
)

// MockPaymentMethodStore is an in-memory implementation of payment.Store
// for testing. It preserves the one-default-per-user invariant the same
// way the transactional store does.
type MockPaymentMethodStore struct {
	mu      sync.RWMutex
	methods map[string]*payment.Method

	InsertCalls []*payment.Method
	InsertErr   error
}

func NewMockPaymentMethodStore() *MockPaymentMethodStore {
	return &MockPaymentMethodStore{methods: make(map[string]*payment.Method)}
}

func (m *MockPaymentMethodStore) Insert(ctx context.Context, method *payment.Method, makeDefault bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.InsertCalls = append(m.InsertCalls, method)
	if m.InsertErr != nil {
		return m.InsertErr
	}

	if makeDefault {
		for _, existing := range m.methods {
			if existing.UserID == method.UserID && existing.IsActive {
				existing.IsDefault = false
			}
		}
	}
	cp := *method
	cp.IsDefault = makeDefault
	m.methods[method.ID] = &cp
	return nil
}

func (m *MockPaymentMethodStore) Get(ctx context.Context, userID, id string) (*payment.Method, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	method, ok := m.methods[id]
	if !ok || method.UserID != userID || !method.IsActive {
		return nil, payment.ErrMethodNotFound
	}
	cp := *method
	return &cp, nil
}

func (m *MockPaymentMethodStore) List(ctx context.Context, userID string) ([]payment.Method, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var methods []payment.Method
	for _, method := range m.methods {
		if method.UserID == userID && method.IsActive {
			methods = append(methods, *method)
		}
	}
	sort.Slice(methods, func(i, j int) bool {
		if methods[i].IsDefault != methods[j].IsDefault {
			return methods[i].IsDefault
		}
		return methods[i].CreatedAt.After(methods[j].CreatedAt)
	})
	return methods, nil
}

func (m *MockPaymentMethodStore) SetDefault(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	target, ok := m.methods[id]
	if !ok || target.UserID != userID || !target.IsActive {
		return payment.ErrMethodNotFound
	}
	for _, method := range m.methods {
		if method.UserID == userID && method.IsActive {
			method.IsDefault = false
		}
	}
	target.IsDefault = true
	return nil
}

func (m *MockPaymentMethodStore) Deactivate(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	target, ok := m.methods[id]
	if !ok || target.UserID != userID || !target.IsActive {
		return payment.ErrMethodNotFound
	}
	wasDefault := target.IsDefault
	target.IsActive = false
	target.IsDefault = false

	if wasDefault {
		var newest *payment.Method
		for _, method := range m.methods {
			if method.UserID != userID || !method.IsActive {
				continue
			}
			if newest == nil || method.CreatedAt.After(newest.CreatedAt) {
				newest = method
			}
		}
		if newest != nil {
			newest.IsDefault = true
		}
	}
	return nil
}

func (m *MockPaymentMethodStore) FingerprintExists(ctx context.Context, userID, fp string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, method := range m.methods {
		if method.UserID == userID && method.IsActive && method.Fingerprint == fp {
			return true, nil
		}
	}
	return false, nil
}

// DefaultCount returns how many active methods of the user are marked
// default, for invariant assertions.
func (m *MockPaymentMethodStore) DefaultCount(userID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, method := range m.methods {
		if method.UserID == userID && method.IsActive && method.IsDefault {
			count++
		}
	}
	return count
}
