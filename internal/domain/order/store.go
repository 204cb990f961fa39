package order

import "context"

// Store is the transactional persistence interface for orders.
//
// CreateOrder persists the header, items, optional payment, and history
// rows as one atomic unit: on any failure nothing is visible to readers.
// It returns ErrNumberTaken when the order number collides with an
// existing order.
//
// Transition performs the guarded status change as a single conditional
// update: the status is changed and the history row appended only when
// the current status is in allowedFrom; otherwise it returns an
// ErrInvalidTransition-wrapped error without touching the row. This
// closes the race between concurrent mutations (two callers cannot both
// win the same transition).
type Store interface {
	CreateOrder(ctx context.Context, o *Order, items []Item, payment *Payment, history []StatusHistory) error
	// GetOrder scopes by owner; GetOrderAny is for operator access.
	GetOrder(ctx context.Context, userID, orderID string) (*Order, error)
	GetOrderAny(ctx context.Context, orderID string) (*Order, error)
	ListOrders(ctx context.Context, userID string, offset, limit int) ([]Summary, int, error)
	GetItems(ctx context.Context, orderID string) ([]Item, error)
	GetPayments(ctx context.Context, orderID string) ([]Payment, error)
	GetHistory(ctx context.Context, orderID string) ([]StatusHistory, error)
	Transition(ctx context.Context, orderID string, allowedFrom []Status, to Status, h StatusHistory) error
}
