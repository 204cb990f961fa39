package order

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/order-engine/internal/domain/errs"
)

// Status is the closed set of order lifecycle states.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// PaymentStatus is the closed set of payment attempt states.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentCompleted  PaymentStatus = "completed"
	PaymentFailed     PaymentStatus = "failed"
	PaymentCancelled  PaymentStatus = "cancelled"
)

var (
	ErrOrderNotFound = fmt.Errorf("order %w", errs.ErrNotFound)

	// ErrNumberTaken signals an order number collision on insert. The
	// orchestrator regenerates the number and retries.
	ErrNumberTaken = fmt.Errorf("order number already taken")
)

// validTransitions is the legal-transition graph. Cancellation is only
// reachable while the order has not entered fulfilment; delivered and
// cancelled are terminal.
var validTransitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

// ValidStatus reports whether s is a known order status.
func ValidStatus(s Status) bool {
	_, ok := validTransitions[s]
	return ok
}

// CanTransition reports whether from → to is a legal status change.
func CanTransition(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CancellableStatuses lists the states an order may be cancelled from.
// Exported so the store can guard its conditional UPDATE with the same set.
func CancellableStatuses() []Status {
	return []Status{StatusPending, StatusConfirmed}
}

// TransitionError returns the error for an illegal from → to change,
// with an actionable message for the common cancellation cases.
func TransitionError(from, to Status) error {
	switch {
	case to == StatusCancelled && from == StatusCancelled:
		return fmt.Errorf("%w: order is already cancelled", errs.ErrInvalidTransition)
	case to == StatusCancelled:
		return fmt.Errorf("%w: this order can no longer be cancelled", errs.ErrInvalidTransition)
	default:
		return fmt.Errorf("%w: cannot transition from %s to %s", errs.ErrInvalidTransition, from, to)
	}
}

// Order is the durable order header. Only Status (and the mirrored
// PaymentStatus) change after creation; everything else is written once.
type Order struct {
	ID              string          `json:"id"`
	Number          string          `json:"order_number"`
	UserID          string          `json:"user_id"`
	Status          Status          `json:"status"`
	AddressSnapshot json.RawMessage `json:"shipping_address,omitempty"`
	Subtotal        int64           `json:"subtotal"`
	ShippingCost    int64           `json:"shipping_cost"`
	DiscountAmount  int64           `json:"discount_amount"`
	TotalAmount     int64           `json:"total_amount"`
	PaymentStatus   PaymentStatus   `json:"payment_status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Item is a price-and-identity snapshot of one cart line at order time.
// Immutable after creation; later catalog changes never alter it.
type Item struct {
	ID           string    `json:"id"`
	OrderID      string    `json:"order_id"`
	ProductID    string    `json:"product_id"`
	ProductName  string    `json:"product_name"`
	ProductImage string    `json:"product_image"`
	Quantity     int       `json:"quantity"`
	UnitPrice    int64     `json:"unit_price"`
	TotalPrice   int64     `json:"total_price"`
	CreatedAt    time.Time `json:"created_at"`
}

// Payment is one payment attempt against an order. Amount always equals
// the order's total.
type Payment struct {
	ID            string        `json:"id"`
	OrderID       string        `json:"order_id"`
	Amount        int64         `json:"amount"`
	Status        PaymentStatus `json:"status"`
	TransactionID string        `json:"transaction_id"`
	ProcessedAt   *time.Time    `json:"processed_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// StatusHistory is one append-only audit row. Actor is empty when the
// transition was made by the system rather than a person.
type StatusHistory struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	Status    Status    `json:"status"`
	Note      string    `json:"note,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary is the list-view projection: the order header plus a
// denormalized item count and a representative first item.
type Summary struct {
	Order
	ItemCount      int    `json:"item_count"`
	FirstItemName  string `json:"first_item_name,omitempty"`
	FirstItemImage string `json:"first_item_image,omitempty"`
}

// Detail is the full read model for a single order.
type Detail struct {
	Order    *Order          `json:"order"`
	Items    []Item          `json:"items"`
	Payments []Payment       `json:"payments"`
	History  []StatusHistory `json:"status_history"`
}
