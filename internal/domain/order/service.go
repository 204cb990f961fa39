package order

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/example/order-engine/internal/domain/address"
	"github.com/example/order-engine/internal/domain/catalog"
	"github.com/example/order-engine/internal/domain/errs"
	"github.com/example/order-engine/internal/domain/payment"
	"github.com/google/uuid"
)

// numberAttempts bounds order number regeneration on collision.
const numberAttempts = 5

// MethodVault is the slice of the payment vault the orchestrator needs:
// resolving a method id to an active method owned by the caller.
type MethodVault interface {
	Get(ctx context.Context, userID, methodID string) (*payment.Method, error)
}

// Publisher delivers order lifecycle events to downstream collaborators
// after commit. Delivery is fire-and-forget; failures are logged and
// never affect order durability.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// Event is the payload published after order mutations commit.
type Event struct {
	Type        string    `json:"type"`
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	UserID      string    `json:"user_id"`
	Status      Status    `json:"status"`
	TotalAmount int64     `json:"total_amount"`
	OccurredAt  time.Time `json:"occurred_at"`
}

const (
	EventOrderCreated   = "order.created"
	EventOrderConfirmed = "order.confirmed"
	EventOrderCancelled = "order.cancelled"
	EventStatusChanged  = "order.status_changed"
)

// CreateItemInput is one cart line submitted to CreateOrder. UnitPrice is
// the price captured when the item entered the cart, deliberately not
// re-read from the catalog.
type CreateItemInput struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

// CreateInput is the order creation contract.
type CreateInput struct {
	AddressID       string            `json:"address_id"`
	Items           []CreateItemInput `json:"items"`
	PaymentMethodID string            `json:"payment_method_id"`
	Subtotal        int64             `json:"subtotal"`
	ShippingCost    int64             `json:"shipping_cost"`
	DiscountAmount  int64             `json:"discount_amount"`
}

// CreateResult is returned to the caller after a successful commit.
type CreateResult struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	TotalAmount int64  `json:"total_amount"`
	Status      Status `json:"status"`
}

// Pagination describes a page of the order list.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Service is the order creation orchestrator and query/cancellation
// service. Every operation takes the acting user id explicitly; nothing
// is read from ambient state.
type Service struct {
	store     Store
	catalog   catalog.Store
	addresses address.Store
	vault     MethodVault
	publisher Publisher
	now       func() time.Time
}

func NewService(store Store, cat catalog.Store, addrs address.Store, vault MethodVault, pub Publisher) *Service {
	return &Service{
		store:     store,
		catalog:   cat,
		addresses: addrs,
		vault:     vault,
		publisher: pub,
		now:       time.Now,
	}
}

// CreateOrder converts a cart snapshot into a durable order. The header,
// item, payment, and history rows are written in one atomic unit; on any
// failure nothing persists.
func (s *Service) CreateOrder(ctx context.Context, userID string, in CreateInput) (*CreateResult, error) {
	if err := validateCreateInput(in); err != nil {
		return nil, err
	}

	// The claimed subtotal is never trusted: recompute from the lines
	// and reject a mismatch before touching storage.
	var subtotal int64
	for _, it := range in.Items {
		subtotal += it.UnitPrice * int64(it.Quantity)
	}
	if subtotal != in.Subtotal {
		return nil, errs.Invalid("subtotal", "does not match item lines (expected %d, got %d)", subtotal, in.Subtotal)
	}
	total := subtotal + in.ShippingCost - in.DiscountAmount
	if total < 0 {
		return nil, errs.Invalid("discount_amount", "exceeds order total")
	}

	// Resolve every product up front; one unresolved id fails the whole
	// operation. Display fields are snapshotted, the price is not.
	products := make(map[string]*catalog.Product, len(in.Items))
	for _, it := range in.Items {
		if _, ok := products[it.ProductID]; ok {
			continue
		}
		p, err := s.catalog.Get(ctx, it.ProductID)
		if err != nil {
			return nil, err
		}
		products[it.ProductID] = p
	}

	var snapshot json.RawMessage
	if in.AddressID != "" {
		addr, err := s.addresses.Get(ctx, userID, in.AddressID)
		if err != nil {
			return nil, err
		}
		snapshot, err = addr.Snapshot()
		if err != nil {
			return nil, err
		}
	}

	var method *payment.Method
	if in.PaymentMethodID != "" {
		m, err := s.vault.Get(ctx, userID, in.PaymentMethodID)
		if err != nil {
			return nil, err
		}
		method = m
	}

	now := s.now()
	o := &Order{
		ID:              uuid.New().String(),
		UserID:          userID,
		Status:          StatusPending,
		AddressSnapshot: snapshot,
		Subtotal:        subtotal,
		ShippingCost:    in.ShippingCost,
		DiscountAmount:  in.DiscountAmount,
		TotalAmount:     total,
		PaymentStatus:   PaymentPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	items := make([]Item, 0, len(in.Items))
	for _, it := range in.Items {
		p := products[it.ProductID]
		items = append(items, Item{
			ID:           uuid.New().String(),
			OrderID:      o.ID,
			ProductID:    it.ProductID,
			ProductName:  p.Name,
			ProductImage: p.Image,
			Quantity:     it.Quantity,
			UnitPrice:    it.UnitPrice,
			TotalPrice:   it.UnitPrice * int64(it.Quantity),
			CreatedAt:    now,
		})
	}

	// The initial pending row always precedes any later transition, so
	// the history reads as a valid walk of the transition graph.
	history := []StatusHistory{{
		ID:        uuid.New().String(),
		OrderID:   o.ID,
		Status:    StatusPending,
		Note:      "order created",
		CreatedAt: now,
	}}

	var pay *Payment
	if method != nil {
		// Simulated charge: synchronous, in-process, always succeeds.
		processed := now
		pay = &Payment{
			ID:            uuid.New().String(),
			OrderID:       o.ID,
			Amount:        total,
			Status:        PaymentCompleted,
			TransactionID: "TXN-" + uuid.New().String(),
			ProcessedAt:   &processed,
			CreatedAt:     now,
		}
		o.Status = StatusConfirmed
		o.PaymentStatus = PaymentCompleted
		history = append(history, StatusHistory{
			ID:        uuid.New().String(),
			OrderID:   o.ID,
			Status:    StatusConfirmed,
			Note:      "payment received",
			CreatedAt: now,
		})
	}

	// Reserve a unique order number; regenerate on collision.
	var err error
	for attempt := 0; attempt < numberAttempts; attempt++ {
		o.Number = NewNumber(now)
		err = s.store.CreateOrder(ctx, o, items, pay, history)
		if err == nil || !errors.Is(err, ErrNumberTaken) {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	s.publish(ctx, o, eventTypeForCreation(o.Status))

	return &CreateResult{
		OrderID:     o.ID,
		OrderNumber: o.Number,
		TotalAmount: o.TotalAmount,
		Status:      o.Status,
	}, nil
}

func eventTypeForCreation(s Status) string {
	if s == StatusConfirmed {
		return EventOrderConfirmed
	}
	return EventOrderCreated
}

func validateCreateInput(in CreateInput) error {
	if len(in.Items) == 0 {
		return errs.Invalid("items", "order must have at least one item")
	}
	for i, it := range in.Items {
		if it.ProductID == "" {
			return errs.Invalid("items", "item %d is missing product_id", i)
		}
		if it.Quantity <= 0 {
			return errs.Invalid("items", "item %d quantity must be positive", i)
		}
		if it.UnitPrice < 0 {
			return errs.Invalid("items", "item %d unit_price must not be negative", i)
		}
	}
	if in.ShippingCost < 0 {
		return errs.Invalid("shipping_cost", "must not be negative")
	}
	if in.DiscountAmount < 0 {
		return errs.Invalid("discount_amount", "must not be negative")
	}
	return nil
}

// GetOrders returns a page of the user's orders, newest first.
func (s *Service) GetOrders(ctx context.Context, userID string, page, limit int) ([]Summary, *Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}

	summaries, total, err := s.store.ListOrders(ctx, userID, (page-1)*limit, limit)
	if err != nil {
		return nil, nil, err
	}
	if summaries == nil {
		summaries = []Summary{}
	}

	totalPages := (total + limit - 1) / limit
	return summaries, &Pagination{Page: page, Limit: limit, Total: total, TotalPages: totalPages}, nil
}

// GetOrderDetail returns the full order read model, scoped to the owning
// user. An order belonging to someone else reads as not found.
func (s *Service) GetOrderDetail(ctx context.Context, userID, orderID string) (*Detail, error) {
	o, err := s.store.GetOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	items, err := s.store.GetItems(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	payments, err := s.store.GetPayments(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	history, err := s.store.GetHistory(ctx, o.ID)
	if err != nil {
		return nil, err
	}

	if items == nil {
		items = []Item{}
	}
	if payments == nil {
		payments = []Payment{}
	}
	if history == nil {
		history = []StatusHistory{}
	}
	return &Detail{Order: o, Items: items, Payments: payments, History: history}, nil
}

// CancelOrder transitions the user's order to cancelled. Only pending
// and confirmed orders can be cancelled; the store's conditional update
// guarantees that even under concurrent mutation at most one transition
// wins.
func (s *Service) CancelOrder(ctx context.Context, userID, orderID string) error {
	o, err := s.store.GetOrder(ctx, userID, orderID)
	if err != nil {
		return err
	}
	if !CanTransition(o.Status, StatusCancelled) {
		return TransitionError(o.Status, StatusCancelled)
	}

	h := StatusHistory{
		ID:        uuid.New().String(),
		OrderID:   o.ID,
		Status:    StatusCancelled,
		Note:      "cancelled by user",
		Actor:     userID,
		CreatedAt: s.now(),
	}
	if err := s.store.Transition(ctx, o.ID, CancellableStatuses(), StatusCancelled, h); err != nil {
		return err
	}

	o.Status = StatusCancelled
	s.publish(ctx, o, EventOrderCancelled)
	return nil
}

// UpdateStatus drives an arbitrary legal transition on behalf of an
// operator. The actor is recorded in the history row.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, to Status, note, actor string) error {
	if !ValidStatus(to) {
		return errs.Invalid("status", "unknown status %q", to)
	}

	o, err := s.store.GetOrderAny(ctx, orderID)
	if err != nil {
		return err
	}
	if !CanTransition(o.Status, to) {
		return TransitionError(o.Status, to)
	}

	if note == "" {
		note = "status updated"
	}
	h := StatusHistory{
		ID:        uuid.New().String(),
		OrderID:   o.ID,
		Status:    to,
		Note:      note,
		Actor:     actor,
		CreatedAt: s.now(),
	}
	if err := s.store.Transition(ctx, o.ID, transitionSources(to), to, h); err != nil {
		return err
	}

	o.Status = to
	s.publish(ctx, o, EventStatusChanged)
	return nil
}

// transitionSources lists every status that may legally precede to.
func transitionSources(to Status) []Status {
	var from []Status
	for s, targets := range validTransitions {
		for _, t := range targets {
			if t == to {
				from = append(from, s)
			}
		}
	}
	return from
}

func (s *Service) publish(ctx context.Context, o *Order, eventType string) {
	if s.publisher == nil {
		return
	}
	ev := Event{
		Type:        eventType,
		OrderID:     o.ID,
		OrderNumber: o.Number,
		UserID:      o.UserID,
		Status:      o.Status,
		TotalAmount: o.TotalAmount,
		OccurredAt:  s.now(),
	}
	if err := s.publisher.Publish(ctx, o.ID, ev); err != nil {
		log.Printf("[Order] Failed to publish %s for order %s: %v", eventType, o.ID, err)
	}
}
