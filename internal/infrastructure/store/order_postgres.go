package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/example/order-engine/internal/domain/errs"
	"github.com/example/order-engine/internal/domain/order"
	"github.com/lib/pq"
)

// pqUniqueViolation is the PostgreSQL error code for unique_violation.
const pqUniqueViolation = "23505"

// OrderStore implements order.Store on PostgreSQL.
type OrderStore struct {
	db *sql.DB
}

func NewOrderStore(db *sql.DB) *OrderStore {
	return &OrderStore{db: db}
}

// CreateOrder writes the header, items, optional payment, and history
// rows in one transaction. A failure at any step rolls everything back.
func (s *OrderStore) CreateOrder(ctx context.Context, o *order.Order, items []order.Item, payment *order.Payment, history []order.StatusHistory) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Persistence("orders.create", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (id, order_number, user_id, status, address_snapshot,
			subtotal, shipping_cost, discount_amount, total_amount, payment_status,
			created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		o.ID, o.Number, o.UserID, o.Status, nullBytes(o.AddressSnapshot),
		o.Subtotal, o.ShippingCost, o.DiscountAmount, o.TotalAmount, o.PaymentStatus,
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation && pqErr.Constraint == "orders_order_number_key" {
			return order.ErrNumberTaken
		}
		return errs.Persistence("orders.create", err)
	}

	for _, it := range items {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_items (id, order_id, product_id, product_name,
				product_image, quantity, unit_price, total_price, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			it.ID, it.OrderID, it.ProductID, it.ProductName,
			it.ProductImage, it.Quantity, it.UnitPrice, it.TotalPrice, it.CreatedAt,
		)
		if err != nil {
			return errs.Persistence("orders.create_items", err)
		}
	}

	if payment != nil {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_payments (id, order_id, amount, status,
				transaction_id, processed_at, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			payment.ID, payment.OrderID, payment.Amount, payment.Status,
			payment.TransactionID, payment.ProcessedAt, payment.CreatedAt,
		)
		if err != nil {
			return errs.Persistence("orders.create_payment", err)
		}
	}

	for _, h := range history {
		if err := insertHistory(ctx, tx, h); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return errs.Persistence("orders.create_commit", err)
	}
	return nil
}

func insertHistory(ctx context.Context, tx *sql.Tx, h order.StatusHistory) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO order_status_history (id, order_id, status, note, actor, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		h.ID, h.OrderID, h.Status, h.Note, nullString(h.Actor), h.CreatedAt,
	)
	if err != nil {
		return errs.Persistence("orders.append_history", err)
	}
	return nil
}

const orderColumns = `id, order_number, user_id, status, address_snapshot,
	subtotal, shipping_cost, discount_amount, total_amount, payment_status,
	created_at, updated_at`

func scanOrder(row *sql.Row) (*order.Order, error) {
	var o order.Order
	var snapshot []byte
	err := row.Scan(&o.ID, &o.Number, &o.UserID, &o.Status, &snapshot,
		&o.Subtotal, &o.ShippingCost, &o.DiscountAmount, &o.TotalAmount, &o.PaymentStatus,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.AddressSnapshot = snapshot
	return &o, nil
}

// GetOrder loads an order scoped to its owner. An order belonging to a
// different user is reported as not found.
func (s *OrderStore) GetOrder(ctx context.Context, userID, orderID string) (*order.Order, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND user_id = $2`,
		orderID, userID,
	)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, order.ErrOrderNotFound
	}
	if err != nil {
		return nil, errs.Persistence("orders.get", err)
	}
	return o, nil
}

// GetOrderAny loads an order without ownership scoping (operator access).
func (s *OrderStore) GetOrderAny(ctx context.Context, orderID string) (*order.Order, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID,
	)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, order.ErrOrderNotFound
	}
	if err != nil {
		return nil, errs.Persistence("orders.get", err)
	}
	return o, nil
}

// ListOrders returns a page of the user's orders, newest first, with the
// denormalized item count and first item the list view needs.
func (s *OrderStore) ListOrders(ctx context.Context, userID string, offset, limit int) ([]order.Summary, int, error) {
	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders WHERE user_id = $1`, userID,
	).Scan(&total)
	if err != nil {
		return nil, 0, errs.Persistence("orders.count", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT o.id, o.order_number, o.user_id, o.status, o.address_snapshot,
			o.subtotal, o.shipping_cost, o.discount_amount, o.total_amount, o.payment_status,
			o.created_at, o.updated_at,
			(SELECT COUNT(*) FROM order_items i WHERE i.order_id = o.id),
			COALESCE((SELECT i.product_name FROM order_items i
				WHERE i.order_id = o.id ORDER BY i.created_at, i.id LIMIT 1), ''),
			COALESCE((SELECT i.product_image FROM order_items i
				WHERE i.order_id = o.id ORDER BY i.created_at, i.id LIMIT 1), '')
		 FROM orders o
		 WHERE o.user_id = $1
		 ORDER BY o.created_at DESC
		 LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, 0, errs.Persistence("orders.list", err)
	}
	defer rows.Close()

	var summaries []order.Summary
	for rows.Next() {
		var sum order.Summary
		var snapshot []byte
		err := rows.Scan(&sum.ID, &sum.Number, &sum.UserID, &sum.Status, &snapshot,
			&sum.Subtotal, &sum.ShippingCost, &sum.DiscountAmount, &sum.TotalAmount, &sum.PaymentStatus,
			&sum.CreatedAt, &sum.UpdatedAt,
			&sum.ItemCount, &sum.FirstItemName, &sum.FirstItemImage)
		if err != nil {
			return nil, 0, errs.Persistence("orders.list", err)
		}
		sum.AddressSnapshot = snapshot
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errs.Persistence("orders.list", err)
	}
	return summaries, total, nil
}

// GetItems returns the order's item snapshots in insertion order.
func (s *OrderStore) GetItems(ctx context.Context, orderID string) ([]order.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, order_id, product_id, product_name, product_image,
			quantity, unit_price, total_price, created_at
		 FROM order_items WHERE order_id = $1 ORDER BY created_at, id`,
		orderID,
	)
	if err != nil {
		return nil, errs.Persistence("orders.items", err)
	}
	defer rows.Close()

	var items []order.Item
	for rows.Next() {
		var it order.Item
		err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.ProductImage,
			&it.Quantity, &it.UnitPrice, &it.TotalPrice, &it.CreatedAt)
		if err != nil {
			return nil, errs.Persistence("orders.items", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// GetPayments returns the order's payment attempts.
func (s *OrderStore) GetPayments(ctx context.Context, orderID string) ([]order.Payment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, order_id, amount, status, transaction_id, processed_at, created_at
		 FROM order_payments WHERE order_id = $1 ORDER BY created_at`,
		orderID,
	)
	if err != nil {
		return nil, errs.Persistence("orders.payments", err)
	}
	defer rows.Close()

	var payments []order.Payment
	for rows.Next() {
		var p order.Payment
		err := rows.Scan(&p.ID, &p.OrderID, &p.Amount, &p.Status, &p.TransactionID, &p.ProcessedAt, &p.CreatedAt)
		if err != nil {
			return nil, errs.Persistence("orders.payments", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// GetHistory returns the order's status history, oldest first.
func (s *OrderStore) GetHistory(ctx context.Context, orderID string) ([]order.StatusHistory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, order_id, status, note, actor, created_at
		 FROM order_status_history WHERE order_id = $1 ORDER BY created_at, id`,
		orderID,
	)
	if err != nil {
		return nil, errs.Persistence("orders.history", err)
	}
	defer rows.Close()

	var history []order.StatusHistory
	for rows.Next() {
		var h order.StatusHistory
		var actor sql.NullString
		err := rows.Scan(&h.ID, &h.OrderID, &h.Status, &h.Note, &actor, &h.CreatedAt)
		if err != nil {
			return nil, errs.Persistence("orders.history", err)
		}
		h.Actor = actor.String
		history = append(history, h)
	}
	return history, rows.Err()
}

// Transition performs the guarded status change: the UPDATE only matches
// when the current status is still in allowedFrom, so a concurrent
// mutation that got there first makes this one fail instead of being
// silently overwritten.
func (s *OrderStore) Transition(ctx context.Context, orderID string, allowedFrom []order.Status, to order.Status, h order.StatusHistory) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Persistence("orders.transition", err)
	}
	defer tx.Rollback()

	var current order.Status
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM orders WHERE id = $1`, orderID,
	).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return order.ErrOrderNotFound
	}
	if err != nil {
		return errs.Persistence("orders.transition", err)
	}

	from := make([]string, len(allowedFrom))
	for i, st := range allowedFrom {
		from[i] = string(st)
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = $1, updated_at = $2
		 WHERE id = $3 AND status = ANY($4)`,
		to, h.CreatedAt, orderID, pq.Array(from),
	)
	if err != nil {
		return errs.Persistence("orders.transition", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errs.Persistence("orders.transition", err)
	}
	if affected == 0 {
		return order.TransitionError(current, to)
	}

	if err := insertHistory(ctx, tx, h); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errs.Persistence("orders.transition_commit", err)
	}
	return nil
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
