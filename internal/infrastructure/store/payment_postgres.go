package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/example/order-engine/internal/domain/errs"
	"github.com/example/order-engine/internal/domain/payment"
)

// PaymentMethodStore implements payment.Store on PostgreSQL.
type PaymentMethodStore struct {
	db *sql.DB
}

func NewPaymentMethodStore(db *sql.DB) *PaymentMethodStore {
	return &PaymentMethodStore{db: db}
}

// Insert stores a tokenized method. When makeDefault is set, every other
// active method of the user is demoted in the same transaction, so at
// most one default exists at any point readers can observe.
func (s *PaymentMethodStore) Insert(ctx context.Context, m *payment.Method, makeDefault bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Persistence("payment_methods.insert", err)
	}
	defer tx.Rollback()

	if makeDefault {
		_, err = tx.ExecContext(ctx,
			`UPDATE payment_methods SET is_default = FALSE, updated_at = $1
			 WHERE user_id = $2 AND is_active AND is_default`,
			m.UpdatedAt, m.UserID,
		)
		if err != nil {
			return errs.Persistence("payment_methods.demote", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO payment_methods (id, user_id, holder_name, card_brand, card_last4,
			exp_month, exp_year, token, card_fingerprint, is_default, is_active,
			created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE, $11, $12)`,
		m.ID, m.UserID, m.HolderName, m.Brand, m.Last4,
		m.ExpMonth, m.ExpYear, m.Token, m.Fingerprint, makeDefault,
		m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return errs.Persistence("payment_methods.insert", err)
	}

	if err := tx.Commit(); err != nil {
		return errs.Persistence("payment_methods.insert_commit", err)
	}
	return nil
}

const methodColumns = `id, user_id, holder_name, card_brand, card_last4,
	exp_month, exp_year, token, card_fingerprint, is_default, is_active,
	created_at, updated_at`

func scanMethod(scan func(dest ...any) error) (*payment.Method, error) {
	var m payment.Method
	err := scan(&m.ID, &m.UserID, &m.HolderName, &m.Brand, &m.Last4,
		&m.ExpMonth, &m.ExpYear, &m.Token, &m.Fingerprint, &m.IsDefault, &m.IsActive,
		&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Get returns an active method owned by the user.
func (s *PaymentMethodStore) Get(ctx context.Context, userID, id string) (*payment.Method, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+methodColumns+` FROM payment_methods
		 WHERE id = $1 AND user_id = $2 AND is_active`,
		id, userID,
	)
	m, err := scanMethod(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, payment.ErrMethodNotFound
	}
	if err != nil {
		return nil, errs.Persistence("payment_methods.get", err)
	}
	return m, nil
}

// List returns the user's active methods, default first, then newest first.
func (s *PaymentMethodStore) List(ctx context.Context, userID string) ([]payment.Method, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+methodColumns+` FROM payment_methods
		 WHERE user_id = $1 AND is_active
		 ORDER BY is_default DESC, created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, errs.Persistence("payment_methods.list", err)
	}
	defer rows.Close()

	var methods []payment.Method
	for rows.Next() {
		m, err := scanMethod(rows.Scan)
		if err != nil {
			return nil, errs.Persistence("payment_methods.list", err)
		}
		methods = append(methods, *m)
	}
	return methods, rows.Err()
}

// SetDefault demotes every other active method and promotes the target in
// one transaction. A missing, inactive, or foreign method is not found.
func (s *PaymentMethodStore) SetDefault(ctx context.Context, userID, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Persistence("payment_methods.set_default", err)
	}
	defer tx.Rollback()

	now := time.Now()
	res, err := tx.ExecContext(ctx,
		`UPDATE payment_methods SET is_default = TRUE, updated_at = $1
		 WHERE id = $2 AND user_id = $3 AND is_active`,
		now, id, userID,
	)
	if err != nil {
		return errs.Persistence("payment_methods.set_default", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errs.Persistence("payment_methods.set_default", err)
	}
	if affected == 0 {
		return payment.ErrMethodNotFound
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE payment_methods SET is_default = FALSE, updated_at = $1
		 WHERE user_id = $2 AND is_active AND is_default AND id <> $3`,
		now, userID, id,
	)
	if err != nil {
		return errs.Persistence("payment_methods.demote", err)
	}

	if err := tx.Commit(); err != nil {
		return errs.Persistence("payment_methods.set_default_commit", err)
	}
	return nil
}

// Deactivate soft-deletes the method. If it was the default and another
// active method remains, the most recently created one is promoted, all
// within the same transaction.
func (s *PaymentMethodStore) Deactivate(ctx context.Context, userID, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Persistence("payment_methods.deactivate", err)
	}
	defer tx.Rollback()

	now := time.Now()
	var wasDefault bool
	err = tx.QueryRowContext(ctx,
		`SELECT is_default FROM payment_methods
		 WHERE id = $1 AND user_id = $2 AND is_active
		 FOR UPDATE`,
		id, userID,
	).Scan(&wasDefault)
	if errors.Is(err, sql.ErrNoRows) {
		return payment.ErrMethodNotFound
	}
	if err != nil {
		return errs.Persistence("payment_methods.deactivate", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE payment_methods SET is_active = FALSE, is_default = FALSE, updated_at = $1
		 WHERE id = $2`,
		now, id,
	)
	if err != nil {
		return errs.Persistence("payment_methods.deactivate", err)
	}

	if wasDefault {
		_, err = tx.ExecContext(ctx,
			`UPDATE payment_methods SET is_default = TRUE, updated_at = $1
			 WHERE id = (
				SELECT id FROM payment_methods
				WHERE user_id = $2 AND is_active
				ORDER BY created_at DESC LIMIT 1
			 )`,
			now, userID,
		)
		if err != nil {
			return errs.Persistence("payment_methods.promote", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errs.Persistence("payment_methods.deactivate_commit", err)
	}
	return nil
}

// FingerprintExists reports whether the user already has an active method
// with the given card fingerprint.
func (s *PaymentMethodStore) FingerprintExists(ctx context.Context, userID, fp string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM payment_methods
			WHERE user_id = $1 AND card_fingerprint = $2 AND is_active
		 )`,
		userID, fp,
	).Scan(&exists)
	if err != nil {
		return false, errs.Persistence("payment_methods.fingerprint", err)
	}
	return exists, nil
}
