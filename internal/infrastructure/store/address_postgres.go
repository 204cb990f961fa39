package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/example/order-engine/internal/domain/address"
	"github.com/example/order-engine/internal/domain/errs"
)

// AddressStore implements address.Store on PostgreSQL.
type AddressStore struct {
	db *sql.DB
}

func NewAddressStore(db *sql.DB) *AddressStore {
	return &AddressStore{db: db}
}

const addressColumns = `id, user_id, recipient, phone, line1, line2, city,
	province, postal_code, is_default, created_at`

// Get returns an address owned by the user.
func (s *AddressStore) Get(ctx context.Context, userID, id string) (*address.Address, error) {
	var a address.Address
	err := s.db.QueryRowContext(ctx,
		`SELECT `+addressColumns+` FROM addresses WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(&a.ID, &a.UserID, &a.Recipient, &a.Phone, &a.Line1, &a.Line2, &a.City,
		&a.Province, &a.PostalCode, &a.IsDefault, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, address.ErrAddressNotFound
	}
	if err != nil {
		return nil, errs.Persistence("addresses.get", err)
	}
	return &a, nil
}

// List returns the user's addresses, default first, then newest first.
func (s *AddressStore) List(ctx context.Context, userID string) ([]address.Address, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+addressColumns+` FROM addresses
		 WHERE user_id = $1
		 ORDER BY is_default DESC, created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, errs.Persistence("addresses.list", err)
	}
	defer rows.Close()

	var addrs []address.Address
	for rows.Next() {
		var a address.Address
		err := rows.Scan(&a.ID, &a.UserID, &a.Recipient, &a.Phone, &a.Line1, &a.Line2, &a.City,
			&a.Province, &a.PostalCode, &a.IsDefault, &a.CreatedAt)
		if err != nil {
			return nil, errs.Persistence("addresses.list", err)
		}
		addrs = append(addrs, a)
	}
	return addrs, rows.Err()
}

// SetDefault promotes the target address and demotes the rest in one
// transaction, preserving the one-default-per-user invariant.
func (s *AddressStore) SetDefault(ctx context.Context, userID, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Persistence("addresses.set_default", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE addresses SET is_default = TRUE WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return errs.Persistence("addresses.set_default", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errs.Persistence("addresses.set_default", err)
	}
	if affected == 0 {
		return address.ErrAddressNotFound
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE addresses SET is_default = FALSE
		 WHERE user_id = $1 AND is_default AND id <> $2`,
		userID, id,
	)
	if err != nil {
		return errs.Persistence("addresses.demote", err)
	}

	if err := tx.Commit(); err != nil {
		return errs.Persistence("addresses.set_default_commit", err)
	}
	return nil
}
