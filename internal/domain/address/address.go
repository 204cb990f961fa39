// Package address is the shipping address book collaborator. The engine
// reads addresses to embed an immutable snapshot in new orders; the
// one-default-per-user invariant is enforced inside the store.
package address

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/order-engine/internal/domain/errs"
)

var ErrAddressNotFound = fmt.Errorf("address %w", errs.ErrNotFound)

type Address struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Recipient  string    `json:"recipient"`
	Phone      string    `json:"phone"`
	Line1      string    `json:"line1"`
	Line2      string    `json:"line2,omitempty"`
	City       string    `json:"city"`
	Province   string    `json:"province"`
	PostalCode string    `json:"postal_code"`
	IsDefault  bool      `json:"is_default"`
	CreatedAt  time.Time `json:"created_at"`
}

// Snapshot serializes the shipping fields for embedding in an order row.
// The owner and bookkeeping fields are deliberately left out; the copy
// must stay meaningful even after the source address is edited or deleted.
func (a *Address) Snapshot() (json.RawMessage, error) {
	snap := struct {
		AddressID  string `json:"address_id"`
		Recipient  string `json:"recipient"`
		Phone      string `json:"phone"`
		Line1      string `json:"line1"`
		Line2      string `json:"line2,omitempty"`
		City       string `json:"city"`
		Province   string `json:"province"`
		PostalCode string `json:"postal_code"`
	}{a.ID, a.Recipient, a.Phone, a.Line1, a.Line2, a.City, a.Province, a.PostalCode}
	return json.Marshal(snap)
}

// Store is the address book persistence interface. Get scopes by owner:
// an address belonging to another user is indistinguishable from a
// missing one. SetDefault demotes all other addresses of the user and
// promotes the target in one atomic update.
type Store interface {
	Get(ctx context.Context, userID, id string) (*Address, error)
	List(ctx context.Context, userID string) ([]Address, error)
	SetDefault(ctx context.Context, userID, id string) error
}
