// Package payment is the tokenized card vault. Raw card numbers and CVVs
// are validated and immediately discarded; only holder name, brand, last
// four digits, expiry, a keyed fingerprint, and an opaque token persist.
package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/example/order-engine/internal/domain/errs"
	"github.com/google/uuid"
)

var ErrMethodNotFound = fmt.Errorf("payment method %w", errs.ErrNotFound)

// Method is a stored, tokenized card.
type Method struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	HolderName  string    `json:"holder_name"`
	Brand       Brand     `json:"card_brand"`
	Last4       string    `json:"card_last4"`
	ExpMonth    int       `json:"exp_month"`
	ExpYear     int       `json:"exp_year"`
	Token       string    `json:"-"`
	Fingerprint string    `json:"-"`
	IsDefault   bool      `json:"is_default"`
	IsActive    bool      `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CardInput is the raw card data submitted when adding a method. It is
// never persisted or logged.
type CardInput struct {
	HolderName string
	Number     string
	ExpMonth   int
	ExpYear    int
	CVV        string
	SetDefault bool
}

// Store is the vault persistence interface. All multi-row mutations
// (default demotion/promotion) are atomic: Insert with makeDefault
// demotes every other active method of the user in the same transaction,
// SetDefault swaps the default in one update, and Deactivate promotes
// the most recently created remaining active method when it removes the
// current default.
type Store interface {
	Insert(ctx context.Context, m *Method, makeDefault bool) error
	Get(ctx context.Context, userID, id string) (*Method, error)
	List(ctx context.Context, userID string) ([]Method, error)
	SetDefault(ctx context.Context, userID, id string) error
	Deactivate(ctx context.Context, userID, id string) error
	FingerprintExists(ctx context.Context, userID, fp string) (bool, error)
}

// Service implements the vault operations.
type Service struct {
	store  Store
	secret []byte
	now    func() time.Time
}

func NewService(store Store, vaultSecret string) *Service {
	return &Service{store: store, secret: []byte(vaultSecret), now: time.Now}
}

// AddMethod validates the card, tokenizes it, and stores the metadata.
// The full number and CVV are discarded before this function returns.
func (s *Service) AddMethod(ctx context.Context, userID string, in CardInput) (*Method, error) {
	number, brand, err := validateCard(in, s.now())
	if err != nil {
		return nil, err
	}

	fp := fingerprint(s.secret, number)
	exists, err := s.store.FingerprintExists(ctx, userID, fp)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errs.Invalid("card_number", "card already on file")
	}

	now := s.now()
	m := &Method{
		ID:          uuid.New().String(),
		UserID:      userID,
		HolderName:  in.HolderName,
		Brand:       brand,
		Last4:       number[len(number)-4:],
		ExpMonth:    in.ExpMonth,
		ExpYear:     in.ExpYear,
		Token:       "tok_" + uuid.New().String(),
		Fingerprint: fp,
		IsDefault:   in.SetDefault,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.Insert(ctx, m, in.SetDefault); err != nil {
		return nil, err
	}
	return m, nil
}

// SetDefault promotes the given active method and demotes all others.
func (s *Service) SetDefault(ctx context.Context, userID, methodID string) error {
	return s.store.SetDefault(ctx, userID, methodID)
}

// Deactivate soft-deletes the method. If it was the default, the store
// promotes the most recently created remaining active method.
func (s *Service) Deactivate(ctx context.Context, userID, methodID string) error {
	return s.store.Deactivate(ctx, userID, methodID)
}

// Get returns an active method owned by the user.
func (s *Service) Get(ctx context.Context, userID, methodID string) (*Method, error) {
	return s.store.Get(ctx, userID, methodID)
}

// List returns the user's active methods, default first, then newest first.
func (s *Service) List(ctx context.Context, userID string) ([]Method, error) {
	return s.store.List(ctx, userID)
}
