package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/example/order-engine/internal/domain/catalog"
	"github.com/example/order-engine/internal/domain/errs"
)

// CatalogStore implements catalog.Store on PostgreSQL.
type CatalogStore struct {
	db *sql.DB
}

func NewCatalogStore(db *sql.DB) *CatalogStore {
	return &CatalogStore{db: db}
}

func (s *CatalogStore) Get(ctx context.Context, id string) (*catalog.Product, error) {
	var p catalog.Product
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, price, image FROM products WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Price, &p.Image)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, catalog.ErrProductNotFound
	}
	if err != nil {
		return nil, errs.Persistence("products.get", err)
	}
	return &p, nil
}
