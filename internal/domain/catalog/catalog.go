// Package catalog is the narrow read interface onto the product catalog.
// The engine only needs display fields for order item snapshots; catalog
// CRUD lives elsewhere.
package catalog

import (
	"context"
	"fmt"

	"github.com/example/order-engine/internal/domain/errs"
)

var ErrProductNotFound = fmt.Errorf("product %w", errs.ErrNotFound)

type Product struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
	Image string `json:"image"`
}

// Store resolves product ids for snapshotting.
type Store interface {
	Get(ctx context.Context, id string) (*Product, error)
}
