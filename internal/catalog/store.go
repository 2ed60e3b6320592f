// Package catalog maintains the canonical product registry: one normalized
// product per literal (rawName, merchant) pair.
package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/pricetrail/reconcile-cli/internal/model"
)

// ErrDuplicate is returned by Insert when another writer created the same
// (rawName, merchant) row first. Find-or-create re-fetches on this error.
var ErrDuplicate = errors.New("catalog: duplicate product")

// ProductStore defines persistence operations for normalized products.
type ProductStore interface {
	// GetByRawName looks up a product by the literal (rawName, merchant)
	// dedup key. Returns (nil, nil) when no row exists.
	GetByRawName(ctx context.Context, rawName, merchant string) (*model.NormalizedProduct, error)

	// GetByID fetches a product by ID. Returns (nil, nil) when no row exists.
	GetByID(ctx context.Context, id string) (*model.NormalizedProduct, error)

	// Insert creates a new product row and assigns its ID. Returns
	// ErrDuplicate (possibly wrapped) if the dedup key already exists.
	Insert(ctx context.Context, p *model.NormalizedProduct) error

	// RecordMatch increments matchCount and sets lastMatchedAt.
	RecordMatch(ctx context.Context, id string, at time.Time) error
}
