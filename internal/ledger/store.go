// Package ledger records crowd-submitted price observations with a
// short-window duplicate suppressor.
package ledger

import (
	"context"

	"github.com/pricetrail/reconcile-cli/internal/model"
)

// PriceStore defines persistence operations for price observations.
type PriceStore interface {
	// LatestForPair returns the most recent price for (productID, venueID).
	// Returns (nil, nil) when the pair has no history.
	LatestForPair(ctx context.Context, productID, venueID string) (*model.Price, error)

	// Insert appends a new price row and assigns its ID.
	Insert(ctx context.Context, p *model.Price) error

	// RecentForVenue returns the newest prices for a product at one venue,
	// recordedAt descending.
	RecentForVenue(ctx context.Context, productID, venueID string, limit int) ([]model.Price, error)
}
