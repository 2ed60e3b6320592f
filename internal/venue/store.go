// Package venue resolves loosely-specified store submissions to canonical
// venue records. "Venue" is a physical store location; the name avoids the
// clash with storage-layer "store" types.
package venue

import (
	"context"
	"errors"

	"github.com/pricetrail/reconcile-cli/internal/model"
)

// ErrDuplicate is returned by Insert when another writer created a venue
// with the same placeId first.
var ErrDuplicate = errors.New("venue: duplicate place id")

// VenueStore defines persistence operations for venues.
type VenueStore interface {
	// GetByID fetches a venue by ID. Returns (nil, nil) when no row exists.
	GetByID(ctx context.Context, id string) (*model.Venue, error)

	// GetByPlaceID fetches a venue by exact external place ID.
	// Returns (nil, nil) when no row exists.
	GetByPlaceID(ctx context.Context, placeID string) (*model.Venue, error)

	// FindNearbyByName returns the first venue whose name matches
	// case-insensitively and whose coordinates are within ±delta degrees
	// of (lat, lon) on both axes. Returns (nil, nil) when none match.
	FindNearbyByName(ctx context.Context, name string, lat, lon, delta float64) (*model.Venue, error)

	// FindByNameAddress returns the first venue matching case-insensitively
	// on (name, fullAddress). Returns (nil, nil) when none match.
	FindByNameAddress(ctx context.Context, name, fullAddress string) (*model.Venue, error)

	// Insert creates a new venue row and assigns its ID. Returns
	// ErrDuplicate (possibly wrapped) if the placeId already exists.
	Insert(ctx context.Context, v *model.Venue) error
}
