package venue

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pricetrail/reconcile-cli/internal/model"
)

// coordDelta is the half-width of the tier-2 match square in degrees,
// roughly a 100 m square at mid latitudes. A square, not a circle.
const coordDelta = 0.001

// Resolver handles venue deduplication and identity resolution.
type Resolver struct {
	store VenueStore
}

// NewResolver creates a venue resolver.
func NewResolver(store VenueStore) *Resolver {
	return &Resolver{store: store}
}

// FindOrCreate looks up an existing venue or creates a new one.
// Uses a three-tier cascade:
//  1. Exact external place ID match
//  2. Case-insensitive name + coordinates within ±0.001° on both axes
//  3. Case-insensitive name + full address
//
// A submission carrying a place ID is resolved by that ID alone: when tier 1
// misses, the ID names a venue we have not seen and a new row is created,
// even if a neighbour with the same name sits at the same coordinates.
// Tiers 2 and 3 only run for submissions without a place ID.
//
// Returns the venue and whether it was newly created; the returned venue's
// IsNew flag mirrors the bool and is never persisted.
func (r *Resolver) FindOrCreate(ctx context.Context, sub model.SubmittedVenue) (*model.Venue, bool, error) {
	if sub.Name == "" {
		return nil, false, eris.Wrap(model.ErrInvalidInput, "venue: name is required")
	}
	if err := validateCoordinates(sub); err != nil {
		return nil, false, err
	}

	// Tier 1: external place ID.
	if sub.PlaceID != "" {
		existing, err := r.store.GetByPlaceID(ctx, sub.PlaceID)
		if err != nil {
			return nil, false, eris.Wrap(err, "venue: resolve by place id")
		}
		if existing != nil {
			zap.L().Debug("venue: matched by place id",
				zap.String("place_id", sub.PlaceID),
				zap.String("venue_id", existing.ID),
			)
			return existing, false, nil
		}
	}

	// Tier 2: name + coordinates.
	if sub.PlaceID == "" && sub.HasCoordinates() {
		existing, err := r.store.FindNearbyByName(ctx, sub.Name, *sub.Latitude, *sub.Longitude, coordDelta)
		if err != nil {
			return nil, false, eris.Wrap(err, "venue: resolve by name and coordinates")
		}
		if existing != nil {
			zap.L().Debug("venue: matched by name and coordinates",
				zap.String("name", sub.Name),
				zap.String("venue_id", existing.ID),
			)
			return existing, false, nil
		}
	}

	// Tier 3: name + address.
	if sub.PlaceID == "" && sub.FullAddress != "" {
		existing, err := r.store.FindByNameAddress(ctx, sub.Name, sub.FullAddress)
		if err != nil {
			return nil, false, eris.Wrap(err, "venue: resolve by name and address")
		}
		if existing != nil {
			zap.L().Debug("venue: matched by name and address",
				zap.String("name", sub.Name),
				zap.String("venue_id", existing.ID),
			)
			return existing, false, nil
		}
	}

	// No tier matched: create.
	v := &model.Venue{
		Name:        sub.Name,
		FullAddress: sub.FullAddress,
		City:        sub.City,
		Province:    sub.Province,
		Latitude:    sub.Latitude,
		Longitude:   sub.Longitude,
		PlaceID:     sub.PlaceID,
	}

	err := r.store.Insert(ctx, v)
	if err != nil {
		// Two concurrent submissions for a brand-new venue with the same
		// placeId: the loser re-fetches the winner's row.
		if errors.Is(err, ErrDuplicate) && sub.PlaceID != "" {
			existing, ferr := r.store.GetByPlaceID(ctx, sub.PlaceID)
			if ferr != nil {
				return nil, false, eris.Wrap(ferr, "venue: re-fetch after duplicate insert")
			}
			if existing != nil {
				return existing, false, nil
			}
		}
		return nil, false, eris.Wrap(err, "venue: create")
	}

	zap.L().Info("venue: created new venue",
		zap.String("name", sub.Name),
		zap.String("venue_id", v.ID),
	)

	v.IsNew = true
	return v, true, nil
}

// Get fetches a venue, returning model.ErrNotFound when absent.
func (r *Resolver) Get(ctx context.Context, id string) (*model.Venue, error) {
	v, err := r.store.GetByID(ctx, id)
	if err != nil {
		return nil, eris.Wrap(err, "venue: get")
	}
	if v == nil {
		return nil, eris.Wrapf(model.ErrNotFound, "venue: %s", id)
	}
	return v, nil
}

func validateCoordinates(sub model.SubmittedVenue) error {
	// One coordinate without the other is allowed; tier 2 just won't run.
	if sub.Latitude != nil && (*sub.Latitude < -90 || *sub.Latitude > 90) {
		return eris.Wrapf(model.ErrInvalidInput, "venue: latitude %f out of range", *sub.Latitude)
	}
	if sub.Longitude != nil && (*sub.Longitude < -180 || *sub.Longitude > 180) {
		return eris.Wrapf(model.ErrInvalidInput, "venue: longitude %f out of range", *sub.Longitude)
	}
	return nil
}
