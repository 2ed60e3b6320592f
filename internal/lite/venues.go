package lite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/pricetrail/reconcile-cli/internal/model"
	"github.com/pricetrail/reconcile-cli/internal/venue"
)

// VenueStore implements venue.VenueStore on SQLite.
type VenueStore struct {
	db *sql.DB
}

var _ venue.VenueStore = (*VenueStore)(nil)

const venueColumns = `id, name, full_address, city, province, latitude, longitude, place_id,
	created_at, updated_at`

func (s *VenueStore) GetByID(ctx context.Context, id string) (*model.Venue, error) {
	return s.queryOne(ctx, `SELECT `+venueColumns+` FROM venues WHERE id = ?`, "lite: get venue", id)
}

func (s *VenueStore) GetByPlaceID(ctx context.Context, placeID string) (*model.Venue, error) {
	return s.queryOne(ctx, `SELECT `+venueColumns+` FROM venues WHERE place_id = ?`,
		"lite: get venue by place id", placeID)
}

func (s *VenueStore) FindNearbyByName(ctx context.Context, name string, lat, lon, delta float64) (*model.Venue, error) {
	return s.queryOne(ctx, `
		SELECT `+venueColumns+`
		FROM venues
		WHERE latitude IS NOT NULL AND longitude IS NOT NULL
		  AND lower(name) = lower(?)
		  AND latitude BETWEEN ? - ? AND ? + ?
		  AND longitude BETWEEN ? - ? AND ? + ?
		ORDER BY created_at
		LIMIT 1`, "lite: find venue nearby",
		name, lat, delta, lat, delta, lon, delta, lon, delta)
}

func (s *VenueStore) FindByNameAddress(ctx context.Context, name, fullAddress string) (*model.Venue, error) {
	return s.queryOne(ctx, `
		SELECT `+venueColumns+`
		FROM venues
		WHERE lower(name) = lower(?) AND lower(full_address) = lower(?)
		ORDER BY created_at
		LIMIT 1`, "lite: find venue by name and address", name, fullAddress)
}

func (s *VenueStore) Insert(ctx context.Context, v *model.Venue) error {
	v.ID = uuid.New().String()
	now := time.Now().UTC()
	v.CreatedAt = now
	v.UpdatedAt = now

	var placeID *string
	if v.PlaceID != "" {
		placeID = &v.PlaceID
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO venues (id, name, full_address, city, province, latitude, longitude, place_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.Name, v.FullAddress, v.City, v.Province, v.Latitude, v.Longitude, placeID,
		v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return eris.Wrap(venue.ErrDuplicate, v.PlaceID)
		}
		return eris.Wrap(err, "lite: insert venue")
	}
	return nil
}

func (s *VenueStore) queryOne(ctx context.Context, query, msg string, args ...any) (*model.Venue, error) {
	v := &model.Venue{}
	var placeID *string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&v.ID, &v.Name, &v.FullAddress, &v.City, &v.Province,
		&v.Latitude, &v.Longitude, &placeID, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrap(err, msg)
	}
	if placeID != nil {
		v.PlaceID = *placeID
	}
	return v, nil
}
