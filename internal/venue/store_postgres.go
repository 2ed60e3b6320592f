package venue

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/pricetrail/reconcile-cli/internal/db"
	"github.com/pricetrail/reconcile-cli/internal/model"
)

// PostgresStore implements VenueStore using pgx.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const venueColumns = `id, name, full_address, city, province, latitude, longitude, place_id,
	created_at, updated_at`

// GetByID fetches a venue by ID.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (*model.Venue, error) {
	return s.queryOne(ctx, `SELECT `+venueColumns+` FROM venues WHERE id=$1`, "venue: get", id)
}

// GetByPlaceID fetches a venue by exact external place ID.
func (s *PostgresStore) GetByPlaceID(ctx context.Context, placeID string) (*model.Venue, error) {
	return s.queryOne(ctx, `SELECT `+venueColumns+` FROM venues WHERE place_id=$1`,
		"venue: get by place id", placeID)
}

// FindNearbyByName finds the first venue matching case-insensitively on name
// with coordinates inside the ±delta square around (lat, lon).
func (s *PostgresStore) FindNearbyByName(ctx context.Context, name string, lat, lon, delta float64) (*model.Venue, error) {
	return s.queryOne(ctx, `
		SELECT `+venueColumns+`
		FROM venues
		WHERE latitude IS NOT NULL AND longitude IS NOT NULL
		  AND lower(name) = lower($1)
		  AND latitude BETWEEN $2 - $4 AND $2 + $4
		  AND longitude BETWEEN $3 - $4 AND $3 + $4
		ORDER BY created_at
		LIMIT 1`, "venue: find nearby by name", name, lat, lon, delta)
}

// FindByNameAddress finds the first venue matching case-insensitively on
// (name, fullAddress).
func (s *PostgresStore) FindByNameAddress(ctx context.Context, name, fullAddress string) (*model.Venue, error) {
	return s.queryOne(ctx, `
		SELECT `+venueColumns+`
		FROM venues
		WHERE lower(name) = lower($1) AND lower(full_address) = lower($2)
		ORDER BY created_at
		LIMIT 1`, "venue: find by name and address", name, fullAddress)
}

// Insert creates a new venue row.
func (s *PostgresStore) Insert(ctx context.Context, v *model.Venue) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO venues (id, name, full_address, city, province, latitude, longitude, place_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''))
		RETURNING created_at, updated_at`,
		v.ID, v.Name, v.FullAddress, v.City, v.Province, v.Latitude, v.Longitude, v.PlaceID,
	).Scan(&v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return eris.Wrapf(ErrDuplicate, "venue: insert place_id %q", v.PlaceID)
		}
		return eris.Wrap(err, "venue: insert")
	}
	return nil
}

func (s *PostgresStore) queryOne(ctx context.Context, sql, wrap string, args ...any) (*model.Venue, error) {
	v := &model.Venue{}
	var placeID *string
	err := s.pool.QueryRow(ctx, sql, args...).Scan(
		&v.ID, &v.Name, &v.FullAddress, &v.City, &v.Province,
		&v.Latitude, &v.Longitude, &placeID,
		&v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrap(err, wrap)
	}
	if placeID != nil {
		v.PlaceID = *placeID
	}
	return v, nil
}
