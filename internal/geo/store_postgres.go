package geo

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/pricetrail/reconcile-cli/internal/db"
)

// PostgresStore implements Store using pgx.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const priceVenueColumns = `p.id, p.product_id, p.venue_id, p.amount, p.currency, p.recorded_at,
	p.credit_score, p.verified_count, p.flagged_count,
	v.name, v.latitude, v.longitude`

// PricesWithin returns prices at venues with coordinates inside the box.
func (s *PostgresStore) PricesWithin(ctx context.Context, productID string, box Box, limit int) ([]PriceAtVenue, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+priceVenueColumns+`
		FROM prices p
		JOIN venues v ON v.id = p.venue_id
		WHERE p.product_id = $1
		  AND v.latitude IS NOT NULL AND v.longitude IS NOT NULL
		  AND v.latitude BETWEEN $2 AND $3
		  AND v.longitude BETWEEN $4 AND $5
		ORDER BY p.recorded_at DESC
		LIMIT $6`,
		productID, box.MinLat, box.MaxLat, box.MinLon, box.MaxLon, limit)
	if err != nil {
		return nil, eris.Wrap(err, "geo: prices within box")
	}
	defer rows.Close()
	return scanPriceVenues(rows)
}

// RecentPrices returns the newest prices for a product with no geo filter.
func (s *PostgresStore) RecentPrices(ctx context.Context, productID string, limit int) ([]PriceAtVenue, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+priceVenueColumns+`
		FROM prices p
		JOIN venues v ON v.id = p.venue_id
		WHERE p.product_id = $1
		ORDER BY p.recorded_at DESC
		LIMIT $2`, productID, limit)
	if err != nil {
		return nil, eris.Wrap(err, "geo: recent prices")
	}
	defer rows.Close()
	return scanPriceVenues(rows)
}

func scanPriceVenues(rows pgx.Rows) ([]PriceAtVenue, error) {
	var prices []PriceAtVenue
	for rows.Next() {
		var p PriceAtVenue
		if err := rows.Scan(
			&p.ID, &p.ProductID, &p.VenueID, &p.Amount, &p.Currency, &p.RecordedAt,
			&p.CreditScore, &p.VerifiedCount, &p.FlaggedCount,
			&p.VenueName, &p.Latitude, &p.Longitude,
		); err != nil {
			return nil, eris.Wrap(err, "geo: scan price")
		}
		prices = append(prices, p)
	}
	return prices, rows.Err()
}
