package lite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/pricetrail/reconcile-cli/internal/geo"
	"github.com/pricetrail/reconcile-cli/internal/ledger"
	"github.com/pricetrail/reconcile-cli/internal/model"
)

// PriceStore implements ledger.PriceStore on SQLite.
type PriceStore struct {
	db *sql.DB
}

var _ ledger.PriceStore = (*PriceStore)(nil)

const priceColumns = `id, product_id, venue_id, amount, currency, recorded_at,
	credit_score, verified_count, flagged_count`

func (s *PriceStore) LatestForPair(ctx context.Context, productID, venueID string) (*model.Price, error) {
	p := &model.Price{}
	err := s.db.QueryRowContext(ctx, `
		SELECT `+priceColumns+`
		FROM prices
		WHERE product_id = ? AND venue_id = ?
		ORDER BY recorded_at DESC
		LIMIT 1`, productID, venueID).Scan(priceDests(p)...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrap(err, "lite: latest price")
	}
	return p, nil
}

func (s *PriceStore) Insert(ctx context.Context, p *model.Price) error {
	p.ID = uuid.New().String()
	if p.RecordedAt.IsZero() {
		p.RecordedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO prices (id, product_id, venue_id, amount, currency, recorded_at, credit_score, verified_count, flagged_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.ProductID, p.VenueID, p.Amount, p.Currency, p.RecordedAt,
		p.CreditScore, p.VerifiedCount, p.FlaggedCount,
	)
	return eris.Wrap(err, "lite: insert price")
}

func (s *PriceStore) RecentForVenue(ctx context.Context, productID, venueID string, limit int) ([]model.Price, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+priceColumns+`
		FROM prices
		WHERE product_id = ? AND venue_id = ?
		ORDER BY recorded_at DESC
		LIMIT ?`, productID, venueID, limit)
	if err != nil {
		return nil, eris.Wrap(err, "lite: recent prices for venue")
	}
	defer rows.Close()

	var prices []model.Price
	for rows.Next() {
		var p model.Price
		if err := rows.Scan(priceDests(&p)...); err != nil {
			return nil, eris.Wrap(err, "lite: scan price")
		}
		prices = append(prices, p)
	}
	return prices, rows.Err()
}

func priceDests(p *model.Price) []any {
	return []any{
		&p.ID, &p.ProductID, &p.VenueID, &p.Amount, &p.Currency, &p.RecordedAt,
		&p.CreditScore, &p.VerifiedCount, &p.FlaggedCount,
	}
}

// GeoStore implements geo.Store on SQLite.
type GeoStore struct {
	db *sql.DB
}

var _ geo.Store = (*GeoStore)(nil)

func (s *GeoStore) PricesWithin(ctx context.Context, productID string, box geo.Box, limit int) ([]geo.PriceAtVenue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.`+joinedPriceColumns+`, v.name, v.latitude, v.longitude
		FROM prices p
		JOIN venues v ON v.id = p.venue_id
		WHERE p.product_id = ?
		  AND v.latitude IS NOT NULL AND v.longitude IS NOT NULL
		  AND v.latitude BETWEEN ? AND ?
		  AND v.longitude BETWEEN ? AND ?
		ORDER BY p.recorded_at DESC
		LIMIT ?`, productID, box.MinLat, box.MaxLat, box.MinLon, box.MaxLon, limit)
	if err != nil {
		return nil, eris.Wrap(err, "lite: prices within box")
	}
	return scanPricesAtVenues(rows)
}

func (s *GeoStore) RecentPrices(ctx context.Context, productID string, limit int) ([]geo.PriceAtVenue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.`+joinedPriceColumns+`, v.name, v.latitude, v.longitude
		FROM prices p
		JOIN venues v ON v.id = p.venue_id
		WHERE p.product_id = ?
		ORDER BY p.recorded_at DESC
		LIMIT ?`, productID, limit)
	if err != nil {
		return nil, eris.Wrap(err, "lite: recent prices")
	}
	return scanPricesAtVenues(rows)
}

const joinedPriceColumns = `id, p.product_id, p.venue_id, p.amount, p.currency, p.recorded_at,
	p.credit_score, p.verified_count, p.flagged_count`

func scanPricesAtVenues(rows *sql.Rows) ([]geo.PriceAtVenue, error) {
	defer rows.Close()

	var out []geo.PriceAtVenue
	for rows.Next() {
		var pv geo.PriceAtVenue
		dests := append(priceDests(&pv.Price), &pv.VenueName, &pv.Latitude, &pv.Longitude)
		if err := rows.Scan(dests...); err != nil {
			return nil, eris.Wrap(err, "lite: scan price at venue")
		}
		out = append(out, pv)
	}
	return out, rows.Err()
}
