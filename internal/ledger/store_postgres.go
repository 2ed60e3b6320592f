package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/pricetrail/reconcile-cli/internal/db"
	"github.com/pricetrail/reconcile-cli/internal/model"
)

// PostgresStore implements PriceStore using pgx.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const priceColumns = `id, product_id, venue_id, amount, currency, recorded_at,
	credit_score, verified_count, flagged_count`

// LatestForPair returns the most recent price for (productID, venueID).
func (s *PostgresStore) LatestForPair(ctx context.Context, productID, venueID string) (*model.Price, error) {
	p := &model.Price{}
	err := s.pool.QueryRow(ctx, `
		SELECT `+priceColumns+`
		FROM prices
		WHERE product_id=$1 AND venue_id=$2
		ORDER BY recorded_at DESC
		LIMIT 1`, productID, venueID).
		Scan(priceDests(p)...)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrap(err, "ledger: latest for pair")
	}
	return p, nil
}

// Insert appends a new price row.
func (s *PostgresStore) Insert(ctx context.Context, p *model.Price) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO prices (id, product_id, venue_id, amount, currency, recorded_at,
			credit_score, verified_count, flagged_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.ProductID, p.VenueID, p.Amount, p.Currency, p.RecordedAt,
		p.CreditScore, p.VerifiedCount, p.FlaggedCount,
	)
	if err != nil {
		return eris.Wrap(err, "ledger: insert price")
	}
	return nil
}

// RecentForVenue returns the newest prices for a product at one venue.
func (s *PostgresStore) RecentForVenue(ctx context.Context, productID, venueID string, limit int) ([]model.Price, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+priceColumns+`
		FROM prices
		WHERE product_id=$1 AND venue_id=$2
		ORDER BY recorded_at DESC
		LIMIT $3`, productID, venueID, limit)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: recent for venue")
	}
	defer rows.Close()
	return scanPrices(rows)
}

func priceDests(p *model.Price) []any {
	return []any{
		&p.ID, &p.ProductID, &p.VenueID, &p.Amount, &p.Currency, &p.RecordedAt,
		&p.CreditScore, &p.VerifiedCount, &p.FlaggedCount,
	}
}

func scanPrices(rows pgx.Rows) ([]model.Price, error) {
	var prices []model.Price
	for rows.Next() {
		var p model.Price
		if err := rows.Scan(priceDests(&p)...); err != nil {
			return nil, eris.Wrap(err, "ledger: scan price")
		}
		prices = append(prices, p)
	}
	return prices, rows.Err()
}
