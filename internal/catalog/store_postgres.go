package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/pricetrail/reconcile-cli/internal/db"
	"github.com/pricetrail/reconcile-cli/internal/model"
)

// PostgresStore implements ProductStore using pgx.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const productColumns = `id, raw_name, merchant, item_code, normalized_name, brand, category,
	confidence_score, is_discount, is_adjustment, match_count, last_matched_at,
	created_at, updated_at`

// GetByRawName fetches a product by its literal dedup key.
func (s *PostgresStore) GetByRawName(ctx context.Context, rawName, merchant string) (*model.NormalizedProduct, error) {
	p := &model.NormalizedProduct{}
	err := s.pool.QueryRow(ctx, `
		SELECT `+productColumns+`
		FROM normalized_products WHERE raw_name=$1 AND merchant=$2`, rawName, merchant).
		Scan(productDests(p)...)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "catalog: get by raw name %q", rawName)
	}
	return p, nil
}

// GetByID fetches a product by ID.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (*model.NormalizedProduct, error) {
	p := &model.NormalizedProduct{}
	err := s.pool.QueryRow(ctx, `
		SELECT `+productColumns+`
		FROM normalized_products WHERE id=$1`, id).
		Scan(productDests(p)...)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "catalog: get %s", id)
	}
	return p, nil
}

// Insert creates a new product row.
func (s *PostgresStore) Insert(ctx context.Context, p *model.NormalizedProduct) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO normalized_products (
			id, raw_name, merchant, item_code, normalized_name, brand, category,
			confidence_score, is_discount, is_adjustment, match_count, last_matched_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`,
		p.ID, p.RawName, p.Merchant, p.ItemCode, p.NormalizedName, p.Brand, p.Category,
		p.ConfidenceScore, p.IsDiscount, p.IsAdjustment, p.MatchCount, p.LastMatchedAt,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return eris.Wrapf(ErrDuplicate, "catalog: insert %q/%q", p.RawName, p.Merchant)
		}
		return eris.Wrap(err, "catalog: insert product")
	}
	return nil
}

// RecordMatch increments matchCount and sets lastMatchedAt.
func (s *PostgresStore) RecordMatch(ctx context.Context, id string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE normalized_products
		SET match_count = match_count + 1, last_matched_at = $2, updated_at = now()
		WHERE id = $1`, id, at)
	if err != nil {
		return eris.Wrapf(err, "catalog: record match %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(model.ErrNotFound, "catalog: product %s", id)
	}
	return nil
}

func productDests(p *model.NormalizedProduct) []any {
	return []any{
		&p.ID, &p.RawName, &p.Merchant, &p.ItemCode, &p.NormalizedName, &p.Brand, &p.Category,
		&p.ConfidenceScore, &p.IsDiscount, &p.IsAdjustment, &p.MatchCount, &p.LastMatchedAt,
		&p.CreatedAt, &p.UpdatedAt,
	}
}
