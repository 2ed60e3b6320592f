package lite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/pricetrail/reconcile-cli/internal/catalog"
	"github.com/pricetrail/reconcile-cli/internal/model"
)

// ProductStore implements catalog.ProductStore on SQLite.
type ProductStore struct {
	db *sql.DB
}

var _ catalog.ProductStore = (*ProductStore)(nil)

const productColumns = `id, raw_name, merchant, item_code, normalized_name, brand, category,
	confidence_score, is_discount, is_adjustment, match_count, last_matched_at,
	created_at, updated_at`

func (s *ProductStore) GetByRawName(ctx context.Context, rawName, merchant string) (*model.NormalizedProduct, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM normalized_products WHERE raw_name = ? AND merchant = ?`,
		rawName, merchant,
	)
	return scanProduct(row, "lite: get product by raw name")
}

func (s *ProductStore) GetByID(ctx context.Context, id string) (*model.NormalizedProduct, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM normalized_products WHERE id = ?`, id)
	return scanProduct(row, "lite: get product")
}

func (s *ProductStore) Insert(ctx context.Context, p *model.NormalizedProduct) error {
	p.ID = uuid.New().String()
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO normalized_products (
			id, raw_name, merchant, item_code, normalized_name, brand, category,
			confidence_score, is_discount, is_adjustment, match_count, last_matched_at,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.RawName, p.Merchant, p.ItemCode, p.NormalizedName, p.Brand, p.Category,
		p.ConfidenceScore, p.IsDiscount, p.IsAdjustment, p.MatchCount, p.LastMatchedAt,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return eris.Wrap(catalog.ErrDuplicate, p.RawName)
		}
		return eris.Wrap(err, "lite: insert product")
	}
	return nil
}

func (s *ProductStore) RecordMatch(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE normalized_products
		SET match_count = match_count + 1, last_matched_at = ?, updated_at = ?
		WHERE id = ?`, at.UTC(), time.Now().UTC(), id)
	if err != nil {
		return eris.Wrapf(err, "lite: record match %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "lite: record match rows")
	}
	if n == 0 {
		return eris.Wrapf(model.ErrNotFound, "product %s", id)
	}
	return nil
}

func scanProduct(row *sql.Row, msg string) (*model.NormalizedProduct, error) {
	p := &model.NormalizedProduct{}
	err := row.Scan(
		&p.ID, &p.RawName, &p.Merchant, &p.ItemCode, &p.NormalizedName, &p.Brand, &p.Category,
		&p.ConfidenceScore, &p.IsDiscount, &p.IsAdjustment, &p.MatchCount, &p.LastMatchedAt,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrap(err, msg)
	}
	return p, nil
}
