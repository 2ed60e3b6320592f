package normalize

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/pricetrail/reconcile-cli/internal/db"
	"github.com/pricetrail/reconcile-cli/internal/model"
)

// PostgresStore implements Store using pgx.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// CreateReceipt inserts a receipt and its lines in one transaction.
func (s *PostgresStore) CreateReceipt(ctx context.Context, r *model.Receipt, lines []model.ReceiptLine) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "normalize: begin create receipt")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	err = tx.QueryRow(ctx, `
		INSERT INTO receipts (id, merchant) VALUES ($1, $2)
		RETURNING created_at`, r.ID, r.Merchant).Scan(&r.CreatedAt)
	if err != nil {
		return eris.Wrap(err, "normalize: insert receipt")
	}

	for i := range lines {
		lines[i].ID = uuid.New().String()
		lines[i].ReceiptID = r.ID
		err = tx.QueryRow(ctx, `
			INSERT INTO receipt_lines (id, receipt_id, position, raw_name, item_code, is_discount_line, is_adjustment_line)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING created_at`,
			lines[i].ID, r.ID, i, lines[i].RawName, lines[i].ItemCode,
			lines[i].IsDiscountLine, lines[i].IsAdjustmentLine,
		).Scan(&lines[i].CreatedAt)
		if err != nil {
			return eris.Wrap(err, "normalize: insert receipt line")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "normalize: commit create receipt")
	}
	return nil
}

// GetReceipt fetches a receipt by ID.
func (s *PostgresStore) GetReceipt(ctx context.Context, id string) (*model.Receipt, error) {
	r := &model.Receipt{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, merchant, created_at FROM receipts WHERE id=$1`, id).
		Scan(&r.ID, &r.Merchant, &r.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "normalize: get receipt %s", id)
	}
	return r, nil
}

const lineColumns = `id, receipt_id, raw_name, item_code, is_discount_line, is_adjustment_line, created_at`

// GetLine fetches a receipt line by ID.
func (s *PostgresStore) GetLine(ctx context.Context, id string) (*model.ReceiptLine, error) {
	l := &model.ReceiptLine{}
	err := s.pool.QueryRow(ctx, `
		SELECT `+lineColumns+` FROM receipt_lines WHERE id=$1`, id).
		Scan(lineDests(l)...)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "normalize: get line %s", id)
	}
	return l, nil
}

// LinesForReceipt returns all lines of a receipt in insertion order.
func (s *PostgresStore) LinesForReceipt(ctx context.Context, receiptID string) ([]model.ReceiptLine, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+lineColumns+` FROM receipt_lines WHERE receipt_id=$1 ORDER BY position`, receiptID)
	if err != nil {
		return nil, eris.Wrap(err, "normalize: lines for receipt")
	}
	defer rows.Close()

	var lines []model.ReceiptLine
	for rows.Next() {
		var l model.ReceiptLine
		if err := rows.Scan(lineDests(&l)...); err != nil {
			return nil, eris.Wrap(err, "normalize: scan line")
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

const candidateColumns = `id, line_id, product_id, confidence_score, method, similarity_score, selected, created_at`

// CandidatesForLine returns all candidates for a line, confidence descending.
func (s *PostgresStore) CandidatesForLine(ctx context.Context, lineID string) ([]model.Candidate, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+candidateColumns+`
		FROM normalization_candidates
		WHERE line_id=$1
		ORDER BY confidence_score DESC, selected DESC, created_at`, lineID)
	if err != nil {
		return nil, eris.Wrap(err, "normalize: candidates for line")
	}
	defer rows.Close()

	var cands []model.Candidate
	for rows.Next() {
		var c model.Candidate
		if err := rows.Scan(&c.ID, &c.LineID, &c.ProductID, &c.ConfidenceScore,
			&c.Method, &c.SimilarityScore, &c.Selected, &c.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "normalize: scan candidate")
		}
		cands = append(cands, c)
	}
	return cands, rows.Err()
}

var candidateCopyColumns = []string{
	"id", "line_id", "product_id", "confidence_score", "method",
	"similarity_score", "selected", "created_at",
}

// InsertCandidates persists one line's candidates as a single COPY batch.
func (s *PostgresStore) InsertCandidates(ctx context.Context, cands []model.Candidate) error {
	if len(cands) == 0 {
		return nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(cands))
	for i := range cands {
		if cands[i].ID == "" {
			cands[i].ID = uuid.New().String()
		}
		cands[i].CreatedAt = now
		rows = append(rows, []any{
			cands[i].ID, cands[i].LineID, cands[i].ProductID, cands[i].ConfidenceScore,
			cands[i].Method, cands[i].SimilarityScore, cands[i].Selected, cands[i].CreatedAt,
		})
	}

	if _, err := db.CopyFrom(ctx, s.pool, "normalization_candidates", candidateCopyColumns, rows); err != nil {
		return eris.Wrap(err, "normalize: insert candidates")
	}
	return nil
}

// SelectCandidate unselects all candidates of the line, then selects the one
// pointing at productID.
func (s *PostgresStore) SelectCandidate(ctx context.Context, lineID, productID string) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "normalize: begin select candidate")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `
		UPDATE normalization_candidates SET selected = false WHERE line_id = $1`, lineID); err != nil {
		return 0, eris.Wrap(err, "normalize: unselect candidates")
	}

	tag, err := tx.Exec(ctx, `
		UPDATE normalization_candidates SET selected = true
		WHERE line_id = $1 AND product_id = $2`, lineID, productID)
	if err != nil {
		return 0, eris.Wrap(err, "normalize: select candidate")
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "normalize: commit select candidate")
	}
	return int(tag.RowsAffected()), nil
}

func lineDests(l *model.ReceiptLine) []any {
	return []any{
		&l.ID, &l.ReceiptID, &l.RawName, &l.ItemCode,
		&l.IsDiscountLine, &l.IsAdjustmentLine, &l.CreatedAt,
	}
}
