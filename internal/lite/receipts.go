package lite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/pricetrail/reconcile-cli/internal/model"
	"github.com/pricetrail/reconcile-cli/internal/normalize"
)

// ReceiptStore implements normalize.Store on SQLite.
type ReceiptStore struct {
	db *sql.DB
}

var _ normalize.Store = (*ReceiptStore)(nil)

func (s *ReceiptStore) CreateReceipt(ctx context.Context, r *model.Receipt, lines []model.ReceiptLine) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	r.CreatedAt = time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "lite: begin create receipt")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO receipts (id, merchant, created_at) VALUES (?, ?, ?)`,
		r.ID, r.Merchant, r.CreatedAt,
	); err != nil {
		return eris.Wrap(err, "lite: insert receipt")
	}

	for i := range lines {
		lines[i].ID = uuid.New().String()
		lines[i].ReceiptID = r.ID
		lines[i].CreatedAt = r.CreatedAt
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO receipt_lines (id, receipt_id, position, raw_name, item_code, is_discount_line, is_adjustment_line, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			lines[i].ID, r.ID, i, lines[i].RawName, lines[i].ItemCode,
			lines[i].IsDiscountLine, lines[i].IsAdjustmentLine, lines[i].CreatedAt,
		); err != nil {
			return eris.Wrap(err, "lite: insert receipt line")
		}
	}

	return eris.Wrap(tx.Commit(), "lite: commit create receipt")
}

func (s *ReceiptStore) GetReceipt(ctx context.Context, id string) (*model.Receipt, error) {
	r := &model.Receipt{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, merchant, created_at FROM receipts WHERE id = ?`, id).
		Scan(&r.ID, &r.Merchant, &r.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrap(err, "lite: get receipt")
	}
	return r, nil
}

const lineColumns = `id, receipt_id, raw_name, item_code, is_discount_line, is_adjustment_line, created_at`

func (s *ReceiptStore) GetLine(ctx context.Context, id string) (*model.ReceiptLine, error) {
	l := &model.ReceiptLine{}
	err := s.db.QueryRowContext(ctx,
		`SELECT `+lineColumns+` FROM receipt_lines WHERE id = ?`, id).
		Scan(&l.ID, &l.ReceiptID, &l.RawName, &l.ItemCode,
			&l.IsDiscountLine, &l.IsAdjustmentLine, &l.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrap(err, "lite: get line")
	}
	return l, nil
}

func (s *ReceiptStore) LinesForReceipt(ctx context.Context, receiptID string) ([]model.ReceiptLine, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+lineColumns+` FROM receipt_lines WHERE receipt_id = ? ORDER BY position`, receiptID)
	if err != nil {
		return nil, eris.Wrap(err, "lite: lines for receipt")
	}
	defer rows.Close()

	var lines []model.ReceiptLine
	for rows.Next() {
		var l model.ReceiptLine
		if err := rows.Scan(&l.ID, &l.ReceiptID, &l.RawName, &l.ItemCode,
			&l.IsDiscountLine, &l.IsAdjustmentLine, &l.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "lite: scan line")
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (s *ReceiptStore) CandidatesForLine(ctx context.Context, lineID string) ([]model.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, line_id, product_id, confidence_score, method, similarity_score, selected, created_at
		FROM normalization_candidates
		WHERE line_id = ?
		ORDER BY confidence_score DESC, selected DESC, created_at`, lineID)
	if err != nil {
		return nil, eris.Wrap(err, "lite: candidates for line")
	}
	defer rows.Close()

	var cands []model.Candidate
	for rows.Next() {
		var c model.Candidate
		if err := rows.Scan(&c.ID, &c.LineID, &c.ProductID, &c.ConfidenceScore,
			&c.Method, &c.SimilarityScore, &c.Selected, &c.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "lite: scan candidate")
		}
		cands = append(cands, c)
	}
	return cands, rows.Err()
}

func (s *ReceiptStore) InsertCandidates(ctx context.Context, cands []model.Candidate) error {
	if len(cands) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "lite: begin insert candidates")
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	for i := range cands {
		if cands[i].ID == "" {
			cands[i].ID = uuid.New().String()
		}
		cands[i].CreatedAt = now
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO normalization_candidates (id, line_id, product_id, confidence_score, method, similarity_score, selected, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			cands[i].ID, cands[i].LineID, cands[i].ProductID, cands[i].ConfidenceScore,
			cands[i].Method, cands[i].SimilarityScore, cands[i].Selected, cands[i].CreatedAt,
		); err != nil {
			return eris.Wrap(err, "lite: insert candidate")
		}
	}

	return eris.Wrap(tx.Commit(), "lite: commit insert candidates")
}

func (s *ReceiptStore) SelectCandidate(ctx context.Context, lineID, productID string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "lite: begin select candidate")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`UPDATE normalization_candidates SET selected = 0 WHERE line_id = ?`, lineID); err != nil {
		return 0, eris.Wrap(err, "lite: unselect candidates")
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE normalization_candidates SET selected = 1 WHERE line_id = ? AND product_id = ?`,
		lineID, productID)
	if err != nil {
		return 0, eris.Wrap(err, "lite: select candidate")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "lite: select candidate rows")
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "lite: commit select candidate")
	}
	return int(n), nil
}
