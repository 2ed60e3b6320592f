// Package normalize turns raw receipt lines into ranked normalization
// candidates backed by the canonical product registry.
package normalize

import (
	"context"

	"github.com/pricetrail/reconcile-cli/internal/model"
)

// Store defines persistence operations for receipts, lines, and candidates.
type Store interface {
	// CreateReceipt inserts a receipt with its lines, assigning IDs.
	CreateReceipt(ctx context.Context, r *model.Receipt, lines []model.ReceiptLine) error

	// GetReceipt fetches a receipt by ID. Returns (nil, nil) when absent.
	GetReceipt(ctx context.Context, id string) (*model.Receipt, error)

	// GetLine fetches a receipt line by ID. Returns (nil, nil) when absent.
	GetLine(ctx context.Context, id string) (*model.ReceiptLine, error)

	// LinesForReceipt returns all lines of a receipt in insertion order.
	LinesForReceipt(ctx context.Context, receiptID string) ([]model.ReceiptLine, error)

	// CandidatesForLine returns all candidates for a line, confidence
	// descending.
	CandidatesForLine(ctx context.Context, lineID string) ([]model.Candidate, error)

	// InsertCandidates persists one line's candidates as a single batch.
	InsertCandidates(ctx context.Context, cands []model.Candidate) error

	// SelectCandidate unselects every candidate of the line, then selects
	// the one pointing at productID. Reports how many rows were selected.
	SelectCandidate(ctx context.Context, lineID, productID string) (int, error)
}
