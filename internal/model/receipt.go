// Package model defines the shared domain types for the reconciliation engine.
package model

import "time"

// Receipt is one ingested receipt. Lines are immutable once created.
type Receipt struct {
	ID        string    `json:"id"`
	Merchant  string    `json:"merchant"`
	CreatedAt time.Time `json:"created_at"`
}

// ReceiptLine is one raw line of text extracted from a receipt.
type ReceiptLine struct {
	ID               string    `json:"id"`
	ReceiptID        string    `json:"receipt_id"`
	RawName          string    `json:"raw_name"`
	ItemCode         string    `json:"item_code,omitempty"`
	IsDiscountLine   bool      `json:"is_discount_line"`
	IsAdjustmentLine bool      `json:"is_adjustment_line"`
	CreatedAt        time.Time `json:"created_at"`
}

// Normalizable reports whether the line should go through normalization.
// Discount and adjustment lines are skipped silently; lines without raw
// text are skipped with a diagnostic.
func (l ReceiptLine) Normalizable() bool {
	return l.RawName != "" && !l.IsDiscountLine && !l.IsAdjustmentLine
}
