package model

import "time"

// Price is one crowd-submitted price observation. Rows are append-only;
// the ledger's dedup window returns an existing row instead of inserting.
type Price struct {
	ID            string    `json:"id"`
	ProductID     string    `json:"product_id"`
	VenueID       string    `json:"venue_id"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	RecordedAt    time.Time `json:"recorded_at"`
	CreditScore   float64   `json:"credit_score"`
	VerifiedCount int       `json:"verified_count"`
	FlaggedCount  int       `json:"flagged_count"`
}
