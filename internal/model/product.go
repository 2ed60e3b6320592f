package model

import "time"

// Normalization methods recorded on candidates. The primary candidate
// carries whatever method string the oracle reports; similarity-sourced
// candidates always use MethodSimilarity.
const (
	MethodSimilarity = "similarity_match"
	MethodUnknown    = "unknown"
)

// NormalizedProduct is the canonical interpretation of a (rawName, merchant)
// pair. The pair is the dedup key, matched on the literal raw string.
type NormalizedProduct struct {
	ID              string    `json:"id"`
	RawName         string    `json:"raw_name"`
	Merchant        string    `json:"merchant"`
	ItemCode        string    `json:"item_code,omitempty"`
	NormalizedName  string    `json:"normalized_name"`
	Brand           string    `json:"brand,omitempty"`
	Category        string    `json:"category,omitempty"`
	ConfidenceScore float64   `json:"confidence_score"`
	IsDiscount      bool      `json:"is_discount"`
	IsAdjustment    bool      `json:"is_adjustment"`
	MatchCount      int       `json:"match_count"`
	LastMatchedAt   time.Time `json:"last_matched_at"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Candidate is a scored link between one receipt line and one normalized
// product. For a given line exactly one candidate is selected once
// normalization has run.
type Candidate struct {
	ID              string    `json:"id"`
	LineID          string    `json:"line_id"`
	ProductID       string    `json:"product_id"`
	ConfidenceScore float64   `json:"confidence_score"`
	Method          string    `json:"method"`
	SimilarityScore *float64  `json:"similarity_score,omitempty"`
	Selected        bool      `json:"selected"`
	CreatedAt       time.Time `json:"created_at"`
}
