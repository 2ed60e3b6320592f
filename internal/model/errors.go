package model

import "errors"

// Sentinel errors shared across the engine. Callers test with errors.Is;
// stores and services wrap them with eris for context.
var (
	// ErrNotFound means a referenced receipt, line, product, or venue
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput means the request was rejected before any write.
	ErrInvalidInput = errors.New("invalid input")

	// ErrOracle means the normalization oracle failed after retries.
	// Fatal for the affected line only.
	ErrOracle = errors.New("normalization oracle failure")
)
