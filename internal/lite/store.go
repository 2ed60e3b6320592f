// Package lite is a single-file SQLite backend for the reconciliation
// engine. It backs local development and the end-to-end tests; production
// deployments use the Postgres stores.
package lite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// Store owns the SQLite handle and hands out the typed sub-stores.
type Store struct {
	db *sql.DB
}

// Open opens a SQLite database at the given path and configures WAL mode.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "lite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "lite: exec %s", pragma)
		}
	}
	return &Store{db: db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS normalized_products (
	id               TEXT PRIMARY KEY,
	raw_name         TEXT NOT NULL,
	merchant         TEXT NOT NULL,
	item_code        TEXT NOT NULL DEFAULT '',
	normalized_name  TEXT NOT NULL,
	brand            TEXT NOT NULL DEFAULT '',
	category         TEXT NOT NULL DEFAULT '',
	confidence_score REAL NOT NULL DEFAULT 0,
	is_discount      INTEGER NOT NULL DEFAULT 0,
	is_adjustment    INTEGER NOT NULL DEFAULT 0,
	match_count      INTEGER NOT NULL DEFAULT 1,
	last_matched_at  DATETIME NOT NULL,
	created_at       DATETIME NOT NULL,
	updated_at       DATETIME NOT NULL,
	UNIQUE (raw_name, merchant)
);

CREATE TABLE IF NOT EXISTS venues (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	full_address TEXT NOT NULL DEFAULT '',
	city         TEXT NOT NULL DEFAULT '',
	province     TEXT NOT NULL DEFAULT '',
	latitude     REAL,
	longitude    REAL,
	place_id     TEXT,
	created_at   DATETIME NOT NULL,
	updated_at   DATETIME NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_venues_place_id
	ON venues(place_id) WHERE place_id IS NOT NULL;

CREATE TABLE IF NOT EXISTS prices (
	id             TEXT PRIMARY KEY,
	product_id     TEXT NOT NULL REFERENCES normalized_products(id),
	venue_id       TEXT NOT NULL REFERENCES venues(id),
	amount         REAL NOT NULL,
	currency       TEXT NOT NULL,
	recorded_at    DATETIME NOT NULL,
	credit_score   REAL NOT NULL DEFAULT 1.0,
	verified_count INTEGER NOT NULL DEFAULT 0,
	flagged_count  INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_prices_pair ON prices(product_id, venue_id, recorded_at DESC);

CREATE TABLE IF NOT EXISTS receipts (
	id         TEXT PRIMARY KEY,
	merchant   TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS receipt_lines (
	id                 TEXT PRIMARY KEY,
	receipt_id         TEXT NOT NULL REFERENCES receipts(id) ON DELETE CASCADE,
	position           INTEGER NOT NULL DEFAULT 0,
	raw_name           TEXT NOT NULL,
	item_code          TEXT NOT NULL DEFAULT '',
	is_discount_line   INTEGER NOT NULL DEFAULT 0,
	is_adjustment_line INTEGER NOT NULL DEFAULT 0,
	created_at         DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_receipt_lines_receipt ON receipt_lines(receipt_id, position);

CREATE TABLE IF NOT EXISTS normalization_candidates (
	id               TEXT PRIMARY KEY,
	line_id          TEXT NOT NULL REFERENCES receipt_lines(id) ON DELETE CASCADE,
	product_id       TEXT NOT NULL REFERENCES normalized_products(id),
	confidence_score REAL NOT NULL DEFAULT 0,
	method           TEXT NOT NULL,
	similarity_score REAL,
	selected         INTEGER NOT NULL DEFAULT 0,
	created_at       DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_candidates_line ON normalization_candidates(line_id, confidence_score DESC);
`

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return eris.Wrap(err, "lite: migrate")
}

// Close closes the underlying handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Products returns the product registry backend.
func (s *Store) Products() *ProductStore { return &ProductStore{db: s.db} }

// Venues returns the venue resolver backend.
func (s *Store) Venues() *VenueStore { return &VenueStore{db: s.db} }

// Prices returns the price ledger backend.
func (s *Store) Prices() *PriceStore { return &PriceStore{db: s.db} }

// Geo returns the nearby-price search backend.
func (s *Store) Geo() *GeoStore { return &GeoStore{db: s.db} }

// Receipts returns the receipt and candidate backend.
func (s *Store) Receipts() *ReceiptStore { return &ReceiptStore{db: s.db} }

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
