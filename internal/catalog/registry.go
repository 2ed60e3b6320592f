package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pricetrail/reconcile-cli/internal/model"
)

// NewProduct carries the oracle's interpretation of a (rawName, merchant)
// pair, used when the pair has not been seen before.
type NewProduct struct {
	RawName         string
	Merchant        string
	ItemCode        string
	NormalizedName  string
	Brand           string
	Category        string
	ConfidenceScore float64
	IsDiscount      bool
	IsAdjustment    bool
}

// Registry deduplicates normalized products on the literal (rawName,
// merchant) pair. The raw string is matched exactly, not trimmed or
// case-folded; differently-cased raw text creates distinct rows.
type Registry struct {
	store ProductStore
	now   func() time.Time
}

// NewRegistry creates a product registry.
func NewRegistry(store ProductStore) *Registry {
	return &Registry{store: store, now: time.Now}
}

// FindOrCreate returns the canonical product for (rawName, merchant),
// creating it on first sighting. On a repeat sighting matchCount is
// incremented and lastMatchedAt updated; the stored normalizedName, brand,
// category, and confidence keep their first-seen values.
func (r *Registry) FindOrCreate(ctx context.Context, in NewProduct) (*model.NormalizedProduct, error) {
	if in.RawName == "" {
		return nil, eris.Wrap(model.ErrInvalidInput, "catalog: rawName is required")
	}

	existing, err := r.store.GetByRawName(ctx, in.RawName, in.Merchant)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: lookup product")
	}
	if existing != nil {
		return r.recordSighting(ctx, existing)
	}

	p := &model.NormalizedProduct{
		RawName:         in.RawName,
		Merchant:        in.Merchant,
		ItemCode:        in.ItemCode,
		NormalizedName:  in.NormalizedName,
		Brand:           in.Brand,
		Category:        in.Category,
		ConfidenceScore: in.ConfidenceScore,
		IsDiscount:      in.IsDiscount,
		IsAdjustment:    in.IsAdjustment,
		MatchCount:      1,
		LastMatchedAt:   r.now(),
	}

	err = r.store.Insert(ctx, p)
	if err == nil {
		zap.L().Debug("catalog: created product",
			zap.String("raw_name", in.RawName),
			zap.String("merchant", in.Merchant),
			zap.String("product_id", p.ID),
		)
		return p, nil
	}

	// A concurrent writer inserted the same key first; their row wins and
	// this sighting counts as a repeat.
	if errors.Is(err, ErrDuplicate) {
		existing, ferr := r.store.GetByRawName(ctx, in.RawName, in.Merchant)
		if ferr != nil {
			return nil, eris.Wrap(ferr, "catalog: re-fetch after duplicate insert")
		}
		if existing == nil {
			return nil, eris.New("catalog: duplicate insert but row not found")
		}
		return r.recordSighting(ctx, existing)
	}

	return nil, eris.Wrap(err, "catalog: insert product")
}

// Lookup fetches a product by ID, returning (nil, nil) when absent.
// Similarity candidates use this: an unknown similar-product ID is
// silently dropped, not an error.
func (r *Registry) Lookup(ctx context.Context, id string) (*model.NormalizedProduct, error) {
	p, err := r.store.GetByID(ctx, id)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: lookup by id")
	}
	return p, nil
}

// GetByID fetches a product, returning model.ErrNotFound when absent.
func (r *Registry) GetByID(ctx context.Context, id string) (*model.NormalizedProduct, error) {
	p, err := r.store.GetByID(ctx, id)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: get product")
	}
	if p == nil {
		return nil, eris.Wrapf(model.ErrNotFound, "catalog: product %s", id)
	}
	return p, nil
}

func (r *Registry) recordSighting(ctx context.Context, p *model.NormalizedProduct) (*model.NormalizedProduct, error) {
	at := r.now()
	if err := r.store.RecordMatch(ctx, p.ID, at); err != nil {
		return nil, eris.Wrap(err, "catalog: record match")
	}
	p.MatchCount++
	p.LastMatchedAt = at
	return p, nil
}
