package geo

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Result caps per call site. The product-wide path and the venue-scoped
// path carry different caps; both are part of the read contract.
const (
	DefaultProductLimit = 15
	DefaultVenueLimit   = 10
)

// Query describes one nearby-price request.
type Query struct {
	ProductID     string  `json:"product_id"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	MaxDistanceKm float64 `json:"max_distance_km"`
}

// Search answers nearby-price queries with bounding-box filtering and a
// graceful fallback to unfiltered recent prices when the geo query fails.
type Search struct {
	store        Store
	productLimit int
	venueLimit   int
}

// Option configures the search.
type Option func(*Search)

// WithLimits overrides the per-call-site result caps.
func WithLimits(productLimit, venueLimit int) Option {
	return func(s *Search) {
		if productLimit > 0 {
			s.productLimit = productLimit
		}
		if venueLimit > 0 {
			s.venueLimit = venueLimit
		}
	}
}

// NewSearch creates a nearby-price search.
func NewSearch(store Store, opts ...Option) *Search {
	s := &Search{
		store:        store,
		productLimit: DefaultProductLimit,
		venueLimit:   DefaultVenueLimit,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NearbyPrices returns the newest prices for a product at venues inside the
// bounding box. On a geo query failure it degrades to the newest prices for
// the product with no geo filter; that degradation is logged, not surfaced.
func (s *Search) NearbyPrices(ctx context.Context, q Query) ([]PriceAtVenue, error) {
	return s.nearby(ctx, q, s.productLimit, false)
}

// NearbyVenuePrices returns the latest price per nearby venue for a product,
// newest first. Same box and fallback semantics as NearbyPrices, with the
// venue-scoped cap.
func (s *Search) NearbyVenuePrices(ctx context.Context, q Query) ([]PriceAtVenue, error) {
	return s.nearby(ctx, q, s.venueLimit, true)
}

func (s *Search) nearby(ctx context.Context, q Query, limit int, perVenue bool) ([]PriceAtVenue, error) {
	if q.ProductID == "" {
		return nil, eris.New("geo: product id is required")
	}

	box, err := BoundingBox(q.Latitude, q.Longitude, q.MaxDistanceKm)
	if err != nil {
		return nil, err
	}

	// Per-venue collapse happens here, so over-fetch the flat rows.
	fetch := limit
	if perVenue {
		fetch = limit * 4
	}

	prices, err := s.store.PricesWithin(ctx, q.ProductID, box, fetch)
	if err != nil {
		zap.L().Warn("geo: bounding-box query failed, falling back to recent prices",
			zap.String("product_id", q.ProductID),
			zap.Error(err),
		)
		return s.store.RecentPrices(ctx, q.ProductID, limit)
	}

	if perVenue {
		prices = latestPerVenue(prices, limit)
	}
	return prices, nil
}

// latestPerVenue keeps the first (newest) price per venue from a
// recordedAt-descending list.
func latestPerVenue(prices []PriceAtVenue, limit int) []PriceAtVenue {
	seen := make(map[string]bool, len(prices))
	out := make([]PriceAtVenue, 0, limit)
	for _, p := range prices {
		if seen[p.VenueID] {
			continue
		}
		seen[p.VenueID] = true
		out = append(out, p)
		if len(out) == limit {
			break
		}
	}
	return out
}
