package geo

import (
	"context"

	"github.com/pricetrail/reconcile-cli/internal/model"
)

// PriceAtVenue is a price observation joined with its venue's location.
type PriceAtVenue struct {
	model.Price
	VenueName string   `json:"venue_name"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Store defines the read queries backing nearby-price search.
type Store interface {
	// PricesWithin returns prices for productID at venues with non-null
	// coordinates inside box, recordedAt descending, capped at limit.
	PricesWithin(ctx context.Context, productID string, box Box, limit int) ([]PriceAtVenue, error)

	// RecentPrices returns the newest prices for productID with no geo
	// filter at all, recordedAt descending, capped at limit.
	RecentPrices(ctx context.Context, productID string, limit int) ([]PriceAtVenue, error)
}
