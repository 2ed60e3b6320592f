package ledger

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/currency"

	"github.com/pricetrail/reconcile-cli/internal/model"
)

// DefaultDedupWindow suppresses repeat submissions of the same amount for
// the same (product, venue) pair.
const DefaultDedupWindow = 60 * time.Minute

// Submission is one incoming price observation.
type Submission struct {
	ProductID string  `json:"product_id"`
	VenueID   string  `json:"venue_id"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency,omitempty"`
}

// Ledger appends price observations, deduplicating identical amounts
// submitted within the dedup window.
type Ledger struct {
	store           PriceStore
	window          time.Duration
	defaultCurrency string
	now             func() time.Time
}

// Option configures the ledger.
type Option func(*Ledger)

// WithDedupWindow overrides the dedup window.
func WithDedupWindow(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.window = d
		}
	}
}

// WithDefaultCurrency overrides the currency applied when a submission
// omits one.
func WithDefaultCurrency(code string) Option {
	return func(l *Ledger) {
		if code != "" {
			l.defaultCurrency = code
		}
	}
}

// WithClock overrides the time source. Tests use this to simulate the
// window lapsing.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// New creates a price ledger.
func New(store PriceStore, opts ...Option) *Ledger {
	l := &Ledger{
		store:           store,
		window:          DefaultDedupWindow,
		defaultCurrency: "CAD",
		now:             time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Record appends a price observation. If the most recent price for the same
// (product, venue) pair was recorded within the dedup window with the exact
// same amount, the existing row is returned unchanged and created is false.
// An amount differing by any margin within the window is a new observation.
func (l *Ledger) Record(ctx context.Context, sub Submission) (*model.Price, bool, error) {
	if sub.ProductID == "" || sub.VenueID == "" {
		return nil, false, eris.Wrap(model.ErrInvalidInput, "ledger: product and venue are required")
	}
	if sub.Amount <= 0 {
		return nil, false, eris.Wrapf(model.ErrInvalidInput, "ledger: amount %f must be positive", sub.Amount)
	}

	code := sub.Currency
	if code == "" {
		code = l.defaultCurrency
	}
	if _, err := currency.ParseISO(code); err != nil {
		return nil, false, eris.Wrapf(model.ErrInvalidInput, "ledger: unknown currency %q", code)
	}

	latest, err := l.store.LatestForPair(ctx, sub.ProductID, sub.VenueID)
	if err != nil {
		return nil, false, eris.Wrap(err, "ledger: fetch latest price")
	}

	now := l.now()
	if latest != nil && latest.Amount == sub.Amount && now.Sub(latest.RecordedAt) < l.window {
		zap.L().Debug("ledger: duplicate submission suppressed",
			zap.String("product_id", sub.ProductID),
			zap.String("venue_id", sub.VenueID),
			zap.Float64("amount", sub.Amount),
		)
		return latest, false, nil
	}

	p := &model.Price{
		ProductID:     sub.ProductID,
		VenueID:       sub.VenueID,
		Amount:        sub.Amount,
		Currency:      code,
		RecordedAt:    now,
		CreditScore:   1.0,
		VerifiedCount: 0,
		FlaggedCount:  0,
	}
	if err := l.store.Insert(ctx, p); err != nil {
		return nil, false, eris.Wrap(err, "ledger: insert price")
	}

	return p, true, nil
}

// History returns the newest prices for a product at one venue.
func (l *Ledger) History(ctx context.Context, productID, venueID string, limit int) ([]model.Price, error) {
	prices, err := l.store.RecentForVenue(ctx, productID, venueID, limit)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: price history")
	}
	return prices, nil
}
