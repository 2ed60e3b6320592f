package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pricetrail/reconcile-cli/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type mockPriceStore struct {
	mock.Mock
}

func (m *mockPriceStore) LatestForPair(ctx context.Context, productID, venueID string) (*model.Price, error) {
	args := m.Called(ctx, productID, venueID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Price), args.Error(1)
}

func (m *mockPriceStore) Insert(ctx context.Context, p *model.Price) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *mockPriceStore) RecentForVenue(ctx context.Context, productID, venueID string, limit int) ([]model.Price, error) {
	args := m.Called(ctx, productID, venueID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Price), args.Error(1)
}

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestRecord_FirstObservation(t *testing.T) {
	store := &mockPriceStore{}
	l := New(store, WithClock(func() time.Time { return baseTime }))

	store.On("LatestForPair", mock.Anything, "prod-1", "v-1").Return(nil, nil)
	store.On("Insert", mock.Anything, mock.MatchedBy(func(p *model.Price) bool {
		return p.Amount == 4.99 && p.Currency == "CAD" && p.CreditScore == 1.0 &&
			p.RecordedAt.Equal(baseTime)
	})).Return(nil)

	p, created, err := l.Record(context.Background(), Submission{
		ProductID: "prod-1",
		VenueID:   "v-1",
		Amount:    4.99,
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "CAD", p.Currency)
	store.AssertExpectations(t)
}

func TestRecord_DuplicateWithinWindow(t *testing.T) {
	store := &mockPriceStore{}
	l := New(store, WithClock(func() time.Time { return baseTime }))

	existing := &model.Price{
		ID:         "price-1",
		ProductID:  "prod-1",
		VenueID:    "v-1",
		Amount:     4.99,
		Currency:   "CAD",
		RecordedAt: baseTime.Add(-30 * time.Minute),
	}
	store.On("LatestForPair", mock.Anything, "prod-1", "v-1").Return(existing, nil)

	p, created, err := l.Record(context.Background(), Submission{
		ProductID: "prod-1",
		VenueID:   "v-1",
		Amount:    4.99,
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "price-1", p.ID)
	store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestRecord_DifferentAmountWithinWindow(t *testing.T) {
	store := &mockPriceStore{}
	l := New(store, WithClock(func() time.Time { return baseTime }))

	existing := &model.Price{
		ID:         "price-1",
		Amount:     4.99,
		RecordedAt: baseTime.Add(-5 * time.Minute),
	}
	store.On("LatestForPair", mock.Anything, "prod-1", "v-1").Return(existing, nil)
	store.On("Insert", mock.Anything, mock.Anything).Return(nil)

	// Any difference in amount is a real observation, even one cent.
	_, created, err := l.Record(context.Background(), Submission{
		ProductID: "prod-1",
		VenueID:   "v-1",
		Amount:    4.98,
	})
	require.NoError(t, err)
	assert.True(t, created)
	store.AssertExpectations(t)
}

func TestRecord_SameAmountAfterWindow(t *testing.T) {
	store := &mockPriceStore{}
	l := New(store, WithClock(func() time.Time { return baseTime }))

	existing := &model.Price{
		ID:         "price-1",
		Amount:     4.99,
		RecordedAt: baseTime.Add(-61 * time.Minute),
	}
	store.On("LatestForPair", mock.Anything, "prod-1", "v-1").Return(existing, nil)
	store.On("Insert", mock.Anything, mock.Anything).Return(nil)

	_, created, err := l.Record(context.Background(), Submission{
		ProductID: "prod-1",
		VenueID:   "v-1",
		Amount:    4.99,
	})
	require.NoError(t, err)
	assert.True(t, created)
}

func TestRecord_ExplicitCurrencyKept(t *testing.T) {
	store := &mockPriceStore{}
	l := New(store, WithClock(func() time.Time { return baseTime }))

	store.On("LatestForPair", mock.Anything, "prod-1", "v-1").Return(nil, nil)
	store.On("Insert", mock.Anything, mock.MatchedBy(func(p *model.Price) bool {
		return p.Currency == "USD"
	})).Return(nil)

	p, _, err := l.Record(context.Background(), Submission{
		ProductID: "prod-1",
		VenueID:   "v-1",
		Amount:    3.50,
		Currency:  "USD",
	})
	require.NoError(t, err)
	assert.Equal(t, "USD", p.Currency)
}

func TestRecord_Validation(t *testing.T) {
	store := &mockPriceStore{}
	l := New(store)

	cases := []struct {
		name string
		sub  Submission
	}{
		{"missing product", Submission{VenueID: "v-1", Amount: 1}},
		{"missing venue", Submission{ProductID: "prod-1", Amount: 1}},
		{"zero amount", Submission{ProductID: "prod-1", VenueID: "v-1"}},
		{"negative amount", Submission{ProductID: "prod-1", VenueID: "v-1", Amount: -2}},
		{"bad currency", Submission{ProductID: "prod-1", VenueID: "v-1", Amount: 1, Currency: "XXXX"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := l.Record(context.Background(), tc.sub)
			assert.True(t, errors.Is(err, model.ErrInvalidInput))
		})
	}
	store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestHistory(t *testing.T) {
	store := &mockPriceStore{}
	l := New(store)

	store.On("RecentForVenue", mock.Anything, "prod-1", "v-1", 5).Return([]model.Price{
		{ID: "p-2", RecordedAt: baseTime},
		{ID: "p-1", RecordedAt: baseTime.Add(-time.Hour)},
	}, nil)

	prices, err := l.History(context.Background(), "prod-1", "v-1", 5)
	require.NoError(t, err)
	require.Len(t, prices, 2)
	assert.Equal(t, "p-2", prices[0].ID)
}
