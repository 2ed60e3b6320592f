package venue

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pricetrail/reconcile-cli/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type mockVenueStore struct {
	mock.Mock
}

func (m *mockVenueStore) GetByID(ctx context.Context, id string) (*model.Venue, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Venue), args.Error(1)
}

func (m *mockVenueStore) GetByPlaceID(ctx context.Context, placeID string) (*model.Venue, error) {
	args := m.Called(ctx, placeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Venue), args.Error(1)
}

func (m *mockVenueStore) FindNearbyByName(ctx context.Context, name string, lat, lon, delta float64) (*model.Venue, error) {
	args := m.Called(ctx, name, lat, lon, delta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Venue), args.Error(1)
}

func (m *mockVenueStore) FindByNameAddress(ctx context.Context, name, fullAddress string) (*model.Venue, error) {
	args := m.Called(ctx, name, fullAddress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Venue), args.Error(1)
}

func (m *mockVenueStore) Insert(ctx context.Context, v *model.Venue) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}

func ptr(f float64) *float64 { return &f }

func TestFindOrCreate_PlaceIDWinsOverCoordinates(t *testing.T) {
	store := &mockVenueStore{}
	r := NewResolver(store)

	byPlace := &model.Venue{ID: "v-place", Name: "Walmart", PlaceID: "plc-1"}
	store.On("GetByPlaceID", mock.Anything, "plc-1").Return(byPlace, nil)

	v, created, err := r.FindOrCreate(context.Background(), model.SubmittedVenue{
		Name:      "Walmart",
		PlaceID:   "plc-1",
		Latitude:  ptr(43.65),
		Longitude: ptr(-79.38),
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "v-place", v.ID)
	// A place-id hit short-circuits; the coordinate tier never runs.
	store.AssertNotCalled(t, "FindNearbyByName", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFindOrCreate_CoordinateTier(t *testing.T) {
	store := &mockVenueStore{}
	r := NewResolver(store)

	nearby := &model.Venue{ID: "v-near", Name: "walmart"}
	store.On("FindNearbyByName", mock.Anything, "Walmart", 43.65, -79.38, 0.001).Return(nearby, nil)

	v, created, err := r.FindOrCreate(context.Background(), model.SubmittedVenue{
		Name:      "Walmart",
		Latitude:  ptr(43.65),
		Longitude: ptr(-79.38),
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "v-near", v.ID)
	store.AssertNotCalled(t, "FindByNameAddress", mock.Anything, mock.Anything, mock.Anything)
}

func TestFindOrCreate_AddressTier(t *testing.T) {
	store := &mockVenueStore{}
	r := NewResolver(store)

	byAddr := &model.Venue{ID: "v-addr", Name: "Walmart"}
	store.On("FindByNameAddress", mock.Anything, "Walmart", "100 Main St").Return(byAddr, nil)

	v, created, err := r.FindOrCreate(context.Background(), model.SubmittedVenue{
		Name:        "Walmart",
		FullAddress: "100 Main St",
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "v-addr", v.ID)
}

func TestFindOrCreate_NoTierMatchCreates(t *testing.T) {
	store := &mockVenueStore{}
	r := NewResolver(store)

	store.On("GetByPlaceID", mock.Anything, "plc-new").Return(nil, nil)
	store.On("Insert", mock.Anything, mock.MatchedBy(func(v *model.Venue) bool {
		return v.Name == "Walmart" && v.PlaceID == "plc-new"
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*model.Venue).ID = "v-new"
	}).Return(nil)

	v, created, err := r.FindOrCreate(context.Background(), model.SubmittedVenue{
		Name:        "Walmart",
		FullAddress: "100 Main St",
		Latitude:    ptr(43.65),
		Longitude:   ptr(-79.38),
		PlaceID:     "plc-new",
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, v.IsNew)
	assert.Equal(t, "v-new", v.ID)
	// An unmatched place id creates directly; it never falls through to the
	// coordinate or address tiers.
	store.AssertNotCalled(t, "FindNearbyByName", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "FindByNameAddress", mock.Anything, mock.Anything, mock.Anything)

	// Second submission with the same place id resolves without creating.
	store2 := &mockVenueStore{}
	r2 := NewResolver(store2)
	store2.On("GetByPlaceID", mock.Anything, "plc-new").Return(&model.Venue{ID: "v-new"}, nil)

	v2, created2, err := r2.FindOrCreate(context.Background(), model.SubmittedVenue{
		Name:    "Walmart",
		PlaceID: "plc-new",
	})
	require.NoError(t, err)
	assert.False(t, created2)
	assert.False(t, v2.IsNew)
	assert.Equal(t, "v-new", v2.ID)
}

func TestFindOrCreate_DistinctPlaceIDsStayDistinct(t *testing.T) {
	store := &mockVenueStore{}
	r := NewResolver(store)

	// "plc-b" is unknown even though a venue with the same name sits at the
	// same coordinates under "plc-a". The second submission must create its
	// own row, not geo-match the first.
	store.On("GetByPlaceID", mock.Anything, "plc-b").Return(nil, nil)
	store.On("Insert", mock.Anything, mock.MatchedBy(func(v *model.Venue) bool {
		return v.PlaceID == "plc-b"
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*model.Venue).ID = "v-b"
	}).Return(nil)

	v, created, err := r.FindOrCreate(context.Background(), model.SubmittedVenue{
		Name:      "Walmart",
		PlaceID:   "plc-b",
		Latitude:  ptr(49.2827),
		Longitude: ptr(-123.1207),
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "v-b", v.ID)
	store.AssertNotCalled(t, "FindNearbyByName", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFindOrCreate_ConcurrentDuplicatePlaceID(t *testing.T) {
	store := &mockVenueStore{}
	r := NewResolver(store)

	store.On("GetByPlaceID", mock.Anything, "plc-1").Return(nil, nil).Once()
	store.On("Insert", mock.Anything, mock.Anything).Return(ErrDuplicate)
	store.On("GetByPlaceID", mock.Anything, "plc-1").Return(&model.Venue{ID: "v-winner"}, nil).Once()

	v, created, err := r.FindOrCreate(context.Background(), model.SubmittedVenue{
		Name:    "Costco",
		PlaceID: "plc-1",
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "v-winner", v.ID)
}

func TestFindOrCreate_Validation(t *testing.T) {
	store := &mockVenueStore{}
	r := NewResolver(store)

	_, _, err := r.FindOrCreate(context.Background(), model.SubmittedVenue{})
	assert.True(t, errors.Is(err, model.ErrInvalidInput))

	_, _, err = r.FindOrCreate(context.Background(), model.SubmittedVenue{
		Name:     "Costco",
		Latitude: ptr(91),
	})
	assert.True(t, errors.Is(err, model.ErrInvalidInput))

	_, _, err = r.FindOrCreate(context.Background(), model.SubmittedVenue{
		Name:      "Costco",
		Longitude: ptr(-181),
	})
	assert.True(t, errors.Is(err, model.ErrInvalidInput))
}

func TestFindOrCreate_SingleCoordinateSkipsTier2(t *testing.T) {
	store := &mockVenueStore{}
	r := NewResolver(store)

	// Latitude alone is valid input but cannot drive a coordinate match.
	store.On("Insert", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		args.Get(1).(*model.Venue).ID = "v-1"
	}).Return(nil)

	_, created, err := r.FindOrCreate(context.Background(), model.SubmittedVenue{
		Name:     "Costco",
		Latitude: ptr(43.65),
	})
	require.NoError(t, err)
	assert.True(t, created)
	store.AssertNotCalled(t, "FindNearbyByName", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGet_NotFound(t *testing.T) {
	store := &mockVenueStore{}
	r := NewResolver(store)

	store.On("GetByID", mock.Anything, "missing").Return(nil, nil)

	_, err := r.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, model.ErrNotFound))
}
