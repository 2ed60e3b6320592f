package venue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricetrail/reconcile-cli/internal/model"
)

func venueRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "name", "full_address", "city", "province", "latitude", "longitude", "place_id",
		"created_at", "updated_at",
	})
}

func TestPostgresFindNearbyByName(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	lat, lon := 43.65, -79.38
	placeID := "plc-1"
	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM venues").
		WithArgs("Walmart", 43.65, -79.38, 0.001).
		WillReturnRows(venueRows().AddRow(
			"v-1", "Walmart", "100 Main St", "Toronto", "ON", &lat, &lon, &placeID, now, now,
		))

	store := NewPostgresStore(mock)
	v, err := store.FindNearbyByName(context.Background(), "Walmart", 43.65, -79.38, 0.001)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "v-1", v.ID)
	assert.Equal(t, "plc-1", v.PlaceID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetByPlaceID_NoRows(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM venues WHERE place_id=").
		WithArgs("missing").
		WillReturnRows(venueRows())

	store := NewPostgresStore(mock)
	v, err := store.GetByPlaceID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestPostgresInsert_DuplicatePlaceID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO venues").
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	store := NewPostgresStore(mock)
	err = store.Insert(context.Background(), &model.Venue{Name: "Costco", PlaceID: "plc-1"})
	assert.True(t, errors.Is(err, ErrDuplicate))
}
