package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricetrail/reconcile-cli/internal/model"
)

func priceRows(t *testing.T) *pgxmock.Rows {
	t.Helper()
	return pgxmock.NewRows([]string{
		"id", "product_id", "venue_id", "amount", "currency", "recorded_at",
		"credit_score", "verified_count", "flagged_count",
	})
}

func TestPostgresStore_LatestForPair(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	mock.ExpectQuery("FROM prices").
		WithArgs("prod-1", "v-1").
		WillReturnRows(priceRows(t).
			AddRow("pr-1", "prod-1", "v-1", 4.99, "CAD", now, 1.0, 0, 0))

	store := NewPostgresStore(mock)
	p, err := store.LatestForPair(context.Background(), "prod-1", "v-1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 4.99, p.Amount)
	assert.Equal(t, "CAD", p.Currency)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LatestForPair_NoRows(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM prices").
		WithArgs("prod-1", "v-empty").
		WillReturnError(pgx.ErrNoRows)

	store := NewPostgresStore(mock)
	p, err := store.LatestForPair(context.Background(), "prod-1", "v-empty")
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Insert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO prices").
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	store := NewPostgresStore(mock)
	p := &model.Price{
		ProductID:   "prod-1",
		VenueID:     "v-1",
		Amount:      4.99,
		Currency:    "CAD",
		RecordedAt:  time.Now().UTC(),
		CreditScore: 1.0,
	}
	require.NoError(t, store.Insert(context.Background(), p))
	assert.NotEmpty(t, p.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecentForVenue(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	mock.ExpectQuery("FROM prices").
		WithArgs("prod-1", "v-1", 10).
		WillReturnRows(priceRows(t).
			AddRow("pr-2", "prod-1", "v-1", 5.49, "CAD", now, 1.0, 0, 0).
			AddRow("pr-1", "prod-1", "v-1", 4.99, "CAD", now.Add(-time.Hour), 1.0, 0, 0))

	store := NewPostgresStore(mock)
	prices, err := store.RecentForVenue(context.Background(), "prod-1", "v-1", 10)
	require.NoError(t, err)
	require.Len(t, prices, 2)
	assert.Equal(t, 5.49, prices[0].Amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}
