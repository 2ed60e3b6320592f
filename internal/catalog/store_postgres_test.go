package catalog

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

func productRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "raw_name", "merchant", "item_code", "normalized_name", "brand", "category",
		"confidence_score", "is_discount", "is_adjustment", "match_count", "last_matched_at",
		"created_at", "updated_at",
	})
}

func TestPostgresGetByRawName(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM normalized_products WHERE raw_name=").
		WithArgs("ORGANIC APPLES", "Loblaws").
		WillReturnRows(productRows().AddRow(
			"prod-1", "ORGANIC APPLES", "Loblaws", "", "Organic Apples", "", "produce",
			0.92, false, false, 3, now, now, now,
		))

	store := NewPostgresStore(mock)
	p, err := store.GetByRawName(context.Background(), "ORGANIC APPLES", "Loblaws")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "prod-1", p.ID)
	assert.Equal(t, 3, p.MatchCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetByRawName_NoRows(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM normalized_products WHERE raw_name=").
		WithArgs("UNKNOWN", "Metro").
		WillReturnRows(productRows())

	store := NewPostgresStore(mock)
	p, err := store.GetByRawName(context.Background(), "UNKNOWN", "Metro")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestPostgresInsert_UniqueViolation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO normalized_products").
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	store := NewPostgresStore(mock)
	err = store.Insert(context.Background(), &model.NormalizedProduct{
		RawName:  "MILK 2%",
		Merchant: "Metro",
	})
	assert.True(t, errors.Is(err, ErrDuplicate))
}

func TestPostgresRecordMatch_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("UPDATE normalized_products").
		WithArgs("missing", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	store := NewPostgresStore(mock)
	err = store.RecordMatch(context.Background(), "missing", time.Now())
	assert.True(t, errors.Is(err, model.ErrNotFound))
}
