package normalize

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

func TestPostgresStore_CreateReceipt(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO receipts").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))
	mock.ExpectQuery("INSERT INTO receipt_lines").
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))
	mock.ExpectQuery("INSERT INTO receipt_lines").
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))
	mock.ExpectCommit()

	store := NewPostgresStore(mock)
	r := &model.Receipt{Merchant: "Loblaws"}
	lines := []model.ReceiptLine{
		{RawName: "ORGANIC APPLES"},
		{RawName: "COUPON", IsDiscountLine: true},
	}
	require.NoError(t, store.CreateReceipt(context.Background(), r, lines))

	assert.NotEmpty(t, r.ID)
	assert.NotEmpty(t, lines[0].ID)
	assert.Equal(t, r.ID, lines[1].ReceiptID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetReceipt_NoRows(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT id, merchant, created_at FROM receipts").
		WithArgs("r-missing").
		WillReturnError(pgx.ErrNoRows)

	store := NewPostgresStore(mock)
	r, err := store.GetReceipt(context.Background(), "r-missing")
	require.NoError(t, err)
	assert.Nil(t, r)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertCandidates(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"normalization_candidates"}, candidateCopyColumns).
		WillReturnResult(2)

	store := NewPostgresStore(mock)
	cands := []model.Candidate{
		{LineID: "l-1", ProductID: "prod-1", ConfidenceScore: 0.92, Method: "ai_normalization", Selected: true},
		{LineID: "l-1", ProductID: "prod-2", ConfidenceScore: 0.81, Method: model.MethodSimilarity},
	}
	require.NoError(t, store.InsertCandidates(context.Background(), cands))

	assert.NotEmpty(t, cands[0].ID)
	assert.NotEmpty(t, cands[1].ID)
	assert.False(t, cands[0].CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertCandidates_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)
	require.NoError(t, store.InsertCandidates(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SelectCandidate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE normalization_candidates SET selected = false").
		WithArgs("l-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))
	mock.ExpectExec("UPDATE normalization_candidates SET selected = true").
		WithArgs("l-1", "prod-2").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	store := NewPostgresStore(mock)
	n, err := store.SelectCandidate(context.Background(), "l-1", "prod-2")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CandidatesForLine(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	sim := 0.81
	rows := pgxmock.NewRows([]string{
		"id", "line_id", "product_id", "confidence_score", "method",
		"similarity_score", "selected", "created_at",
	}).
		AddRow("c-1", "l-1", "prod-1", 0.92, "ai_normalization", (*float64)(nil), true, now).
		AddRow("c-2", "l-1", "prod-2", 0.81, model.MethodSimilarity, &sim, false, now)

	mock.ExpectQuery("FROM normalization_candidates").
		WithArgs("l-1").
		WillReturnRows(rows)

	store := NewPostgresStore(mock)
	cands, err := store.CandidatesForLine(context.Background(), "l-1")
	require.NoError(t, err)
	require.Len(t, cands, 2)
	assert.True(t, cands[0].Selected)
	assert.Nil(t, cands[0].SimilarityScore)
	require.NotNil(t, cands[1].SimilarityScore)
	assert.Equal(t, 0.81, *cands[1].SimilarityScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}
