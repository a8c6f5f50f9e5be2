package database

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jerry-enebeli/orderrelay/internal/apierror"
	"github.com/jerry-enebeli/orderrelay/model"
)

var entryColumnNames = []string{"id", "batch_id", "customer_id", "customer_name", "customer_phone", "order_index",
	"order_data", "scheduled_time", "status", "bill_id", "total_amount", "error_message", "processed_at",
	"created_at", "updated_at"}

func TestFetchEligibleEntries_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	now := time.Now()

	rows := sqlmock.NewRows(entryColumnNames).
		AddRow(int64(7), "batch-1", int64(42), "An", "0900", int64(1), []byte(`{"depotId":1}`), now, "pending", "", "0", "", nil, now, now).
		AddRow(int64(3), "batch-1", int64(43), "Binh", "0901", int64(2), []byte(`"{\"depotId\":1}"`), now, "pending", "", "0", "", nil, now, now)

	mock.ExpectQuery(regexp.QuoteMeta("FROM orders_queue") + ".*" + regexp.QuoteMeta("WHERE status = $1 AND scheduled_time <= $2") + ".*" + regexp.QuoteMeta("ORDER BY order_index ASC") + ".*LIMIT").
		WithArgs("pending", now, 10).
		WillReturnRows(rows)

	entries, err := ds.FetchEligibleEntries(context.Background(), now, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(7), entries[0].ID)
	assert.Equal(t, int64(1), entries[0].OrderIndex)
	assert.Equal(t, model.StatusPending, entries[0].Status)
	assert.Equal(t, "batch-1", entries[0].BatchID)
	assert.JSONEq(t, `{"depotId":1}`, string(entries[0].OrderData))
	assert.Nil(t, entries[0].ProcessedAt)
	assert.True(t, entries[0].TotalAmount.IsZero())
	assert.Equal(t, int64(3), entries[1].ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchEligibleEntries_Empty(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	mock.ExpectQuery("FROM orders_queue").WillReturnRows(sqlmock.NewRows(entryColumnNames))

	entries, err := ds.FetchEligibleEntries(context.Background(), time.Now(), 10)
	assert.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchEligibleEntries_Failure(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	mock.ExpectQuery("FROM orders_queue").WillReturnError(errors.New("connection refused"))

	entries, err := ds.FetchEligibleEntries(context.Background(), time.Now(), 10)
	assert.Nil(t, entries)
	var apiErr apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierror.ErrInternalServer, apiErr.Code)
}

func TestClaimEntry(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	claimQuery := regexp.QuoteMeta("UPDATE orders_queue") + ".*" + regexp.QuoteMeta("WHERE id = $2 AND status = $3")

	mock.ExpectExec(claimQuery).
		WithArgs("processing", int64(7), "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(claimQuery).
		WithArgs("processing", int64(8), "pending").
		WillReturnResult(sqlmock.NewResult(0, 0))

	claimed, err := ds.ClaimEntry(context.Background(), 7)
	assert.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = ds.ClaimEntry(context.Background(), 8)
	assert.NoError(t, err)
	assert.False(t, claimed, "a zero row update means another invocation owns the entry")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimEntry_Failure(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	mock.ExpectExec("UPDATE orders_queue").WillReturnError(errors.New("deadlock"))

	claimed, err := ds.ClaimEntry(context.Background(), 7)
	assert.Error(t, err)
	assert.False(t, claimed)
}

func TestFinalizeEntry_Completed(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	f := model.NewFinalization(true, time.Now(), "B1001", decimal.NewNullDecimal(decimal.NewFromInt(150000)), "")

	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders_queue SET status = $1, processed_at = $2, updated_at = NOW(), bill_id = $3, total_amount = $4 WHERE id = $5 AND status = $6")).
		WithArgs("completed", sqlmock.AnyArg(), "B1001", "150000", int64(7), "processing").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = ds.FinalizeEntry(context.Background(), 7, f)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinalizeEntry_PreservesTotalAmount(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	f := model.NewFinalization(true, time.Now(), "B1002", decimal.NewNullDecimal(decimal.Zero), "")

	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders_queue SET status = $1, processed_at = $2, updated_at = NOW(), bill_id = $3 WHERE id = $4 AND status = $5")).
		WithArgs("completed", sqlmock.AnyArg(), "B1002", int64(7), "processing").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = ds.FinalizeEntry(context.Background(), 7, f)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinalizeEntry_Failed(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	f := model.NewFinalization(false, time.Now(), "", decimal.NullDecimal{}, "Network error: timeout")

	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders_queue SET status = $1, processed_at = $2, updated_at = NOW(), error_message = $3 WHERE id = $4 AND status = $5")).
		WithArgs("failed", sqlmock.AnyArg(), "Network error: timeout", int64(9), "processing").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = ds.FinalizeEntry(context.Background(), 9, f)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinalizeEntry_NotProcessing(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	f := model.NewFinalization(false, time.Now(), "", decimal.NullDecimal{}, "Unexpected error: boom")

	mock.ExpectExec("UPDATE orders_queue").WillReturnResult(sqlmock.NewResult(0, 0))

	err = ds.FinalizeEntry(context.Background(), 9, f)
	var apiErr apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierror.ErrConflict, apiErr.Code)
}

func TestFinalizeEntry_RejectsNonTerminalStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	err = ds.FinalizeEntry(context.Background(), 9, model.Finalization{Status: model.StatusPending, ProcessedAt: time.Now()})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetEntry(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	now := time.Now()

	rows := sqlmock.NewRows(entryColumnNames).
		AddRow(int64(7), "batch-1", int64(42), "An", "0900", int64(1), []byte(`{}`), now, "completed", "B1", "150000.50", "", now, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM orders_queue WHERE id = $1")).WithArgs(int64(7)).WillReturnRows(rows)

	entry, err := ds.GetEntry(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, entry.Status)
	assert.Equal(t, "B1", entry.BillID)
	assert.True(t, entry.TotalAmount.Equal(decimal.RequireFromString("150000.50")))
	require.NotNil(t, entry.ProcessedAt)
}

func TestGetEntry_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	mock.ExpectQuery("FROM orders_queue").WithArgs(int64(99)).WillReturnRows(sqlmock.NewRows(entryColumnNames))

	entry, err := ds.GetEntry(context.Background(), 99)
	assert.Nil(t, entry)
	var apiErr apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierror.ErrNotFound, apiErr.Code)
}
