package models

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"CompanionGuard/pkg/crisis"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockStore(t *testing.T) (sqlmock.Sqlmock, *AlertStore) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)
	return mock, NewAlertStore(db)
}

func notifiedAlert(t *testing.T) crisis.CrisisAlert {
	t.Helper()
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	a, err := crisis.NewAlert("a-1", "S-1", crisis.SeverityImmediate, "planning", t0)
	require.NoError(t, err)
	a, err = a.MarkNotified(t0.Add(time.Minute))
	require.NoError(t, err)
	return a
}

func TestCompareAndSwapLostRaceOnPostgres(t *testing.T) {
	mock, store := setupMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "crisis_alerts" SET .* WHERE \(?id = \$\d+ AND status = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "crisis_alerts" WHERE \(?id = \$1`).
		WithArgs("a-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	err := store.CompareAndSwap(context.Background(), crisis.StatusCreated, notifiedAlert(t))
	assert.ErrorIs(t, err, crisis.ErrConcurrentUpdate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompareAndSwapMissingRowOnPostgres(t *testing.T) {
	mock, store := setupMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "crisis_alerts"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "crisis_alerts"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectRollback()

	err := store.CompareAndSwap(context.Background(), crisis.StatusCreated, notifiedAlert(t))
	assert.ErrorIs(t, err, crisis.ErrAlertNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompareAndSwapDatabaseErrorRollsBack(t *testing.T) {
	mock, store := setupMockStore(t)
	boom := stderrors.New("connection reset")

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "crisis_alerts"`).WillReturnError(boom)
	mock.ExpectRollback()

	err := store.CompareAndSwap(context.Background(), crisis.StatusCreated, notifiedAlert(t))
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}
