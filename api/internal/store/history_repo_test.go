package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"med-match/api/internal/window"
)

func setupHistoryRepo(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *HistoryRepo) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewHistoryRepo(db, zap.NewNop())
}

func sampleDose() DoseEvent {
	return DoseEvent{
		UserID:         123,
		LogTime:        time.Date(2025, 6, 20, 8, 15, 0, 0, time.UTC),
		MedicineName:   "aspirin",
		MedicineDosage: "200mg",
		Day:            "2025-06-20",
		TimeOfDay:      window.Morning,
	}
}

func TestLogDose_Inserts(t *testing.T) {
	db, mock, repo := setupHistoryRepo(t)
	defer db.Close()

	ev := sampleDose()

	mock.ExpectBegin()
	mock.ExpectQuery(`select exists`).
		WithArgs(ev.UserID, ev.Day, "morning", ev.MedicineName).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`insert into dose_log`).
		WithArgs(ev.UserID, ev.LogTime, ev.MedicineName, ev.MedicineDosage, ev.Day, "morning").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.LogDose(context.Background(), ev))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogDose_DuplicateTuple(t *testing.T) {
	db, mock, repo := setupHistoryRepo(t)
	defer db.Close()

	ev := sampleDose()

	mock.ExpectBegin()
	mock.ExpectQuery(`select exists`).
		WithArgs(ev.UserID, ev.Day, "morning", ev.MedicineName).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	err := repo.LogDose(context.Background(), ev)
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListDay(t *testing.T) {
	db, mock, repo := setupHistoryRepo(t)
	defer db.Close()

	logTime := time.Date(2025, 6, 20, 8, 15, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"user_id", "log_time", "medicine_name", "medicine_dosage", "day", "time_of_day",
	}).AddRow(123, logTime, "aspirin", "200mg", "2025-06-20", "morning")

	mock.ExpectQuery(`from dose_log`).
		WithArgs(int64(123), "2025-06-20").
		WillReturnRows(rows)

	events, err := repo.ListDay(context.Background(), 123, "2025-06-20")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, window.Morning, events[0].TimeOfDay)
	assert.Equal(t, "2025-06-20", events[0].Day)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTakenPerDay(t *testing.T) {
	db, mock, repo := setupHistoryRepo(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"day", "medicines_taken"}).
		AddRow("2025-06-19", 2).
		AddRow("2025-06-20", 1)

	mock.ExpectQuery(`group by day`).
		WithArgs(int64(123)).
		WillReturnRows(rows)

	days, err := repo.TakenPerDay(context.Background(), 123)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, DayCount{Day: "2025-06-19", Taken: 2}, days[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}
