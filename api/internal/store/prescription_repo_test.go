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
)

func setupPrescriptionRepo(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PrescriptionRepo) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPrescriptionRepo(db, zap.NewNop())
}

func TestPrescriptionInsert(t *testing.T) {
	db, mock, repo := setupPrescriptionRepo(t)
	defer db.Close()

	e := PrescriptionEntry{
		UserID:         123,
		UploadTime:     time.Date(2025, 6, 20, 9, 0, 0, 0, time.UTC),
		MedicineName:   "Metformin",
		MedicineDosage: "500mg",
		TimesPerDay:    2,
		TimeOfDay:      "morning, night",
	}

	mock.ExpectExec(`insert into prescription`).
		WithArgs(e.UserID, e.UploadTime, e.MedicineName, e.MedicineDosage, e.TimesPerDay, e.TimeOfDay).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Insert(context.Background(), e))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPrescriptionListByUser(t *testing.T) {
	db, mock, repo := setupPrescriptionRepo(t)
	defer db.Close()

	uploaded := time.Date(2025, 6, 20, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"user_id", "upload_time", "medicine_name", "medicine_dosage",
		"num_of_times_per_day", "time_of_day",
	}).
		AddRow(123, uploaded, "Lisinopril", "10mg", 1, "morning").
		AddRow(123, uploaded, "Metformin", "500mg", 2, "morning, night")

	mock.ExpectQuery(`select user_id, upload_time, medicine_name`).
		WithArgs(int64(123)).
		WillReturnRows(rows)

	entries, err := repo.ListByUser(context.Background(), 123)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Lisinopril", entries[0].MedicineName)
	assert.Equal(t, "morning, night", entries[1].TimeOfDay)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPrescriptionActiveCount(t *testing.T) {
	db, mock, repo := setupPrescriptionRepo(t)
	defer db.Close()

	mock.ExpectQuery(`count\(distinct lower\(medicine_name\)\)`).
		WithArgs(int64(123)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := repo.ActiveCount(context.Background(), 123)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
