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

	"med-match/api/internal/extract"
)

func setupScanCacheRepo(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *ScanCacheRepo) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewScanCacheRepo(db, zap.NewNop())
}

func TestScanCache_FindFresh(t *testing.T) {
	db, mock, repo := setupScanCacheRepo(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"scan_text", "visible_pills", "created_at"}).
		AddRow("Aspirin 200mg", "3", time.Now().Add(-time.Hour))

	mock.ExpectQuery(`from scan_cache`).
		WithArgs("abc123", "gemini", "gemini-2.0-flash").
		WillReturnRows(rows)

	sc, err := repo.Find(context.Background(), "abc123", "gemini", "gemini-2.0-flash", 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, extract.Scan{Text: "Aspirin 200mg", Pills: "3"}, sc)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScanCache_FindExpired(t *testing.T) {
	db, mock, repo := setupScanCacheRepo(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"scan_text", "visible_pills", "created_at"}).
		AddRow("Aspirin 200mg", "3", time.Now().Add(-48*time.Hour))

	mock.ExpectQuery(`from scan_cache`).
		WithArgs("abc123", "gemini", "gemini-2.0-flash").
		WillReturnRows(rows)

	_, err := repo.Find(context.Background(), "abc123", "gemini", "gemini-2.0-flash", 24*time.Hour)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScanCache_Upsert(t *testing.T) {
	db, mock, repo := setupScanCacheRepo(t)
	defer db.Close()

	mock.ExpectExec(`insert into scan_cache`).
		WithArgs("abc123", "gemini", "gemini-2.0-flash", "Aspirin 200mg", "3").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Upsert(context.Background(), "abc123", "gemini", "gemini-2.0-flash",
		extract.Scan{Text: "Aspirin 200mg", Pills: "3"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
