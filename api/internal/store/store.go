// Package store holds the Postgres repositories for prescriptions and
// the append-only dose log.
package store

import (
	"database/sql"
	"errors"
	"time"

	"med-match/api/internal/window"
)

var (
	ErrNotFound = sql.ErrNoRows
	// ErrDuplicate reports a dose that is already logged for the same
	// (user, day, time_of_day, medicine_name) tuple.
	ErrDuplicate = errors.New("dose already logged for this window")
)

// DayFormat is how the dose log's day column is rendered in Go and on the wire.
const DayFormat = "2006-01-02"

// PrescriptionEntry is one prescribed medication. Entries are immutable
// once created; a re-upload supersedes, nothing mutates in place.
type PrescriptionEntry struct {
	UserID         int64     `json:"user_id"`
	UploadTime     time.Time `json:"upload_time"`
	MedicineName   string    `json:"medicine_name"`
	MedicineDosage string    `json:"medicine_dosage"`
	TimesPerDay    int       `json:"num_of_times_per_day"`
	TimeOfDay      string    `json:"time_of_day"` // comma-separated segment tokens, e.g. "morning, night"
}

// DoseEvent is one verified intake in the append-only dose log.
type DoseEvent struct {
	UserID         int64          `json:"user_id"`
	LogTime        time.Time      `json:"log_time"`
	MedicineName   string         `json:"medicine_name"`
	MedicineDosage string         `json:"medicine_dosage"`
	Day            string         `json:"day"` // YYYY-MM-DD, derived from LogTime
	TimeOfDay      window.Segment `json:"time_of_day"`
}
