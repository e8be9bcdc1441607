package store

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

type PrescriptionRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPrescriptionRepo(db *sql.DB, logger *zap.Logger) *PrescriptionRepo {
	return &PrescriptionRepo{db: db, logger: logger}
}

// Insert appends one prescription entry. Entries are never updated;
// uploading a prescription again simply adds the newer rows.
func (r *PrescriptionRepo) Insert(ctx context.Context, e PrescriptionEntry) error {
	const q = `
insert into prescription
  (user_id, upload_time, medicine_name, medicine_dosage, num_of_times_per_day, time_of_day)
values
  ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, q,
		e.UserID, e.UploadTime, e.MedicineName, e.MedicineDosage, e.TimesPerDay, e.TimeOfDay)
	if err != nil {
		return fmt.Errorf("insert prescription: %w", err)
	}
	r.logger.Info("prescription stored",
		zap.Int64("user_id", e.UserID),
		zap.String("medicine_name", e.MedicineName),
		zap.String("time_of_day", e.TimeOfDay),
	)
	return nil
}

// ListByUser returns the user's prescription entries, newest last.
func (r *PrescriptionRepo) ListByUser(ctx context.Context, userID int64) ([]PrescriptionEntry, error) {
	const q = `
select user_id, upload_time, medicine_name, medicine_dosage,
       num_of_times_per_day, time_of_day
from prescription
where user_id = $1
order by upload_time, medicine_name`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list prescriptions: %w", err)
	}
	defer rows.Close()

	var out []PrescriptionEntry
	for rows.Next() {
		var e PrescriptionEntry
		if err := rows.Scan(&e.UserID, &e.UploadTime, &e.MedicineName,
			&e.MedicineDosage, &e.TimesPerDay, &e.TimeOfDay); err != nil {
			return nil, fmt.Errorf("scan prescription: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ActiveCount returns the number of distinct prescribed medicines.
// Names are folded in SQL as well, so rows written before name
// normalization still count as one medicine.
func (r *PrescriptionRepo) ActiveCount(ctx context.Context, userID int64) (int, error) {
	const q = `select count(distinct lower(medicine_name)) from prescription where user_id = $1`
	var n int
	if err := r.db.QueryRowContext(ctx, q, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count prescriptions: %w", err)
	}
	return n, nil
}
