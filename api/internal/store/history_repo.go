package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"med-match/api/internal/window"
)

type HistoryRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewHistoryRepo(db *sql.DB, logger *zap.Logger) *HistoryRepo {
	return &HistoryRepo{db: db, logger: logger}
}

// LogDose appends one verified dose inside a transaction: re-check the
// duplicate tuple, then insert. The unique index on
// (user_id, day, time_of_day, medicine_name) remains the authoritative
// guard, so a concurrent writer that slips past the read still surfaces
// as ErrDuplicate instead of a second row.
func (r *HistoryRepo) LogDose(ctx context.Context, ev DoseEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin dose tx: %w", err)
	}
	defer tx.Rollback()

	const check = `
select exists (
  select 1 from dose_log
  where user_id = $1 and day = $2::date and time_of_day = $3 and medicine_name = $4
)`
	var taken bool
	if err := tx.QueryRowContext(ctx, check,
		ev.UserID, ev.Day, string(ev.TimeOfDay), ev.MedicineName).Scan(&taken); err != nil {
		return fmt.Errorf("duplicate check: %w", err)
	}
	if taken {
		return ErrDuplicate
	}

	const ins = `
insert into dose_log
  (user_id, log_time, medicine_name, medicine_dosage, day, time_of_day)
values
  ($1, $2::timestamp, $3, $4, $5::date, $6)`
	if _, err := tx.ExecContext(ctx, ins,
		ev.UserID, ev.LogTime, ev.MedicineName, ev.MedicineDosage,
		ev.Day, string(ev.TimeOfDay)); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert dose: %w", err)
	}
	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("commit dose: %w", err)
	}

	r.logger.Info("dose logged",
		zap.Int64("user_id", ev.UserID),
		zap.String("medicine_name", ev.MedicineName),
		zap.String("day", ev.Day),
		zap.String("time_of_day", string(ev.TimeOfDay)),
	)
	return nil
}

// ListDay returns the user's doses for one day, for the duplicate gate.
func (r *HistoryRepo) ListDay(ctx context.Context, userID int64, day string) ([]DoseEvent, error) {
	const q = `
select user_id, log_time, medicine_name, medicine_dosage, day::text, time_of_day
from dose_log
where user_id = $1 and day = $2::date
order by log_time`
	return r.queryEvents(ctx, q, userID, day)
}

// ListByUser returns the user's full dose history, oldest first.
func (r *HistoryRepo) ListByUser(ctx context.Context, userID int64) ([]DoseEvent, error) {
	const q = `
select user_id, log_time, medicine_name, medicine_dosage, day::text, time_of_day
from dose_log
where user_id = $1
order by log_time`
	return r.queryEvents(ctx, q, userID)
}

// TakenToday counts distinct medicines logged on the given day.
func (r *HistoryRepo) TakenToday(ctx context.Context, userID int64, day string) (int, error) {
	const q = `
select count(distinct medicine_name)
from dose_log
where user_id = $1 and day = $2::date`
	var n int
	if err := r.db.QueryRowContext(ctx, q, userID, day).Scan(&n); err != nil {
		return 0, fmt.Errorf("count today's doses: %w", err)
	}
	return n, nil
}

// DayCount is the distinct-medicine intake count for one logged day.
type DayCount struct {
	Day   string
	Taken int
}

// TakenPerDay groups the dose log by day. Only days with at least one
// logged dose appear; compliance aggregation happens in the dashboard.
func (r *HistoryRepo) TakenPerDay(ctx context.Context, userID int64) ([]DayCount, error) {
	const q = `
select day::text, count(distinct medicine_name) as medicines_taken
from dose_log
where user_id = $1
group by day
order by day`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("group doses by day: %w", err)
	}
	defer rows.Close()

	var out []DayCount
	for rows.Next() {
		var d DayCount
		if err := rows.Scan(&d.Day, &d.Taken); err != nil {
			return nil, fmt.Errorf("scan day count: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *HistoryRepo) queryEvents(ctx context.Context, q string, args ...any) ([]DoseEvent, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query dose log: %w", err)
	}
	defer rows.Close()

	var out []DoseEvent
	for rows.Next() {
		var ev DoseEvent
		var tod string
		if err := rows.Scan(&ev.UserID, &ev.LogTime, &ev.MedicineName,
			&ev.MedicineDosage, &ev.Day, &tod); err != nil {
			return nil, fmt.Errorf("scan dose: %w", err)
		}
		ev.TimeOfDay = window.Segment(tod)
		out = append(out, ev)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
