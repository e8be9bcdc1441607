package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"med-match/api/internal/extract"
)

// ScanCacheRepo caches the vision model's raw label scan keyed by
// (image_hash, engine, model). A re-uploaded photo skips the expensive
// vision call; the cheaper structuring call still runs on the cached text.
type ScanCacheRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewScanCacheRepo(db *sql.DB, logger *zap.Logger) *ScanCacheRepo {
	return &ScanCacheRepo{db: db, logger: logger}
}

// Find returns the freshest cached scan for the key. If maxAge > 0,
// entries older than it count as not found.
func (r *ScanCacheRepo) Find(ctx context.Context, imageHash, engine, model string, maxAge time.Duration) (extract.Scan, error) {
	const q = `
select scan_text, visible_pills, created_at
from scan_cache
where image_hash = $1 and engine = $2 and model = $3
order by created_at desc
limit 1`
	var (
		sc extract.Scan
		ts time.Time
	)
	row := r.db.QueryRowContext(ctx, q, imageHash, engine, model)
	if err := row.Scan(&sc.Text, &sc.Pills, &ts); err != nil {
		return extract.Scan{}, err
	}
	if maxAge > 0 && time.Since(ts) > maxAge {
		return extract.Scan{}, ErrNotFound
	}
	return sc, nil
}

// Upsert stores a scan; an existing entry for the key is overwritten.
func (r *ScanCacheRepo) Upsert(ctx context.Context, imageHash, engine, model string, sc extract.Scan) error {
	const q = `
insert into scan_cache (image_hash, engine, model, scan_text, visible_pills, created_at)
values ($1, $2, $3, $4, $5, now())
on conflict (image_hash, engine, model) do update
set scan_text = excluded.scan_text,
    visible_pills = excluded.visible_pills,
    created_at = excluded.created_at`
	if _, err := r.db.ExecContext(ctx, q, imageHash, engine, model, sc.Text, sc.Pills); err != nil {
		return err
	}
	r.logger.Debug("scan cached",
		zap.String("image_hash", imageHash),
		zap.String("engine", engine),
		zap.String("model", model))
	return nil
}

// PurgeOlderThan drops stale entries so the cache does not grow unbounded.
func (r *ScanCacheRepo) PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, errors.New("olderThan must be > 0")
	}
	cutoff := time.Now().Add(-olderThan)
	res, err := r.db.ExecContext(ctx, `delete from scan_cache where created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}
