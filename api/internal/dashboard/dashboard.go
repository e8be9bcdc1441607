// Package dashboard aggregates the dose log into the counts shown to
// the patient: active prescriptions, medicines taken today, and the
// overall compliance rate.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"med-match/api/internal/store"
)

type PrescriptionCounter interface {
	ActiveCount(ctx context.Context, userID int64) (int, error)
}

type HistoryReader interface {
	TakenToday(ctx context.Context, userID int64, day string) (int, error)
	TakenPerDay(ctx context.Context, userID int64) ([]store.DayCount, error)
}

type Calculator struct {
	prescriptions PrescriptionCounter
	history       HistoryReader
	logger        *zap.Logger
	now           func() time.Time
}

func NewCalculator(p PrescriptionCounter, h HistoryReader, logger *zap.Logger) *Calculator {
	return &Calculator{prescriptions: p, history: h, logger: logger, now: time.Now}
}

// Sample is one day of expected-vs-taken counts.
type Sample struct {
	Day      string `json:"day"`
	Expected int    `json:"expected_count"`
	Taken    int    `json:"taken_count"`
}

// RatioOfSums aggregates samples as sum(taken)/sum(expected). Days with
// expected == 0 contribute nothing to either sum, so they neither drag
// the rate down nor prop it up. A zero denominator yields 0.0.
// This is deliberately not a mean of per-day ratios: a day with more
// prescribed medicines weighs proportionally more.
func RatioOfSums(samples []Sample) float64 {
	var taken, expected int
	for _, s := range samples {
		if s.Expected == 0 {
			continue
		}
		taken += s.Taken
		expected += s.Expected
	}
	if expected == 0 {
		return 0.0
	}
	return float64(taken) / float64(expected)
}

// ComplianceRate computes the user's overall compliance as a single
// aggregate over the whole dose log.
func (c *Calculator) ComplianceRate(ctx context.Context, userID int64) (float64, error) {
	expected, err := c.prescriptions.ActiveCount(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("compliance rate: %w", err)
	}
	days, err := c.history.TakenPerDay(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("compliance rate: %w", err)
	}

	samples := make([]Sample, 0, len(days))
	for _, d := range days {
		samples = append(samples, Sample{Day: d.Day, Expected: expected, Taken: d.Taken})
	}
	rate := RatioOfSums(samples)

	c.logger.Debug("compliance computed",
		zap.Int64("user_id", userID),
		zap.Int("expected_per_day", expected),
		zap.Int("days", len(days)),
		zap.Float64("rate", rate),
	)
	return rate, nil
}

// Snapshot is the dashboard payload.
type Snapshot struct {
	UserID              int64   `json:"user_id"`
	ActivePrescriptions int     `json:"active_prescriptions"`
	TakenToday          int     `json:"todays_medication"`
	ComplianceRate      float64 `json:"compliance_rate"`
}

// Snapshot gathers all dashboard counts for one user.
func (c *Calculator) Snapshot(ctx context.Context, userID int64) (Snapshot, error) {
	active, err := c.prescriptions.ActiveCount(ctx, userID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("dashboard: %w", err)
	}
	today := c.now().Format(store.DayFormat)
	taken, err := c.history.TakenToday(ctx, userID, today)
	if err != nil {
		return Snapshot{}, fmt.Errorf("dashboard: %w", err)
	}
	rate, err := c.ComplianceRate(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		UserID:              userID,
		ActivePrescriptions: active,
		TakenToday:          taken,
		ComplianceRate:      rate,
	}, nil
}
