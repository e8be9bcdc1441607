// Package pipeline orchestrates one ingestion: image -> model calls ->
// parsing -> time-window classification -> regimen gates -> persist.
// Lower layers return booleans and typed errors; this is the only place
// that turns them into user-visible rejections.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"med-match/api/internal/extract"
	"med-match/api/internal/ocr"
	"med-match/api/internal/store"
	"med-match/api/internal/util"
	"med-match/api/internal/verify"
	"med-match/api/internal/window"
)

// ErrorType classifies a rejected ingestion for the caller.
type ErrorType string

const (
	NotPrescribed       ErrorType = "NOT_PRESCRIBED"
	AlreadyTaken        ErrorType = "ALREADY_TAKEN"
	MalformedExtraction ErrorType = "MALFORMED_EXTRACTION"
	DatabaseError       ErrorType = "DATABASE_ERROR"
	UnknownError        ErrorType = "UNKNOWN_ERROR"
)

// Result is the outward shape of every pipeline operation.
type Result struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
	ErrorType ErrorType `json:"error_type,omitempty"`
}

// States of one ingestion, logged as the attempt progresses.
const (
	stateCaptured   = "CAPTURED"
	stateExtracted  = "EXTRACTED"
	stateClassified = "CLASSIFIED"
	stateVerified   = "VERIFIED"
	statePersisted  = "PERSISTED"
	stateRejected   = "REJECTED"
)

type PrescriptionStore interface {
	Insert(ctx context.Context, e store.PrescriptionEntry) error
	ListByUser(ctx context.Context, userID int64) ([]store.PrescriptionEntry, error)
}

type HistoryStore interface {
	ListDay(ctx context.Context, userID int64, day string) ([]store.DoseEvent, error)
	LogDose(ctx context.Context, ev store.DoseEvent) error
}

// ScanCache is consulted before the vision call on label photos.
type ScanCache interface {
	Find(ctx context.Context, imageHash, engine, model string, maxAge time.Duration) (extract.Scan, error)
	Upsert(ctx context.Context, imageHash, engine, model string, sc extract.Scan) error
}

// Cached scans older than this are re-read from the photo.
const scanCacheTTL = 30 * 24 * time.Hour

type Pipeline struct {
	Prescriptions PrescriptionStore
	History       HistoryStore
	Scans         ScanCache // optional
	UserID        int64
	ModelTimeout  time.Duration
	Logger        *zap.Logger

	// Now is swappable so tests can pin the capture timestamp.
	Now func() time.Time
}

func New(p PrescriptionStore, h HistoryStore, userID int64, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		Prescriptions: p,
		History:       h,
		UserID:        userID,
		ModelTimeout:  90 * time.Second,
		Logger:        logger,
		Now:           time.Now,
	}
}

// ForUser returns a shallow copy bound to another user. The stores and
// engine wiring are shared; only the identity changes.
func (p *Pipeline) ForUser(userID int64) *Pipeline {
	if userID == 0 || userID == p.UserID {
		return p
	}
	cp := *p
	cp.UserID = userID
	return &cp
}

func rejected(id string, logger *zap.Logger, kind ErrorType, msg string) Result {
	logger.Warn("ingestion rejected",
		zap.String("attempt_id", id),
		zap.String("state", stateRejected),
		zap.String("error_type", string(kind)),
		zap.String("error", msg),
	)
	return Result{Success: false, Error: msg, ErrorType: kind}
}

// LogDose runs the full dose ingestion for one label photo. The capture
// timestamp is taken from p.Now at classification time; callers supply
// the engine explicitly so per-chat overrides keep working.
func (p *Pipeline) LogDose(ctx context.Context, eng ocr.Engine, image []byte) (res Result) {
	id := uuid.NewString()
	log := p.Logger.With(zap.String("attempt_id", id), zap.Int64("user_id", p.UserID))
	defer func() {
		if r := recover(); r != nil {
			res = rejected(id, log, UnknownError, fmt.Sprintf("unexpected failure: %v", r))
		}
	}()
	log.Info("dose ingestion started", zap.String("state", stateCaptured),
		zap.String("engine", eng.Name()), zap.Int("image_bytes", len(image)))

	// CAPTURED -> EXTRACTED: two model calls, then defensive parsing.
	// The vision call is skipped when the same photo was scanned recently.
	scan, cached := p.cachedScan(ctx, eng, image, log)
	if !cached {
		raw, err := p.generate(ctx, eng, ocr.LabelScanPrompt, image)
		if err != nil {
			return rejected(id, log, MalformedExtraction, "label scan failed: "+err.Error())
		}
		scan = extract.SplitScan(raw)
		p.storeScan(ctx, eng, image, scan, log)
	}

	structured, err := p.generate(ctx, eng, ocr.DoseStructurePrompt(scan.Text, scan.Pills), nil)
	if err != nil {
		return rejected(id, log, MalformedExtraction, "dose structuring failed: "+err.Error())
	}
	dose, err := extract.ParseDose(structured)
	if err != nil {
		var merr *extract.MalformedError
		if errors.As(err, &merr) {
			log.Warn("unparsable model output", zap.String("raw", merr.Raw))
		}
		return rejected(id, log, MalformedExtraction, err.Error())
	}
	log.Info("dose extracted", zap.String("state", stateExtracted),
		zap.String("medicine_name", dose.Name))

	// EXTRACTED -> CLASSIFIED
	now := p.Now()
	ev := store.DoseEvent{
		UserID:         p.UserID,
		LogTime:        now,
		MedicineName:   dose.Name,
		MedicineDosage: dose.Dosage,
		Day:            now.Format(store.DayFormat),
		TimeOfDay:      window.Classify(now),
	}
	log.Info("dose classified", zap.String("state", stateClassified),
		zap.String("time_of_day", string(ev.TimeOfDay)), zap.String("day", ev.Day))

	// CLASSIFIED -> VERIFIED
	entries, err := p.Prescriptions.ListByUser(ctx, p.UserID)
	if err != nil {
		return rejected(id, log, DatabaseError, "loading prescriptions: "+err.Error())
	}
	schedule := verify.BuildSchedule(entries)
	if !schedule.IsPrescribed(ev.MedicineName, ev.TimeOfDay) {
		msg := fmt.Sprintf("medication %q is not prescribed for %s", ev.MedicineName, ev.TimeOfDay)
		if windows := schedule.Windows(ev.MedicineName); len(windows) > 0 {
			msg += ", expected: " + joinSegments(windows)
		}
		return rejected(id, log, NotPrescribed, msg)
	}

	dayEvents, err := p.History.ListDay(ctx, p.UserID, ev.Day)
	if err != nil {
		return rejected(id, log, DatabaseError, "loading dose history: "+err.Error())
	}
	if verify.AlreadyTaken(dayEvents, ev) {
		return rejected(id, log, AlreadyTaken,
			fmt.Sprintf("medication %q has already been taken for %s on %s",
				ev.MedicineName, ev.TimeOfDay, ev.Day))
	}
	log.Info("dose verified", zap.String("state", stateVerified))

	// VERIFIED -> PERSISTED. No automatic retry: a dose write has no
	// idempotency key, so a blind retry risks double-logging.
	if err := p.History.LogDose(ctx, ev); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// A concurrent ingestion won the race; same rejection as above.
			return rejected(id, log, AlreadyTaken,
				fmt.Sprintf("medication %q has already been taken for %s on %s",
					ev.MedicineName, ev.TimeOfDay, ev.Day))
		}
		return rejected(id, log, DatabaseError, "persisting dose: "+err.Error())
	}
	log.Info("dose persisted", zap.String("state", statePersisted))

	return Result{Success: true, Data: ev}
}

// PrescriptionUpload is the data payload of a successful upload.
type PrescriptionUpload struct {
	Count       int                    `json:"count"`
	Medications []extract.Prescription `json:"medications"`
}

// UploadPrescription runs the simpler parallel path: scan the photo,
// structure it, insert every recognized entry. Partial success is fine;
// unparsable lines were already skipped by the parser.
func (p *Pipeline) UploadPrescription(ctx context.Context, eng ocr.Engine, image []byte) (res Result) {
	id := uuid.NewString()
	log := p.Logger.With(zap.String("attempt_id", id), zap.Int64("user_id", p.UserID))
	defer func() {
		if r := recover(); r != nil {
			res = rejected(id, log, UnknownError, fmt.Sprintf("unexpected failure: %v", r))
		}
	}()
	log.Info("prescription upload started", zap.String("state", stateCaptured),
		zap.String("engine", eng.Name()))

	raw, err := p.generate(ctx, eng, ocr.PrescriptionScanPrompt, image)
	if err != nil {
		return rejected(id, log, MalformedExtraction, "prescription scan failed: "+err.Error())
	}
	structured, err := p.generate(ctx, eng, ocr.PrescriptionStructurePrompt(raw), nil)
	if err != nil {
		return rejected(id, log, MalformedExtraction, "prescription structuring failed: "+err.Error())
	}

	meds := extract.ParsePrescription(structured)
	if len(meds) == 0 {
		return rejected(id, log, MalformedExtraction, "no parsable medication lines in model output")
	}
	log.Info("prescription extracted", zap.String("state", stateExtracted),
		zap.Int("medications", len(meds)))

	uploadTime := p.Now()
	inserted := 0
	for _, m := range meds {
		entry := store.PrescriptionEntry{
			UserID:         p.UserID,
			UploadTime:     uploadTime,
			MedicineName:   m.Name,
			MedicineDosage: m.Dosage,
			TimesPerDay:    m.TimesPerDay,
			TimeOfDay:      strings.Join(m.TimesOfDay, ", "),
		}
		if err := p.Prescriptions.Insert(ctx, entry); err != nil {
			return rejected(id, log, DatabaseError,
				fmt.Sprintf("persisting prescription (%d of %d stored): %v", inserted, len(meds), err))
		}
		inserted++
	}
	log.Info("prescription persisted", zap.String("state", statePersisted),
		zap.Int("inserted", inserted))

	return Result{Success: true, Data: PrescriptionUpload{Count: inserted, Medications: meds}}
}

// CheckInteractions asks the model, per prescribed medicine, whether it
// is safe to combine with the candidate. Medicines the model answers
// "no" for are returned as conflicts. Unclear answers count as safe;
// this is an advisory, not a gate.
func (p *Pipeline) CheckInteractions(ctx context.Context, eng ocr.Engine, candidate string) ([]string, error) {
	entries, err := p.Prescriptions.ListByUser(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("loading prescriptions: %w", err)
	}

	seen := map[string]bool{}
	var conflicts []string
	for _, e := range entries {
		name := strings.ToLower(strings.TrimSpace(e.MedicineName))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		answer, err := p.generate(ctx, eng, ocr.InteractionPrompt(e.MedicineName, candidate), nil)
		if err != nil {
			return nil, fmt.Errorf("interaction check for %q: %w", e.MedicineName, err)
		}
		if strings.EqualFold(strings.TrimSpace(answer), "no") {
			conflicts = append(conflicts, e.MedicineName)
		}
	}
	return conflicts, nil
}

func (p *Pipeline) cachedScan(ctx context.Context, eng ocr.Engine, image []byte, log *zap.Logger) (extract.Scan, bool) {
	if p.Scans == nil {
		return extract.Scan{}, false
	}
	sc, err := p.Scans.Find(ctx, util.SHA256Hex(image), eng.Name(), eng.GetModel(), scanCacheTTL)
	if err != nil {
		return extract.Scan{}, false
	}
	log.Info("label scan served from cache")
	return sc, true
}

func (p *Pipeline) storeScan(ctx context.Context, eng ocr.Engine, image []byte, sc extract.Scan, log *zap.Logger) {
	if p.Scans == nil {
		return
	}
	if err := p.Scans.Upsert(ctx, util.SHA256Hex(image), eng.Name(), eng.GetModel(), sc); err != nil {
		// cache write failure never blocks the ingestion
		log.Warn("scan cache write failed", zap.Error(err))
	}
}

// generate wraps one model call with the pipeline timeout and strips
// any markdown fencing from the reply.
func (p *Pipeline) generate(ctx context.Context, eng ocr.Engine, prompt string, image []byte) (string, error) {
	if p.ModelTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.ModelTimeout)
		defer cancel()
	}
	out, err := eng.Generate(ctx, prompt, image)
	if err != nil {
		return "", err
	}
	return util.StripCodeFences(out), nil
}

func joinSegments(segs []window.Segment) string {
	parts := make([]string, len(segs))
	for i, s := range segs {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}
