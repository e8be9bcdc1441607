package handle

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"med-match/api/internal/dashboard"
	"med-match/api/internal/ocr"
	"med-match/api/internal/pipeline"
	"med-match/api/internal/store"
)

type Handle struct {
	engs    *ocr.Engines
	pipe    *pipeline.Pipeline
	dash    *dashboard.Calculator
	history *store.HistoryRepo
	logger  *zap.Logger
}

func New(engs *ocr.Engines, pipe *pipeline.Pipeline, dash *dashboard.Calculator,
	history *store.HistoryRepo, logger *zap.Logger) *Handle {
	return &Handle{
		engs:    engs,
		pipe:    pipe,
		dash:    dash,
		history: history,
		logger:  logger,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
