package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"go.uber.org/zap"

	"med-match/api/internal/config"
	"med-match/api/internal/dashboard"
	"med-match/api/internal/handle"
	"med-match/api/internal/logger"
	"med-match/api/internal/ocr"
	"med-match/api/internal/ocr/gemini"
	"med-match/api/internal/ocr/openai"
	"med-match/api/internal/pipeline"
	"med-match/api/internal/store"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel, "med-match-api")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if p := strings.TrimSpace(os.Getenv("PORT")); p != "" {
		cfg.Port = p
	} else if strings.TrimSpace(cfg.Port) == "" {
		cfg.Port = "8000"
	}

	dsn := config.ResolveDSN()
	if dsn == "" {
		log.Fatal("database DSN is empty: set DATABASE_URL or POSTGRES_* env vars")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatal("sql.Open", zap.Error(err))
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(1 * time.Hour)

	{
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			log.Fatal("db.Ping", zap.Error(err))
		}
		if err := store.EnsureSchema(ctx, db); err != nil {
			log.Fatal("schema", zap.Error(err))
		}
		log.Info("db connected", zap.String("dsn", config.SafeDSNSummary(dsn)))
	}

	prescriptions := store.NewPrescriptionRepo(db, log)
	history := store.NewHistoryRepo(db, log)

	engines := &ocr.Engines{
		Gemini: gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel),
		OpenAI: openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel),
	}

	pipe := pipeline.New(prescriptions, history, cfg.DefaultUserID, log)
	pipe.Scans = store.NewScanCacheRepo(db, log)
	dash := dashboard.NewCalculator(prescriptions, history, log)
	h := handle.New(engines, pipe, dash, history, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db: not ok\n" + err.Error()))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/v1/dose/log", h.LogDose)
	mux.HandleFunc("/v1/prescription/upload", h.UploadPrescription)
	mux.HandleFunc("/v1/dashboard", h.Dashboard)
	mux.HandleFunc("/v1/history", h.History)
	mux.HandleFunc("/v1/interactions/check", h.CheckInteractions)

	addr := ":" + cfg.Port
	log.Info("med-match api listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal("http server", zap.Error(err))
	}
}
