// Command intelliscan serves the document OCR and entity extraction
// HTTP API.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/intelliscan/api"
	"github.com/hazyhaar/intelliscan/history"
	"github.com/hazyhaar/intelliscan/ocr"
)

func main() {
	cfg := DefaultConfig()
	if path := os.Getenv("CONFIG"); path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			slog.Error("config", "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	cfg.applyEnv()
	cfg.resolvePaths()
	if err := cfg.Validate(); err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	// Logging.
	var lvl slog.Level
	switch cfg.LogLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Engine probing. A missing engine is a warning, not a startup
	// failure: requests needing it fail deterministically instead.
	pipelineCfg := ocr.Config{Logger: logger}
	if rec, err := ocr.NewTesseract(strings.Split(cfg.Languages, ",")...); err != nil {
		slog.Warn("OCR engine unavailable", "error", err)
	} else {
		pipelineCfg.Recognizer = rec
	}
	if ras, err := ocr.NewPdftoppm(); err != nil {
		slog.Warn("PDF rasterizer unavailable", "error", err)
	} else {
		pipelineCfg.Rasterizer = ras
	}
	pipeline := ocr.New(pipelineCfg)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		slog.Error("data dir", "error", err)
		os.Exit(1)
	}
	store, err := history.Open(cfg.HistoryDB)
	if err != nil {
		slog.Error("history db", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	server := api.New(api.Config{
		Pipeline:  pipeline,
		Store:     store,
		UploadDir: cfg.UploadDir,
		Logger:    logger,
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Mount("/", server.Routes())

	slog.Info("starting",
		"port", cfg.Port,
		"data_dir", cfg.DataDir,
		"history_db", cfg.HistoryDB,
		"ocr_available", pipeline.OCRAvailable(),
		"pdf_available", pipeline.PDFAvailable(),
		"tesseract_version", pipeline.EngineVersion())

	// HTTP server.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}
