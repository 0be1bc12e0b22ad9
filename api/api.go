// Package api exposes the document-processing HTTP surface: upload,
// history, export, health.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/intelliscan/history"
	"github.com/hazyhaar/intelliscan/ocr"
)

// maxUploadBytes caps upload bodies at 16 MiB.
const maxUploadBytes = 16 << 20

// Config holds the collaborators the HTTP layer needs.
type Config struct {
	Pipeline  *ocr.Pipeline
	Store     *history.Store
	UploadDir string // spool directory for in-flight uploads

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Server carries the handlers. Mount its Routes on the application
// router.
type Server struct {
	pipeline  *ocr.Pipeline
	store     *history.Store
	uploadDir string
	logger    *slog.Logger
}

// New creates a Server from the given configuration.
func New(cfg Config) *Server {
	cfg.defaults()
	return &Server{
		pipeline:  cfg.Pipeline,
		store:     cfg.Store,
		uploadDir: cfg.UploadDir,
		logger:    cfg.Logger,
	}
}

// Routes returns the chi router serving all endpoints.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/upload", s.handleUpload)
	r.Get("/history", s.handleHistory)
	r.Get("/history/{id}", s.handleHistoryItem)
	r.Delete("/history/{id}", s.handleHistoryDelete)
	r.Get("/export/{id}", s.handleExport)
	r.Get("/health", s.handleHealth)
	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeErrorMsg(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
