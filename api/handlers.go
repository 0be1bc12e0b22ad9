package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/intelliscan/entity"
	"github.com/hazyhaar/intelliscan/history"
	"github.com/hazyhaar/intelliscan/ocr"
)

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeErrorMsg(w, http.StatusRequestEntityTooLarge, "File too large. Maximum size is 16MB")
			return
		}
		writeErrorMsg(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		writeErrorMsg(w, http.StatusBadRequest, "No file selected")
		return
	}
	filename := sanitizeFilename(header.Filename)
	if filename == "" || !ocr.Allowed(filename) {
		writeErrorMsg(w, http.StatusBadRequest,
			"Invalid file type. Allowed types: PNG, JPG, JPEG, PDF, TIFF, BMP")
		return
	}

	// Spool to disk for the duration of the request, then process from
	// the spool. The spool file is removed on every exit path, success
	// or failure.
	spool, err := s.spoolUpload(filename, file)
	if err != nil {
		s.logger.Error("spool upload", "filename", filename, "error", err)
		writeErrorMsg(w, http.StatusInternalServerError, "Failed to store upload")
		return
	}
	defer os.Remove(spool)

	data, err := os.ReadFile(spool)
	if err != nil {
		s.logger.Error("read spool", "filename", filename, "error", err)
		writeErrorMsg(w, http.StatusInternalServerError, "Failed to read upload")
		return
	}

	s.logger.Info("upload received", "filename", filename, "bytes", len(data))

	result, err := s.pipeline.Process(r.Context(), data, filename)
	if err != nil {
		s.writeProcessError(w, filename, err)
		return
	}

	entities := entity.ExtractAll(result.Text)

	id, err := s.store.Save(r.Context(), filename, result, entities)
	if err != nil {
		s.logger.Error("save record", "filename", filename, "error", err)
		writeErrorMsg(w, http.StatusInternalServerError, "Failed to save result")
		return
	}

	s.logger.Info("document processed",
		"filename", filename,
		"history_id", id,
		"words", result.WordCount,
		"confidence", result.Confidence,
		"entities", entities.Total())

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"history_id": id,
		"result":     result,
		"entities":   entities,
	})
}

// writeProcessError maps pipeline failures to HTTP responses. Nothing
// is persisted for a failed request.
func (s *Server) writeProcessError(w http.ResponseWriter, filename string, err error) {
	s.logger.Error("processing failed", "filename", filename, "error", err)
	switch {
	case errors.Is(err, ocr.ErrUnsupportedFormat):
		writeErrorMsg(w, http.StatusBadRequest,
			"Invalid file type. Allowed types: PNG, JPG, JPEG, PDF, TIFF, BMP")
	case errors.Is(err, ocr.ErrEngineUnavailable):
		if strings.HasSuffix(strings.ToLower(filename), ".pdf") && s.pipeline.OCRAvailable() {
			writeErrorMsg(w, http.StatusInternalServerError,
				"PDF processing not available. Please upload an image instead.")
			return
		}
		writeErrorMsg(w, http.StatusInternalServerError,
			"OCR system not configured. Please contact administrator.")
	default:
		writeErrorMsg(w, http.StatusInternalServerError,
			fmt.Sprintf("Processing failed: %v", err))
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.All(r.Context())
	if err != nil {
		s.logger.Error("list history", "error", err)
		writeErrorMsg(w, http.StatusInternalServerError, "Failed to load history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"history": records,
	})
}

func (s *Server) handleHistoryItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	record, err := s.store.Get(r.Context(), id)
	if errors.Is(err, history.ErrNotFound) {
		writeErrorMsg(w, http.StatusNotFound, "History item not found")
		return
	}
	if err != nil {
		s.logger.Error("get history item", "id", id, "error", err)
		writeErrorMsg(w, http.StatusInternalServerError, "Failed to load history item")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"item":    record,
	})
}

func (s *Server) handleHistoryDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	deleted, err := s.store.Delete(r.Context(), id)
	if err != nil {
		s.logger.Error("delete history item", "id", id, "error", err)
		writeErrorMsg(w, http.StatusInternalServerError, "Failed to delete history item")
		return
	}
	if !deleted {
		writeErrorMsg(w, http.StatusNotFound, "History item not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	out, err := s.store.ExportJSON(r.Context(), id)
	if errors.Is(err, history.ErrNotFound) {
		writeErrorMsg(w, http.StatusNotFound, "History item not found")
		return
	}
	if err != nil {
		s.logger.Error("export history item", "id", id, "error", err)
		writeErrorMsg(w, http.StatusInternalServerError, "Failed to export history item")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "result_"+id+".json"))
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":        "healthy",
		"timestamp":     time.Now().Format(time.RFC3339),
		"ocr_available": s.pipeline.OCRAvailable(),
		"pdf_available": s.pipeline.PDFAvailable(),
	}
	if s.pipeline.OCRAvailable() {
		v := s.pipeline.EngineVersion()
		if v == "" {
			v = "unknown"
		}
		status["tesseract_version"] = v
	}
	writeJSON(w, http.StatusOK, status)
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// sanitizeFilename reduces a client-supplied name to a safe base name.
// Returns "" when nothing usable remains.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return ""
	}
	return name
}

// spoolUpload streams the upload to a temp file in the upload directory
// and returns its path.
func (s *Server) spoolUpload(filename string, src io.Reader) (string, error) {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", err
	}
	f, err := os.CreateTemp(s.uploadDir, "upload-*-"+filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
