// Package ocr turns uploaded documents (images and PDFs) into text with
// confidence scoring.
//
// The pipeline depends on two injected engine capabilities: a Recognizer
// (text recognition with a best-effort per-word confidence pass) and a
// Rasterizer (PDF page to image conversion). Missing capabilities make
// the corresponding operations fail deterministically with
// ErrEngineUnavailable, which keeps the pipeline testable without
// touching the host environment.
package ocr

import "context"

// Result is the output of processing one document.
type Result struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"` // 0-100, mean of positive word scores
	WordCount  int     `json:"word_count"`
	CharCount  int     `json:"char_count"`
	PageCount  int     `json:"page_count,omitempty"` // set for multi-page documents only
}

// Word is one recognized word with its engine confidence score (0-100).
// Non-positive scores mark whitespace or no-detection artifacts and are
// excluded from aggregation.
type Word struct {
	Text       string
	Confidence float64
}

// Recognizer is the text-recognition engine capability.
type Recognizer interface {
	// Recognize returns the full text recognized in the image.
	Recognize(ctx context.Context, image []byte) (string, error)

	// Words runs the detail-level pass and returns per-word confidence
	// scores. Callers treat a failure here as "confidence unknown", not
	// as a recognition failure.
	Words(ctx context.Context, image []byte) ([]Word, error)

	// Version identifies the underlying engine build.
	Version() string
}

// Rasterizer is the PDF-to-image engine capability.
type Rasterizer interface {
	// PageCount validates the document and returns its page count.
	PageCount(ctx context.Context, pdf []byte) (int, error)

	// RenderPage rasterizes one 1-based page at the given DPI.
	RenderPage(ctx context.Context, pdf []byte, page, dpi int) ([]byte, error)
}
