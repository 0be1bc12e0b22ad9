package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Pipeline processes documents into Results. It holds no mutable state,
// so one instance serves concurrent requests without locking.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Pipeline with the given configuration.
func New(cfg Config) *Pipeline {
	cfg.defaults()
	return &Pipeline{
		cfg:    cfg,
		logger: cfg.Logger,
	}
}

var supportedExts = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"pdf":  true,
	"tiff": true,
	"bmp":  true,
}

// Allowed reports whether the filename has a supported extension.
func Allowed(name string) bool {
	return supportedExts[extension(name)]
}

// SupportedFormats returns the accepted file extensions.
func SupportedFormats() []string {
	return []string{"png", "jpg", "jpeg", "pdf", "tiff", "bmp"}
}

func extension(name string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
}

// OCRAvailable reports whether a text-recognition engine is configured.
func (p *Pipeline) OCRAvailable() bool { return p.cfg.Recognizer != nil }

// PDFAvailable reports whether a PDF rasterizer is configured.
func (p *Pipeline) PDFAvailable() bool { return p.cfg.Rasterizer != nil }

// EngineVersion returns the recognizer's version string, or "" when no
// recognizer is configured.
func (p *Pipeline) EngineVersion() string {
	if p.cfg.Recognizer == nil {
		return ""
	}
	return p.cfg.Recognizer.Version()
}

// Process runs OCR on a document and returns the recognized text with
// confidence and basic statistics. The document type is taken from the
// filename extension. Callers bound latency with ctx; the pipeline sets
// no timeout of its own.
func (p *Pipeline) Process(ctx context.Context, data []byte, name string) (*Result, error) {
	ext := extension(name)
	if !supportedExts[ext] {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if p.cfg.Recognizer == nil {
		return nil, fmt.Errorf("%w: no OCR engine configured", ErrEngineUnavailable)
	}
	if ext == "pdf" {
		if p.cfg.Rasterizer == nil {
			return nil, fmt.Errorf("%w: no PDF rasterizer configured", ErrEngineUnavailable)
		}
		return p.processPDF(ctx, data)
	}
	return p.processImage(ctx, data)
}

func (p *Pipeline) processImage(ctx context.Context, data []byte) (*Result, error) {
	img, err := normalizeImage(data)
	if err != nil {
		return nil, &ProcessError{Stage: "decode image", Err: err}
	}

	text, conf, err := p.recognizePage(ctx, img)
	if err != nil {
		return nil, &ProcessError{Stage: "recognize", Err: err}
	}

	return &Result{
		Text:       text,
		Confidence: conf,
		WordCount:  len(strings.Fields(text)),
		CharCount:  utf8.RuneCountInString(text),
	}, nil
}

// recognizePage runs the full-text pass, then the best-effort confidence
// pass. Text extraction errors fail the page; confidence errors do not.
func (p *Pipeline) recognizePage(ctx context.Context, image []byte) (string, float64, error) {
	text, err := p.cfg.Recognizer.Recognize(ctx, image)
	if err != nil {
		return "", 0, err
	}
	return text, p.pageConfidence(ctx, image), nil
}

// pageConfidence returns the mean of positive per-word scores, or 0 when
// the detail pass fails or finds no scorable words.
func (p *Pipeline) pageConfidence(ctx context.Context, image []byte) float64 {
	words, err := p.cfg.Recognizer.Words(ctx, image)
	if err != nil {
		p.logger.Warn("confidence pass failed", "error", err)
		return 0
	}
	return meanConfidence(words)
}

func meanConfidence(words []Word) float64 {
	var sum float64
	var n int
	for _, w := range words {
		if w.Confidence > 0 {
			sum += w.Confidence
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return round2(sum / float64(n))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
