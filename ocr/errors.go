package ocr

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat is returned when the file extension is not in the
// supported set.
var ErrUnsupportedFormat = errors.New("ocr: unsupported format")

// ErrEngineUnavailable is returned when a required engine capability is
// not configured. Not retryable for the same pipeline instance.
var ErrEngineUnavailable = errors.New("ocr: engine not available")

// ErrEmptyDocument is returned when a PDF rasterizes to zero pages.
var ErrEmptyDocument = errors.New("ocr: no pages found in document")

// ProcessError wraps a backend failure with the pipeline stage where it
// occurred. It fails the whole request; partial results are never kept.
type ProcessError struct {
	Stage string
	Err   error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("ocr: %s: %v", e.Stage, e.Err)
}

func (e *ProcessError) Unwrap() error { return e.Err }
