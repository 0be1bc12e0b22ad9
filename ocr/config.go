package ocr

import "log/slog"

// Config configures the processing pipeline. Recognizer and Rasterizer
// may be nil when the corresponding backend is not installed; operations
// needing a missing capability fail with ErrEngineUnavailable.
type Config struct {
	Recognizer Recognizer
	Rasterizer Rasterizer

	// Logger for debug/warn messages.
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
