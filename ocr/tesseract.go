package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract is a Recognizer backed by the system tesseract library.
// Each call uses a fresh client so concurrent recognitions never share
// engine state.
type Tesseract struct {
	languages []string
	version   string
}

// NewTesseract probes the installed engine and returns a ready
// Recognizer, or an error when tesseract is not usable on this host.
func NewTesseract(languages ...string) (*Tesseract, error) {
	v := gosseract.Version()
	if v == "" {
		return nil, fmt.Errorf("tesseract: engine not available")
	}
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &Tesseract{languages: languages, version: v}, nil
}

func (t *Tesseract) newClient() (*gosseract.Client, error) {
	c := gosseract.NewClient()
	if err := c.SetLanguage(t.languages...); err != nil {
		c.Close()
		return nil, fmt.Errorf("set languages: %w", err)
	}
	return c, nil
}

func (t *Tesseract) Recognize(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c, err := t.newClient()
	if err != nil {
		return "", err
	}
	defer c.Close()
	if err := c.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}

func (t *Tesseract) Words(ctx context.Context, image []byte) ([]Word, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := t.newClient()
	if err != nil {
		return nil, err
	}
	defer c.Close()
	if err := c.SetImageFromBytes(image); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("bounding boxes: %w", err)
	}
	words := make([]Word, 0, len(boxes))
	for _, b := range boxes {
		if strings.TrimSpace(b.Word) == "" {
			continue
		}
		words = append(words, Word{Text: b.Word, Confidence: b.Confidence})
	}
	return words, nil
}

func (t *Tesseract) Version() string { return t.version }
