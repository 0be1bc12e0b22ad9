package ocr

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	primaryDPI  = 200
	fallbackDPI = 150
)

// processPDF rasterizes and recognizes pages one at a time, bounding
// peak memory to a single decoded page. Page order is preserved exactly.
func (p *Pipeline) processPDF(ctx context.Context, data []byte) (*Result, error) {
	pages, err := p.cfg.Rasterizer.PageCount(ctx, data)
	if err != nil {
		return nil, &ProcessError{Stage: "read pdf", Err: err}
	}
	if pages == 0 {
		return nil, ErrEmptyDocument
	}

	texts := make([]string, 0, pages)
	var confSum float64
	for n := 1; n <= pages; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := p.renderPage(ctx, data, n)
		if err != nil {
			return nil, &ProcessError{Stage: fmt.Sprintf("rasterize page %d", n), Err: err}
		}
		text, conf, err := p.recognizePage(ctx, img)
		if err != nil {
			return nil, &ProcessError{Stage: fmt.Sprintf("recognize page %d", n), Err: err}
		}
		texts = append(texts, fmt.Sprintf("--- Page %d ---\n%s", n, text))
		confSum += conf
		p.logger.Debug("page processed", "page", n, "pages", pages, "confidence", conf)
	}

	combined := strings.Join(texts, "\n\n")
	return &Result{
		Text: combined,
		// Mean of per-page means, not a global word-weighted recompute.
		Confidence: round2(confSum / float64(pages)),
		WordCount:  len(strings.Fields(combined)),
		CharCount:  utf8.RuneCountInString(combined),
		PageCount:  pages,
	}, nil
}

// renderPage tries the primary resolution, then retries once at a
// degraded resolution before giving up.
func (p *Pipeline) renderPage(ctx context.Context, pdf []byte, page int) ([]byte, error) {
	img, err := p.cfg.Rasterizer.RenderPage(ctx, pdf, page, primaryDPI)
	if err == nil {
		return img, nil
	}
	p.logger.Warn("rasterization failed, retrying at lower resolution",
		"page", page, "dpi", fallbackDPI, "error", err)
	return p.cfg.Rasterizer.RenderPage(ctx, pdf, page, fallbackDPI)
}
