package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Pdftoppm is a Rasterizer that shells out to poppler's pdftoppm for
// page rendering and uses pdfcpu to validate and count pages.
type Pdftoppm struct {
	bin string
}

// NewPdftoppm locates the pdftoppm binary, or returns an error when it
// is not installed on this host.
func NewPdftoppm() (*Pdftoppm, error) {
	bin, err := exec.LookPath("pdftoppm")
	if err != nil {
		return nil, fmt.Errorf("pdftoppm: %w", err)
	}
	return &Pdftoppm{bin: bin}, nil
}

func (r *Pdftoppm) PageCount(ctx context.Context, pdf []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	conf := model.NewDefaultConfiguration()
	pctx, err := api.ReadValidateAndOptimize(bytes.NewReader(pdf), conf)
	if err != nil {
		return 0, fmt.Errorf("pdfcpu read: %w", err)
	}
	return pctx.PageCount, nil
}

func (r *Pdftoppm) RenderPage(ctx context.Context, pdf []byte, page, dpi int) ([]byte, error) {
	dir, err := os.MkdirTemp("", "rasterize-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	pdfPath := filepath.Join(dir, "doc.pdf")
	if err := os.WriteFile(pdfPath, pdf, 0o600); err != nil {
		return nil, err
	}

	outputPrefix := filepath.Join(dir, "page")
	cmd := exec.CommandContext(ctx, r.bin,
		"-f", fmt.Sprintf("%d", page),
		"-l", fmt.Sprintf("%d", page),
		"-png",
		"-r", fmt.Sprintf("%d", dpi),
		pdfPath,
		outputPrefix)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm page %d: %w: %s", page, err, bytes.TrimSpace(out))
	}

	// pdftoppm zero-pads the page number in the output name depending
	// on the document's total page count, so glob instead of guessing.
	matches, err := filepath.Glob(outputPrefix + "-*.png")
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("pdftoppm page %d: no output produced", page)
	}
	sort.Strings(matches)
	return os.ReadFile(matches[0])
}
