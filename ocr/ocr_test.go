package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
)

// fakeRecognizer returns canned text and word scores keyed by the page
// image content.
type fakeRecognizer struct {
	texts map[string]string
	words map[string][]Word
	calls int

	recognizeErr error
	wordsErr     error
}

func (f *fakeRecognizer) Recognize(ctx context.Context, image []byte) (string, error) {
	f.calls++
	if f.recognizeErr != nil {
		return "", f.recognizeErr
	}
	return f.texts[string(image)], nil
}

func (f *fakeRecognizer) Words(ctx context.Context, image []byte) ([]Word, error) {
	if f.wordsErr != nil {
		return nil, f.wordsErr
	}
	return f.words[string(image)], nil
}

func (f *fakeRecognizer) Version() string { return "fake 1.0" }

// fakeRasterizer serves a fixed set of page images.
type fakeRasterizer struct {
	pages       [][]byte
	pageErr     error
	failPrimary bool // fail DPI 200 renders, succeed at 150
	renderDPIs  []int
}

func (f *fakeRasterizer) PageCount(ctx context.Context, pdf []byte) (int, error) {
	if f.pageErr != nil {
		return 0, f.pageErr
	}
	return len(f.pages), nil
}

func (f *fakeRasterizer) RenderPage(ctx context.Context, pdf []byte, page, dpi int) ([]byte, error) {
	f.renderDPIs = append(f.renderDPIs, dpi)
	if f.failPrimary && dpi == primaryDPI {
		return nil, errors.New("render failed")
	}
	if page < 1 || page > len(f.pages) {
		return nil, fmt.Errorf("page %d out of range", page)
	}
	return f.pages[page-1], nil
}

// pngBytes encodes a tiny image of the given color model for pipeline
// input. The fakes key on raw bytes, so content just needs to be stable.
func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func grayPNG(t *testing.T) []byte {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 16)
	}
	return pngBytes(t, img)
}

func TestAllowed(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"scan.png", true},
		{"photo.JPG", true},
		{"doc.pdf", true},
		{"fax.tiff", true},
		{"bitmap.bmp", true},
		{"report.docx", false},
		{"noext", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := Allowed(tc.name); got != tc.want {
			t.Errorf("Allowed(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestProcessUnsupportedFormat(t *testing.T) {
	rec := &fakeRecognizer{}
	p := New(Config{Recognizer: rec})

	_, err := p.Process(context.Background(), []byte("data"), "report.docx")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
	if rec.calls != 0 {
		t.Errorf("recognizer called %d times for rejected format", rec.calls)
	}
}

func TestProcessNoRecognizer(t *testing.T) {
	p := New(Config{})
	_, err := p.Process(context.Background(), grayPNG(t), "scan.png")
	if !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("err = %v, want ErrEngineUnavailable", err)
	}
}

func TestProcessPDFNoRasterizer(t *testing.T) {
	p := New(Config{Recognizer: &fakeRecognizer{}})
	_, err := p.Process(context.Background(), []byte("%PDF"), "doc.pdf")
	if !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("err = %v, want ErrEngineUnavailable", err)
	}
}

func TestProcessImage(t *testing.T) {
	img := grayPNG(t)
	rec := &fakeRecognizer{
		texts: map[string]string{string(img): "Invoice total due: $42"},
		words: map[string][]Word{string(img): {
			{Text: "Invoice", Confidence: 90},
			{Text: "total", Confidence: 80},
			{Text: " ", Confidence: -1},
			{Text: "due:", Confidence: 85},
			{Text: "$42", Confidence: 95},
		}},
	}
	p := New(Config{Recognizer: rec})

	res, err := p.Process(context.Background(), img, "scan.png")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Text != "Invoice total due: $42" {
		t.Errorf("Text = %q", res.Text)
	}
	if res.Confidence != 87.5 {
		t.Errorf("Confidence = %v, want 87.5", res.Confidence)
	}
	if res.WordCount != 4 {
		t.Errorf("WordCount = %d, want 4", res.WordCount)
	}
	if res.CharCount != 22 {
		t.Errorf("CharCount = %d, want 22", res.CharCount)
	}
	if res.PageCount != 0 {
		t.Errorf("PageCount = %d, want 0 for single image", res.PageCount)
	}
}

func TestProcessImageConfidenceBestEffort(t *testing.T) {
	img := grayPNG(t)
	rec := &fakeRecognizer{
		texts:    map[string]string{string(img): "hello world"},
		wordsErr: errors.New("detail pass crashed"),
	}
	p := New(Config{Recognizer: rec})

	res, err := p.Process(context.Background(), img, "scan.png")
	if err != nil {
		t.Fatalf("Process should survive confidence failure: %v", err)
	}
	if res.Confidence != 0 {
		t.Errorf("Confidence = %v, want 0", res.Confidence)
	}
	if res.Text != "hello world" {
		t.Errorf("Text = %q", res.Text)
	}
}

func TestProcessImageRecognizeError(t *testing.T) {
	rec := &fakeRecognizer{recognizeErr: errors.New("engine crashed")}
	p := New(Config{Recognizer: rec})

	_, err := p.Process(context.Background(), grayPNG(t), "scan.png")
	var pe *ProcessError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %T, want *ProcessError", err)
	}
	if pe.Stage != "recognize" {
		t.Errorf("Stage = %q", pe.Stage)
	}
}

func TestProcessImageUndecodable(t *testing.T) {
	p := New(Config{Recognizer: &fakeRecognizer{}})
	_, err := p.Process(context.Background(), []byte("not an image"), "scan.png")
	var pe *ProcessError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %T, want *ProcessError", err)
	}
	if pe.Stage != "decode image" {
		t.Errorf("Stage = %q", pe.Stage)
	}
}

func TestProcessPDFMultiPage(t *testing.T) {
	page1, page2 := []byte("page-one-img"), []byte("page-two-img")
	rec := &fakeRecognizer{
		texts: map[string]string{
			string(page1): "first page text",
			string(page2): "second page text",
		},
		words: map[string][]Word{
			string(page1): {{Text: "a", Confidence: 80}},
			string(page2): {{Text: "b", Confidence: 40}, {Text: "c", Confidence: 80}},
		},
	}
	ras := &fakeRasterizer{pages: [][]byte{page1, page2}}
	p := New(Config{Recognizer: rec, Rasterizer: ras})

	res, err := p.Process(context.Background(), []byte("%PDF"), "doc.pdf")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	want := "--- Page 1 ---\nfirst page text\n\n--- Page 2 ---\nsecond page text"
	if res.Text != want {
		t.Errorf("Text = %q, want %q", res.Text, want)
	}
	// Per-page means are 80 and 60; the document score averages the
	// pages, not the words.
	if res.Confidence != 70 {
		t.Errorf("Confidence = %v, want 70", res.Confidence)
	}
	if res.PageCount != 2 {
		t.Errorf("PageCount = %d, want 2", res.PageCount)
	}
	if res.WordCount != len(strings.Fields(want)) {
		t.Errorf("WordCount = %d", res.WordCount)
	}
}

func TestProcessPDFEmpty(t *testing.T) {
	p := New(Config{Recognizer: &fakeRecognizer{}, Rasterizer: &fakeRasterizer{}})
	_, err := p.Process(context.Background(), []byte("%PDF"), "doc.pdf")
	if !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("err = %v, want ErrEmptyDocument", err)
	}
}

func TestProcessPDFReadError(t *testing.T) {
	ras := &fakeRasterizer{pageErr: errors.New("corrupt xref")}
	p := New(Config{Recognizer: &fakeRecognizer{}, Rasterizer: ras})

	_, err := p.Process(context.Background(), []byte("junk"), "doc.pdf")
	var pe *ProcessError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %T, want *ProcessError", err)
	}
	if pe.Stage != "read pdf" {
		t.Errorf("Stage = %q", pe.Stage)
	}
}

func TestProcessPDFRenderFallback(t *testing.T) {
	page := []byte("only-page")
	rec := &fakeRecognizer{
		texts: map[string]string{string(page): "degraded but readable"},
		words: map[string][]Word{string(page): {{Text: "x", Confidence: 50}}},
	}
	ras := &fakeRasterizer{pages: [][]byte{page}, failPrimary: true}
	p := New(Config{Recognizer: rec, Rasterizer: ras})

	res, err := p.Process(context.Background(), []byte("%PDF"), "doc.pdf")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Text != "--- Page 1 ---\ndegraded but readable" {
		t.Errorf("Text = %q", res.Text)
	}
	wantDPIs := []int{primaryDPI, fallbackDPI}
	if len(ras.renderDPIs) != len(wantDPIs) {
		t.Fatalf("renderDPIs = %v, want %v", ras.renderDPIs, wantDPIs)
	}
	for i, dpi := range wantDPIs {
		if ras.renderDPIs[i] != dpi {
			t.Errorf("render %d at %d DPI, want %d", i, ras.renderDPIs[i], dpi)
		}
	}
}

func TestProcessPDFContextCanceled(t *testing.T) {
	ras := &fakeRasterizer{pages: [][]byte{[]byte("p1")}}
	p := New(Config{Recognizer: &fakeRecognizer{}, Rasterizer: ras})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Process(ctx, []byte("%PDF"), "doc.pdf")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestMeanConfidence(t *testing.T) {
	cases := []struct {
		name  string
		words []Word
		want  float64
	}{
		{"empty", nil, 0},
		{"all nonpositive", []Word{{Confidence: 0}, {Confidence: -1}}, 0},
		{"mixed", []Word{{Confidence: 90}, {Confidence: -1}, {Confidence: 80}}, 85},
		{"rounding", []Word{{Confidence: 33.333}, {Confidence: 33.334}}, 33.33},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := meanConfidence(tc.words); got != tc.want {
				t.Errorf("meanConfidence = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestNormalizeImagePassthrough(t *testing.T) {
	data := grayPNG(t)
	out, err := normalizeImage(data)
	if err != nil {
		t.Fatalf("normalizeImage: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Error("grayscale PNG should pass through unmodified")
	}
}

func TestNormalizeImagePaletted(t *testing.T) {
	pal := color.Palette{color.Black, color.White}
	src := image.NewPaletted(image.Rect(0, 0, 3, 3), pal)
	src.SetColorIndex(1, 1, 1)
	data := pngBytes(t, src)

	out, err := normalizeImage(data)
	if err != nil {
		t.Fatalf("normalizeImage: %v", err)
	}
	if bytes.Equal(out, data) {
		t.Fatal("paletted PNG should be re-encoded")
	}
	img, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode normalized output: %v", err)
	}
	if _, ok := img.(*image.NRGBA); !ok {
		t.Errorf("normalized image is %T, want *image.NRGBA", img)
	}
	r, g, b, _ := img.At(1, 1).RGBA()
	if r == 0 || g == 0 || b == 0 {
		t.Error("pixel content lost in normalization")
	}
}
