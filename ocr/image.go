package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// normalizeImage decodes the upload and re-encodes it as PNG when the
// pixel layout is one the recognition engine handles poorly (paletted,
// CMYK, 16-bit). Common layouts pass through untouched.
func normalizeImage(data []byte) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", formatName(format), err)
	}

	switch img.(type) {
	case *image.Gray, *image.RGBA, *image.NRGBA, *image.YCbCr:
		return data, nil
	}

	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("re-encode: %w", err)
	}
	return buf.Bytes(), nil
}

func formatName(format string) string {
	if format == "" {
		return "image"
	}
	return format
}
