// Package imaging decodes uploaded images and prepares them for text recognition.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/draw"
)

// DefaultMaxPixels is the decompression-bomb threshold applied when no limit is configured.
const DefaultMaxPixels = 178_956_970

// MaxUpscale bounds how many times wider PrepareForOCR makes an image.
const MaxUpscale = 4

// ErrTooLarge is returned for images whose pixel count exceeds the configured limit.
var ErrTooLarge = errors.New("image exceeds pixel limit")

// Info describes a decoded image.
type Info struct {
	Format string
	Mode   string
	Width  int
	Height int
}

// Decode reads an encoded PNG or JPEG image and reports its format, colour mode and size.
// The header is checked first; images with more than maxPixels pixels are rejected with
// ErrTooLarge before any pixel data is decoded. maxPixels <= 0 means DefaultMaxPixels.
func Decode(r io.Reader, maxPixels int) (image.Image, Info, error) {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	var head bytes.Buffer
	cfg, _, err := image.DecodeConfig(io.TeeReader(r, &head))
	if err != nil {
		return nil, Info{}, fmt.Errorf("decode image header: %w", err)
	}
	if err := checkPixels(cfg.Width, cfg.Height, maxPixels); err != nil {
		return nil, Info{}, err
	}

	img, format, err := image.Decode(io.MultiReader(&head, r))
	if err != nil {
		return nil, Info{}, fmt.Errorf("decode image: %w", err)
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, Info{}, fmt.Errorf("decode image: empty bounds")
	}
	return img, Info{
		Format: format,
		Mode:   modeOf(img.ColorModel()),
		Width:  b.Dx(),
		Height: b.Dy(),
	}, nil
}

func checkPixels(w, h, maxPixels int) error {
	if int64(w)*int64(h) > int64(maxPixels) {
		return fmt.Errorf("%w: %dx%d > %d", ErrTooLarge, w, h, maxPixels)
	}
	return nil
}

func modeOf(m color.Model) string {
	switch m {
	case color.GrayModel:
		return "L"
	case color.Gray16Model:
		return "I;16"
	case color.RGBAModel, color.NRGBAModel:
		return "RGBA"
	case color.RGBA64Model, color.NRGBA64Model:
		return "RGBA;16"
	case color.YCbCrModel:
		return "YCbCr"
	case color.CMYKModel:
		return "CMYK"
	}
	if _, ok := m.(color.Palette); ok {
		return "P"
	}
	return "unknown"
}

// PrepareForOCR converts img to grayscale and, when it is narrower than minWidth,
// upscales it preserving the aspect ratio. The scale factor never exceeds MaxUpscale and
// a result above maxPixels is refused with ErrTooLarge. The result is PNG-encoded.
func PrepareForOCR(img image.Image, minWidth, maxPixels int) ([]byte, error) {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	src := img.Bounds()
	w, h := src.Dx(), src.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("prepare image: empty bounds")
	}
	if minWidth > 0 && w < minWidth {
		target := min(minWidth, w*MaxUpscale)
		h = int(int64(h) * int64(target) / int64(w))
		if h < 1 {
			h = 1
		}
		w = target
	}
	if err := checkPixels(w, h, maxPixels); err != nil {
		return nil, err
	}

	dst := image.NewGray(image.Rect(0, 0, w, h))
	if w == src.Dx() && h == src.Dy() {
		draw.Draw(dst, dst.Bounds(), img, src.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, src, draw.Src, nil)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode prepared image: %w", err)
	}
	return buf.Bytes(), nil
}
