// Package imaging normalizes raw scanned-check byte streams into PNG.
// Bank scanners overwhelmingly emit CCITT Group-4 TIFF; PNG and JPEG cover
// the rest. Downstream callers never need per-format handling.
package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"

	_ "golang.org/x/image/tiff"

	"github.com/JMAlloway/Check-sub001/internal/apperr"
	"github.com/JMAlloway/Check-sub001/internal/model"
)

// DefaultMaxBytes caps raw input size before any decode work happens.
const DefaultMaxBytes = 50 << 20

// Pixel-count ceiling applied after the cheap header parse, so a tiny file
// declaring a 100k x 100k canvas cannot force a huge allocation.
const maxPixels = 64 << 20

// Decoder turns raw image bytes into a normalized PNG with explicit
// dimensions. It is pure and safe for concurrent use.
type Decoder struct {
	maxBytes int64
}

func NewDecoder(maxBytes int64) *Decoder {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Decoder{maxBytes: maxBytes}
}

// Decode rejects oversized input before touching the codec, sniffs the
// format from the byte stream, and re-encodes as PNG.
func (d *Decoder) Decode(raw []byte) (*model.DecodedImage, error) {
	if int64(len(raw)) > d.maxBytes {
		return nil, apperr.Newf(apperr.CodeDecode, "image of %d bytes exceeds the %d byte limit", len(raw), d.maxBytes)
	}
	if len(raw) == 0 {
		return nil, apperr.New(apperr.CodeDecode, "empty image payload")
	}

	// Header-only parse first: dimensions come cheap, and let us refuse
	// absurd canvases before the full pixel decode.
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeDecode, "unsupported or corrupt image", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return nil, apperr.Newf(apperr.CodeDecode, "%s image dimensions %dx%d out of bounds", format, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeDecode, fmt.Sprintf("decode %s image", format), err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, apperr.Wrap(apperr.CodeDecode, "encode png", err)
	}

	bounds := img.Bounds()
	return &model.DecodedImage{
		PNG:    buf.Bytes(),
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}

// MaxBytes reports the configured input cap.
func (d *Decoder) MaxBytes() int64 { return d.maxBytes }

// sample is a tiny valid image built once for Probe.
var sample = func() []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4))); err != nil {
		panic(err)
	}
	return buf.Bytes()
}()

// Probe runs a known-good sample through the full decode path so health
// checks exercise the codec registrations, not just this struct.
func (d *Decoder) Probe(context.Context) error {
	out, err := d.Decode(sample)
	if err != nil {
		return fmt.Errorf("probe decode: %w", err)
	}
	if out.Width != 4 || out.Height != 4 {
		return fmt.Errorf("probe decode returned %dx%d: want 4x4", out.Width, out.Height)
	}
	return nil
}
