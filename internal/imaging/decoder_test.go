package imaging

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"

	"github.com/JMAlloway/Check-sub001/internal/apperr"
)

func testCanvas(w, h int) image.Image {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func encodeTIFF(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate}))
	return buf.Bytes()
}

func assertDecodes(t *testing.T, raw []byte, wantW, wantH int) {
	t.Helper()
	d := NewDecoder(0)
	out, err := d.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, wantW, out.Width)
	assert.Equal(t, wantH, out.Height)

	// The output must itself be a valid PNG with the same dimensions.
	decoded, format, err := image.Decode(bytes.NewReader(out.PNG))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, wantW, decoded.Bounds().Dx())
	assert.Equal(t, wantH, decoded.Bounds().Dy())
}

func TestDecode_PNG(t *testing.T) {
	assertDecodes(t, encodePNG(t, testCanvas(40, 18)), 40, 18)
}

func TestDecode_JPEG(t *testing.T) {
	assertDecodes(t, encodeJPEG(t, testCanvas(32, 14)), 32, 14)
}

func TestDecode_TIFF(t *testing.T) {
	assertDecodes(t, encodeTIFF(t, testCanvas(64, 28)), 64, 28)
}

func TestDecode_EmptyPayload(t *testing.T) {
	d := NewDecoder(0)
	_, err := d.Decode(nil)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeDecode, apperr.CodeOf(err))
}

func TestDecode_CorruptBytes(t *testing.T) {
	d := NewDecoder(0)
	_, err := d.Decode([]byte("this is not an image at all"))
	require.Error(t, err)
	assert.Equal(t, apperr.CodeDecode, apperr.CodeOf(err))
}

func TestDecode_TruncatedPNG(t *testing.T) {
	raw := encodePNG(t, testCanvas(40, 18))
	d := NewDecoder(0)
	_, err := d.Decode(raw[:len(raw)/2])
	require.Error(t, err)
	assert.Equal(t, apperr.CodeDecode, apperr.CodeOf(err))
}

func TestDecode_OversizeRejectedBeforeDecode(t *testing.T) {
	raw := encodePNG(t, testCanvas(40, 18))
	d := NewDecoder(int64(len(raw)) - 1)

	_, err := d.Decode(raw)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeDecode, apperr.CodeOf(err))
	assert.Contains(t, err.Error(), "byte limit")
}

func TestDecode_DefaultCapWhenZero(t *testing.T) {
	d := NewDecoder(0)
	assert.Equal(t, int64(DefaultMaxBytes), d.MaxBytes())
}

func TestProbe_ExercisesDecodePath(t *testing.T) {
	d := NewDecoder(0)
	assert.NoError(t, d.Probe(context.Background()))
}
