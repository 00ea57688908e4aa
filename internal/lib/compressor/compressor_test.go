package compressor

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noisyPNG(t *testing.T, w, h int) []byte {
	t.Helper()

	rnd := rand.New(rand.NewSource(42))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(rnd.Intn(256)),
				G: uint8(rnd.Intn(256)),
				B: uint8(rnd.Intn(256)),
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestCompressor_ShouldCompress(t *testing.T) {
	c := New(Options{})

	tests := []struct {
		name string
		mime string
		size int64
		want bool
	}{
		{"large jpeg", "image/jpeg", 2 * MiB, true},
		{"large png", "image/png", MiB + 1, true},
		{"exactly threshold", "image/jpeg", MiB, false},
		{"small image", "image/jpeg", 500 * 1024, false},
		{"large pdf", "application/pdf", 5 * MiB, false},
		{"empty mime", "", 5 * MiB, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.ShouldCompress(tt.mime, tt.size))
		})
	}
}

func TestCompressor_Compress_ReachesBudget(t *testing.T) {
	data := noisyPNG(t, 256, 256)
	c := New(Options{MaxSizeMB: 10})

	res, err := c.Compress(context.Background(), data, "image/png")
	require.NoError(t, err)

	require.True(t, res.Compressed)
	assert.Equal(t, OutputMimeType, res.MimeType)
	assert.Equal(t, DefaultStartQuality, res.Quality)
	assert.LessOrEqual(t, res.CompressedSize, res.OriginalSize)
	assert.LessOrEqual(t, res.CompressedSize, c.Budget())
	assert.Equal(t, int64(len(res.Data)), res.CompressedSize)
}

func TestCompressor_Compress_StopsAtFloor(t *testing.T) {
	data := noisyPNG(t, 256, 256)
	// a budget no JPEG of this image can meet
	c := New(Options{MaxSizeMB: 1.0 / 1024})

	res, err := c.Compress(context.Background(), data, "image/png")
	require.NoError(t, err)

	assert.Equal(t, DefaultMinQuality, res.Quality)
	assert.GreaterOrEqual(t, res.Quality, DefaultMinQuality)
	assert.LessOrEqual(t, res.CompressedSize, res.OriginalSize)
}

func TestCompressor_Compress_PreservesDimensions(t *testing.T) {
	data := noisyPNG(t, 320, 200)
	c := New(Options{})

	res, err := c.Compress(context.Background(), data, "image/png")
	require.NoError(t, err)
	require.True(t, res.Compressed)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(res.Data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 320, cfg.Width)
	assert.Equal(t, 200, cfg.Height)
}

func TestCompressor_Compress_DecodeFailureReturnsOriginal(t *testing.T) {
	data := []byte("definitely not an image")
	c := New(Options{})

	res, err := c.Compress(context.Background(), data, "image/jpeg")
	require.NoError(t, err)

	assert.False(t, res.Compressed)
	assert.Equal(t, data, res.Data)
	assert.Equal(t, "image/jpeg", res.MimeType)
	assert.Equal(t, res.OriginalSize, res.CompressedSize)
}

func TestCompressor_Compress_NeverGrows(t *testing.T) {
	// a flat tiny PNG is smaller than any JPEG of it
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	data := buf.Bytes()

	res, err := New(Options{}).Compress(context.Background(), data, "image/png")
	require.NoError(t, err)

	assert.LessOrEqual(t, res.CompressedSize, res.OriginalSize)
	if !res.Compressed {
		assert.Equal(t, data, res.Data)
	}
}

func TestCompressor_Compress_Cancelled(t *testing.T) {
	data := noisyPNG(t, 64, 64)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := New(Options{}).Compress(ctx, data, "image/png")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, data, res.Data)
}

func TestResult_Ratio(t *testing.T) {
	assert.InDelta(t, 0.75, Result{OriginalSize: 400, CompressedSize: 100}.Ratio(), 1e-9)
	assert.Zero(t, Result{OriginalSize: 100, CompressedSize: 100}.Ratio())
	assert.Zero(t, Result{}.Ratio())
}
