// Package compressor re-encodes raster images as JPEG at decreasing quality
// until they fit a byte budget.
package compressor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/webp"
)

const (
	MiB = 1024 * 1024

	DefaultMaxSizeMB   = 2.0
	DefaultThresholdMB = 1.0

	DefaultStartQuality = 90
	DefaultMinQuality   = 50
	DefaultQualityStep  = 10

	OutputMimeType = "image/jpeg"
)

type Options struct {
	MaxSizeMB    float64
	ThresholdMB  float64
	StartQuality int
	MinQuality   int
	QualityStep  int
}

func (o Options) withDefaults() Options {
	if o.MaxSizeMB <= 0 {
		o.MaxSizeMB = DefaultMaxSizeMB
	}
	if o.ThresholdMB <= 0 {
		o.ThresholdMB = DefaultThresholdMB
	}
	if o.StartQuality <= 0 || o.StartQuality > 100 {
		o.StartQuality = DefaultStartQuality
	}
	if o.MinQuality <= 0 || o.MinQuality > o.StartQuality {
		o.MinQuality = DefaultMinQuality
	}
	if o.QualityStep <= 0 {
		o.QualityStep = DefaultQualityStep
	}
	return o
}

// Result describes one compression attempt. When Compressed is false Data
// is the untouched input.
type Result struct {
	Data           []byte
	MimeType       string
	OriginalSize   int64
	CompressedSize int64
	Quality        int
	Compressed     bool
}

// Ratio is the fraction of bytes saved, 0 when nothing was saved.
func (r Result) Ratio() float64 {
	if r.OriginalSize == 0 || r.CompressedSize >= r.OriginalSize {
		return 0
	}
	return 1 - float64(r.CompressedSize)/float64(r.OriginalSize)
}

type Compressor struct {
	opts Options
}

func New(opts Options) *Compressor {
	return &Compressor{opts: opts.withDefaults()}
}

// ShouldCompress reports whether a file of the given type and size is
// eligible: only images above the threshold are touched.
func (c *Compressor) ShouldCompress(mimeType string, size int64) bool {
	if !strings.HasPrefix(mimeType, "image/") {
		return false
	}
	return size > int64(c.opts.ThresholdMB*MiB)
}

func (c *Compressor) Budget() int64 {
	return int64(c.opts.MaxSizeMB * MiB)
}

// Compress decodes data at native resolution and re-encodes it as JPEG,
// starting at StartQuality and stepping down by QualityStep while the
// output exceeds the budget and quality is above MinQuality.
//
// A decode failure is not an error: the input is returned unchanged. The
// only error is context cancellation, which is checked before every encode.
func (c *Compressor) Compress(ctx context.Context, data []byte, mimeType string) (Result, error) {
	const op = "compressor.Compress"

	original := Result{
		Data:           data,
		MimeType:       mimeType,
		OriginalSize:   int64(len(data)),
		CompressedSize: int64(len(data)),
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return original, nil
	}

	img = flatten(img)
	budget := c.Budget()

	var (
		out     []byte
		quality = c.opts.StartQuality
	)

	for {
		if err := ctx.Err(); err != nil {
			return original, fmt.Errorf("%s: %w", op, err)
		}

		out, err = encode(img, quality)
		if err != nil {
			return original, nil
		}

		if int64(len(out)) <= budget || quality <= c.opts.MinQuality {
			break
		}

		quality -= c.opts.QualityStep
		if quality < c.opts.MinQuality {
			quality = c.opts.MinQuality
		}
	}

	if len(out) >= len(data) {
		original.Quality = quality
		return original, nil
	}

	return Result{
		Data:           out,
		MimeType:       OutputMimeType,
		OriginalSize:   int64(len(data)),
		CompressedSize: int64(len(out)),
		Quality:        quality,
		Compressed:     true,
	}, nil
}

func encode(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// flatten composites images with an alpha channel onto white, JPEG has no
// transparency.
func flatten(img image.Image) image.Image {
	switch img.(type) {
	case *image.YCbCr, *image.Gray, *image.CMYK:
		return img
	}

	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(dst, b, img, b.Min, draw.Over)

	return dst
}
