// Package preprocess converts uploaded leaf photos into classifier input tensors.
package preprocess

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
)

// ErrDecode is returned for empty or undecodable image data.
var ErrDecode = errors.New("cannot decode image")

// Layout is the channel ordering of the input tensor.
type Layout string

const (
	// NHWC stores pixels row by row with interleaved channels (Keras default).
	NHWC Layout = "NHWC"
	// NCHW stores one full plane per channel (PyTorch default).
	NCHW Layout = "NCHW"
)

// ParseLayout accepts either layout name, case-insensitively. Empty means NHWC.
func ParseLayout(s string) (Layout, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(NHWC):
		return NHWC, nil
	case string(NCHW):
		return NCHW, nil
	default:
		return "", fmt.Errorf("unknown tensor layout %q", s)
	}
}

// Options control the tensor produced by Tensor.
type Options struct {
	Size   int
	Layout Layout
	// Scale divides every 8-bit channel value; 1 keeps raw 0-255 pixels.
	Scale float32
}

// DefaultMaxPixels bounds the decoded size of an upload when no limit is given.
const DefaultMaxPixels = 50_000_000

// Decode reads JPEG or PNG data (and any other registered format), applying
// the EXIF orientation so phone photos are upright. Images declaring more
// than maxPixels pixels are rejected before any pixel data is decoded; a
// non-positive maxPixels means DefaultMaxPixels.
func Decode(data []byte, maxPixels int) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty data", ErrDecode)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if err := checkDimensions(cfg, maxPixels); err != nil {
		return nil, "", err
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, format, nil
}

func checkDimensions(cfg image.Config, maxPixels int) error {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("%w: image has no pixels (%dx%d)", ErrDecode, cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return fmt.Errorf("%w: %dx%d image exceeds the %d pixel limit", ErrDecode, cfg.Width, cfg.Height, maxPixels)
	}
	return nil
}

// Thumbnail decodes data under the same pixel limit and returns a JPEG no
// larger than maxSide on either edge, for showing the upload back to the user.
func Thumbnail(data []byte, maxSide, maxPixels int) ([]byte, error) {
	img, _, err := Decode(data, maxPixels)
	if err != nil {
		return nil, err
	}
	thumb := imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// Tensor converts img to RGB, resizes it to Size x Size and flattens it in
// the requested layout. Alpha is discarded rather than composited.
func Tensor(img image.Image, opts Options) []float32 {
	size := opts.Size
	scale := opts.Scale
	if scale <= 0 {
		scale = 1
	}

	rgb := imaging.Clone(img)
	for i := 3; i < len(rgb.Pix); i += 4 {
		rgb.Pix[i] = 0xff
	}
	resized := imaging.Clone(resize.Resize(uint(size), uint(size), rgb, resize.Bicubic))

	plane := size * size
	out := make([]float32, 3*plane)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			off := resized.PixOffset(x, y)
			r := float32(resized.Pix[off]) / scale
			g := float32(resized.Pix[off+1]) / scale
			b := float32(resized.Pix[off+2]) / scale

			pixel := y*size + x
			if opts.Layout == NCHW {
				out[pixel] = r
				out[plane+pixel] = g
				out[2*plane+pixel] = b
				continue
			}
			out[3*pixel] = r
			out[3*pixel+1] = g
			out[3*pixel+2] = b
		}
	}
	return out
}
