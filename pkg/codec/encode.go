package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"
)

// ContentType is the MIME type of encoded frames
const ContentType = "image/png"

// Encode converts a frame to a PNG byte stream. Samples are scaled by 255,
// rounded and clamped to [0, 255]. Four-channel frames keep their alpha;
// fully opaque frames are written as RGB by the encoder.
func Encode(f Frame) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	img := image.NewNRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			src := (y*f.Width + x) * f.Channels
			dst := img.PixOffset(x, y)
			img.Pix[dst+0] = toByte(f.Pix[src+0])
			img.Pix[dst+1] = toByte(f.Pix[src+1])
			img.Pix[dst+2] = toByte(f.Pix[src+2])
			if f.Channels == 4 {
				img.Pix[dst+3] = toByte(f.Pix[src+3])
			} else {
				img.Pix[dst+3] = 0xff
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func toByte(v float32) uint8 {
	s := math.Round(float64(v) * 255)
	switch {
	case math.IsNaN(s), s <= 0:
		return 0
	case s >= 255:
		return 255
	}
	return uint8(s)
}

// EncodeMask writes m as an 8-bit grayscale PNG
func EncodeMask(m MaskPlane) ([]byte, error) {
	if err := CheckShape(m.Height, m.Width, 1); err != nil {
		return nil, err
	}
	if len(m.Pix) != m.Height*m.Width {
		return nil, fmt.Errorf("%w: mask %dx%d with %d samples", ErrInvalidFrame, m.Width, m.Height, len(m.Pix))
	}

	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			img.Pix[img.PixOffset(x, y)] = toByte(m.At(y, x))
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}
