package codec

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode is returned when a byte buffer is not a recognized image container
	ErrDecode = errors.New("image decode failed")

	// ErrInvalidFrame is returned for frames with an unsupported shape
	ErrInvalidFrame = errors.New("invalid frame")
)

// Frame is one image as a row-major height x width x channel buffer of
// float32 samples in [0, 1]. Channels is 3 (RGB) or 4 (RGBA).
type Frame struct {
	Height   int
	Width    int
	Channels int
	Pix      []float32
}

// Batch is an ordered sequence of frames
type Batch []Frame

// MaskPlane is a height x width opacity buffer holding 1 - alpha
type MaskPlane struct {
	Height int
	Width  int
	Pix    []float32
}

// MaxSamples bounds height x width x channels for one frame or mask
const MaxSamples = 1 << 30

// CheckShape rejects non-positive dimensions and shapes whose sample count
// exceeds MaxSamples. The product is never formed before the bound holds.
func CheckShape(height, width, channels int) error {
	if height <= 0 || width <= 0 || channels <= 0 {
		return fmt.Errorf("%w: dimensions must be positive, got %dx%dx%d", ErrInvalidFrame, height, width, channels)
	}
	if width > MaxSamples/channels || height > MaxSamples/channels/width {
		return fmt.Errorf("%w: shape %dx%dx%d exceeds %d samples", ErrInvalidFrame, height, width, channels, MaxSamples)
	}
	return nil
}

// NewFrame allocates a zeroed frame
func NewFrame(height, width, channels int) Frame {
	return Frame{
		Height:   height,
		Width:    width,
		Channels: channels,
		Pix:      make([]float32, height*width*channels),
	}
}

// NewMaskPlane allocates an all-zero mask
func NewMaskPlane(height, width int) MaskPlane {
	return MaskPlane{
		Height: height,
		Width:  width,
		Pix:    make([]float32, height*width),
	}
}

// Validate checks the channel count and buffer length
func (f Frame) Validate() error {
	if f.Channels != 3 && f.Channels != 4 {
		return fmt.Errorf("%w: channel count must be 3 or 4, got %d", ErrInvalidFrame, f.Channels)
	}
	if err := CheckShape(f.Height, f.Width, f.Channels); err != nil {
		return err
	}
	if want := f.Height * f.Width * f.Channels; len(f.Pix) != want {
		return fmt.Errorf("%w: expected %d samples for %dx%dx%d, got %d",
			ErrInvalidFrame, want, f.Height, f.Width, f.Channels, len(f.Pix))
	}
	return nil
}

// At returns the sample at row y, column x, channel c
func (f Frame) At(y, x, c int) float32 {
	return f.Pix[(y*f.Width+x)*f.Channels+c]
}

// Set stores v at row y, column x, channel c
func (f Frame) Set(y, x, c int, v float32) {
	f.Pix[(y*f.Width+x)*f.Channels+c] = v
}

// At returns the mask value at row y, column x
func (m MaskPlane) At(y, x int) float32 {
	return m.Pix[y*m.Width+x]
}

// WithAlpha returns a new RGBA frame from the first three channels of f
// and alpha = 1 - mask. f is not modified.
func WithAlpha(f Frame, m MaskPlane) (Frame, error) {
	if err := f.Validate(); err != nil {
		return Frame{}, err
	}
	if m.Height != f.Height || m.Width != f.Width || len(m.Pix) != f.Height*f.Width {
		return Frame{}, fmt.Errorf("%w: mask %dx%d does not match frame %dx%d",
			ErrInvalidFrame, m.Width, m.Height, f.Width, f.Height)
	}

	out := NewFrame(f.Height, f.Width, 4)
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			for c := 0; c < 3; c++ {
				out.Set(y, x, c, f.At(y, x, c))
			}
			out.Set(y, x, 3, 1-m.At(y, x))
		}
	}
	return out, nil
}

// HasTransparency reports whether any mask sample is non-zero
func (m MaskPlane) HasTransparency() bool {
	for _, v := range m.Pix {
		if v != 0 {
			return true
		}
	}
	return false
}
