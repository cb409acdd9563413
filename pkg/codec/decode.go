package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	// Register additional container formats with image.Decode
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// gray16Scale is the legacy rescale applied to 16-bit grayscale samples.
// It is a fixed factor, not a dynamic-range rescale.
const gray16Scale = 1.0 / 255.0

// Decode parses an encoded image into a frame and its mask. Images with an
// alpha channel yield an RGB frame and mask = 1 - alpha; images without
// alpha yield an RGB frame and an all-zero mask.
func Decode(data []byte) (Frame, MaskPlane, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Frame{}, MaskPlane{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	b := img.Bounds()
	if b.Empty() {
		return Frame{}, MaskPlane{}, fmt.Errorf("%w: %s image has no pixels", ErrDecode, format)
	}

	if g16, ok := img.(*image.Gray16); ok {
		img = rescaleGray16(g16)
	}

	h, w := b.Dy(), b.Dx()
	frame := NewFrame(h, w, 3)
	mask := NewMaskPlane(h, w)
	alpha := hasAlpha(img)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, a := sample(img, b.Min.X+x, b.Min.Y+y)
			i := (y*w + x) * 3
			frame.Pix[i+0] = float32(r) / 255.0
			frame.Pix[i+1] = float32(g) / 255.0
			frame.Pix[i+2] = float32(bl) / 255.0
			if alpha {
				mask.Pix[y*w+x] = 1.0 - float32(a)/255.0
			}
		}
	}

	return frame, mask, nil
}

// hasAlpha reports whether the decoded color model carries a real alpha
// channel. Opaque truecolor PNGs decode to *image.RGBA and are treated as RGB.
func hasAlpha(img image.Image) bool {
	switch img.(type) {
	case *image.NRGBA, *image.NRGBA64, *image.NYCbCrA, *image.Alpha, *image.Alpha16:
		return true
	}
	return false
}

// sample returns straight (non-premultiplied) 8-bit RGBA at x, y
func sample(img image.Image, x, y int) (uint8, uint8, uint8, uint8) {
	switch src := img.(type) {
	case *image.NRGBA:
		o := src.PixOffset(x, y)
		return src.Pix[o], src.Pix[o+1], src.Pix[o+2], src.Pix[o+3]
	case *image.Gray:
		v := src.Pix[src.PixOffset(x, y)]
		return v, v, v, 0xff
	}

	c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
	return c.R, c.G, c.B, c.A
}

// rescaleGray16 maps each 16-bit sample to trunc(v / 255), clamped to 8 bits
func rescaleGray16(src *image.Gray16) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := int(float64(src.Gray16At(x, y).Y) * gray16Scale)
			if v > 255 {
				v = 255
			}
			dst.SetGray(x, y, color.Gray{Y: uint8(v)})
		}
	}
	return dst
}
