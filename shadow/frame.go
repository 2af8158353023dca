package shadow

import "bytes"

// Pixel values of a frame.
const (
	Shadowed    uint8 = 0
	Illuminated uint8 = 1
)

// Frame is one detector image of the shadow volume, row-major, one byte per
// pixel.
type Frame struct {
	Height int
	Width  int
	Pix    []uint8
}

// NewIlluminatedFrame returns a frame with every pixel illuminated.
func NewIlluminatedFrame(height, width int) *Frame {
	f := &Frame{Height: height, Width: width, Pix: make([]uint8, height*width)}
	f.Reset()
	return f
}

// Reset marks every pixel illuminated.
func (f *Frame) Reset() {
	for i := range f.Pix {
		f.Pix[i] = Illuminated
	}
}

// At returns the value of pixel (x, y).
func (f *Frame) At(x, y int) uint8 {
	return f.Pix[y*f.Width+x]
}

// Set sets pixel (x, y).
func (f *Frame) Set(x, y int, v uint8) {
	f.Pix[y*f.Width+x] = v
}

// Equal reports whether two frames have the same shape and pixels.
func (f *Frame) Equal(g *Frame) bool {
	return f.Height == g.Height && f.Width == g.Width && bytes.Equal(f.Pix, g.Pix)
}

// ShadowedCount returns the number of shadowed pixels.
func (f *Frame) ShadowedCount() int {
	n := 0
	for _, v := range f.Pix {
		if v == Shadowed {
			n++
		}
	}
	return n
}

// IsIlluminated reports whether no pixel is shadowed.
func (f *Frame) IsIlluminated() bool {
	return f.ShadowedCount() == 0
}
