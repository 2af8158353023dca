package shadow

// OcclusionMask marks the pixels of one panel hidden by goniometer hardware.
// Occluded is row-major, Width*Height long, true where the pixel is shadowed.
type OcclusionMask struct {
	Width    int
	Height   int
	Occluded []bool
}

// NewOcclusionMask returns a mask with no pixel occluded.
func NewOcclusionMask(width, height int) *OcclusionMask {
	return &OcclusionMask{Width: width, Height: height, Occluded: make([]bool, width*height)}
}

// At reports whether pixel (x, y) is occluded.
func (m *OcclusionMask) At(x, y int) bool {
	return m.Occluded[y*m.Width+x]
}

// Set marks pixel (x, y).
func (m *OcclusionMask) Set(x, y int, occluded bool) {
	m.Occluded[y*m.Width+x] = occluded
}

// MaskProvider computes per-panel occlusion for a detector at one scan angle.
//
// The returned slice has one entry per panel of d. A nil entry means the
// panel is fully illuminated at that angle. Implementations must return the
// same masks for the same detector and angle within a run.
type MaskProvider interface {
	OcclusionFor(d *Detector, angle float64) ([]*OcclusionMask, error)
}

// MaskProviderFunc adapts a function to MaskProvider.
type MaskProviderFunc func(d *Detector, angle float64) ([]*OcclusionMask, error)

// OcclusionFor calls f(d, angle).
func (f MaskProviderFunc) OcclusionFor(d *Detector, angle float64) ([]*OcclusionMask, error) {
	return f(d, angle)
}

// Unoccluded is a MaskProvider that never shadows anything.
var Unoccluded MaskProvider = MaskProviderFunc(func(d *Detector, _ float64) ([]*OcclusionMask, error) {
	return make([]*OcclusionMask, len(d.Panels)), nil
})
