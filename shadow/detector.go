package shadow

import "fmt"

// Panel is one rectangular pixel array of a detector. OffsetX and OffsetY
// place the panel's first pixel inside the full detector frame.
type Panel struct {
	Name    string
	Width   int
	Height  int
	OffsetX int
	OffsetY int
}

func (p Panel) overlaps(q Panel) bool {
	return p.OffsetX < q.OffsetX+q.Width && q.OffsetX < p.OffsetX+p.Width &&
		p.OffsetY < q.OffsetY+q.Height && q.OffsetY < p.OffsetY+p.Height
}

// Detector is an ordered set of non-overlapping panels sharing one frame.
type Detector struct {
	Panels []Panel
}

// NewSinglePanelDetector returns a detector with one panel at the origin.
func NewSinglePanelDetector(width, height int) *Detector {
	return &Detector{Panels: []Panel{{Name: "panel0", Width: width, Height: height}}}
}

// FrameShape returns the height and width of the bounding box of all panels.
// For a single panel at the origin this is the panel's own shape.
func (d *Detector) FrameShape() (height, width int) {
	for _, p := range d.Panels {
		height = max(height, p.OffsetY+p.Height)
		width = max(width, p.OffsetX+p.Width)
	}
	return height, width
}

// Validate checks that the detector has panels with positive sizes placed
// at non-negative, non-overlapping offsets.
func (d *Detector) Validate() error {
	if d == nil || len(d.Panels) == 0 {
		return &ConfigurationError{Field: "detector", Reason: "no panels"}
	}
	for i, p := range d.Panels {
		if p.Width <= 0 || p.Height <= 0 {
			return &GeometryMismatchError{Panel: i, Reason: fmt.Sprintf("size %dx%d is not positive", p.Width, p.Height)}
		}
		if p.OffsetX < 0 || p.OffsetY < 0 {
			return &GeometryMismatchError{Panel: i, Reason: fmt.Sprintf("offset (%d, %d) is negative", p.OffsetX, p.OffsetY)}
		}
		for j := range i {
			if p.overlaps(d.Panels[j]) {
				return &GeometryMismatchError{Panel: i, Reason: fmt.Sprintf("overlaps panel %d", j)}
			}
		}
	}
	return nil
}
