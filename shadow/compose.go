package shadow

import "fmt"

// Compositor turns the per-panel occlusion masks for an angle into a full
// detector frame. It reuses one frame buffer, so the frame returned by
// Compose is only valid until the next call.
type Compositor struct {
	detector *Detector
	masks    MaskProvider
	frame    *Frame
}

// NewCompositor returns a compositor for d drawing masks from p.
func NewCompositor(d *Detector, p MaskProvider) (*Compositor, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if p == nil {
		return nil, &ConfigurationError{Field: "masker", Reason: "no mask provider"}
	}
	h, w := d.FrameShape()
	return &Compositor{detector: d, masks: p, frame: NewIlluminatedFrame(h, w)}, nil
}

// FrameShape returns the height and width of composed frames.
func (c *Compositor) FrameShape() (height, width int) {
	return c.frame.Height, c.frame.Width
}

// Compose builds the frame for angle. Pixels are 1 where illuminated and 0
// where a panel mask reports occlusion. The boolean result is false when no
// panel reported a mask, in which case the frame is all ones.
func (c *Compositor) Compose(angle float64) (*Frame, bool, error) {
	masks, err := c.masks.OcclusionFor(c.detector, angle)
	if err != nil {
		return nil, false, fmt.Errorf("occlusion at %g: %w", angle, err)
	}
	if len(masks) != len(c.detector.Panels) {
		return nil, false, &GeometryMismatchError{
			Panel:  -1,
			Reason: fmt.Sprintf("%d masks for %d panels at angle %g", len(masks), len(c.detector.Panels), angle),
		}
	}
	for i, m := range masks {
		if m == nil {
			continue
		}
		p := c.detector.Panels[i]
		if m.Width != p.Width || m.Height != p.Height || len(m.Occluded) != p.Width*p.Height {
			return nil, false, &GeometryMismatchError{
				Panel:  i,
				Reason: fmt.Sprintf("mask is %dx%d (%d values), panel is %dx%d", m.Width, m.Height, len(m.Occluded), p.Width, p.Height),
			}
		}
	}

	c.frame.Reset()
	masked := false
	for i, m := range masks {
		if m == nil {
			continue
		}
		masked = true
		p := c.detector.Panels[i]
		for y := 0; y < p.Height; y++ {
			row := c.frame.Pix[(p.OffsetY+y)*c.frame.Width+p.OffsetX:][:p.Width]
			for x, occluded := range m.Occluded[y*p.Width : (y+1)*p.Width] {
				if occluded {
					row[x] = Shadowed
				} else {
					row[x] = Illuminated
				}
			}
		}
	}
	return c.frame, masked, nil
}
