package goniometer

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/robert-malhotra/go-shadowmask/internal/experiment"
	"github.com/robert-malhotra/go-shadowmask/shadow"
)

type component struct {
	name   string
	mount  int
	points []r3.Vec
}

// Model projects hardware components onto the detector panels. It
// implements shadow.MaskProvider.
type Model struct {
	stack      *Stack
	planes     []Plane
	components []component
}

func vec(v [3]float64) r3.Vec { return r3.Vec{X: v[0], Y: v[1], Z: v[2]} }

// New returns the occlusion model an experiment asks for. The "none" model,
// and a polygon model without hardware, never shadow anything.
func New(exp *experiment.Experiment) (shadow.MaskProvider, error) {
	if exp.Shadow.Model != experiment.ModelPolygon || len(exp.Shadow.Hardware) == 0 {
		return shadow.Unoccluded, nil
	}
	g := exp.Goniometer
	axes := make([]r3.Vec, len(g.Axes))
	for i, a := range g.Axes {
		axes[i] = vec(a)
	}
	settings := g.Angles
	if len(settings) == 0 {
		settings = make([]float64, len(axes))
	}
	m := &Model{stack: NewStack(axes, settings, g.ScanAxis)}

	for _, p := range exp.Detector.Panels {
		m.planes = append(m.planes, Plane{
			Origin:    vec(p.Origin),
			Fast:      r3.Unit(vec(p.FastAxis)),
			Slow:      r3.Unit(vec(p.SlowAxis)),
			PixelSize: r2.Vec{X: p.PixelSize[0], Y: p.PixelSize[1]},
			Width:     p.ImageSize[0],
			Height:    p.ImageSize[1],
		})
	}
	for _, c := range exp.Shadow.Hardware {
		pts := make([]r3.Vec, len(c.Points))
		for i, p := range c.Points {
			pts[i] = vec(p)
		}
		m.components = append(m.components, component{name: c.Name, mount: c.Axis, points: pts})
	}
	return m, nil
}

// OcclusionFor returns the masks of d's panels at the scan angle. Panels
// no component shadows get a nil mask.
func (m *Model) OcclusionFor(d *shadow.Detector, angle float64) ([]*shadow.OcclusionMask, error) {
	if len(d.Panels) != len(m.planes) {
		return nil, &shadow.GeometryMismatchError{
			Panel:  -1,
			Reason: fmt.Sprintf("detector has %d panels, model has %d", len(d.Panels), len(m.planes)),
		}
	}
	rots := m.stack.Rotations(angle)
	lab := make([][]r3.Vec, len(m.components))
	for i, c := range m.components {
		lab[i] = make([]r3.Vec, len(c.points))
		for j, p := range c.points {
			lab[i][j] = Place(rots, c.mount, p)
		}
	}

	masks := make([]*shadow.OcclusionMask, len(m.planes))
	for pi := range m.planes {
		pl := &m.planes[pi]
		for ci, pts := range lab {
			projected := make([]r2.Vec, 0, len(pts))
			for _, p := range pts {
				px, ok, err := pl.Project(p)
				if err != nil {
					return nil, fmt.Errorf("%s on panel %d: %w", m.components[ci].name, pi, err)
				}
				if ok {
					projected = append(projected, px)
				}
			}
			fill(convexHull(projected), pl.Width, pl.Height, func(x, y int) {
				if masks[pi] == nil {
					masks[pi] = shadow.NewOcclusionMask(pl.Width, pl.Height)
				}
				masks[pi].Set(x, y, true)
			})
		}
	}
	return masks, nil
}
