package goniometer

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Stack is a goniometer as a chain of rotation axes, innermost first.
type Stack struct {
	axes     []r3.Vec
	settings []float64 // degrees
	scanAxis int
}

// NewStack returns a stack rotating about axes with the given fixed angle
// settings in degrees. The setting of scanAxis is replaced by the scan
// angle when positioning points.
func NewStack(axes []r3.Vec, settings []float64, scanAxis int) *Stack {
	s := &Stack{axes: make([]r3.Vec, len(axes)), settings: make([]float64, len(axes)), scanAxis: scanAxis}
	for i, a := range axes {
		s.axes[i] = r3.Unit(a)
	}
	copy(s.settings, settings)
	return s
}

// Rotations returns the rotation of each axis at the given scan angle.
func (s *Stack) Rotations(scanAngle float64) []r3.Rotation {
	rots := make([]r3.Rotation, len(s.axes))
	for i, axis := range s.axes {
		deg := s.settings[i]
		if i == s.scanAxis {
			deg = scanAngle
		}
		rots[i] = r3.NewRotation(deg*math.Pi/180, axis)
	}
	return rots
}

// Place moves p, a point mounted on axis mount, into the laboratory frame:
// it is rotated by that axis and then by every axis outside it.
func Place(rots []r3.Rotation, mount int, p r3.Vec) r3.Vec {
	for _, r := range rots[mount:] {
		p = r.Rotate(p)
	}
	return p
}
