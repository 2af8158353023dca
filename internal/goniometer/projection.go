package goniometer

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Plane is a detector panel in the laboratory frame.
type Plane struct {
	Origin    r3.Vec
	Fast      r3.Vec // unit
	Slow      r3.Vec // unit
	PixelSize r2.Vec // mm along fast and slow
	Width     int
	Height    int
}

// Project returns where the ray from the sample (at the lab origin)
// through p meets the plane, in pixel coordinates. ok is false when p does
// not lie between the sample and the plane, so cannot cast a shadow on it.
func (pl *Plane) Project(p r3.Vec) (px r2.Vec, ok bool, err error) {
	// origin + u*fast + v*slow = t*p
	a := mat.NewDense(3, 3, []float64{
		pl.Fast.X, pl.Slow.X, -p.X,
		pl.Fast.Y, pl.Slow.Y, -p.Y,
		pl.Fast.Z, pl.Slow.Z, -p.Z,
	})
	b := mat.NewVecDense(3, []float64{-pl.Origin.X, -pl.Origin.Y, -pl.Origin.Z})
	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		var cond mat.Condition
		if errors.As(err, &cond) {
			// ray parallel to the panel
			return r2.Vec{}, false, nil
		}
		return r2.Vec{}, false, fmt.Errorf("projecting %v: %w", p, err)
	}
	if t := x.AtVec(2); t < 1 {
		return r2.Vec{}, false, nil
	}
	return r2.Vec{X: x.AtVec(0) / pl.PixelSize.X, Y: x.AtVec(1) / pl.PixelSize.Y}, true, nil
}
