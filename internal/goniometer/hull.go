package goniometer

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/r2"
)

// convexHull returns the hull of pts in counter-clockwise order using the
// monotone chain. Fewer than three distinct points give no polygon.
func convexHull(pts []r2.Vec) []r2.Vec {
	pts = slices.Clone(pts)
	slices.SortFunc(pts, func(a, b r2.Vec) int {
		if a.X != b.X {
			return cmpFloat(a.X, b.X)
		}
		return cmpFloat(a.Y, b.Y)
	})
	pts = slices.Compact(pts)
	if len(pts) < 3 {
		return nil
	}
	turn := func(o, a, b r2.Vec) float64 { return r2.Cross(r2.Sub(a, o), r2.Sub(b, o)) }

	hull := make([]r2.Vec, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && turn(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && turn(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	hull = hull[:len(hull)-1]
	if len(hull) < 3 {
		return nil
	}
	return hull
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// inside reports whether p lies in the counter-clockwise convex polygon.
func inside(poly []r2.Vec, p r2.Vec) bool {
	for i, a := range poly {
		b := poly[(i+1)%len(poly)]
		if r2.Cross(r2.Sub(b, a), r2.Sub(p, a)) < 0 {
			return false
		}
	}
	return true
}

// fill marks every pixel of the width x height grid whose centre lies in
// poly.
func fill(poly []r2.Vec, width, height int, set func(x, y int)) {
	if len(poly) == 0 {
		return
	}
	lo, hi := poly[0], poly[0]
	for _, p := range poly[1:] {
		lo = r2.Vec{X: math.Min(lo.X, p.X), Y: math.Min(lo.Y, p.Y)}
		hi = r2.Vec{X: math.Max(hi.X, p.X), Y: math.Max(hi.Y, p.Y)}
	}
	x0, x1 := clamp(math.Floor(lo.X), width), clamp(math.Ceil(hi.X), width)
	y0, y1 := clamp(math.Floor(lo.Y), height), clamp(math.Ceil(hi.Y), height)
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			if inside(poly, r2.Vec{X: float64(x) + 0.5, Y: float64(y) + 0.5}) {
				set(x, y)
			}
		}
	}
}

// clamp limits v to a pixel index in [0, n-1] before converting it.
func clamp(v float64, n int) int {
	return int(math.Max(0, math.Min(v, float64(n-1))))
}
