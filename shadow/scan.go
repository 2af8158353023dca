package shadow

import (
	"iter"
	"math"
)

// rangeTolerance absorbs floating point noise in (end-start)/step so that a
// range whose end lands on a step boundary excludes it.
const rangeTolerance = 1e-9

// ScanGeometry describes an oscillation scan in degrees. Samples form the
// half-open range [Start, End) advancing by Step.
type ScanGeometry struct {
	Start float64
	End   float64
	Step  float64
}

// Validate checks that the geometry describes a finite, forward scan.
func (g ScanGeometry) Validate() error {
	for _, v := range []struct {
		name string
		val  float64
	}{{"start", g.Start}, {"end", g.End}, {"step", g.Step}} {
		if math.IsNaN(v.val) || math.IsInf(v.val, 0) {
			return &ConfigurationError{Field: v.name, Reason: "must be finite"}
		}
	}
	if g.Step <= 0 {
		return &ConfigurationError{Field: "step", Reason: "must be positive"}
	}
	if g.End < g.Start {
		return &ConfigurationError{Field: "end", Reason: "must not precede start"}
	}
	return nil
}

// Count returns the number of samples in the scan, or 0 for an invalid
// geometry.
func (g ScanGeometry) Count() int {
	if g.Validate() != nil {
		return 0
	}
	n := (g.End - g.Start) / g.Step
	return int(math.Ceil(n - rangeTolerance*math.Max(1, math.Abs(n))))
}

// Angle returns sample i, computed from its index rather than accumulated.
func (g ScanGeometry) Angle(i int) float64 {
	return g.Start + float64(i)*g.Step
}

// Angles returns the scan samples as (index, angle) pairs in increasing
// order. Each range over the sequence derives the values afresh.
func (g ScanGeometry) Angles() (iter.Seq2[int, float64], error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	n := g.Count()
	return func(yield func(int, float64) bool) {
		for i := 0; i < n; i++ {
			if !yield(i, g.Angle(i)) {
				return
			}
		}
	}, nil
}
