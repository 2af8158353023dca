// Package goniometer computes which detector pixels goniometer hardware
// hides from the sample at a given scan angle.
//
// Hardware components are point clouds in the goniometer frame. For a scan
// angle the points are rotated into the laboratory frame, projected from the
// sample position onto each detector panel and the convex hull of every
// component's projection is rasterised into that panel's occlusion mask.
package goniometer
