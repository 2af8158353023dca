// Package experiment loads the experiment description a shadow mask is
// computed for: goniometer, detector, scan and the hardware that casts
// shadows. Files are YAML; JSON input is accepted as the YAML subset it is.
package experiment

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/robert-malhotra/go-shadowmask/shadow"
)

// Shadow models.
const (
	ModelPolygon = "polygon"
	ModelNone    = "none"
)

// List is the top level of an experiment file.
type List struct {
	Experiments []Experiment `yaml:"experiments"`
}

// Experiment is one goniometer, detector and scan.
type Experiment struct {
	Goniometer Goniometer `yaml:"goniometer"`
	Detector   Detector   `yaml:"detector"`
	Scan       Scan       `yaml:"scan"`
	Shadow     Shadow     `yaml:"shadow"`
}

// Goniometer is a stack of rotation axes listed innermost first. Angles
// are the fixed settings in degrees; the scan axis setting is replaced by
// the scan angle.
type Goniometer struct {
	Axes     [][3]float64 `yaml:"axes"`
	Angles   []float64    `yaml:"angles"`
	Names    []string     `yaml:"names"`
	ScanAxis int          `yaml:"scan_axis"`
}

// Detector is an ordered list of flat panels.
type Detector struct {
	Panels []Panel `yaml:"panels"`
}

// Panel positions a pixel array in the laboratory frame. ImageSize is
// (fast, slow) in pixels, PixelSize (fast, slow) in mm, Origin the lab
// position of the first pixel corner in mm. Offset places the panel in the
// composed frame, in pixels.
type Panel struct {
	Name      string     `yaml:"name"`
	ImageSize [2]int     `yaml:"image_size"`
	PixelSize [2]float64 `yaml:"pixel_size"`
	Origin    [3]float64 `yaml:"origin"`
	FastAxis  [3]float64 `yaml:"fast_axis"`
	SlowAxis  [3]float64 `yaml:"slow_axis"`
	Offset    [2]int     `yaml:"offset"`
}

// Scan is a rotation scan. ImageRange is the inclusive, one-based range of
// images; Oscillation is (start angle, width per image) in degrees.
type Scan struct {
	ImageRange  [2]int     `yaml:"image_range"`
	Oscillation [2]float64 `yaml:"oscillation"`
}

// Shadow selects the occlusion model and the hardware it projects.
type Shadow struct {
	Model    string      `yaml:"model"`
	Hardware []Component `yaml:"hardware"`
}

// Component is a rigid piece of goniometer hardware given as points in mm.
// It is mounted on goniometer axis Axis and moves with that axis and every
// axis outside it.
type Component struct {
	Name   string       `yaml:"name"`
	Axis   int          `yaml:"axis"`
	Points [][3]float64 `yaml:"points"`
}

// Load reads the file at path and returns its single experiment.
func Load(path string) (*Experiment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading experiments: %w", err)
	}
	exp, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return exp, nil
}

// Parse decodes an experiment file. Exactly one experiment must be present.
func Parse(data []byte) (*Experiment, error) {
	var list List
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&list); err != nil && !errors.Is(err, io.EOF) {
		return nil, &shadow.ConfigurationError{Field: "experiments", Reason: err.Error()}
	}
	if n := len(list.Experiments); n != 1 {
		return nil, &shadow.ConfigurationError{
			Field:  "experiments",
			Reason: fmt.Sprintf("expected exactly one experiment, found %d", n),
		}
	}
	exp := &list.Experiments[0]
	if err := exp.Validate(); err != nil {
		return nil, err
	}
	return exp, nil
}

func configErr(field, format string, args ...any) error {
	return &shadow.ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks the experiment for consistency.
func (e *Experiment) Validate() error {
	g := e.Goniometer
	if len(g.Axes) == 0 {
		return configErr("goniometer.axes", "no axes")
	}
	if len(g.Angles) != 0 && len(g.Angles) != len(g.Axes) {
		return configErr("goniometer.angles", "%d angles for %d axes", len(g.Angles), len(g.Axes))
	}
	if len(g.Names) != 0 && len(g.Names) != len(g.Axes) {
		return configErr("goniometer.names", "%d names for %d axes", len(g.Names), len(g.Axes))
	}
	if g.ScanAxis < 0 || g.ScanAxis >= len(g.Axes) {
		return configErr("goniometer.scan_axis", "%d is not one of %d axes", g.ScanAxis, len(g.Axes))
	}
	for i, a := range g.Axes {
		if a == [3]float64{} {
			return configErr("goniometer.axes", "axis %d is zero", i)
		}
	}

	if len(e.Detector.Panels) == 0 {
		return configErr("detector.panels", "no panels")
	}
	for i, p := range e.Detector.Panels {
		if p.ImageSize[0] <= 0 || p.ImageSize[1] <= 0 {
			return configErr("detector.panels", "panel %d image size %v", i, p.ImageSize)
		}
		if p.PixelSize[0] <= 0 || p.PixelSize[1] <= 0 {
			return configErr("detector.panels", "panel %d pixel size %v", i, p.PixelSize)
		}
		if p.FastAxis == [3]float64{} || p.SlowAxis == [3]float64{} {
			return configErr("detector.panels", "panel %d has a zero axis", i)
		}
	}
	if err := e.ShadowDetector().Validate(); err != nil {
		return err
	}

	s := e.Scan
	if s.ImageRange[0] < 1 || s.ImageRange[1] < s.ImageRange[0] {
		return configErr("scan.image_range", "%v is not a one-based inclusive range", s.ImageRange)
	}
	if err := e.ScanGeometry().Validate(); err != nil {
		return err
	}

	switch e.Shadow.Model {
	case "", ModelNone:
	case ModelPolygon:
		for i, c := range e.Shadow.Hardware {
			if c.Axis < 0 || c.Axis >= len(g.Axes) {
				return configErr("shadow.hardware", "component %d (%s) mounted on axis %d of %d", i, c.Name, c.Axis, len(g.Axes))
			}
		}
	default:
		return configErr("shadow.model", "unknown model %q", e.Shadow.Model)
	}
	return nil
}

// NumImages returns the number of images in the scan.
func (e *Experiment) NumImages() int {
	return e.Scan.ImageRange[1] - e.Scan.ImageRange[0] + 1
}

// ArrayRange returns the zero-based, half-open range of images.
func (e *Experiment) ArrayRange() [2]int {
	return [2]int{e.Scan.ImageRange[0] - 1, e.Scan.ImageRange[1]}
}

// ScanGeometry returns the oscillation range covered by the images, one
// step per image.
func (e *Experiment) ScanGeometry() shadow.ScanGeometry {
	start, width := e.Scan.Oscillation[0], e.Scan.Oscillation[1]
	return shadow.ScanGeometry{
		Start: start,
		End:   start + width*float64(e.NumImages()),
		Step:  width,
	}
}

// ShadowDetector returns the panel layout of the composed frame.
func (e *Experiment) ShadowDetector() *shadow.Detector {
	d := &shadow.Detector{}
	for i, p := range e.Detector.Panels {
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("panel%d", i)
		}
		d.Panels = append(d.Panels, shadow.Panel{
			Name:    name,
			Width:   p.ImageSize[0],
			Height:  p.ImageSize[1],
			OffsetX: p.Offset[0],
			OffsetY: p.Offset[1],
		})
	}
	return d
}
