package experiment

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-shadowmask/shadow"
)

const single = `
experiments:
  - goniometer:
      axes: [[1, 0, 0], [0, 0, -1], [1, 0, 0]]
      angles: [0, 90, 0]
      names: [PHI, CHI, OMEGA]
      scan_axis: 2
    detector:
      panels:
        - name: P0
          image_size: [2463, 2527]
          pixel_size: [0.172, 0.172]
          origin: [-211.3, 219.6, -190.2]
          fast_axis: [1, 0, 0]
          slow_axis: [0, -1, 0]
    scan:
      image_range: [1, 3600]
      oscillation: [0.0, 0.1]
    shadow:
      model: polygon
      hardware:
        - name: chi
          axis: 1
          points: [[0, 10, 10], [0, -10, 10], [0, 0, 20]]
`

func TestParse(t *testing.T) {
	exp, err := Parse([]byte(single))
	require.NoError(t, err)

	assert.Equal(t, 2, exp.Goniometer.ScanAxis)
	assert.Equal(t, [3]float64{0, 0, -1}, exp.Goniometer.Axes[1])
	assert.Equal(t, 3600, exp.NumImages())
	assert.Equal(t, [2]int{0, 3600}, exp.ArrayRange())

	g := exp.ScanGeometry()
	assert.Equal(t, 0.0, g.Start)
	assert.InDelta(t, 360.0, g.End, 1e-9)
	assert.Equal(t, 3600, g.Count())

	d := exp.ShadowDetector()
	h, w := d.FrameShape()
	assert.Equal(t, 2527, h)
	assert.Equal(t, 2463, w)
	assert.Equal(t, "chi", exp.Shadow.Hardware[0].Name)
	assert.Len(t, exp.Shadow.Hardware[0].Points, 3)
}

func TestParseJSON(t *testing.T) {
	data := `{"experiments": [{
		"goniometer": {"axes": [[1, 0, 0]], "scan_axis": 0},
		"detector": {"panels": [{"image_size": [4, 3], "pixel_size": [1, 1],
			"origin": [-2, 1.5, -10], "fast_axis": [1, 0, 0], "slow_axis": [0, -1, 0]}]},
		"scan": {"image_range": [1, 2], "oscillation": [0, 0.5]}
	}]}`
	exp, err := Parse([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, "", exp.Shadow.Model)
	assert.Equal(t, "panel0", exp.ShadowDetector().Panels[0].Name)
	assert.Equal(t, 2, exp.ScanGeometry().Count())
}

func TestParseExperimentCount(t *testing.T) {
	for _, data := range []string{"", "experiments: []", single + "\n  - " + "{}"} {
		_, err := Parse([]byte(data))
		var cfg *shadow.ConfigurationError
		require.ErrorAs(t, err, &cfg)
		assert.Equal(t, "experiments", cfg.Field)
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(e *Experiment)
		field string
	}{
		{"scan axis", func(e *Experiment) { e.Goniometer.ScanAxis = 3 }, "goniometer.scan_axis"},
		{"angles", func(e *Experiment) { e.Goniometer.Angles = []float64{1} }, "goniometer.angles"},
		{"zero axis", func(e *Experiment) { e.Goniometer.Axes[0] = [3]float64{} }, "goniometer.axes"},
		{"image size", func(e *Experiment) { e.Detector.Panels[0].ImageSize = [2]int{0, 1} }, "detector.panels"},
		{"image range", func(e *Experiment) { e.Scan.ImageRange = [2]int{0, 10} }, "scan.image_range"},
		{"oscillation", func(e *Experiment) { e.Scan.Oscillation[1] = 0 }, "step"},
		{"model", func(e *Experiment) { e.Shadow.Model = "raytrace" }, "shadow.model"},
		{"mount", func(e *Experiment) { e.Shadow.Hardware[0].Axis = 5 }, "shadow.hardware"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp, err := Parse([]byte(single))
			require.NoError(t, err)
			tt.edit(exp)
			err = exp.Validate()
			var cfg *shadow.ConfigurationError
			require.ErrorAs(t, err, &cfg)
			assert.Equal(t, tt.field, cfg.Field)
		})
	}
}

func TestParseUnknownField(t *testing.T) {
	_, err := Parse([]byte("experiments:\n  - bogus: 1\n"))
	assert.ErrorIs(t, err, shadow.ErrConfiguration)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "experiments.yaml")
	require.NoError(t, os.WriteFile(path, []byte(single), 0o644))
	exp, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "P0", exp.Detector.Panels[0].Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
