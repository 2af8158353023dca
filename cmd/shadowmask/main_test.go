package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-shadowmask/shadow"
)

const experiments = `
experiments:
  - goniometer:
      axes: [[1, 0, 0]]
      scan_axis: 0
    detector:
      panels:
        - image_size: [4, 3]
          pixel_size: [1, 1]
          origin: [-2, 1.5, -10]
          fast_axis: [1, 0, 0]
          slow_axis: [0, -1, 0]
    scan:
      image_range: [1, 2]
      oscillation: [0, 0.5]
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeExperiments(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "experiments.yaml")
	require.NoError(t, os.WriteFile(path, []byte(experiments), 0o644))
	return path
}

func TestGenerateAndInspect(t *testing.T) {
	in := writeExperiments(t)
	out := filepath.Join(t.TempDir(), "mask.h5")

	_, err := execute(t, "generate", "-q", "compression=lz4", "output="+out, in)
	require.NoError(t, err)

	r, err := shadow.OpenVolume(out, "")
	require.NoError(t, err)
	assert.Equal(t, shadow.VolumeShape{Frames: 2, Height: 3, Width: 4}, r.Shape())
	assert.Equal(t, []string{"lz4"}, r.Filters())
	require.NoError(t, r.Close())

	text, err := execute(t, "inspect", "--tree", out)
	require.NoError(t, err)
	assert.Contains(t, text, "Shape:       (2, 3, 4)")
	assert.Contains(t, text, "Compression: [lz4]")
	assert.Contains(t, text, `Dataset "dynamic_mask"`)
}

func TestGenerateSummary(t *testing.T) {
	out := filepath.Join(t.TempDir(), "mask.h5")
	text, err := execute(t, "generate", "--log-level", "error", "-o", out, "-c", "none", writeExperiments(t))
	require.NoError(t, err)
	assert.Contains(t, text, out)
	assert.Contains(t, text, "0 / 2")
}

func TestGenerateArguments(t *testing.T) {
	_, err := execute(t, "generate", "-q")
	assert.ErrorIs(t, err, shadow.ErrConfiguration)

	_, err = execute(t, "generate", "-q", "colour=red", writeExperiments(t))
	assert.Error(t, err)

	_, err = execute(t, "generate", "-q", "-o", filepath.Join(t.TempDir(), "x.h5"), "-c", "bad name", writeExperiments(t))
	assert.ErrorIs(t, err, shadow.ErrUnsupportedCompression)
}

func TestInspectMissingFile(t *testing.T) {
	_, err := execute(t, "inspect", filepath.Join(t.TempDir(), "absent.h5"))
	assert.ErrorIs(t, err, shadow.ErrStorageBackend)
}
