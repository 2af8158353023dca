package shadow

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cornerMasker shadows pixel (0, 0) at angle 0 and nothing elsewhere.
var cornerMasker = MaskProviderFunc(func(d *Detector, angle float64) ([]*OcclusionMask, error) {
	if angle == 0 {
		return []*OcclusionMask{maskFrom("#.", "..")}, nil
	}
	return []*OcclusionMask{nil}, nil
})

func TestGenerateEndToEnd(t *testing.T) {
	path := outputPath(t)
	var progress [][2]int
	summary, err := Generate(context.Background(), Job{
		Scan:        ScanGeometry{Start: 0, End: 1, Step: 0.5},
		Detector:    NewSinglePanelDetector(2, 2),
		Masker:      cornerMasker,
		Output:      path,
		Compression: "gzip",
	}, WithObserver(ObserverFunc(func(done, total int) {
		progress = append(progress, [2]int{done, total})
	})))
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Frames)
	assert.Equal(t, 1, summary.ShadowedFrames)
	assert.Equal(t, 1, summary.IlluminatedFrames)
	assert.Equal(t, int64(1), summary.ShadowedPixels)
	assert.Equal(t, VolumeShape{Frames: 2, Height: 2, Width: 2}, summary.Shape)
	assert.Equal(t, [][2]int{{1, 2}, {2, 2}}, progress)

	frames := readAll(t, path)
	require.Len(t, frames, 2)
	assert.Equal(t, []uint8{0, 1, 1, 1}, frames[0].Pix)
	assert.Equal(t, []uint8{1, 1, 1, 1}, frames[1].Pix)
}

func TestGenerateImageRange(t *testing.T) {
	job := Job{
		Scan:       ScanGeometry{Start: 0, End: 1, Step: 0.5},
		ImageRange: [2]int{10, 12},
		Detector:   NewSinglePanelDetector(2, 2),
		Masker:     cornerMasker,
		Output:     outputPath(t),
	}
	summary, err := Generate(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Frames)
	assert.Equal(t, "gzip (filter 1)", summary.Compression.String())

	job.ImageRange = [2]int{0, 3}
	job.Output = outputPath(t)
	_, err = Generate(context.Background(), job)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.NoFileExists(t, job.Output)
}

func TestGenerateEmptyImageRangeIsSet(t *testing.T) {
	job := Job{
		Scan:       ScanGeometry{Start: 0, End: 1, Step: 0.5},
		ImageRange: [2]int{5, 5},
		Detector:   NewSinglePanelDetector(2, 2),
		Masker:     Unoccluded,
		Output:     outputPath(t),
	}
	_, err := Generate(context.Background(), job)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.NoFileExists(t, job.Output)
}

func TestGenerateExplicitNoCompression(t *testing.T) {
	summary, err := Generate(context.Background(), Job{
		Scan:        ScanGeometry{Start: 0, End: 1, Step: 0.5},
		Detector:    NewSinglePanelDetector(2, 2),
		Masker:      Unoccluded,
		Output:      outputPath(t),
		Compression: CompressionNone,
	})
	require.NoError(t, err)
	assert.Equal(t, "none", summary.Compression.String())
}

func TestGenerateInvalidScan(t *testing.T) {
	path := outputPath(t)
	_, err := Generate(context.Background(), Job{
		Scan:     ScanGeometry{Start: 0, End: 1, Step: 0},
		Detector: NewSinglePanelDetector(2, 2),
		Masker:   Unoccluded,
		Output:   path,
	})
	var cfg *ConfigurationError
	require.ErrorAs(t, err, &cfg)
	assert.Equal(t, "step", cfg.Field)
	assert.NoFileExists(t, path)
}

func TestGenerateStopsOnMaskError(t *testing.T) {
	path := outputPath(t)
	calls := 0
	masker := MaskProviderFunc(func(d *Detector, angle float64) ([]*OcclusionMask, error) {
		calls++
		if angle >= 1 {
			return []*OcclusionMask{maskFrom("#")}, nil
		}
		return []*OcclusionMask{maskFrom("##", "##")}, nil
	})
	_, err := Generate(context.Background(), Job{
		Scan:     ScanGeometry{Start: 0, End: 3, Step: 1},
		Detector: NewSinglePanelDetector(2, 2),
		Masker:   masker,
		Output:   path,
	})
	require.ErrorIs(t, err, ErrGeometryMismatch)
	assert.Equal(t, 2, calls)

	// the partial output was closed and stays readable
	frames := readAll(t, path)
	assert.Equal(t, 4, frames[0].ShadowedCount())
	assert.Equal(t, 4, frames[1].ShadowedCount())
	assert.Equal(t, 4, frames[2].ShadowedCount())
}

func TestGenerateCancelled(t *testing.T) {
	path := outputPath(t)
	ctx, cancel := context.WithCancel(context.Background())
	_, err := Generate(ctx, Job{
		Scan:     ScanGeometry{Start: 0, End: 10, Step: 1},
		Detector: NewSinglePanelDetector(1, 1),
		Masker: MaskProviderFunc(func(d *Detector, angle float64) ([]*OcclusionMask, error) {
			if angle == 2 {
				cancel()
			}
			return []*OcclusionMask{nil}, nil
		}),
		Output: path,
	})
	require.ErrorIs(t, err, context.Canceled)

	frames := readAll(t, path)
	assert.True(t, frames[2].IsIlluminated())
	assert.False(t, frames[3].IsIlluminated())
}

func TestGenerateLogs(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	_, err := Generate(context.Background(), Job{
		Scan:     ScanGeometry{Start: 0, End: 1, Step: 0.5},
		Detector: NewSinglePanelDetector(2, 2),
		Masker:   cornerMasker,
		Output:   outputPath(t),
	}, WithLogger(logger))
	require.NoError(t, err)

	var debug int
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.DebugLevel {
			debug++
		}
	}
	assert.Equal(t, 2, debug)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "Shadow volume written", hook.LastEntry().Message)
	assert.Equal(t, 1, hook.LastEntry().Data["shadowed_frames"])
}

func TestGenerateStorageFailure(t *testing.T) {
	_, err := Generate(context.Background(), Job{
		Scan:        ScanGeometry{Start: 0, End: 1, Step: 0.5},
		Detector:    NewSinglePanelDetector(2, 2),
		Masker:      cornerMasker,
		Output:      outputPath(t),
		Compression: "zzz",
	})
	assert.ErrorIs(t, err, ErrStorageBackend)

	_, err = Generate(context.Background(), Job{
		Scan:     ScanGeometry{Start: 0, End: 1, Step: 0.5},
		Detector: NewSinglePanelDetector(2, 2),
		Masker:   cornerMasker,
		Output:   "/nonexistent-dir/shadow.h5",
	})
	var sbe *StorageBackendError
	require.ErrorAs(t, err, &sbe)
	assert.True(t, errors.Unwrap(err) != nil)
}
