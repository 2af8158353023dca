package shadow

import (
	"context"
	"fmt"
	"io"
	"iter"
	"time"

	"github.com/sirupsen/logrus"
)

// Job describes one shadow mask run.
type Job struct {
	Scan ScanGeometry

	// ImageRange is the half-open [first, last) range of image indices
	// covered by the scan. When set its length is the number of frames and
	// must agree with the scan geometry. The zero value [0, 0) means unset
	// and leaves the frame count to the scan; any other empty range is set.
	ImageRange [2]int

	Detector *Detector
	Masker   MaskProvider
	Output   string

	// Compression names the codec; empty keeps the volume default, gzip.
	Compression string

	// Dataset overrides DefaultDatasetPath.
	Dataset string
}

// Summary reports what a run wrote.
type Summary struct {
	Path              string
	Compression       Compression
	Shape             VolumeShape
	Frames            int
	ShadowedFrames    int
	IlluminatedFrames int
	ShadowedPixels    int64
	Elapsed           time.Duration
}

// Observer is told the completed fraction of frames after each frame.
type Observer interface {
	Progress(done, total int)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(done, total int)

// Progress calls f(done, total).
func (f ObserverFunc) Progress(done, total int) { f(done, total) }

// Option configures Generate.
type Option func(*runOptions)

type runOptions struct {
	logger   logrus.FieldLogger
	observer Observer
	volume   []VolumeOption
}

// WithLogger sets the logger for run events. The default discards them.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *runOptions) { o.logger = l }
}

// WithObserver reports progress to obs after every frame.
func WithObserver(obs Observer) Option {
	return func(o *runOptions) { o.observer = obs }
}

// WithVolumeOptions passes extra options to CreateVolume.
func WithVolumeOptions(opts ...VolumeOption) Option {
	return func(o *runOptions) { o.volume = append(o.volume, opts...) }
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Frames returns the number of frames a job produces, checking that the
// image range and the scan geometry agree.
func (j Job) Frames() (int, error) {
	if err := j.Scan.Validate(); err != nil {
		return 0, err
	}
	n := j.Scan.Count()
	if j.ImageRange == [2]int{} {
		return n, nil
	}
	first, last := j.ImageRange[0], j.ImageRange[1]
	if last < first {
		return 0, &ConfigurationError{Field: "image_range", Reason: fmt.Sprintf("[%d, %d) is reversed", first, last)}
	}
	if last-first != n {
		return 0, &ConfigurationError{
			Field:  "image_range",
			Reason: fmt.Sprintf("%d images for a scan of %d angles", last-first, n),
		}
	}
	return n, nil
}

// Generate computes the shadow volume of job and writes it to job.Output.
//
// Frames are produced in angle order with a single frame buffer. A frame
// without any occlusion is recorded as illuminated rather than written. On
// failure or cancellation no further frames are written, the output is
// closed on a best-effort basis and the originating error is returned.
func Generate(ctx context.Context, job Job, opts ...Option) (*Summary, error) {
	o := &runOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = discardLogger()
	}
	log := o.logger

	nz, err := job.Frames()
	if err != nil {
		return nil, err
	}
	if job.Output == "" {
		return nil, &ConfigurationError{Field: "output", Reason: "no output path"}
	}
	angles, err := job.Scan.Angles()
	if err != nil {
		return nil, err
	}
	comp, err := NewCompositor(job.Detector, job.Masker)
	if err != nil {
		return nil, err
	}
	h, w := comp.FrameShape()

	var volumeOpts []VolumeOption
	if job.Compression != "" {
		volumeOpts = append(volumeOpts, WithCompression(job.Compression))
	}
	if job.Dataset != "" {
		volumeOpts = append(volumeOpts, WithDatasetPath(job.Dataset))
	}
	shape := VolumeShape{Frames: nz, Height: h, Width: w}
	vol, err := CreateVolume(job.Output, shape, append(volumeOpts, o.volume...)...)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Path: job.Output, Compression: vol.Compression(), Shape: shape}
	log.WithFields(logrus.Fields{
		"output":      job.Output,
		"shape":       shape.String(),
		"compression": summary.Compression.String(),
	}).Info("Generating shadow volume")

	start := time.Now()
	if err := run(ctx, vol, comp, angles, summary, o, log); err != nil {
		if cerr := vol.Close(); cerr != nil {
			log.WithError(cerr).Warn("Closing partial output failed")
		}
		return nil, err
	}
	if err := vol.Close(); err != nil {
		return nil, err
	}
	summary.Elapsed = time.Since(start)

	log.WithFields(logrus.Fields{
		"frames":          summary.Frames,
		"shadowed_frames": summary.ShadowedFrames,
		"shadowed_pixels": summary.ShadowedPixels,
		"elapsed":         summary.Elapsed.Round(time.Millisecond).String(),
	}).Info("Shadow volume written")
	return summary, nil
}

func run(ctx context.Context, vol *VolumeWriter, comp *Compositor, angles iter.Seq2[int, float64], s *Summary, o *runOptions, log logrus.FieldLogger) error {
	total := vol.Shape().Frames
	for i, angle := range angles {
		if i >= total {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		frame, masked, err := comp.Compose(angle)
		if err != nil {
			return err
		}
		shadowed := 0
		if masked {
			shadowed = frame.ShadowedCount()
		}
		if shadowed > 0 {
			err = vol.WriteFrame(i, frame)
			s.ShadowedFrames++
			s.ShadowedPixels += int64(shadowed)
		} else {
			err = vol.WriteIlluminated(i)
			s.IlluminatedFrames++
		}
		if err != nil {
			return err
		}
		s.Frames++
		log.WithFields(logrus.Fields{
			"frame":    i,
			"angle":    angle,
			"shadowed": shadowed,
		}).Debug("Frame done")
		if o.observer != nil {
			o.observer.Progress(i+1, total)
		}
	}
	return nil
}
