package shadow

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/robert-malhotra/go-shadowmask/internal/h5"
	"github.com/robert-malhotra/go-shadowmask/internal/layout"
	"github.com/robert-malhotra/go-shadowmask/internal/message"
)

// DefaultDatasetPath is where the volume is stored inside the file.
const DefaultDatasetPath = "shadow/dynamic_mask"

// VolumeShape is the (frames, height, width) shape of a shadow volume.
type VolumeShape struct {
	Frames int
	Height int
	Width  int
}

func (s VolumeShape) String() string {
	return fmt.Sprintf("(%d, %d, %d)", s.Frames, s.Height, s.Width)
}

// VolumeOption configures CreateVolume.
type VolumeOption func(*volumeOptions)

type volumeOptions struct {
	compression string
	dataset     string
	pageBits    uint8
}

// WithCompression selects the codec by name, as understood by
// ResolveCompression. The default is gzip.
func WithCompression(name string) VolumeOption {
	return func(o *volumeOptions) { o.compression = name }
}

// WithDatasetPath stores the volume under path instead of
// DefaultDatasetPath. Missing groups are created.
func WithDatasetPath(path string) VolumeOption {
	return func(o *volumeOptions) { o.dataset = path }
}

// WithIndexPageBits sets log2 of the number of frames per chunk index page.
func WithIndexPageBits(bits uint8) VolumeOption {
	return func(o *volumeOptions) { o.pageBits = bits }
}

// VolumeWriter owns the output file of one run and writes frames into its
// chunked (frames, height, width) dataset, one chunk per frame. Frames never
// written read back as 0.
//
// A VolumeWriter is not safe for concurrent use.
type VolumeWriter struct {
	path        string
	shape       VolumeShape
	compression Compression
	file        *h5.File
	dataset     *h5.Dataset
	illuminated *layout.Entry
	closed      bool
}

// CreateVolume creates the file at path, truncating any existing file, and
// allocates the volume dataset with int8 elements, fill value 0 and chunks
// of one frame.
func CreateVolume(path string, shape VolumeShape, opts ...VolumeOption) (*VolumeWriter, error) {
	o := &volumeOptions{compression: CompressionGzip, dataset: DefaultDatasetPath}
	for _, opt := range opts {
		opt(o)
	}
	comp, err := ResolveCompression(o.compression)
	if err != nil {
		return nil, err
	}
	if shape.Frames < 0 || shape.Height < 0 || shape.Width < 0 {
		return nil, &ConfigurationError{Field: "shape", Reason: fmt.Sprintf("%v has a negative dimension", shape)}
	}
	parts := h5.SplitPath(o.dataset)
	if len(parts) == 0 {
		return nil, &ConfigurationError{Field: "dataset", Reason: fmt.Sprintf("%q names no dataset", o.dataset)}
	}

	f, err := h5.Create(path)
	if err != nil {
		return nil, &StorageBackendError{Op: "create", Path: path, Err: err}
	}
	ds, err := createDataset(f, parts, shape, comp, o.pageBits)
	if err != nil {
		f.Abandon()
		os.Remove(path)
		return nil, &StorageBackendError{Op: "create dataset " + strings.Join(parts, "/") + " in", Path: path, Err: err}
	}
	return &VolumeWriter{path: path, shape: shape, compression: comp, file: f, dataset: ds}, nil
}

func createDataset(f *h5.File, parts []string, shape VolumeShape, comp Compression, pageBits uint8) (*h5.Dataset, error) {
	g := f.Root()
	for _, name := range parts[:len(parts)-1] {
		var err error
		if g, err = g.RequireGroup(name); err != nil {
			return nil, err
		}
	}
	dims := []uint64{uint64(shape.Frames), uint64(shape.Height), uint64(shape.Width)}
	chunk := []uint64{1, uint64(shape.Height), uint64(shape.Width)}
	opts := []h5.DatasetOption{h5.WithFillValue([]byte{Shadowed})}
	if opt := comp.datasetOption(shape.Height * shape.Width); opt != nil {
		opts = append(opts, opt)
	}
	if pageBits > 0 {
		opts = append(opts, h5.WithPageBits(pageBits))
	}
	return g.CreateChunkedDataset(parts[len(parts)-1], message.NewInt8(), dims, chunk, opts...)
}

// Path returns the file the volume is written to.
func (v *VolumeWriter) Path() string { return v.path }

// Shape returns the volume shape.
func (v *VolumeWriter) Shape() VolumeShape { return v.shape }

// Compression returns the resolved codec.
func (v *VolumeWriter) Compression() Compression { return v.compression }

func (v *VolumeWriter) check(op string, index int) error {
	if v.closed {
		return &InvalidStateError{Op: op, Reason: "volume is closed"}
	}
	if index < 0 || index >= v.shape.Frames {
		return &InvalidStateError{Op: op, Reason: fmt.Sprintf("frame %d outside [0, %d)", index, v.shape.Frames)}
	}
	return nil
}

// WriteFrame stores f as frame index, replacing whatever was there.
func (v *VolumeWriter) WriteFrame(index int, f *Frame) error {
	if err := v.check("write frame", index); err != nil {
		return err
	}
	if f.Height != v.shape.Height || f.Width != v.shape.Width || len(f.Pix) != f.Height*f.Width {
		return &GeometryMismatchError{
			Panel:  -1,
			Reason: fmt.Sprintf("frame %d is %dx%d, volume frames are %dx%d", index, f.Height, f.Width, v.shape.Height, v.shape.Width),
		}
	}
	if err := v.dataset.WriteChunk(index, f.Pix); err != nil {
		return &StorageBackendError{Op: fmt.Sprintf("write frame %d to", index), Path: v.path, Err: err}
	}
	return nil
}

// WriteIlluminated records frame index as fully illuminated. All such frames
// refer to a single stored chunk, written on first use.
func (v *VolumeWriter) WriteIlluminated(index int) error {
	if err := v.check("write illuminated frame", index); err != nil {
		return err
	}
	if v.illuminated == nil {
		ones := bytes.Repeat([]byte{Illuminated}, v.shape.Height*v.shape.Width)
		e, err := v.dataset.ShareChunk(ones)
		if err != nil {
			return &StorageBackendError{Op: "write illuminated frame to", Path: v.path, Err: err}
		}
		v.illuminated = &e
	}
	if err := v.dataset.LinkChunk(index, *v.illuminated); err != nil {
		return &StorageBackendError{Op: fmt.Sprintf("link frame %d in", index), Path: v.path, Err: err}
	}
	return nil
}

// Flush makes every frame written so far visible to readers of the file.
func (v *VolumeWriter) Flush() error {
	if v.closed {
		return &InvalidStateError{Op: "flush", Reason: "volume is closed"}
	}
	if err := v.file.Flush(); err != nil {
		return &StorageBackendError{Op: "flush", Path: v.path, Err: err}
	}
	return nil
}

// Close flushes and closes the file. It must be called exactly once; the
// writer is closed afterwards even if flushing failed.
func (v *VolumeWriter) Close() error {
	if v.closed {
		return &InvalidStateError{Op: "close", Reason: "volume is already closed"}
	}
	v.closed = true
	if err := v.file.Close(); err != nil {
		return &StorageBackendError{Op: "close", Path: v.path, Err: err}
	}
	return nil
}
