package shadow

import (
	"fmt"

	"github.com/robert-malhotra/go-shadowmask/internal/filter"
	"github.com/robert-malhotra/go-shadowmask/internal/h5"
)

// VolumeReader reads back a volume written by VolumeWriter, or any int8
// dataset chunked one frame at a time.
type VolumeReader struct {
	path    string
	shape   VolumeShape
	file    *h5.File
	dataset *h5.Dataset
}

// OpenVolume opens the volume stored at dataset (DefaultDatasetPath when
// empty) in the file at path.
func OpenVolume(path, dataset string) (*VolumeReader, error) {
	if dataset == "" {
		dataset = DefaultDatasetPath
	}
	f, err := h5.Open(path)
	if err != nil {
		return nil, &StorageBackendError{Op: "open", Path: path, Err: err}
	}
	ds, err := f.OpenDataset(dataset)
	if err != nil {
		f.Close()
		return nil, &StorageBackendError{Op: "open dataset " + dataset + " in", Path: path, Err: err}
	}
	dims, chunk := ds.Shape(), ds.ChunkShape()
	if len(dims) != 3 || ds.Datatype().Size != 1 || chunk[0] != 1 || chunk[1] != dims[1] || chunk[2] != dims[2] {
		f.Close()
		return nil, &GeometryMismatchError{
			Panel:  -1,
			Reason: fmt.Sprintf("%s is %s with shape %v and chunks %v, not a frame volume", dataset, ds.Datatype(), dims, chunk),
		}
	}
	return &VolumeReader{
		path:    path,
		shape:   VolumeShape{Frames: int(dims[0]), Height: int(dims[1]), Width: int(dims[2])},
		file:    f,
		dataset: ds,
	}, nil
}

// Shape returns the volume shape.
func (r *VolumeReader) Shape() VolumeShape { return r.shape }

// ChunkShape returns the dataset's chunk dimensions.
func (r *VolumeReader) ChunkShape() []uint64 { return r.dataset.ChunkShape() }

// FillValue returns the value of pixels in frames never written.
func (r *VolumeReader) FillValue() uint8 { return r.dataset.FillValue()[0] }

// Filters returns the names of the dataset's filters in pipeline order.
func (r *VolumeReader) Filters() []string {
	var names []string
	for _, f := range r.dataset.Filters() {
		name := f.Name
		if name == "" {
			name = filter.Name(f.ID)
		}
		names = append(names, name)
	}
	return names
}

// Frame reads frame index. The boolean result reports whether the frame was
// ever written; unwritten frames are filled with FillValue.
func (r *VolumeReader) Frame(index int) (*Frame, bool, error) {
	if index < 0 || index >= r.shape.Frames {
		return nil, false, &InvalidStateError{Op: "read frame", Reason: fmt.Sprintf("frame %d outside [0, %d)", index, r.shape.Frames)}
	}
	data, written, err := r.dataset.ReadChunk(index)
	if err != nil {
		return nil, false, &StorageBackendError{Op: fmt.Sprintf("read frame %d from", index), Path: r.path, Err: err}
	}
	return &Frame{Height: r.shape.Height, Width: r.shape.Width, Pix: data}, written, nil
}

// Close releases the file.
func (r *VolumeReader) Close() error {
	return r.file.Close()
}
