// Package h5 reads and writes the subset of HDF5 a shadow mask file needs:
// nested groups and fixed-shape chunked datasets indexed by a Fixed Array.
//
// Files are written with a version 3 superblock and version 2 object headers
// and read back by h5py and the HDF5 tools. A writable [File] belongs to a
// single goroutine.
package h5

import (
	"errors"

	"github.com/robert-malhotra/go-shadowmask/internal/filter"
	"github.com/robert-malhotra/go-shadowmask/internal/superblock"
)

// Common errors
var (
	ErrNotHDF5       = superblock.ErrNotHDF5
	ErrUnknownFilter = filter.ErrUnknownFilter
	ErrNotFound      = errors.New("object not found")
	ErrNotDataset    = errors.New("object is not a dataset")
	ErrNotGroup      = errors.New("object is not a group")
	ErrExists        = errors.New("object already exists")
	ErrUnsupported   = errors.New("unsupported feature")
	ErrInvalidPath   = errors.New("invalid path")
	ErrReadOnly      = errors.New("file is not writable")
	ErrClosed        = errors.New("file is closed")
)
