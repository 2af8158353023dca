package shadow

import (
	"errors"
	"fmt"
)

// Sentinels matched by the typed errors below through errors.Is.
var (
	ErrConfiguration          = errors.New("invalid configuration")
	ErrGeometryMismatch       = errors.New("geometry mismatch")
	ErrUnsupportedCompression = errors.New("unsupported compression")
	ErrStorageBackend         = errors.New("storage backend error")
	ErrInvalidState           = errors.New("invalid state")
)

// ConfigurationError reports invalid scan geometry or experiment input. It is
// always raised before any output is written.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration: %s", e.Reason)
	}
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// GeometryMismatchError reports a mask or panel whose shape disagrees with
// the detector layout.
type GeometryMismatchError struct {
	Panel  int
	Reason string
}

func (e *GeometryMismatchError) Error() string {
	if e.Panel < 0 {
		return fmt.Sprintf("geometry mismatch: %s", e.Reason)
	}
	return fmt.Sprintf("geometry mismatch: panel %d: %s", e.Panel, e.Reason)
}

func (e *GeometryMismatchError) Is(target error) bool { return target == ErrGeometryMismatch }

// UnsupportedCompressionError reports a compression name that cannot be
// handed to the storage layer at all.
type UnsupportedCompressionError struct {
	Name string
}

func (e *UnsupportedCompressionError) Error() string {
	return fmt.Sprintf("unsupported compression %q", e.Name)
}

func (e *UnsupportedCompressionError) Is(target error) bool {
	return target == ErrUnsupportedCompression
}

// StorageBackendError wraps a failure of the underlying file layer, keeping
// its message.
type StorageBackendError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageBackendError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageBackendError) Unwrap() error { return e.Err }

func (e *StorageBackendError) Is(target error) bool { return target == ErrStorageBackend }

// InvalidStateError reports misuse of a VolumeWriter: writes after close or
// outside the volume.
type InvalidStateError struct {
	Op     string
	Reason string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *InvalidStateError) Is(target error) bool { return target == ErrInvalidState }
