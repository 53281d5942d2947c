package storage

import (
	"errors"
	"fmt"
)

// Mode selects the intent of a scoped path acquisition.
type Mode string

const (
	// ReadMode requests a path addressing an existing artifact.
	ReadMode Mode = "r"
	// WriteMode requests a staging path for a new artifact.
	WriteMode Mode = "w"
)

// ErrNotFound is returned when a read-mode path acquisition, or any other
// operation that requires an existing artifact, addresses an absent key.
var ErrNotFound = errors.New("storage: not found")

// ErrReadOnlyAccess is returned when a mutation targets a key held by the
// read-only tier of a composite storage.
var ErrReadOnlyAccess = errors.New("storage: read-only access")

// NotFoundError wraps ErrNotFound with the key that was missing.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("storage: not found: %s", e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ReadOnlyAccessError wraps ErrReadOnlyAccess with the key that was rejected.
type ReadOnlyAccessError struct {
	Key string
}

func (e *ReadOnlyAccessError) Error() string {
	return fmt.Sprintf("storage: read-only access rejected for key: %s", e.Key)
}

func (e *ReadOnlyAccessError) Unwrap() error { return ErrReadOnlyAccess }

// File describes one entry returned by List.
type File struct {
	// Path is relative to the storage root (or the namespace root, if the
	// storage was produced by Namespace).
	Path string
	Size int64
}

// Acquisition is a scoped, released acquisition of a filesystem-like path.
// Close must be called exactly once; for WriteMode acquisitions, Close
// commits the staged artifact atomically to its final location. Release is
// idempotent-safe to call on an already-failed acquisition.
type Acquisition struct {
	// Path is the filesystem path the caller should read from or write to.
	Path string

	commit func() error
	closed bool
}

// Close finalizes the acquisition. For read acquisitions this is a no-op.
// For write acquisitions this performs the atomic rename into place.
func (a *Acquisition) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	if a.commit == nil {
		return nil
	}
	return a.commit()
}

// Storage is the contract every backend implements. Keys are '/'-separated
// and are not required to begin with a leading slash.
type Storage interface {
	// List recursively enumerates entries at or beneath path. An empty path
	// lists the whole storage. Order is unspecified.
	List(path string) ([]File, error)

	// Exists reports whether path addresses a stored artifact.
	Exists(path string) (bool, error)

	// Remove deletes path. Idempotency is not required: removing an absent
	// key may return an error.
	Remove(path string) error

	// Makedirs ensures the directory path exists. If existOK is false, an
	// already-existing directory is an error.
	Makedirs(path string, existOK bool) error

	// Namespace returns a Storage whose operations are rooted at path.
	Namespace(path string) Storage

	// Path acquires path in the given mode. In ReadMode the returned
	// Acquisition addresses the existing artifact or fails with
	// NotFoundError. In WriteMode the returned Acquisition addresses a
	// staging location; the artifact becomes visible atomically at path
	// only once Close succeeds.
	Path(path string, mode Mode) (*Acquisition, error)
}

// Copy copies path from src to dst using the default "read via Path(r),
// write via Path(w)" strategy. Backends may implement a more specific copy
// by type-asserting for it.
func Copy(src, dst Storage, path string) error {
	type copier interface {
		CopyTo(dst Storage, path string) error
	}
	if c, ok := src.(copier); ok {
		return c.CopyTo(dst, path)
	}
	return defaultCopy(src, dst, path)
}
