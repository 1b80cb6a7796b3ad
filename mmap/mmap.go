// Package mmap provides read-only memory mapping of whole files.
//
// A Map owns its mapping: the slice returned by Data is valid until Close
// and must never be written to. Callers that hand Data to other code are
// responsible for making sure that code is done with it before Close.
package mmap

import "os"

// Map represents a read-only memory-mapped file.
// This type wraps platform-specific mmap implementations.
type Map struct {
	data []byte   // Mapped memory region
	f    *os.File // Backing file, nil when mapped from a bare descriptor
	fd   int      // File descriptor
	size int64    // Mapped size
	// Windows-specific handle (only used on Windows, zero on Unix)
	mapping uintptr
}

// Data returns the mapped byte slice.
// The slice is read-only; writing to it faults.
func (m *Map) Data() []byte {
	return m.data
}

// Size returns the mapped size.
func (m *Map) Size() int64 {
	return m.size
}

// Name returns the name of the mapped file, or "" if the map was
// created from a descriptor.
func (m *Map) Name() string {
	if m.f == nil {
		return ""
	}
	return m.f.Name()
}

// mapped reports whether the mapping is still live.
func (m *Map) mapped() bool {
	return m.data != nil
}

// Error represents an mmap error.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return "mmap: " + e.Op + ": " + e.Err.Error()
	}
	return "mmap: " + e.Op
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Common errors
var (
	ErrInvalidSize = &Error{Op: "invalid size"}
	ErrNotMapped   = &Error{Op: "not mapped"}
	ErrEmptyFile   = &Error{Op: "empty file"}
)

// openFile opens path read-only and returns it with its size.
// Open failures are returned as-is so callers can tell a missing file
// apart from a mapping failure; everything after open is an *Error.
func openFile(path string) (*os.File, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, &Error{Op: "stat", Err: err}
	}

	size := fi.Size()
	if size == 0 {
		f.Close()
		return nil, 0, ErrEmptyFile
	}
	if size < 0 || size != int64(int(size)) {
		f.Close()
		return nil, 0, ErrInvalidSize
	}
	return f, int(size), nil
}

// MapFile opens a file and maps all of it read-only.
// Either a fully mapped Map is returned or an error; the file is never
// left open on failure.
func MapFile(path string) (*Map, error) {
	f, size, err := openFile(path)
	if err != nil {
		return nil, err
	}

	m, err := New(int(f.Fd()), 0, size)
	if err != nil {
		f.Close()
		return nil, err
	}
	m.f = f
	return m, nil
}

// closeFile releases the backing file, if any.
func (m *Map) closeFile() error {
	if m.f == nil {
		return nil
	}
	err := m.f.Close()
	m.f = nil
	return err
}
