//go:build unix

package mmap

import (
	"golang.org/x/sys/unix"
)

// New creates a read-only memory mapping for the given file descriptor.
// The offset must be page-aligned. The descriptor stays owned by the
// caller.
func New(fd int, offset int64, length int) (*Map, error) {
	if length <= 0 {
		return nil, ErrInvalidSize
	}

	data, err := unix.Mmap(fd, offset, length, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, &Error{Op: "mmap", Err: err}
	}

	return &Map{
		data: data,
		fd:   fd,
		size: int64(length),
	}, nil
}

// Close releases the memory mapping and the backing file.
// Close is idempotent.
func (m *Map) Close() error {
	if m.data == nil {
		return m.closeFile()
	}

	err := unix.Munmap(m.data)
	m.data = nil
	m.size = 0
	if cerr := m.closeFile(); err == nil {
		err = cerr
	}
	if err != nil {
		return &Error{Op: "munmap", Err: err}
	}
	return nil
}

// Advise provides hints to the kernel about memory usage patterns.
func (m *Map) Advise(advice int) error {
	if m.data == nil {
		return ErrNotMapped
	}
	return unix.Madvise(m.data, advice)
}

// AdviseSequential hints that pages will be accessed sequentially.
func (m *Map) AdviseSequential() error {
	return m.Advise(unix.MADV_SEQUENTIAL)
}

// AdviseRandom hints that pages will be accessed randomly.
func (m *Map) AdviseRandom() error {
	return m.Advise(unix.MADV_RANDOM)
}

// AdviseWillNeed hints that pages will be needed soon.
func (m *Map) AdviseWillNeed() error {
	return m.Advise(unix.MADV_WILLNEED)
}
