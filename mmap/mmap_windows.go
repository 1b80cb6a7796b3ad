//go:build windows

package mmap

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// New creates a read-only memory mapping for the given file handle.
// The handle stays owned by the caller.
func New(fd int, offset int64, length int) (*Map, error) {
	if length <= 0 {
		return nil, ErrInvalidSize
	}

	handle := windows.Handle(fd)

	maxSizeHigh := uint32(uint64(length) >> 32)
	maxSizeLow := uint32(length)

	mapping, err := windows.CreateFileMapping(handle, nil, windows.PAGE_READONLY, maxSizeHigh, maxSizeLow, nil)
	if err != nil {
		return nil, &Error{Op: "CreateFileMapping", Err: err}
	}

	offsetHigh := uint32(uint64(offset) >> 32)
	offsetLow := uint32(offset)

	addr, err := windows.MapViewOfFile(mapping, windows.FILE_MAP_READ, offsetHigh, offsetLow, uintptr(length))
	if err != nil {
		windows.CloseHandle(mapping)
		return nil, &Error{Op: "MapViewOfFile", Err: err}
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), length)

	return &Map{
		data:    data,
		fd:      fd,
		size:    int64(length),
		mapping: uintptr(mapping),
	}, nil
}

// Close releases the memory mapping and the backing file.
// Close is idempotent.
func (m *Map) Close() error {
	if m.data == nil {
		return m.closeFile()
	}

	addr := uintptr(unsafe.Pointer(&m.data[0]))

	err := windows.UnmapViewOfFile(addr)
	if m.mapping != 0 {
		windows.CloseHandle(windows.Handle(m.mapping))
		m.mapping = 0
	}
	m.data = nil
	m.size = 0
	if cerr := m.closeFile(); err == nil {
		err = cerr
	}
	if err != nil {
		return &Error{Op: "UnmapViewOfFile", Err: err}
	}
	return nil
}

// Advise provides hints to the kernel about memory usage patterns.
// Windows doesn't have madvise, so these are no-ops.
func (m *Map) Advise(advice int) error {
	if m.data == nil {
		return ErrNotMapped
	}
	return nil
}

// AdviseSequential hints that pages will be accessed sequentially.
func (m *Map) AdviseSequential() error {
	return m.Advise(0)
}

// AdviseRandom hints that pages will be accessed randomly.
func (m *Map) AdviseRandom() error {
	return m.Advise(0)
}

// AdviseWillNeed hints that pages will be needed soon.
func (m *Map) AdviseWillNeed() error {
	return m.Advise(0)
}
