package mdmp

import (
	"errors"
	"fmt"
	"math/bits"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/Giulio2002/mdmp/format"
	"github.com/Giulio2002/mdmp/mmap"
)

// Reader serves read-only queries against a minidump.
//
// A Reader owns the mapping of the file and the decoded view over it. The
// view and the memory table only ever hold offsets into the mapping, and
// every value a query returns is a copy, so nothing handed to a caller
// refers to mapped memory. Close drops the view first and unmaps last.
//
// A Reader is safe for concurrent use. Close waits for in-flight queries;
// queries made after Close fail with ErrClosed.
type Reader struct {
	mu     sync.RWMutex
	buf    *mmap.Map    // nil for OpenBytes
	dump   *format.Dump // nil once closed
	logger log.Logger

	memOnce sync.Once
	mem     *format.MemoryRegionTable
	memErr  error
}

// Open maps the minidump at path and decodes its stream directory.
//
// It fails with ErrFileNotFound if the file cannot be opened, ErrIO if it
// cannot be mapped, and ErrMalformed or ErrDirectoryCorrupt if the
// container cannot be decoded. The decoder's error is kept as the cause.
// On failure nothing stays mapped.
func Open(path string, opts ...Option) (*Reader, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	m, err := mmap.MapFile(path)
	if err != nil {
		var me *mmap.Error
		if errors.As(err, &me) {
			return nil, WrapError(ErrIO, err)
		}
		return nil, WrapError(ErrFileNotFound, err)
	}
	if err := advise(m, o.advice); err != nil {
		level.Debug(o.logger).Log("msg", "access advice ignored", "path", path, "err", err)
	}

	r, err := newReader(m.Data(), o)
	if err != nil {
		m.Close()
		return nil, err
	}
	r.buf = m

	level.Debug(o.logger).Log("msg", "opened minidump", "path", path, "size", m.Size(), "streams", len(r.dump.Streams()))
	return r, nil
}

// OpenBytes decodes a minidump held in data. The caller keeps ownership
// of data and must not modify it while the Reader is in use; Close does
// not release it.
func OpenBytes(data []byte, opts ...Option) (*Reader, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return newReader(data, o)
}

func newReader(data []byte, o options) (*Reader, error) {
	dump, err := format.Decode(data)
	if err != nil {
		if errors.Is(err, format.ErrDirectoryCorrupt) {
			return nil, WrapError(ErrDirectoryCorrupt, err)
		}
		return nil, WrapError(ErrMalformed, err)
	}
	return &Reader{dump: dump, logger: o.logger}, nil
}

func advise(m *mmap.Map, a Advice) error {
	switch a {
	case AdviceRandom:
		return m.AdviseRandom()
	case AdviceSequential:
		return m.AdviseSequential()
	case AdviceWillNeed:
		return m.AdviseWillNeed()
	}
	return nil
}

// Close releases the decoded view and then the mapping.
// Close is idempotent.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.dump == nil {
		return nil
	}
	r.dump = nil
	r.mem = nil

	if r.buf == nil {
		return nil
	}
	err := r.buf.Close()
	r.buf = nil
	if err != nil {
		return WrapError(ErrIO, err)
	}
	return nil
}

// streamError classifies a decoder stream error. missing is the code used
// when the stream is absent.
func streamError(err error, missing ErrorCode) error {
	switch {
	case errors.Is(err, format.ErrStreamMissing):
		return WrapError(missing, err)
	case errors.Is(err, format.ErrStreamCorrupt):
		return WrapError(ErrStreamCorrupt, err)
	}
	return WrapError(ErrProblem, err)
}

// memoryTable decodes the memory region table on first use. The outcome,
// failure included, is cached. Callers hold r.mu for reading.
func (r *Reader) memoryTable() (*format.MemoryRegionTable, error) {
	r.memOnce.Do(func() {
		t, err := r.dump.MemoryRegions()
		if err != nil {
			r.memErr = streamError(err, ErrMemoryStreamUnavailable)
			return
		}
		for _, d := range t.Dropped() {
			level.Warn(r.logger).Log("msg", "dropped overlapping memory region", "base", fmt.Sprintf("%#x", d.Base), "size", d.Size)
		}
		level.Debug(r.logger).Log("msg", "memory table built", "regions", t.Len())
		r.mem = t
	})
	return r.mem, r.memErr
}

// window resolves [address, address+size) to the bytes of the single
// region containing it. The result aliases the mapping and must not
// escape the read lock. Callers hold r.mu for reading.
func (r *Reader) window(address, size uint64) ([]byte, error) {
	table, err := r.memoryTable()
	if err != nil {
		return nil, err
	}

	region, ok := table.Find(address)
	if !ok {
		return nil, errorf(ErrAddressNotMapped, "%#x", address)
	}

	offset, borrow := bits.Sub64(address, region.Base, 0)
	if borrow != 0 {
		return nil, errorf(ErrAddressNotMapped, "%#x below region base %#x", address, region.Base)
	}

	if size == 0 {
		return []byte{}, nil
	}

	// The whole window must sit inside this one region. Reads running
	// into a neighbouring region are rejected, not stitched or truncated.
	end, carry := bits.Add64(offset, size, 0)
	if carry != 0 || end > region.Size {
		return nil, errorf(ErrOutOfBounds, "[%#x, +%#x) exceeds region [%#x, %#x)",
			address, size, region.Base, region.End())
	}

	data, err := r.dump.Slice(region.Data)
	if err != nil {
		return nil, WrapError(ErrStreamCorrupt, err)
	}
	return data[offset:end], nil
}

// ReadVirtualMemory returns a copy of size bytes of the dumped process's
// memory starting at address.
//
// The range must lie entirely inside one captured region. It fails with
// ErrMemoryStreamUnavailable if the dump captured no memory,
// ErrAddressNotMapped if no region contains address, and ErrOutOfBounds if
// the range runs past the end of the region containing address. A zero
// size at a mapped address returns an empty slice.
func (r *Reader) ReadVirtualMemory(address, size uint64) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.dump == nil {
		return nil, ErrClosedError
	}
	src, err := r.window(address, size)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(src))
	copy(out, src)
	return out, nil
}

// ReadMemory fills buf with the dumped process's memory at address.
// It either fills buf completely or returns an error, under the same rules
// as ReadVirtualMemory.
func (r *Reader) ReadMemory(buf []byte, address uint64) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.dump == nil {
		return 0, ErrClosedError
	}
	src, err := r.window(address, uint64(len(buf)))
	if err != nil {
		return 0, err
	}
	return copy(buf, src), nil
}

// MemoryRegions returns the captured regions in address order.
func (r *Reader) MemoryRegions() ([]format.MemoryRegion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.dump == nil {
		return nil, ErrClosedError
	}
	t, err := r.memoryTable()
	if err != nil {
		return nil, err
	}
	return t.Regions(), nil
}
