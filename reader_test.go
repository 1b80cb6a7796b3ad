package mdmp

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/Giulio2002/mdmp/format"
	"github.com/Giulio2002/mdmp/internal/mdtest"
)

func openBuilder(t *testing.T, b *mdtest.Builder, opts ...Option) *Reader {
	t.Helper()
	r, err := Open(b.WriteFile(t), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestReadVirtualMemoryScenario(t *testing.T) {
	r := openBuilder(t, mdtest.New().AddMemory(0x1000, mdtest.Pattern(0x100)))

	data, err := r.ReadVirtualMemory(0x1000, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x01, 0x02, 0x03}, data)

	// 0x1090+0x20 = 0x10b0 lies inside [0x1000, 0x1100).
	data, err = r.ReadVirtualMemory(0x1090, 0x20)
	require.NoError(t, err)
	assert.Equal(t, mdtest.Pattern(0x100)[0x90:0xb0], data)

	_, err = r.ReadVirtualMemory(0x10f0, 0x20)
	require.ErrorIs(t, err, ErrOutOfBoundsError)
	assert.True(t, IsOutOfBounds(err))

	_, err = r.ReadVirtualMemory(0x2000, 4)
	require.ErrorIs(t, err, ErrAddressNotMappedError)
	assert.True(t, IsNotMapped(err))
}

func TestReadVirtualMemoryWithinRegion(t *testing.T) {
	pattern := mdtest.Pattern(0x300)
	r := openBuilder(t, mdtest.New().
		AddMemory(0x1000, pattern[:0x100]).
		AddMemory64(0x8000, pattern[0x100:]))

	for _, tc := range []struct {
		base   uint64
		stored []byte
	}{
		{0x1000, pattern[:0x100]},
		{0x8000, pattern[0x100:]},
	} {
		for off := 0; off < len(tc.stored); off += 0x1f {
			for _, size := range []int{1, 7, len(tc.stored) - off} {
				if off+size > len(tc.stored) {
					continue
				}
				data, err := r.ReadVirtualMemory(tc.base+uint64(off), uint64(size))
				require.NoError(t, err, "base %#x off %#x size %#x", tc.base, off, size)
				require.Equal(t, tc.stored[off:off+size], data)
			}
		}
		// The full region, exactly.
		data, err := r.ReadVirtualMemory(tc.base, uint64(len(tc.stored)))
		require.NoError(t, err)
		require.Equal(t, tc.stored, data)

		// One byte more is out of bounds.
		_, err = r.ReadVirtualMemory(tc.base, uint64(len(tc.stored))+1)
		require.ErrorIs(t, err, ErrOutOfBoundsError)
	}
}

func TestReadVirtualMemoryAdjacentRegions(t *testing.T) {
	r := openBuilder(t, mdtest.New().
		AddMemory(0x1000, bytes.Repeat([]byte{0xaa}, 0x100)).
		AddMemory(0x1100, bytes.Repeat([]byte{0xbb}, 0x100)))

	// Both halves are captured, but never stitched together.
	_, err := r.ReadVirtualMemory(0x10f0, 0x20)
	require.ErrorIs(t, err, ErrOutOfBoundsError)

	data, err := r.ReadVirtualMemory(0x1100, 0x10)
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{0xbb}, 0x10), data)
}

func TestReadVirtualMemoryZeroSize(t *testing.T) {
	r := openBuilder(t, mdtest.New().AddMemory(0x1000, mdtest.Pattern(0x100)))

	for _, addr := range []uint64{0x1000, 0x1080, 0x10ff} {
		data, err := r.ReadVirtualMemory(addr, 0)
		require.NoError(t, err)
		assert.NotNil(t, data)
		assert.Empty(t, data)
	}

	_, err := r.ReadVirtualMemory(0x1100, 0)
	require.ErrorIs(t, err, ErrAddressNotMappedError, "zero size does not bypass the lookup")
}

func TestReadVirtualMemoryOverflow(t *testing.T) {
	const base = 0xfffffffffffff000
	r := openBuilder(t, mdtest.New().AddMemory(base, mdtest.Pattern(0x100)))

	_, err := r.ReadVirtualMemory(base+0x10, ^uint64(0))
	require.ErrorIs(t, err, ErrOutOfBoundsError)

	_, err = r.ReadVirtualMemory(base+0x10, ^uint64(0)-0xf)
	require.ErrorIs(t, err, ErrOutOfBoundsError)

	_, err = r.ReadVirtualMemory(^uint64(0), 1)
	require.ErrorIs(t, err, ErrAddressNotMappedError)

	data, err := r.ReadVirtualMemory(base+0xfc, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xfc, 0xfd, 0xfe, 0xff}, data)
}

func TestReadVirtualMemoryNoMemory(t *testing.T) {
	r := openBuilder(t, mdtest.New().SetMiscInfo(1, 1))

	for i := 0; i < 2; i++ {
		_, err := r.ReadVirtualMemory(0x1000, 4)
		require.ErrorIs(t, err, ErrMemoryStreamUnavailableError)
		assert.False(t, IsNotMapped(err))
		assert.False(t, IsOutOfBounds(err))
	}

	_, err := r.MemoryRegions()
	require.ErrorIs(t, err, ErrMemoryStreamUnavailableError)
}

func TestReadVirtualMemoryCorruptMemoryStream(t *testing.T) {
	r := openBuilder(t, mdtest.New().
		AddStream(mdtest.MemoryListStream, []byte{1, 0}).
		SetMiscInfo(7, 1))

	_, err := r.ReadVirtualMemory(0x1000, 4)
	require.ErrorIs(t, err, ErrStreamCorruptError)
	require.ErrorIs(t, err, format.ErrStreamCorrupt, "decoder error is kept as the cause")

	// Other streams are unaffected.
	misc, err := r.MiscInfo()
	require.NoError(t, err)
	assert.Equal(t, uint32(7), misc.ProcessID)
}

func TestReadMemory(t *testing.T) {
	r := openBuilder(t, mdtest.New().AddMemory(0x1000, mdtest.Pattern(0x100)))

	buf := make([]byte, 8)
	n, err := r.ReadMemory(buf, 0x1008)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, mdtest.Pattern(0x10)[8:], buf)

	n, err = r.ReadMemory(buf, 0x10fc)
	require.ErrorIs(t, err, ErrOutOfBoundsError)
	assert.Equal(t, 0, n, "no partial reads")
}

func TestMemoryRegions(t *testing.T) {
	r := openBuilder(t, mdtest.New().
		AddMemory(0x3000, mdtest.Pattern(0x10)).
		AddMemory(0x1000, mdtest.Pattern(0x20)))

	regions, err := r.MemoryRegions()
	require.NoError(t, err)
	require.Len(t, regions, 2)
	assert.Equal(t, uint64(0x1000), regions[0].Base)
	assert.Equal(t, uint64(0x20), regions[0].Size)
	assert.Equal(t, uint64(0x3000), regions[1].Base)
}

func TestOpenErrors(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.dmp"))
	require.ErrorIs(t, err, ErrFileNotFoundError)
	require.ErrorIs(t, err, os.ErrNotExist)

	empty := mdtest.WriteFile(t, nil)
	_, err = Open(empty)
	require.ErrorIs(t, err, ErrIOError)

	garbage := mdtest.WriteFile(t, bytes.Repeat([]byte("junk"), 64))
	_, err = Open(garbage)
	require.ErrorIs(t, err, ErrMalformedError)
	assert.True(t, IsFormatError(err))
	require.ErrorIs(t, err, format.ErrMalformed)

	valid := mdtest.New().AddMemory(0x1000, mdtest.Pattern(0x10)).Bytes()
	truncated := mdtest.WriteFile(t, valid[:20])
	_, err = Open(truncated)
	require.ErrorIs(t, err, ErrMalformedError)

	noDir := mdtest.WriteFile(t, valid[:len(valid)-4])
	_, err = Open(noDir)
	require.ErrorIs(t, err, ErrDirectoryCorruptError)
	assert.True(t, IsFormatError(err))
}

func TestStreamsIndependent(t *testing.T) {
	r := openBuilder(t, mdtest.New().
		AddMemory(0x1000, mdtest.Pattern(0x10)).
		SetSystemInfo(mdtest.SystemInfo{
			Arch:         uint16(format.ArchAMD64),
			Platform:     uint32(format.PlatformLinux),
			MajorVersion: 6,
			MinorVersion: 1,
			Vendor:       "AuthenticAMD",
		}))

	_, err := r.ThreadList()
	require.ErrorIs(t, err, ErrStreamMissingError)
	assert.True(t, IsStreamMissing(err))

	first, err := r.SystemInfo()
	require.NoError(t, err)
	assert.Equal(t, format.ArchAMD64, first.Arch)
	assert.Equal(t, "AuthenticAMD", first.CPU.VendorID)

	for i := 0; i < 3; i++ {
		_, err := r.ThreadList()
		require.ErrorIs(t, err, ErrStreamMissingError)

		again, err := r.SystemInfo()
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	_, err = r.ModuleList()
	require.ErrorIs(t, err, ErrStreamMissingError)
	_, err = r.Exception()
	require.ErrorIs(t, err, ErrStreamMissingError)
}

func TestCorruptStreamLeavesReaderUsable(t *testing.T) {
	r := openBuilder(t, mdtest.New().
		AddStream(mdtest.ThreadListStream, []byte{0xff, 0xff, 0xff, 0xff}).
		AddMemory(0x1000, mdtest.Pattern(0x10)))

	_, err := r.ThreadList()
	require.ErrorIs(t, err, ErrStreamCorruptError)

	data, err := r.ReadVirtualMemory(0x1000, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1}, data)
}

func TestThreads(t *testing.T) {
	stack := mdtest.Pattern(0x80)
	r := openBuilder(t, mdtest.New().
		AddThread(mdtest.Thread{ID: 1, StackBase: 0x70000, Stack: stack, Context: []byte{1, 2, 3}}).
		AddThread(mdtest.Thread{ID: 2}))

	threads, err := r.ThreadList()
	require.NoError(t, err)
	require.Equal(t, 2, threads.Len())

	t1, ok := threads.Find(1)
	require.True(t, ok)

	got, err := r.ThreadStack(t1)
	require.NoError(t, err)
	assert.Equal(t, stack, got)

	ctx, err := r.ThreadContext(t1)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, ctx)

	t2, _ := threads.Find(2)
	_, err = r.ThreadStack(t2)
	require.ErrorIs(t, err, ErrStreamMissingError)
	_, err = r.ThreadContext(t2)
	require.ErrorIs(t, err, ErrStreamMissingError)
}

func TestHeaderAndStreams(t *testing.T) {
	r := openBuilder(t, mdtest.New().
		AddMemory(0x1000, mdtest.Pattern(0x10)).
		SetMiscInfo(99, 1).
		SetException(mdtest.Exception{ThreadID: 3, Code: 0xc0000005, Address: 0x1004}))

	h, err := r.Header()
	require.NoError(t, err)
	assert.Equal(t, format.Signature, h.Signature)

	streams, err := r.Streams()
	require.NoError(t, err)
	var types []format.StreamType
	for _, s := range streams {
		types = append(types, s.Type)
	}
	assert.ElementsMatch(t, []format.StreamType{format.MemoryListStream, format.MiscInfoStream, format.ExceptionStream}, types)

	e, err := r.Exception()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1004), e.Address)
}

func TestClose(t *testing.T) {
	path := mdtest.New().
		AddMemory(0x1000, mdtest.Pattern(0x100)).
		AddThread(mdtest.Thread{ID: 5}).
		WriteFile(t)

	r, err := Open(path)
	require.NoError(t, err)

	data, err := r.ReadVirtualMemory(0x1000, 0x10)
	require.NoError(t, err)
	threads, err := r.ThreadList()
	require.NoError(t, err)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close(), "double close is safe")

	// Results are copies and outlive the mapping.
	assert.Equal(t, mdtest.Pattern(0x10), data)
	assert.Equal(t, uint32(5), threads.Threads[0].ID)

	_, err = r.ReadVirtualMemory(0x1000, 1)
	require.ErrorIs(t, err, ErrClosedError)
	_, err = r.ReadMemory(make([]byte, 1), 0x1000)
	require.ErrorIs(t, err, ErrClosedError)
	_, err = r.ThreadList()
	require.ErrorIs(t, err, ErrClosedError)
	_, err = r.SystemInfo()
	require.ErrorIs(t, err, ErrClosedError)
	_, err = r.MemoryRegions()
	require.ErrorIs(t, err, ErrClosedError)
}

func TestOpenBytes(t *testing.T) {
	data := mdtest.New().AddMemory(0x1000, mdtest.Pattern(0x10)).Bytes()

	r, err := OpenBytes(data)
	require.NoError(t, err)

	got, err := r.ReadVirtualMemory(0x1004, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{4, 5, 6, 7}, got)

	// The copy is independent of the caller's bytes.
	got[0] = 0xff
	again, err := r.ReadVirtualMemory(0x1004, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{4}, again)

	require.NoError(t, r.Close())
	assert.Equal(t, byte(0x4d), data[0], "caller keeps its bytes")

	_, err = OpenBytes([]byte("MDMP"))
	require.ErrorIs(t, err, ErrMalformedError)
}

func TestConcurrentReads(t *testing.T) {
	pattern := mdtest.Pattern(0x1000)
	r := openBuilder(t, mdtest.New().
		AddMemory(0x10000, pattern).
		AddThread(mdtest.Thread{ID: 9}).
		SetSystemInfo(mdtest.SystemInfo{Platform: uint32(format.PlatformLinux)}))

	var g errgroup.Group
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			for j := 0; j < 200; j++ {
				off := uint64((i*131 + j*17) % 0xff0)
				data, err := r.ReadVirtualMemory(0x10000+off, 0x10)
				if err != nil {
					return err
				}
				if !bytes.Equal(data, pattern[off:off+0x10]) {
					return errors.New("read returned wrong bytes")
				}
				if _, err := r.ThreadList(); err != nil {
					return err
				}
				if _, err := r.SystemInfo(); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

func TestCloseWhileReading(t *testing.T) {
	r, err := Open(mdtest.New().AddMemory(0x1000, mdtest.Pattern(0x100)).WriteFile(t))
	require.NoError(t, err)

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			for j := 0; j < 500; j++ {
				_, err := r.ReadVirtualMemory(0x1000, 0x100)
				if err != nil && !errors.Is(err, ErrClosedError) {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, r.Close())
	require.NoError(t, g.Wait())
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	r := openBuilder(t, mdtest.New().
		AddMemory(0x1000, mdtest.Pattern(0x100)).
		AddMemory(0x1080, mdtest.Pattern(0x100)),
		WithLogger(log.NewLogfmtLogger(&buf)),
		WithAccessAdvice(AdviceSequential))

	regions, err := r.MemoryRegions()
	require.NoError(t, err)
	assert.Len(t, regions, 1)

	out := buf.String()
	assert.Contains(t, out, `msg="opened minidump"`)
	assert.Contains(t, out, `msg="dropped overlapping memory region"`)
	assert.Contains(t, out, "base=0x1080")
	assert.Contains(t, out, `msg="memory table built"`)
}
