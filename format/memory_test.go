package format

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Giulio2002/mdmp/internal/mdtest"
)

func decode(t *testing.T, b *mdtest.Builder) *Dump {
	t.Helper()
	d, err := Decode(b.Bytes())
	require.NoError(t, err)
	return d
}

func TestMemoryRegions(t *testing.T) {
	for _, pad := range []bool{false, true} {
		b := mdtest.New()
		b.PadLists = pad
		b.AddMemory(0x3000, mdtest.Pattern(0x10)).
			AddMemory(0x1000, mdtest.Pattern(0x100))
		d := decode(t, b)

		table, err := d.MemoryRegions()
		require.NoError(t, err)
		require.Equal(t, 2, table.Len())

		regions := table.Regions()
		assert.Equal(t, uint64(0x1000), regions[0].Base, "sorted by base")
		assert.Equal(t, uint64(0x3000), regions[1].Base)

		r, ok := table.Find(0x1080)
		require.True(t, ok)
		assert.Equal(t, uint64(0x1000), r.Base)
		assert.Equal(t, uint64(0x100), r.Size)
		assert.Equal(t, r.Size, r.Data.Size)

		bytes, err := d.Slice(r.Data)
		require.NoError(t, err)
		assert.Equal(t, mdtest.Pattern(0x100), bytes)

		for _, addr := range []uint64{0, 0xfff, 0x1100, 0x2fff, 0x3010, ^uint64(0)} {
			_, ok := table.Find(addr)
			assert.False(t, ok, "address %#x", addr)
		}
	}
}

func TestMemory64Regions(t *testing.T) {
	d := decode(t, mdtest.New().
		AddMemory64(0x7000, []byte{1, 2, 3, 4}).
		AddMemory64(0x5000, []byte{5, 6}))

	table, err := d.MemoryRegions()
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())

	r, ok := table.Find(0x7003)
	require.True(t, ok)
	b, err := d.Slice(r.Data)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, b)

	r, ok = table.Find(0x5001)
	require.True(t, ok)
	b, err = d.Slice(r.Data)
	require.NoError(t, err)
	assert.Equal(t, []byte{5, 6}, b, "memory64 data is laid out back to back")
}

func TestMemoryRegionsUnion(t *testing.T) {
	d := decode(t, mdtest.New().
		AddMemory(0x1000, mdtest.Pattern(0x10)).
		AddMemory64(0x2000, mdtest.Pattern(0x10)))

	table, err := d.MemoryRegions()
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())
}

func TestMemoryRegionsDropsOverlapsAndEmpty(t *testing.T) {
	d := decode(t, mdtest.New().
		AddMemory(0x1000, mdtest.Pattern(0x100)).
		AddMemory(0x1080, mdtest.Pattern(0x100)).
		AddMemory(0x4000, nil).
		AddMemory(0xffffffffffffff00, mdtest.Pattern(0x200)))

	table, err := d.MemoryRegions()
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())
	assert.Len(t, table.Dropped(), 2)

	r, ok := table.Find(0x1090)
	require.True(t, ok)
	assert.Equal(t, uint64(0x1000), r.Base, "first region keeps the overlap")
}

func TestMemoryRegionsMissing(t *testing.T) {
	d := decode(t, mdtest.New().SetMiscInfo(1, 2))
	_, err := d.MemoryRegions()
	require.ErrorIs(t, err, ErrStreamMissing)
}

func TestMemoryRegionsCorrupt(t *testing.T) {
	// Count claims more descriptors than the stream holds.
	list := make([]byte, 4+16)
	binary.LittleEndian.PutUint32(list, 2)
	d := decode(t, mdtest.New().AddStream(uint32(MemoryListStream), list))
	_, err := d.MemoryRegions()
	require.ErrorIs(t, err, ErrStreamCorrupt)

	// Descriptor points past the end of the file.
	list = make([]byte, 4+16)
	binary.LittleEndian.PutUint32(list[0:], 1)
	binary.LittleEndian.PutUint64(list[4:], 0x1000)
	binary.LittleEndian.PutUint32(list[12:], 0x100)
	binary.LittleEndian.PutUint32(list[16:], 0xffff0000)
	d = decode(t, mdtest.New().AddStream(uint32(MemoryListStream), list))
	_, err = d.MemoryRegions()
	require.ErrorIs(t, err, ErrStreamCorrupt)

	// Memory64 count overflowing the stream.
	list64 := make([]byte, 16)
	binary.LittleEndian.PutUint64(list64, ^uint64(0))
	d = decode(t, mdtest.New().AddStream(uint32(Memory64ListStream), list64))
	_, err = d.MemoryRegions()
	require.ErrorIs(t, err, ErrStreamCorrupt)
}

func TestMemoryRegionContains(t *testing.T) {
	r := MemoryRegion{Base: 0x1000, Size: 0x100}
	assert.True(t, r.Contains(0x1000))
	assert.True(t, r.Contains(0x10ff))
	assert.False(t, r.Contains(0x1100))
	assert.False(t, r.Contains(0xfff))
	assert.Equal(t, uint64(0x1100), r.End())

	top := MemoryRegion{Base: ^uint64(0) - 1, Size: 4}
	assert.Equal(t, ^uint64(0), top.End())
}
