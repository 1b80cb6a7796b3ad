package format

import (
	"fmt"
	"math/bits"
	"sort"
)

// MemoryRegion is one captured range of the dumped process's address space.
// Data locates the captured bytes in the dump file; Data.Size == Size.
type MemoryRegion struct {
	Base uint64
	Size uint64
	Data Location
}

func (r MemoryRegion) String() string {
	return fmt.Sprintf("MemoryRegion{base:%#x, size:%#x, rva:%#x}", r.Base, r.Size, r.Data.RVA)
}

// End returns the first address past the region. It saturates at
// MaxUint64 for a region that reaches the top of the address space.
func (r MemoryRegion) End() uint64 {
	end, carry := bits.Add64(r.Base, r.Size, 0)
	if carry != 0 {
		return ^uint64(0)
	}
	return end
}

// Contains reports whether addr lies in [Base, Base+Size).
func (r MemoryRegion) Contains(addr uint64) bool {
	return r.Base <= addr && addr-r.Base < r.Size
}

// MemoryRegionTable is the set of captured regions, sorted by base address
// and free of overlaps.
type MemoryRegionTable struct {
	regions []MemoryRegion
	dropped []MemoryRegion
}

func newMemoryRegionTable(regions []MemoryRegion) *MemoryRegionTable {
	sort.SliceStable(regions, func(i, k int) bool {
		return regions[i].Base < regions[k].Base
	})

	t := &MemoryRegionTable{regions: make([]MemoryRegion, 0, len(regions))}
	for _, r := range regions {
		if r.Size == 0 {
			continue
		}
		// A region wrapping past the top of the address space or
		// overlapping the previous kept one would make lookups ambiguous.
		if _, carry := bits.Add64(r.Base, r.Size, 0); carry != 0 {
			t.dropped = append(t.dropped, r)
			continue
		}
		if n := len(t.regions); n > 0 && r.Base < t.regions[n-1].Base+t.regions[n-1].Size {
			t.dropped = append(t.dropped, r)
			continue
		}
		t.regions = append(t.regions, r)
	}
	return t
}

// Len returns the number of regions.
func (t *MemoryRegionTable) Len() int {
	return len(t.regions)
}

// Regions returns a copy of the regions in address order.
func (t *MemoryRegionTable) Regions() []MemoryRegion {
	out := make([]MemoryRegion, len(t.regions))
	copy(out, t.regions)
	return out
}

// Dropped returns the regions that were discarded because they overlapped
// an earlier region or wrapped the address space.
func (t *MemoryRegionTable) Dropped() []MemoryRegion {
	out := make([]MemoryRegion, len(t.dropped))
	copy(out, t.dropped)
	return out
}

// Find returns the region containing addr.
func (t *MemoryRegionTable) Find(addr uint64) (MemoryRegion, bool) {
	// Binary search for an upper-bound region, then check
	// if the previous region contains addr.
	k := sort.Search(len(t.regions), func(k int) bool {
		return addr < t.regions[k].Base
	})
	k--
	if k >= 0 && t.regions[k].Contains(addr) {
		return t.regions[k], true
	}
	return MemoryRegion{}, false
}

// MemoryRegions decodes the memory list and memory64 list streams into a
// single table. It fails with ErrStreamMissing if the dump has neither.
func (d *Dump) MemoryRegions() (*MemoryRegionTable, error) {
	var regions []MemoryRegion
	found := false

	if d.HasStream(MemoryListStream) {
		found = true
		rs, err := d.memoryList()
		if err != nil {
			return nil, err
		}
		regions = append(regions, rs...)
	}
	if d.HasStream(Memory64ListStream) {
		found = true
		rs, err := d.memory64List()
		if err != nil {
			return nil, err
		}
		regions = append(regions, rs...)
	}
	if !found {
		return nil, streamMissing(MemoryListStream)
	}
	return newMemoryRegionTable(regions), nil
}

func (d *Dump) memoryList() ([]MemoryRegion, error) {
	n, b, err := d.list(MemoryListStream, memoryDescriptorSize)
	if err != nil {
		return nil, err
	}
	regions := make([]MemoryRegion, 0, n)
	for i := 0; i < n; i++ {
		rec := b[i*memoryDescriptorSize:]
		loc := readLocation(rec[8:])
		r := MemoryRegion{
			Base: getUint64LE(rec),
			Size: loc.Size,
			Data: loc,
		}
		if _, ok := d.slice(loc); !ok {
			return nil, streamCorrupt(MemoryListStream, "region %d at %#x: data [%#x, +%#x) outside file", i, r.Base, loc.RVA, loc.Size)
		}
		regions = append(regions, r)
	}
	return regions, nil
}

// The memory64 list stores one base RVA; region data follows back to back.
func (d *Dump) memory64List() ([]MemoryRegion, error) {
	b, err := d.Stream(Memory64ListStream)
	if err != nil {
		return nil, err
	}
	if len(b) < 16 {
		return nil, streamCorrupt(Memory64ListStream, "%d bytes, need 16-byte header", len(b))
	}
	n := getUint64LE(b[0:])
	rva := getUint64LE(b[8:])
	if n > uint64(len(b)-16)/memory64DescSize {
		return nil, streamCorrupt(Memory64ListStream, "%d descriptors do not fit in %d bytes", n, len(b))
	}

	regions := make([]MemoryRegion, 0, n)
	for i := uint64(0); i < n; i++ {
		rec := b[16+i*memory64DescSize:]
		r := MemoryRegion{
			Base: getUint64LE(rec[0:]),
			Size: getUint64LE(rec[8:]),
		}
		r.Data = Location{RVA: rva, Size: r.Size}
		if _, ok := d.slice(r.Data); !ok {
			return nil, streamCorrupt(Memory64ListStream, "region %d at %#x: data [%#x, +%#x) outside file", i, r.Base, rva, r.Size)
		}
		rva += r.Size
		regions = append(regions, r)
	}
	return regions, nil
}
