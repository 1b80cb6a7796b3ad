// Package format decodes the minidump container format.
//
// Decode parses the header and stream directory of a minidump held in a
// byte slice; every other stream is decoded on demand by the accessor for
// its type. A Dump never copies or owns the slice it was built from: the
// slice must stay valid and unmodified for as long as the Dump is used.
// Values returned by the stream accessors (ThreadList, SystemInfo, ...)
// are plain Go values and do not reference the slice.
//
// Memory regions reference their bytes by Location, an offset and length
// into the slice, rather than by sub-slice. Resolve one with Dump.Slice.
package format

import (
	"math/bits"
	"time"

	"github.com/pkg/errors"

	"github.com/Giulio2002/mdmp/internal/fastmap"
)

// Header is MINIDUMP_HEADER.
type Header struct {
	Signature          uint32
	Version            uint32
	NumberOfStreams    uint32
	StreamDirectoryRVA uint32
	CheckSum           uint32
	TimeDateStamp      uint32
	Flags              uint64
}

// Time returns the capture time recorded in the header.
func (h Header) Time() time.Time {
	return time.Unix(int64(h.TimeDateStamp), 0).UTC()
}

// Location addresses a byte range of the dump file.
type Location struct {
	RVA  uint64
	Size uint64
}

// DirectoryEntry is MINIDUMP_DIRECTORY.
type DirectoryEntry struct {
	Type     StreamType
	Location Location
}

// Dump is a decoded view over the bytes of a minidump.
// A Dump is immutable and safe for concurrent use.
type Dump struct {
	data   []byte
	header Header
	dir    []DirectoryEntry
	index  fastmap.Uint32Map[int] // stream type -> dir index, first wins
}

// Decode parses the header and stream directory of data.
func Decode(data []byte) (*Dump, error) {
	if len(data) < HeaderSize {
		return nil, errors.Wrapf(ErrMalformed, "file is %d bytes, header needs %d", len(data), HeaderSize)
	}

	h := Header{
		Signature:          getUint32LE(data[0:]),
		Version:            getUint32LE(data[4:]),
		NumberOfStreams:    getUint32LE(data[8:]),
		StreamDirectoryRVA: getUint32LE(data[12:]),
		CheckSum:           getUint32LE(data[16:]),
		TimeDateStamp:      getUint32LE(data[20:]),
		Flags:              getUint64LE(data[24:]),
	}
	if h.Signature != Signature {
		return nil, errors.Wrapf(ErrMalformed, "bad signature %#08x", h.Signature)
	}
	if uint16(h.Version) != Version {
		return nil, errors.Wrapf(ErrMalformed, "unsupported version %#04x", uint16(h.Version))
	}

	dirStart := uint64(h.StreamDirectoryRVA)
	dirEnd := dirStart + uint64(h.NumberOfStreams)*DirectoryEntrySize
	if dirEnd > uint64(len(data)) {
		return nil, errors.Wrapf(ErrDirectoryCorrupt, "%d entries at %#x run past end of file (%d bytes)",
			h.NumberOfStreams, h.StreamDirectoryRVA, len(data))
	}

	d := &Dump{
		data:   data,
		header: h,
		dir:    make([]DirectoryEntry, 0, h.NumberOfStreams),
	}
	for off := dirStart; off < dirEnd; off += DirectoryEntrySize {
		e := data[off:]
		entry := DirectoryEntry{
			Type: StreamType(getUint32LE(e[0:])),
			Location: Location{
				Size: uint64(getUint32LE(e[4:])),
				RVA:  uint64(getUint32LE(e[8:])),
			},
		}
		if entry.Type == UnusedStream {
			continue
		}
		d.index.SetIfAbsent(uint32(entry.Type), len(d.dir))
		d.dir = append(d.dir, entry)
	}
	return d, nil
}

// Header returns the container header.
func (d *Dump) Header() Header {
	return d.header
}

// Size returns the size of the underlying bytes.
func (d *Dump) Size() int {
	return len(d.data)
}

// Streams returns a copy of the stream directory, without unused entries.
func (d *Dump) Streams() []DirectoryEntry {
	out := make([]DirectoryEntry, len(d.dir))
	copy(out, d.dir)
	return out
}

// HasStream reports whether the directory lists a stream of type t.
func (d *Dump) HasStream(t StreamType) bool {
	_, ok := d.index.Get(uint32(t))
	return ok
}

// Stream returns the raw bytes of the first stream of type t.
// The result aliases the dump's bytes.
func (d *Dump) Stream(t StreamType) ([]byte, error) {
	i, ok := d.index.Get(uint32(t))
	if !ok {
		return nil, streamMissing(t)
	}
	loc := d.dir[i].Location
	b, ok := d.slice(loc)
	if !ok {
		return nil, streamCorrupt(t, "data [%#x, +%#x) outside file of %d bytes", loc.RVA, loc.Size, len(d.data))
	}
	return b, nil
}

// Slice resolves loc into the dump's bytes.
// The result aliases the dump's bytes and is only valid as long as they are.
func (d *Dump) Slice(loc Location) ([]byte, error) {
	b, ok := d.slice(loc)
	if !ok {
		return nil, errors.Wrapf(ErrStreamCorrupt, "location [%#x, +%#x) outside file of %d bytes", loc.RVA, loc.Size, len(d.data))
	}
	return b, nil
}

func (d *Dump) slice(loc Location) ([]byte, bool) {
	end, carry := bits.Add64(loc.RVA, loc.Size, 0)
	if carry != 0 || end > uint64(len(d.data)) {
		return nil, false
	}
	return d.data[loc.RVA:end:end], true
}

// list splits a stream made of a uint32 count followed by fixed-size
// records. Some writers insert four bytes of padding after the count;
// that layout is recognized by its exact size.
func (d *Dump) list(t StreamType, recordSize uint64) (count int, records []byte, err error) {
	b, err := d.Stream(t)
	if err != nil {
		return 0, nil, err
	}
	if len(b) < 4 {
		return 0, nil, streamCorrupt(t, "%d bytes, need count", len(b))
	}
	n := uint64(getUint32LE(b))
	need := 4 + n*recordSize
	switch {
	case uint64(len(b)) == need+4:
		records = b[8:]
	case uint64(len(b)) >= need:
		records = b[4:]
	default:
		return 0, nil, streamCorrupt(t, "%d records of %d bytes do not fit in %d bytes", n, recordSize, len(b))
	}
	return int(n), records, nil
}

func readLocation(b []byte) Location {
	return Location{
		Size: uint64(getUint32LE(b[0:])),
		RVA:  uint64(getUint32LE(b[4:])),
	}
}
