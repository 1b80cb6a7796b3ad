// Package mdtest builds synthetic minidumps for tests.
//
// Raw payloads (memory bytes, strings, thread contexts) are laid out in the
// order they are added; list streams and the directory are emitted by
// Bytes. The builder does not depend on the decoder so that the decoder's
// own tests can use it.
package mdtest

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/text/encoding/unicode"
)

const headerSize = 32

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// Stream types, duplicated from the decoder on purpose.
const (
	ThreadListStream   uint32 = 3
	ModuleListStream   uint32 = 4
	MemoryListStream   uint32 = 5
	ExceptionStream    uint32 = 6
	SystemInfoStream   uint32 = 7
	Memory64ListStream uint32 = 9
	MiscInfoStream     uint32 = 15
)

// Thread describes a thread record and its captured stack and context.
type Thread struct {
	ID            uint32
	SuspendCount  uint32
	PriorityClass uint32
	Priority      uint32
	TEB           uint64
	StackBase     uint64
	Stack         []byte
	Context       []byte
}

// SystemInfo describes the system info stream.
type SystemInfo struct {
	Arch               uint16
	ProcessorLevel     uint16
	ProcessorRevision  uint16
	NumberOfProcessors uint8
	Platform           uint32
	MajorVersion       uint32
	MinorVersion       uint32
	BuildNumber        uint32
	CSDVersion         string
	Vendor             string // x86 vendor id, at most 12 bytes
}

// Module describes a module record.
type Module struct {
	Base        uint64
	Size        uint32
	Name        string
	FileVersion [4]uint16
}

// Exception describes the exception stream.
type Exception struct {
	ThreadID   uint32
	Code       uint32
	Flags      uint32
	Address    uint64
	Parameters []uint64
}

type location struct {
	size, rva uint32
}

type memory struct {
	base uint64
	loc  location
}

type memory64 struct {
	base uint64
	data []byte
}

type thread struct {
	Thread
	stack, context location
}

type module struct {
	Module
	nameRVA uint32
}

type entry struct {
	typ uint32
	loc location
}

// Builder accumulates minidump contents.
type Builder struct {
	body     bytes.Buffer // everything after the header
	raw      []entry
	memory   []memory
	memory64 []memory64
	threads  []thread
	modules  []module
	sysinfo  []byte
	excepts  []byte
	misc     []byte

	// PadLists inserts four bytes after the count of uint32-counted lists,
	// the way some writers align their records.
	PadLists bool
	// Version overrides the header version when non-zero.
	Version uint32
}

// New returns an empty builder.
func New() *Builder {
	return &Builder{}
}

func (b *Builder) appendRaw(p []byte) location {
	rva := headerSize + b.body.Len()
	b.body.Write(p)
	return location{size: uint32(len(p)), rva: uint32(rva)}
}

func (b *Builder) appendString(s string) uint32 {
	units, err := utf16le.NewEncoder().Bytes([]byte(s))
	if err != nil {
		panic(err)
	}
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint32(len(units)))
	buf.Write(units)
	buf.Write([]byte{0, 0})
	return b.appendRaw(buf.Bytes()).rva
}

// AddMemory adds a region to the memory list stream.
func (b *Builder) AddMemory(base uint64, data []byte) *Builder {
	b.memory = append(b.memory, memory{base: base, loc: b.appendRaw(data)})
	return b
}

// AddMemory64 adds a region to the memory64 list stream.
func (b *Builder) AddMemory64(base uint64, data []byte) *Builder {
	b.memory64 = append(b.memory64, memory64{base: base, data: data})
	return b
}

// AddThread adds a thread; its stack is also recorded as a memory region.
func (b *Builder) AddThread(t Thread) *Builder {
	th := thread{Thread: t}
	if len(t.Stack) > 0 {
		th.stack = b.appendRaw(t.Stack)
		b.memory = append(b.memory, memory{base: t.StackBase, loc: th.stack})
	}
	if len(t.Context) > 0 {
		th.context = b.appendRaw(t.Context)
	}
	b.threads = append(b.threads, th)
	return b
}

// AddModule adds a module.
func (b *Builder) AddModule(m Module) *Builder {
	b.modules = append(b.modules, module{Module: m, nameRVA: b.appendString(m.Name)})
	return b
}

// SetSystemInfo sets the system info stream.
func (b *Builder) SetSystemInfo(s SystemInfo) *Builder {
	var csd uint32
	if s.CSDVersion != "" {
		csd = b.appendString(s.CSDVersion)
	}
	rec := make([]byte, 56)
	le := binary.LittleEndian
	le.PutUint16(rec[0:], s.Arch)
	le.PutUint16(rec[2:], s.ProcessorLevel)
	le.PutUint16(rec[4:], s.ProcessorRevision)
	rec[6] = s.NumberOfProcessors
	le.PutUint32(rec[8:], s.MajorVersion)
	le.PutUint32(rec[12:], s.MinorVersion)
	le.PutUint32(rec[16:], s.BuildNumber)
	le.PutUint32(rec[20:], s.Platform)
	le.PutUint32(rec[24:], csd)
	copy(rec[32:44], s.Vendor)
	b.sysinfo = rec
	return b
}

// SetException sets the exception stream.
func (b *Builder) SetException(e Exception) *Builder {
	rec := make([]byte, 168)
	le := binary.LittleEndian
	le.PutUint32(rec[0:], e.ThreadID)
	le.PutUint32(rec[8:], e.Code)
	le.PutUint32(rec[12:], e.Flags)
	le.PutUint64(rec[24:], e.Address)
	le.PutUint32(rec[32:], uint32(len(e.Parameters)))
	for i, p := range e.Parameters {
		if i == 15 {
			break
		}
		le.PutUint64(rec[40+8*i:], p)
	}
	b.excepts = rec
	return b
}

// SetMiscInfo sets a misc info stream carrying the process id and times.
func (b *Builder) SetMiscInfo(pid, createTime uint32) *Builder {
	rec := make([]byte, 24)
	le := binary.LittleEndian
	le.PutUint32(rec[0:], 24)
	le.PutUint32(rec[4:], 0x1|0x2)
	le.PutUint32(rec[8:], pid)
	le.PutUint32(rec[12:], createTime)
	b.misc = rec
	return b
}

// AddStream adds a stream with arbitrary contents.
func (b *Builder) AddStream(typ uint32, data []byte) *Builder {
	b.raw = append(b.raw, entry{typ: typ, loc: b.appendRaw(data)})
	return b
}

// AddStreamAt adds a directory entry with an arbitrary location, which
// need not lie inside the file.
func (b *Builder) AddStreamAt(typ, rva, size uint32) *Builder {
	b.raw = append(b.raw, entry{typ: typ, loc: location{size: size, rva: rva}})
	return b
}

// Bytes lays out the minidump. It may be called more than once.
func (b *Builder) Bytes() []byte {
	var body bytes.Buffer
	body.Write(b.body.Bytes())
	le := binary.LittleEndian

	put := func(v interface{}) {
		binary.Write(&body, le, v)
	}
	emit := func(typ uint32, write func()) entry {
		start := headerSize + body.Len()
		write()
		return entry{typ: typ, loc: location{size: uint32(headerSize + body.Len() - start), rva: uint32(start)}}
	}
	count := func(n int) {
		put(uint32(n))
		if b.PadLists {
			put(uint32(0))
		}
	}
	putLoc := func(l location) {
		put(l.size)
		put(l.rva)
	}

	dir := append([]entry(nil), b.raw...)

	if len(b.memory64) > 0 {
		dataRVA := uint64(headerSize + body.Len())
		for _, m := range b.memory64 {
			body.Write(m.data)
		}
		dir = append(dir, emit(Memory64ListStream, func() {
			put(uint64(len(b.memory64)))
			put(dataRVA)
			for _, m := range b.memory64 {
				put(m.base)
				put(uint64(len(m.data)))
			}
		}))
	}
	if len(b.memory) > 0 {
		dir = append(dir, emit(MemoryListStream, func() {
			count(len(b.memory))
			for _, m := range b.memory {
				put(m.base)
				putLoc(m.loc)
			}
		}))
	}
	if len(b.threads) > 0 {
		dir = append(dir, emit(ThreadListStream, func() {
			count(len(b.threads))
			for _, t := range b.threads {
				put(t.ID)
				put(t.SuspendCount)
				put(t.PriorityClass)
				put(t.Priority)
				put(t.TEB)
				put(t.StackBase)
				putLoc(t.stack)
				putLoc(t.context)
			}
		}))
	}
	if len(b.modules) > 0 {
		dir = append(dir, emit(ModuleListStream, func() {
			count(len(b.modules))
			for _, m := range b.modules {
				rec := make([]byte, 108)
				le.PutUint64(rec[0:], m.Base)
				le.PutUint32(rec[8:], m.Size)
				le.PutUint32(rec[20:], m.nameRVA)
				if m.FileVersion != [4]uint16{} {
					v := m.FileVersion
					le.PutUint32(rec[24:], 0xfeef04bd)
					le.PutUint32(rec[32:], uint32(v[0])<<16|uint32(v[1]))
					le.PutUint32(rec[36:], uint32(v[2])<<16|uint32(v[3]))
				}
				body.Write(rec)
			}
		}))
	}
	for _, s := range []struct {
		typ uint32
		rec []byte
	}{
		{SystemInfoStream, b.sysinfo},
		{ExceptionStream, b.excepts},
		{MiscInfoStream, b.misc},
	} {
		if s.rec == nil {
			continue
		}
		rec := s.rec
		dir = append(dir, emit(s.typ, func() { body.Write(rec) }))
	}

	dirRVA := headerSize + body.Len()
	for _, e := range dir {
		put(e.typ)
		putLoc(e.loc)
	}

	version := b.Version
	if version == 0 {
		version = 0xa793
	}
	out := make([]byte, headerSize, headerSize+body.Len())
	le.PutUint32(out[0:], 0x504d444d)
	le.PutUint32(out[4:], version)
	le.PutUint32(out[8:], uint32(len(dir)))
	le.PutUint32(out[12:], uint32(dirRVA))
	le.PutUint32(out[20:], 1700000000)
	return append(out, body.Bytes()...)
}

// WriteFile writes the minidump into a temporary directory owned by tb
// and returns its path.
func (b *Builder) WriteFile(tb testing.TB) string {
	tb.Helper()
	return WriteFile(tb, b.Bytes())
}

// WriteFile writes data into a temporary directory owned by tb and
// returns its path.
func WriteFile(tb testing.TB, data []byte) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), "test.dmp")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		tb.Fatal(err)
	}
	return path
}

// Pattern returns n bytes counting up from 0x00 and wrapping at 0xff.
func Pattern(n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(i)
	}
	return p
}
