package format

import "fmt"

// vsFixedFileInfoSignature marks a populated VS_FIXEDFILEINFO.
const vsFixedFileInfoSignature = 0xfeef04bd

// Module is MINIDUMP_MODULE.
type Module struct {
	Base          uint64
	Size          uint32
	Checksum      uint32
	TimeDateStamp uint32
	Name          string

	// From VS_FIXEDFILEINFO; zero when the writer left it empty.
	FileVersionMS    uint32
	FileVersionLS    uint32
	ProductVersionMS uint32
	ProductVersionLS uint32

	CodeView Location
	Misc     Location
}

// End returns the first address past the module image.
func (m Module) End() uint64 {
	return m.Base + uint64(m.Size)
}

// Contains reports whether addr lies inside the module image.
func (m Module) Contains(addr uint64) bool {
	return m.Base <= addr && addr-m.Base < uint64(m.Size)
}

// Version returns the file version as a dotted quad, or "" if unknown.
func (m Module) Version() string {
	if m.FileVersionMS == 0 && m.FileVersionLS == 0 {
		return ""
	}
	return fmt.Sprintf("%d.%d.%d.%d",
		m.FileVersionMS>>16, m.FileVersionMS&0xffff,
		m.FileVersionLS>>16, m.FileVersionLS&0xffff)
}

// ModuleList is the decoded module list stream.
type ModuleList struct {
	Modules []Module
}

// Len returns the number of modules.
func (l *ModuleList) Len() int {
	return len(l.Modules)
}

// ModuleAt returns the module whose image contains addr.
func (l *ModuleList) ModuleAt(addr uint64) (Module, bool) {
	for _, m := range l.Modules {
		if m.Contains(addr) {
			return m, true
		}
	}
	return Module{}, false
}

// ModuleList decodes the module list stream, including module names.
func (d *Dump) ModuleList() (*ModuleList, error) {
	n, b, err := d.list(ModuleListStream, moduleSize)
	if err != nil {
		return nil, err
	}
	l := &ModuleList{Modules: make([]Module, n)}
	for i := range l.Modules {
		rec := b[i*moduleSize:]
		m := Module{
			Base:          getUint64LE(rec[0:]),
			Size:          getUint32LE(rec[8:]),
			Checksum:      getUint32LE(rec[12:]),
			TimeDateStamp: getUint32LE(rec[16:]),
			CodeView:      readLocation(rec[76:]),
			Misc:          readLocation(rec[84:]),
		}
		name, err := d.String(uint64(getUint32LE(rec[20:])))
		if err != nil {
			return nil, streamCorrupt(ModuleListStream, "module %d at %#x: name: %v", i, m.Base, err)
		}
		m.Name = name

		vi := rec[24:76]
		if getUint32LE(vi[0:]) == vsFixedFileInfoSignature {
			m.FileVersionMS = getUint32LE(vi[8:])
			m.FileVersionLS = getUint32LE(vi[12:])
			m.ProductVersionMS = getUint32LE(vi[16:])
			m.ProductVersionLS = getUint32LE(vi[20:])
		}
		l.Modules[i] = m
	}
	return l, nil
}
