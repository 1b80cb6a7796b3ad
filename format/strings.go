package format

import (
	"github.com/pkg/errors"
	"golang.org/x/text/encoding/unicode"
)

// maxStringSize bounds MINIDUMP_STRING lengths; names and service-pack
// strings are short, anything larger is a corrupt length field.
const maxStringSize = 64 << 10

// String reads the MINIDUMP_STRING at rva: a uint32 byte length followed
// by that many bytes of UTF-16LE. The returned string is a copy.
func (d *Dump) String(rva uint64) (string, error) {
	hdr, ok := d.slice(Location{RVA: rva, Size: 4})
	if !ok {
		return "", errors.Wrapf(ErrStreamCorrupt, "string at %#x outside file", rva)
	}
	n := uint64(getUint32LE(hdr))
	if n > maxStringSize {
		return "", errors.Wrapf(ErrStreamCorrupt, "string at %#x claims %d bytes", rva, n)
	}
	if n%2 != 0 {
		return "", errors.Wrapf(ErrStreamCorrupt, "string at %#x has odd length %d", rva, n)
	}
	raw, ok := d.slice(Location{RVA: rva + 4, Size: n})
	if !ok {
		return "", errors.Wrapf(ErrStreamCorrupt, "string at %#x: %d bytes outside file", rva, n)
	}
	dec := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	s, err := dec.Bytes(raw)
	if err != nil {
		return "", errors.Wrapf(ErrStreamCorrupt, "string at %#x: %v", rva, err)
	}
	return string(s), nil
}
