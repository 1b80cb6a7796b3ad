//go:build amd64 || 386 || arm64 || ppc64le

package format

import "unsafe"

// These architectures are little-endian and tolerate unaligned loads, so
// fields are read straight out of the mapping. Minidump writers do not
// align records, so this list is narrower than "all little-endian".

//go:nosplit
func getUint64LE(b []byte) uint64 {
	_ = b[7]
	return *(*uint64)(unsafe.Pointer(&b[0]))
}

//go:nosplit
func getUint32LE(b []byte) uint32 {
	_ = b[3]
	return *(*uint32)(unsafe.Pointer(&b[0]))
}

//go:nosplit
func getUint16LE(b []byte) uint16 {
	_ = b[1]
	return *(*uint16)(unsafe.Pointer(&b[0]))
}
