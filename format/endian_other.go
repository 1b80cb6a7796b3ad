//go:build !amd64 && !386 && !arm64 && !ppc64le

package format

import "encoding/binary"

// Big-endian or alignment-strict architectures go through encoding/binary.

//go:nosplit
func getUint64LE(b []byte) uint64 {
	return binary.LittleEndian.Uint64(b)
}

//go:nosplit
func getUint32LE(b []byte) uint32 {
	return binary.LittleEndian.Uint32(b)
}

//go:nosplit
func getUint16LE(b []byte) uint16 {
	return binary.LittleEndian.Uint16(b)
}
