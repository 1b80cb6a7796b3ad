package format

import "time"

// MiscInfo flags
const (
	MiscProcessID    = 0x1
	MiscProcessTimes = 0x2
)

// MiscInfo is the MINIDUMP_MISC_INFO prefix shared by every version of the
// misc info stream.
type MiscInfo struct {
	Flags             uint32
	ProcessID         uint32
	ProcessCreateTime uint32
	ProcessUserTime   uint32 // seconds
	ProcessKernelTime uint32 // seconds
}

// HasProcessID reports whether ProcessID is valid.
func (m *MiscInfo) HasProcessID() bool {
	return m.Flags&MiscProcessID != 0
}

// HasProcessTimes reports whether the process time fields are valid.
func (m *MiscInfo) HasProcessTimes() bool {
	return m.Flags&MiscProcessTimes != 0
}

// CreateTime returns the process creation time.
func (m *MiscInfo) CreateTime() time.Time {
	return time.Unix(int64(m.ProcessCreateTime), 0).UTC()
}

// MiscInfo decodes the misc info stream.
func (d *Dump) MiscInfo() (*MiscInfo, error) {
	b, err := d.Stream(MiscInfoStream)
	if err != nil {
		return nil, err
	}
	if len(b) < miscInfoSize {
		return nil, streamCorrupt(MiscInfoStream, "%d bytes, need %d", len(b), miscInfoSize)
	}
	if size := getUint32LE(b[0:]); size < miscInfoSize || uint64(size) > uint64(len(b)) {
		return nil, streamCorrupt(MiscInfoStream, "SizeOfInfo %d with %d bytes present", size, len(b))
	}

	m := &MiscInfo{Flags: getUint32LE(b[4:])}
	if m.HasProcessID() {
		m.ProcessID = getUint32LE(b[8:])
	}
	if m.HasProcessTimes() {
		m.ProcessCreateTime = getUint32LE(b[12:])
		m.ProcessUserTime = getUint32LE(b[16:])
		m.ProcessKernelTime = getUint32LE(b[20:])
	}
	return m, nil
}
