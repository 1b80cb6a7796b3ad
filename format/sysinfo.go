package format

import (
	"fmt"
	"strings"
)

// CPUInfo is the CPU_INFORMATION union of the system info stream.
// The x86 fields are set for x86 and amd64 dumps, ProcessorFeatures for
// everything else.
type CPUInfo struct {
	VendorID            string
	VersionInformation  uint32
	FeatureInformation  uint32
	AMDExtendedFeatures uint32
	ProcessorFeatures   [2]uint64
}

// SystemInfo is MINIDUMP_SYSTEM_INFO.
type SystemInfo struct {
	Arch               Arch
	ProcessorLevel     uint16
	ProcessorRevision  uint16
	NumberOfProcessors uint8
	ProductType        uint8
	MajorVersion       uint32
	MinorVersion       uint32
	BuildNumber        uint32
	Platform           Platform
	CSDVersion         string
	SuiteMask          uint16
	CPU                CPUInfo
}

// OS returns a human readable operating system description.
func (s *SystemInfo) OS() string {
	v := fmt.Sprintf("%s %d.%d.%d", s.Platform, s.MajorVersion, s.MinorVersion, s.BuildNumber)
	if s.CSDVersion != "" {
		v += " " + s.CSDVersion
	}
	return v
}

// CPUString returns a human readable processor description.
func (s *SystemInfo) CPUString() string {
	var b strings.Builder
	b.WriteString(s.Arch.String())
	if s.CPU.VendorID != "" {
		fmt.Fprintf(&b, " %s", s.CPU.VendorID)
	}
	fmt.Fprintf(&b, " level %d rev %#x, %d cpus", s.ProcessorLevel, s.ProcessorRevision, s.NumberOfProcessors)
	return b.String()
}

// SystemInfo decodes the system info stream. An unreadable service pack
// string leaves CSDVersion empty rather than failing the stream.
func (d *Dump) SystemInfo() (*SystemInfo, error) {
	b, err := d.Stream(SystemInfoStream)
	if err != nil {
		return nil, err
	}
	if len(b) < systemInfoSize {
		return nil, streamCorrupt(SystemInfoStream, "%d bytes, need %d", len(b), systemInfoSize)
	}

	s := &SystemInfo{
		Arch:               Arch(getUint16LE(b[0:])),
		ProcessorLevel:     getUint16LE(b[2:]),
		ProcessorRevision:  getUint16LE(b[4:]),
		NumberOfProcessors: b[6],
		ProductType:        b[7],
		MajorVersion:       getUint32LE(b[8:]),
		MinorVersion:       getUint32LE(b[12:]),
		BuildNumber:        getUint32LE(b[16:]),
		Platform:           Platform(getUint32LE(b[20:])),
		SuiteMask:          getUint16LE(b[28:]),
	}
	if rva := getUint32LE(b[24:]); rva != 0 {
		if csd, err := d.String(uint64(rva)); err == nil {
			s.CSDVersion = csd
		}
	}

	cpu := b[32:systemInfoSize]
	switch s.Arch {
	case ArchX86, ArchAMD64, ArchX86OnWin64:
		s.CPU.VendorID = strings.TrimRight(string(cpu[0:12]), "\x00")
		s.CPU.VersionInformation = getUint32LE(cpu[12:])
		s.CPU.FeatureInformation = getUint32LE(cpu[16:])
		s.CPU.AMDExtendedFeatures = getUint32LE(cpu[20:])
	default:
		s.CPU.ProcessorFeatures[0] = getUint64LE(cpu[0:])
		s.CPU.ProcessorFeatures[1] = getUint64LE(cpu[8:])
	}
	return s, nil
}
