package format

import "fmt"

// Container constants
const (
	// Signature is "MDMP" read as a little-endian uint32
	Signature uint32 = 0x504d444d

	// Version is the low word of the header version field
	Version uint16 = 0xa793

	// HeaderSize is the size of MINIDUMP_HEADER
	HeaderSize = 32

	// DirectoryEntrySize is the size of MINIDUMP_DIRECTORY
	DirectoryEntrySize = 12
)

// Record sizes
const (
	locationSize         = 8
	memoryDescriptorSize = 16
	memory64DescSize     = 16
	threadSize           = 48
	moduleSize           = 108
	systemInfoSize       = 56
	exceptionStreamSize  = 168
	miscInfoSize         = 24

	maxExceptionParameters = 15
)

// StreamType identifies a stream in the directory.
type StreamType uint32

// Stream types
const (
	UnusedStream              StreamType = 0
	ThreadListStream          StreamType = 3
	ModuleListStream          StreamType = 4
	MemoryListStream          StreamType = 5
	ExceptionStream           StreamType = 6
	SystemInfoStream          StreamType = 7
	ThreadExListStream        StreamType = 8
	Memory64ListStream        StreamType = 9
	CommentStreamA            StreamType = 10
	CommentStreamW            StreamType = 11
	HandleDataStream          StreamType = 12
	FunctionTableStream       StreamType = 13
	UnloadedModuleListStream  StreamType = 14
	MiscInfoStream            StreamType = 15
	MemoryInfoListStream      StreamType = 16
	ThreadInfoListStream      StreamType = 17
	HandleOperationListStream StreamType = 18
	TokenStream               StreamType = 19
	JavaScriptDataStream      StreamType = 20
	SystemMemoryInfoStream    StreamType = 21
	ProcessVMCountersStream   StreamType = 22
	IptTraceStream            StreamType = 23
	ThreadNamesStream         StreamType = 24

	// Breakpad extensions
	BreakpadInfoStream     StreamType = 0x47670001
	AssertionInfoStream    StreamType = 0x47670002
	LinuxCPUInfoStream     StreamType = 0x47670003
	LinuxProcStatusStream  StreamType = 0x47670004
	LinuxLSBReleaseStream  StreamType = 0x47670005
	LinuxCmdLineStream     StreamType = 0x47670006
	LinuxEnvironStream     StreamType = 0x47670007
	LinuxAuxvStream        StreamType = 0x47670008
	LinuxMapsStream        StreamType = 0x47670009
	LinuxDSODebugStream    StreamType = 0x4767000A
	CrashpadInfoStream     StreamType = 0x43500001
	MozMacosCrashInfo      StreamType = 0x4d7a0001
	MozLinuxLimitsStream   StreamType = 0x4d7a0003
	MozSoftErrorsStream    StreamType = 0x4d7a0004
	MozMacosBootargsStream StreamType = 0x4d7a0005
)

var streamTypeNames = map[StreamType]string{
	UnusedStream:              "Unused",
	ThreadListStream:          "ThreadList",
	ModuleListStream:          "ModuleList",
	MemoryListStream:          "MemoryList",
	ExceptionStream:           "Exception",
	SystemInfoStream:          "SystemInfo",
	ThreadExListStream:        "ThreadExList",
	Memory64ListStream:        "Memory64List",
	CommentStreamA:            "CommentA",
	CommentStreamW:            "CommentW",
	HandleDataStream:          "HandleData",
	FunctionTableStream:       "FunctionTable",
	UnloadedModuleListStream:  "UnloadedModuleList",
	MiscInfoStream:            "MiscInfo",
	MemoryInfoListStream:      "MemoryInfoList",
	ThreadInfoListStream:      "ThreadInfoList",
	HandleOperationListStream: "HandleOperationList",
	TokenStream:               "Token",
	JavaScriptDataStream:      "JavaScriptData",
	SystemMemoryInfoStream:    "SystemMemoryInfo",
	ProcessVMCountersStream:   "ProcessVMCounters",
	IptTraceStream:            "IptTrace",
	ThreadNamesStream:         "ThreadNames",
	BreakpadInfoStream:        "BreakpadInfo",
	AssertionInfoStream:       "AssertionInfo",
	LinuxCPUInfoStream:        "LinuxCpuInfo",
	LinuxProcStatusStream:     "LinuxProcStatus",
	LinuxLSBReleaseStream:     "LinuxLsbRelease",
	LinuxCmdLineStream:        "LinuxCmdLine",
	LinuxEnvironStream:        "LinuxEnviron",
	LinuxAuxvStream:           "LinuxAuxv",
	LinuxMapsStream:           "LinuxMaps",
	LinuxDSODebugStream:       "LinuxDsoDebug",
	CrashpadInfoStream:        "CrashpadInfo",
	MozMacosCrashInfo:         "MozMacosCrashInfo",
	MozLinuxLimitsStream:      "MozLinuxLimits",
	MozSoftErrorsStream:       "MozSoftErrors",
	MozMacosBootargsStream:    "MozMacosBootargs",
}

func (t StreamType) String() string {
	if name, ok := streamTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("StreamType(%#x)", uint32(t))
}

// Arch is the processor architecture recorded in the system info stream.
type Arch uint16

// Processor architectures
const (
	ArchX86           Arch = 0
	ArchMIPS          Arch = 1
	ArchAlpha         Arch = 2
	ArchPPC           Arch = 3
	ArchSHX           Arch = 4
	ArchARM           Arch = 5
	ArchIA64          Arch = 6
	ArchAlpha64       Arch = 7
	ArchMSIL          Arch = 8
	ArchAMD64         Arch = 9
	ArchX86OnWin64    Arch = 10
	ArchARM64         Arch = 12
	ArchSPARC         Arch = 0x8001
	ArchPPC64         Arch = 0x8002
	ArchARM64Breakpad Arch = 0x8003
	ArchMIPS64        Arch = 0x8004
	ArchUnknown       Arch = 0xffff
)

var archNames = map[Arch]string{
	ArchX86:           "x86",
	ArchMIPS:          "mips",
	ArchAlpha:         "alpha",
	ArchPPC:           "ppc",
	ArchSHX:           "shx",
	ArchARM:           "arm",
	ArchIA64:          "ia64",
	ArchAlpha64:       "alpha64",
	ArchMSIL:          "msil",
	ArchAMD64:         "amd64",
	ArchX86OnWin64:    "x86-win64",
	ArchARM64:         "arm64",
	ArchSPARC:         "sparc",
	ArchPPC64:         "ppc64",
	ArchARM64Breakpad: "arm64",
	ArchMIPS64:        "mips64",
	ArchUnknown:       "unknown",
}

func (a Arch) String() string {
	if name, ok := archNames[a]; ok {
		return name
	}
	return fmt.Sprintf("Arch(%#x)", uint16(a))
}

// Platform is the operating system platform id.
type Platform uint32

// Platforms
const (
	PlatformWin32s       Platform = 0
	PlatformWin32Windows Platform = 1
	PlatformWin32NT      Platform = 2
	PlatformWin32CE      Platform = 3
	PlatformUnix         Platform = 0x8000
	PlatformMacOS        Platform = 0x8101
	PlatformIOS          Platform = 0x8102
	PlatformLinux        Platform = 0x8201
	PlatformSolaris      Platform = 0x8202
	PlatformAndroid      Platform = 0x8203
	PlatformPS3          Platform = 0x8204
	PlatformNaCl         Platform = 0x8205
	PlatformFuchsia      Platform = 0x8206
)

var platformNames = map[Platform]string{
	PlatformWin32s:       "Windows 3.1",
	PlatformWin32Windows: "Windows 9x",
	PlatformWin32NT:      "Windows NT",
	PlatformWin32CE:      "Windows CE",
	PlatformUnix:         "Unix",
	PlatformMacOS:        "macOS",
	PlatformIOS:          "iOS",
	PlatformLinux:        "Linux",
	PlatformSolaris:      "Solaris",
	PlatformAndroid:      "Android",
	PlatformPS3:          "PS3",
	PlatformNaCl:         "NaCl",
	PlatformFuchsia:      "Fuchsia",
}

func (p Platform) String() string {
	if name, ok := platformNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Platform(%#x)", uint32(p))
}
