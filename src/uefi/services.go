package uefi

// TextOutput is the simple text output protocol.  Strings are UCS-2 and
// must be NUL terminated.
type TextOutput interface {
	OutputString(ucs2 []uint16) Status
	Reset(extendedVerification bool) Status
}

// BootServices is the subset of the boot services table the bootstrap and
// the applications built on it consume.
type BootServices interface {
	AllocatePool(memType MemoryType, size uint) ([]byte, Status)
	FreePool(buf []byte) Status
	Stall(microseconds uint) Status
	// Exit terminates the image.  It does not return when it succeeds.
	Exit(image Handle, status Status, exitData []uint16) Status
	ExitBootServices(image Handle, mapKey uint) Status

	// LocateHandleBuffer lists the handles supporting protocol, in the
	// order the firmware installed them.
	LocateHandleBuffer(protocol GUID) ([]Handle, Status)
	// OpenProtocol returns the interface installed on handle for the
	// caller to assert to the protocol's Go type.
	OpenProtocol(handle Handle, protocol GUID, agent Handle, attrs OpenAttribute) (interface{}, Status)
	CloseProtocol(handle Handle, protocol GUID, agent Handle) Status
}

type RuntimeServices interface {
	// ResetSystem does not return.
	ResetSystem(kind ResetType, status Status, data []byte)
}

type MemoryType uint32

const (
	ReservedMemoryType MemoryType = iota
	LoaderCode
	LoaderData
	BootServicesCode
	BootServicesData
	RuntimeServicesCode
	RuntimeServicesData
	ConventionalMemory
	UnusableMemory
	ACPIReclaimMemory
	ACPIMemoryNVS
	MemoryMappedIO
	MemoryMappedIOPortSpace
	PalCode
	PersistentMemory
)

type ResetType uint32

const (
	ResetCold ResetType = iota
	ResetWarm
	ResetShutdown
	ResetPlatformSpecific
)

func (r ResetType) String() string {
	switch r {
	case ResetCold:
		return "cold"
	case ResetWarm:
		return "warm"
	case ResetShutdown:
		return "shutdown"
	case ResetPlatformSpecific:
		return "platform-specific"
	}
	return "unknown"
}
