package uefi

// ConfigTableEntry pairs a vendor table GUID with the table's address.  The
// firmware guarantees each GUID appears at most once.
type ConfigTableEntry struct {
	GUID    GUID
	Address uintptr
}

// Well known configuration table GUIDs.
var (
	ACPIGUID                   = NewGUID(0xeb9d2d30, 0x2d88, 0x11d3, 0x9a16, 0x0090273fc14d)
	ACPI2GUID                  = NewGUID(0x8868e871, 0xe4f1, 0x11d3, 0xbc22, 0x0080c73c8881)
	SMBIOSGUID                 = NewGUID(0xeb9d2d31, 0x2d88, 0x11d3, 0x9a16, 0x0090273fc14d)
	SMBIOS3GUID                = NewGUID(0xf2fd1544, 0x9794, 0x4a2c, 0x992e, 0xe5bbcf20e394)
	PropertiesTableGUID        = NewGUID(0x880aaca3, 0x4adc, 0x4a04, 0x9079, 0xb747340825e5)
	HandOffBlockListGUID       = NewGUID(0x7739f24c, 0x93d7, 0x11d4, 0x9a3a, 0x0090273fc14d)
	MemoryTypeInformationGUID  = NewGUID(0x4c19049f, 0x4137, 0x4dd3, 0x9c10, 0x8b97a83ffdfa)
	MemoryStatusCodeRecordGUID = NewGUID(0x060cc026, 0x4c0d, 0x4dda, 0x8f41, 0x595fef00a502)
	DXEServicesGUID            = NewGUID(0x05ad34ba, 0x6f02, 0x4214, 0x952e, 0x4da0398e2bb9)
	LZMACompressGUID           = NewGUID(0xee4e5898, 0x3914, 0x4259, 0x9d6e, 0xdc7bd79403cf)
	TianoCompressGUID          = NewGUID(0xa31280ad, 0x481e, 0x41b6, 0x95e8, 0x127f4c984779)
	DebugImageInfoGUID         = NewGUID(0x49152e77, 0x1ada, 0x4764, 0xb7a2, 0x7afefed95e8b)
)

// PropertiesTable is the table found under PropertiesTableGUID.
type PropertiesTable struct {
	Version          uint32
	Length           uint32
	MemoryProtection MemoryProtectionAttribute
}

type MemoryProtectionAttribute uintptr

// NonExecutableData means pages holding data are mapped non-executable.
const NonExecutableData MemoryProtectionAttribute = 1
