package uefi

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

// GUID is the firmware's 128-bit identifier in its in-memory layout: the
// first three fields are little-endian integers, Data4 is a byte array.
type GUID struct {
	Data1 uint32
	Data2 uint16
	Data3 uint16
	Data4 [8]byte
}

// NewGUID builds a GUID from the five groups of its canonical text form,
// e.g. 8868e871-e4f1-11d3-bc22-0080c73c8881 is
// NewGUID(0x8868e871, 0xe4f1, 0x11d3, 0xbc22, 0x0080c73c8881).
func NewGUID(timeLow uint32, timeMid, timeHighAndVersion, clockSeqAndVariant uint16, node uint64) GUID {
	g := GUID{Data1: timeLow, Data2: timeMid, Data3: timeHighAndVersion}
	binary.BigEndian.PutUint16(g.Data4[0:2], clockSeqAndVariant)
	for i := 0; i < 6; i++ {
		g.Data4[2+i] = byte(node >> (8 * (5 - i)))
	}
	return g
}

// ParseGUID accepts only the canonical 36 character form.
func ParseGUID(s string) (GUID, error) {
	if len(s) != 36 {
		return GUID{}, fmt.Errorf("uefi: %q is not a canonical GUID string (expected 36 bytes, found %d)", s, len(s))
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return GUID{}, fmt.Errorf("uefi: parse guid %q: %w", s, err)
	}
	return guidFromUUID(u), nil
}

// MustParseGUID is for package level tables of well known GUIDs.
func MustParseGUID(s string) GUID {
	g, err := ParseGUID(s)
	if err != nil {
		panic(err)
	}
	return g
}

func guidFromUUID(u uuid.UUID) GUID {
	g := GUID{
		Data1: binary.BigEndian.Uint32(u[0:4]),
		Data2: binary.BigEndian.Uint16(u[4:6]),
		Data3: binary.BigEndian.Uint16(u[6:8]),
	}
	copy(g.Data4[:], u[8:16])
	return g
}

// UUID is the RFC 4122 byte order view of g.
func (g GUID) UUID() uuid.UUID {
	var u uuid.UUID
	binary.BigEndian.PutUint32(u[0:4], g.Data1)
	binary.BigEndian.PutUint16(u[4:6], g.Data2)
	binary.BigEndian.PutUint16(u[6:8], g.Data3)
	copy(u[8:16], g.Data4[:])
	return u
}

func (g GUID) String() string {
	return g.UUID().String()
}

// Identify is implemented by every type that has a GUID assigned, usually by
// way of an //efi:guid directive.
type Identify interface {
	GUID() GUID
}

// Protocol marks an Identify type as a firmware protocol interface.
type Protocol interface {
	Identify
	UEFIProtocol()
}
