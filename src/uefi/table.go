package uefi

import (
	"errors"
	"fmt"
)

// Handle is an opaque reference to a firmware object; the image handle the
// loader passes to the entry point is one of these.
type Handle uintptr

// SystemTableSignature is "IBI SYST" read as a little-endian uint64.
const SystemTableSignature = 0x5453595320494249

// TableHeader precedes every firmware service table.
type TableHeader struct {
	Signature  uint64
	Revision   Revision
	HeaderSize uint32
	CRC32      uint32
}

// SystemTable is the boot-services view of the firmware system table, the
// second argument of every image entry point.  Once boot services have been
// exited BootServices is nil and only RuntimeServices may be used.
type SystemTable struct {
	Hdr              TableHeader
	FirmwareVendor   string
	FirmwareRevision uint32
	ConOut           TextOutput
	StdErr           TextOutput
	BootServices     BootServices
	RuntimeServices  RuntimeServices
	ConfigTable      []ConfigTableEntry
}

var ErrMalformedTable = errors.New("uefi: malformed system table")

// Validate checks the pieces a freshly loaded image relies on.
func (st *SystemTable) Validate() error {
	if st == nil {
		return fmt.Errorf("%w: nil table", ErrMalformedTable)
	}
	if st.Hdr.Signature != SystemTableSignature {
		return fmt.Errorf("%w: bad signature %#x", ErrMalformedTable, st.Hdr.Signature)
	}
	if st.ConOut == nil {
		return fmt.Errorf("%w: no console output", ErrMalformedTable)
	}
	if st.BootServices == nil {
		return fmt.Errorf("%w: boot services unavailable", ErrMalformedTable)
	}
	return nil
}

// Stdout is the console output protocol.
func (st *SystemTable) Stdout() TextOutput {
	return st.ConOut
}

// Stderr falls back to ConOut when the firmware did not install a separate
// error console.
func (st *SystemTable) Stderr() TextOutput {
	if st.StdErr != nil {
		return st.StdErr
	}
	return st.ConOut
}

// ConfigEntry returns the vendor table registered under g.
func (st *SystemTable) ConfigEntry(g GUID) (ConfigTableEntry, bool) {
	for _, e := range st.ConfigTable {
		if e.GUID == g {
			return e, true
		}
	}
	return ConfigTableEntry{}, false
}
