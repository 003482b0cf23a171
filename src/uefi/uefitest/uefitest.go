// Package uefitest provides in-memory firmware services for tests.
package uefitest

import (
	"strings"
	"unicode/utf16"
	"unsafe"

	"efiboot/src/uefi"
)

// Console records everything printed through OutputString.
type Console struct {
	text   strings.Builder
	Calls  int
	Resets int
	// Status is returned from every OutputString call.
	Status uefi.Status
}

func (c *Console) OutputString(s []uint16) uefi.Status {
	n := 0
	for n < len(s) && s[n] != 0 {
		n++
	}
	c.Calls++
	c.text.WriteString(string(utf16.Decode(s[:n])))
	return c.Status
}

func (c *Console) Reset(bool) uefi.Status {
	c.Resets++
	return uefi.Success
}

// Text is everything printed so far, with CRLF folded back to LF.
func (c *Console) Text() string {
	return strings.ReplaceAll(c.text.String(), "\r\n", "\n")
}

// ExitCall records one BootServices.Exit.
type ExitCall struct {
	Image  uefi.Handle
	Status uefi.Status
	Data   []uint16
}

// Boot is a boot services table backed by the Go heap.
type Boot struct {
	live      map[uintptr][]byte
	protocols []installed
	open      map[protocolKey]uefi.Handle

	AllocCalls int
	FreeCalls  int
	// AllocStatus, when it is an error, fails every AllocatePool.
	AllocStatus uefi.Status
	Stalls      []uint
	Exits       []ExitCall
	// OnExit runs inside Exit; real firmware never returns from a
	// successful Exit so tests usually stop the goroutine here.
	OnExit             func(ExitCall)
	ExitedBootServices bool
	// ExitBootServicesStatus, when it is an error, is what
	// ExitBootServices fails with.
	ExitBootServicesStatus uefi.Status
}

func NewBoot() *Boot {
	return &Boot{live: make(map[uintptr][]byte), open: make(map[protocolKey]uefi.Handle)}
}

func (b *Boot) AllocatePool(_ uefi.MemoryType, size uint) ([]byte, uefi.Status) {
	b.AllocCalls++
	if b.AllocStatus.IsError() {
		return nil, b.AllocStatus
	}
	buf := make([]byte, size)
	b.live[uintptr(unsafe.Pointer(&buf[0]))] = buf
	return buf, uefi.Success
}

func (b *Boot) FreePool(buf []byte) uefi.Status {
	b.FreeCalls++
	if len(buf) == 0 {
		return uefi.InvalidParameter
	}
	k := uintptr(unsafe.Pointer(&buf[0]))
	if _, ok := b.live[k]; !ok {
		return uefi.InvalidParameter
	}
	delete(b.live, k)
	return uefi.Success
}

// Outstanding is the number of pool blocks not yet freed.
func (b *Boot) Outstanding() int {
	return len(b.live)
}

func (b *Boot) Stall(us uint) uefi.Status {
	b.Stalls = append(b.Stalls, us)
	return uefi.Success
}

func (b *Boot) Exit(image uefi.Handle, status uefi.Status, data []uint16) uefi.Status {
	call := ExitCall{Image: image, Status: status, Data: data}
	b.Exits = append(b.Exits, call)
	if b.OnExit != nil {
		b.OnExit(call)
	}
	return uefi.Success
}

func (b *Boot) ExitBootServices(uefi.Handle, uint) uefi.Status {
	if b.ExitBootServicesStatus.IsError() {
		return b.ExitBootServicesStatus
	}
	b.ExitedBootServices = true
	return uefi.Success
}

type installed struct {
	handle uefi.Handle
	guid   uefi.GUID
	iface  interface{}
}

type protocolKey struct {
	handle uefi.Handle
	guid   uefi.GUID
}

// Install puts iface on a new handle under protocol and returns the handle.
func (b *Boot) Install(protocol uefi.GUID, iface interface{}) uefi.Handle {
	h := uefi.Handle(0x1000 + len(b.protocols))
	b.protocols = append(b.protocols, installed{handle: h, guid: protocol, iface: iface})
	return h
}

// OpenedBy reports which agent holds protocol open on h.
func (b *Boot) OpenedBy(h uefi.Handle, protocol uefi.GUID) (uefi.Handle, bool) {
	agent, ok := b.open[protocolKey{h, protocol}]
	return agent, ok
}

func (b *Boot) LocateHandleBuffer(protocol uefi.GUID) ([]uefi.Handle, uefi.Status) {
	var hs []uefi.Handle
	for _, p := range b.protocols {
		if p.guid == protocol {
			hs = append(hs, p.handle)
		}
	}
	if len(hs) == 0 {
		return nil, uefi.NotFound
	}
	return hs, uefi.Success
}

func (b *Boot) OpenProtocol(h uefi.Handle, protocol uefi.GUID, agent uefi.Handle, attrs uefi.OpenAttribute) (interface{}, uefi.Status) {
	for _, p := range b.protocols {
		if p.handle != h || p.guid != protocol {
			continue
		}
		k := protocolKey{h, protocol}
		if _, taken := b.open[k]; taken && attrs&uefi.OpenExclusive != 0 {
			return nil, uefi.AccessDenied
		}
		b.open[k] = agent
		return p.iface, uefi.Success
	}
	return nil, uefi.Unsupported
}

func (b *Boot) CloseProtocol(h uefi.Handle, protocol uefi.GUID, agent uefi.Handle) uefi.Status {
	k := protocolKey{h, protocol}
	if owner, ok := b.open[k]; !ok || owner != agent {
		return uefi.NotFound
	}
	delete(b.open, k)
	return uefi.Success
}

// Serial is a serial port with a scripted host side.  Reply is what the
// host sends; Sent is everything the image wrote.
type Serial struct {
	Sent    []byte
	Reply   []byte
	Timeout uint32
	// WriteStatus, when it is an error, fails every Write.
	WriteStatus uefi.Status
}

func (s *Serial) Write(p []byte) (int, uefi.Status) {
	if s.WriteStatus.IsError() {
		return 0, s.WriteStatus
	}
	s.Sent = append(s.Sent, p...)
	return len(p), uefi.Success
}

func (s *Serial) Read(p []byte) (int, uefi.Status) {
	n := copy(p, s.Reply)
	s.Reply = s.Reply[n:]
	if n < len(p) {
		return n, uefi.Timeout
	}
	return n, uefi.Success
}

func (s *Serial) SetTimeout(us uint32) uefi.Status {
	s.Timeout = us
	return uefi.Success
}

// ResetCall records one ResetSystem.
type ResetCall struct {
	Kind   uefi.ResetType
	Status uefi.Status
}

type Runtime struct {
	Resets  []ResetCall
	OnReset func(ResetCall)
}

func (r *Runtime) ResetSystem(kind uefi.ResetType, status uefi.Status, _ []byte) {
	call := ResetCall{Kind: kind, Status: status}
	r.Resets = append(r.Resets, call)
	if r.OnReset != nil {
		r.OnReset(call)
	}
}

// Firmware bundles a system table with the fakes behind it.
type Firmware struct {
	Table   *uefi.SystemTable
	Console *Console
	Boot    *Boot
	Runtime *Runtime
}

// New returns a valid boot-time system table for a UEFI 2.70 firmware.
func New() *Firmware {
	f := &Firmware{Console: &Console{}, Boot: NewBoot(), Runtime: &Runtime{}}
	f.Table = &uefi.SystemTable{
		Hdr: uefi.TableHeader{
			Signature: uefi.SystemTableSignature,
			Revision:  uefi.NewRevision(2, 70),
		},
		FirmwareVendor:   "EDK II",
		FirmwareRevision: 0x10000,
		ConOut:           f.Console,
		BootServices:     f.Boot,
		RuntimeServices:  f.Runtime,
		ConfigTable: []uefi.ConfigTableEntry{
			{GUID: uefi.ACPI2GUID, Address: 0x7fbfe014},
			{GUID: uefi.SMBIOS3GUID, Address: 0x7fb9a000},
		},
	}
	return f
}
