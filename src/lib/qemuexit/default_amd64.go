package qemuexit

// outl is in outl_amd64.s.
func outl(port uint16, value uint32)

// Default is the isa-debug-exit device efirun gives an x86-64 guest, at
// DefaultPort with DefaultSuccess.
func Default() Exiter {
	x, _ := NewX86(DefaultPort, DefaultSuccess, PortWriterFunc(outl))
	return x
}
