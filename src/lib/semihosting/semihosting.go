// Package semihosting speaks the ARM semihosting interface a debugger or
// QEMU (-semihosting) exposes to the guest.  The trap instruction itself
// (hlt 0xf000 on aarch64) is supplied by the platform as a Caller.
package semihosting

type SemiHostingOp uint64

const (
	SemiHostOpExit  SemiHostingOp = 0x18
	SemiHostOpClock SemiHostingOp = 0x10
)

type SemihostingStopCode int

const (
	SemihostingStopBreakpoint          SemihostingStopCode = 0x20020
	SemihostingStopWatchpoint          SemihostingStopCode = 0x20021
	SemihostingStopStepComplete        SemihostingStopCode = 0x20022
	SemihostingStopRuntimeErrorUnknown SemihostingStopCode = 0x20023
	SemihostingStopInternalError       SemihostingStopCode = 0x20024
	SemihostingStopUserInterruption    SemihostingStopCode = 0x20025
	SemihostingStopApplicationExit     SemihostingStopCode = 0x20026
	SemihostingStopStackOverflow       SemihostingStopCode = 0x20027
	SemihostingStopDivisionByZero      SemihostingStopCode = 0x20028
	SemihostingStopOSSpecific          SemihostingStopCode = 0x20029
)

// Caller performs one semihosting call.  For SYS_EXIT on a 64-bit target
// param points at a two word block {reason, code}; the call does not
// return when the host honours it.
type Caller interface {
	Call(op SemiHostingOp, param *[2]uint64) uint64
}

// CallerFunc adapts a function to Caller.
type CallerFunc func(op SemiHostingOp, param *[2]uint64) uint64

func (f CallerFunc) Call(op SemiHostingOp, param *[2]uint64) uint64 {
	return f(op, param)
}

// Host issues semihosting requests through a Caller.
type Host struct {
	caller Caller
	block  [2]uint64
}

func NewHost(c Caller) *Host {
	return &Host{caller: c}
}

// Exit asks the host to stop with ADP_Stopped_ApplicationExit and the given
// exit code; QEMU makes code its own process exit status.
func (h *Host) Exit(code uint64) {
	h.block[0] = uint64(SemihostingStopApplicationExit)
	h.block[1] = code
	h.caller.Call(SemiHostOpExit, &h.block)
}

// Clock returns centiseconds since the program started.
func (h *Host) Clock() uint64 {
	return h.caller.Call(SemiHostOpClock, nil)
}
