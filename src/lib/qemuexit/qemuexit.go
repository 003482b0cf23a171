// Package qemuexit is the test-harness termination channel: it lets an image
// running under QEMU stop the virtual machine with an exit status that the
// harness on the host can tell apart from a crash or a plain shutdown.
package qemuexit

import (
	"errors"
	"fmt"

	"efiboot/src/lib/semihosting"
)

// Exiter stops the virtual machine.  Neither method returns when the
// device is present.
type Exiter interface {
	ExitSuccess()
	ExitFailure()
	// Codes is what the QEMU process exit status will be.
	Codes() Codes
}

// Codes are the host-visible exit statuses of the two outcomes.
type Codes struct {
	Success int
	Failure int
}

type Outcome int

const (
	Unknown Outcome = iota
	Passed
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Passed:
		return "passed"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Decode maps a QEMU process exit status back to an outcome.  Anything else
// (a QEMU error, a plain power-off) is Unknown.
func (c Codes) Decode(exitStatus int) Outcome {
	switch exitStatus {
	case c.Success:
		return Passed
	case c.Failure:
		return Failed
	}
	return Unknown
}

// PortWriter performs a 32-bit x86 OUT instruction.
type PortWriter interface {
	Outl(port uint16, value uint32)
}

type PortWriterFunc func(port uint16, value uint32)

func (f PortWriterFunc) Outl(port uint16, value uint32) { f(port, value) }

// DefaultPort is where `-device isa-debug-exit,iobase=0xf4,iosize=0x04`
// listens.
const DefaultPort = 0xf4

// DefaultSuccess is the success status used when none is configured; it
// must differ from the failure status (1) and from QEMU's own errors.
const DefaultSuccess = 3

var ErrSuccessCode = errors.New("qemuexit: success code must be odd and greater than 1")

// X86 drives the isa-debug-exit device.  Writing v makes QEMU exit with
// (v << 1) | 1, so only odd statuses are reachable and 1 means failure.
type X86 struct {
	port    uint16
	success uint32
	out     PortWriter
}

func NewX86(port uint16, customSuccess uint32, out PortWriter) (*X86, error) {
	if customSuccess <= 1 || customSuccess&1 == 0 {
		return nil, fmt.Errorf("%w: %d", ErrSuccessCode, customSuccess)
	}
	return &X86{port: port, success: customSuccess, out: out}, nil
}

func (x *X86) ExitSuccess() {
	x.out.Outl(x.port, x.success>>1)
}

func (x *X86) ExitFailure() {
	x.out.Outl(x.port, 0)
}

func (x *X86) Codes() Codes {
	return Codes{Success: int(x.success), Failure: 1}
}

// AArch64 uses semihosting SYS_EXIT, which QEMU turns into its own exit
// status directly.
type AArch64 struct {
	host *semihosting.Host
}

func NewAArch64(host *semihosting.Host) *AArch64 {
	return &AArch64{host: host}
}

func (a *AArch64) ExitSuccess() {
	a.host.Exit(0)
}

func (a *AArch64) ExitFailure() {
	a.host.Exit(1)
}

func (a *AArch64) Codes() Codes {
	return Codes{Success: 0, Failure: 1}
}

// CodesFor returns the statuses the harness should expect for an
// architecture, as named by GOARCH.
func CodesFor(arch string, customSuccess int) (Codes, error) {
	switch arch {
	case "amd64", "386":
		if customSuccess <= 1 || customSuccess&1 == 0 {
			return Codes{}, fmt.Errorf("%w: %d", ErrSuccessCode, customSuccess)
		}
		return Codes{Success: customSuccess, Failure: 1}, nil
	case "arm64":
		return Codes{Success: 0, Failure: 1}, nil
	}
	return Codes{}, fmt.Errorf("qemuexit: no exit device for %s", arch)
}
