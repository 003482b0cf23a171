// Package screenshot lets a test image ask the QEMU runner on the host to
// capture the screen and compare it with a reference.  The request goes
// over the second serial device; the first one carries the log and must
// not be opened exclusively.
//
// Without the qemu build tag there is no runner to talk to and Check just
// pauses so a person can look at the screen.
package screenshot

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"efiboot/src/lib/trust"
	"efiboot/src/uefi"
)

const (
	// RequestPrefix starts a request line; the name and a newline follow.
	RequestPrefix = "SCREENSHOT: "
	// Ack is the runner's reply once the capture matched.
	Ack = "OK\n"
)

// ReplyTimeout bounds each character of the runner's reply.
const ReplyTimeout = 10 * time.Second

// Pause is how long Check waits when there is no runner.
const Pause = 3 * time.Second

var (
	ErrName     = errors.New("screenshot: name must be non-empty and fit on one line")
	ErrNoSerial = errors.New("screenshot: second serial device is missing")
	ErrReply    = errors.New("screenshot: unexpected reply from the runner")
)

// Check requests the screenshot name from the runner, or pauses when the
// image was not built for one.
func Check(image uefi.Handle, bs uefi.BootServices, name string) error {
	if !useRunner {
		return pause(bs)
	}
	return Request(image, bs, name)
}

func pause(bs uefi.BootServices) error {
	if st := bs.Stall(uint(Pause / time.Microsecond)); st.IsError() {
		return st.OpErr("stall")
	}
	return nil
}

// Request sends one request and waits for Ack.
func Request(image uefi.Handle, bs uefi.BootServices, name string) error {
	if name == "" || strings.ContainsAny(name, "\r\n") {
		return fmt.Errorf("%w: %q", ErrName, name)
	}
	handles, st := bs.LocateHandleBuffer(uefi.SerialIOGUID)
	if st.IsError() && st != uefi.NotFound {
		return st.OpErr("locate serial devices")
	}
	if len(handles) < 2 {
		return fmt.Errorf("%w: found %d", ErrNoSerial, len(handles))
	}
	h := handles[1]
	iface, st := bs.OpenProtocol(h, uefi.SerialIOGUID, image, uefi.OpenExclusive)
	if st.IsError() {
		return st.OpErr("open serial device")
	}
	defer bs.CloseProtocol(h, uefi.SerialIOGUID, image)
	port, ok := iface.(uefi.SerialIO)
	if !ok {
		return fmt.Errorf("screenshot: handle %#x has %T, not a serial device", uintptr(h), iface)
	}

	if st := port.SetTimeout(uint32(ReplyTimeout / time.Microsecond)); st.IsError() {
		return st.OpErr("set serial timeout")
	}
	if err := writeAll(port, []byte(RequestPrefix+name+"\n")); err != nil {
		return err
	}
	reply := make([]byte, len(Ack))
	n, st := port.Read(reply)
	if st.IsError() && st != uefi.Timeout {
		return st.OpErr("read reply")
	}
	if string(reply[:n]) != Ack {
		return fmt.Errorf("%w: %q", ErrReply, reply[:n])
	}
	trust.Debugf("screenshot %s matches", name)
	return nil
}

func writeAll(port uefi.SerialIO, p []byte) error {
	for len(p) > 0 {
		n, st := port.Write(p)
		if st.IsError() {
			return st.OpErr("send request")
		}
		if n == 0 {
			return uefi.DeviceError.OpErr("send request")
		}
		p = p[n:]
	}
	return nil
}
