package bootstrap

import (
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"efiboot/src/lib/trust"
)

// intercept is deferred by Run.
func (r *Runtime) intercept() {
	v := recover()
	if v == nil {
		return
	}
	file, line := panicLocation()
	r.handlePanic(v, file, line)
}

// handlePanic never returns.  It must cope with a panic at any point,
// including inside Init before the logger exists and inside itself.
func (r *Runtime) handlePanic(v interface{}, file string, line int) {
	if r.panicking {
		r.halt()
	}
	r.panicking = true
	defer func() {
		if recover() != nil {
			// crashed while reporting the crash, touch nothing else
			r.halt()
		}
	}()
	live := r.state == Initialized
	r.state = Aborted

	if trust.Live() {
		trust.Errorf("panic in %s at line %d:", filepath.Base(file), line)
		trust.Errorf("%v", v)
	}
	if live && r.st.BootServices != nil && r.opts.panicStall > 0 {
		r.st.BootServices.Stall(uint(r.opts.panicStall / time.Microsecond))
	}
	r.shutdown()
}

// panicLocation finds the frame that called panic (or faulted), looking
// past the runtime's own panic machinery.
func panicLocation() (string, int) {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	inPanic := false
	for {
		f, more := frames.Next()
		switch {
		case f.Function == "runtime.gopanic":
			inPanic = true
		case inPanic && !strings.HasPrefix(f.Function, "runtime."):
			return f.File, f.Line
		}
		if !more {
			break
		}
	}
	return "<unknown>", 0
}
