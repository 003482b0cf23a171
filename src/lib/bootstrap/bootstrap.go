package bootstrap

import (
	"errors"
	"fmt"

	"efiboot/src/lib/conout"
	"efiboot/src/lib/pool"
	"efiboot/src/lib/trust"
	"efiboot/src/uefi"
)

type State int

const (
	Uninitialized State = iota
	Initialized
	Finalized
	Aborted
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case Finalized:
		return "finalized"
	case Aborted:
		return "aborted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// EntryFunc is the signature every image entry point has.
type EntryFunc func(image uefi.Handle, st *uefi.SystemTable) uefi.Status

var ErrNotInitialized = errors.New("bootstrap: services are not initialized")

// Runtime is the service state of the running image.  There is exactly one,
// reached through the package functions.
type Runtime struct {
	state     State
	image     uefi.Handle
	st        *uefi.SystemTable
	console   *conout.Writer
	logger    *trust.Logger
	alloc     *pool.Allocator
	opts      options
	ownsPanic bool
	panicking bool
}

var rt = &Runtime{opts: defaultOptions()}

// defaults are applied before the options of each Run or Init.
var defaults []Option

// SetDefaults registers options for every later Run and Init, below the
// options passed to the call itself.  The generated trampoline passes
// none, so an image that needs a harness sets it from an init function:
//
//	func init() {
//		bootstrap.SetDefaults(bootstrap.WithHarness(qemuexit.Default()))
//	}
func SetDefaults(opts ...Option) {
	defaults = append([]Option(nil), opts...)
}

// Run brings the services up, calls entry and tears them down again.  The
// status entry returns is passed back untouched.
func Run(image uefi.Handle, st *uefi.SystemTable, entry EntryFunc, opts ...Option) uefi.Status {
	rt.admit(opts)
	if rt.opts.ownPanic {
		defer rt.intercept()
	}
	rt.init(image, st)
	status := entry(image, st)
	rt.finalize()
	return status
}

// Init installs the logger, the heap and the panic handler and records the
// image handle and system table.  It is fatal to call Init while the
// services are up, or with a table that fails validation.
func Init(image uefi.Handle, st *uefi.SystemTable, opts ...Option) {
	rt.admit(opts)
	rt.init(image, st)
}

// Finalize undoes Init.  It is not needed on the normal path, where Exit
// never returns.
func Finalize() {
	rt.finalize()
}

// Exit hands status (and optional exit data) to the firmware and does not
// return.
func Exit(status uefi.Status, exitData []uint16) {
	rt.exit(status, exitData)
}

// Recover is for images that call Init themselves:
//
//	defer bootstrap.Recover()
//
// With the built-in handler disabled the panic continues unchanged.
func Recover() {
	v := recover()
	if v == nil {
		return
	}
	if !rt.opts.ownPanic {
		panic(v)
	}
	file, line := panicLocation()
	rt.handlePanic(v, file, line)
}

func CurrentState() State {
	return rt.state
}

// SystemTable is the table recorded by Init.
func SystemTable() *uefi.SystemTable {
	rt.mustBeLive("SystemTable")
	return rt.st
}

// Image is the handle of the running image.
func Image() uefi.Handle {
	rt.mustBeLive("Image")
	return rt.image
}

// Allocator is the pool heap installed by Init.
func Allocator() *pool.Allocator {
	rt.mustBeLive("Allocator")
	return rt.alloc
}

// ExitBootServices shuts the logger and the heap down (both depend on boot
// services) and then hands the machine to the caller.  If the firmware
// refuses, typically because mapKey is stale, the services are restored.
func ExitBootServices(mapKey uint) error {
	r := rt
	if r.state != Initialized {
		return ErrNotInitialized
	}
	trust.Infof("exiting boot services")
	trust.Uninstall()
	if err := r.console.Close(); err != nil {
		trust.Install(r.logger)
		return fmt.Errorf("bootstrap: release console buffer: %w", err)
	}
	if st := r.st.BootServices.ExitBootServices(r.image, mapKey); st.IsError() {
		err := st.OpErr("ExitBootServices")
		if berr := r.console.Bind(r.alloc); berr != nil {
			err = errors.Join(err, fmt.Errorf("bootstrap: restore console buffer: %w", berr))
		}
		trust.Install(r.logger)
		return err
	}
	r.alloc.Disable()
	r.st.BootServices = nil
	r.st.ConOut = nil
	r.st.StdErr = nil
	return nil
}

// admit takes the options of a Run or Init.  While the services are up (or
// aborted) the running image's options stay, so the fatal path still
// reaches its harness.
func (r *Runtime) admit(opts []Option) {
	if r.state == Initialized || r.state == Aborted {
		r.fatal("bootstrap: Init called while %s", r.state)
	}
	r.configure(opts)
}

func (r *Runtime) configure(opts []Option) {
	o := defaultOptions()
	for _, opt := range defaults {
		opt(&o)
	}
	for _, opt := range opts {
		opt(&o)
	}
	r.opts = o
}

func (r *Runtime) init(image uefi.Handle, st *uefi.SystemTable) {
	if err := st.Validate(); err != nil {
		r.fatal("bootstrap: %v", err)
	}
	if requireHarness && r.opts.harness == nil {
		r.fatal("bootstrap: qemu build without a harness exit channel")
	}

	// 1. logging
	console := conout.New(st.ConOut)
	logger := trust.NewLogger(console)
	logger.SetLevel(r.opts.level)
	trust.Install(logger)
	trust.SetExitHook(func(code uint64) {
		status := uefi.Aborted
		if code == 0 {
			status = uefi.Success
		}
		r.exit(status, nil)
	})

	// 2. heap, which the console then uses for its conversion buffer
	alloc := pool.New(st.BootServices)
	if err := console.Bind(alloc); err != nil {
		r.fatal("bootstrap: console buffer: %v", err)
	}

	// 3. panics
	r.ownsPanic = r.opts.ownPanic
	r.panicking = false

	// 4. the table itself
	r.image = image
	r.st = st
	r.console = console
	r.logger = logger
	r.alloc = alloc
	r.state = Initialized

	trust.Debugf("bootstrap: UEFI %s, firmware %s rev %#x", st.Hdr.Revision, st.FirmwareVendor, st.FirmwareRevision)
}

func (r *Runtime) finalize() {
	if r.state != Initialized {
		trust.Debugf("bootstrap: Finalize while %s ignored", r.state)
		return
	}
	trust.Debugf("bootstrap: finalize, %d pool blocks outstanding", r.alloc.Live())
	trust.Uninstall()
	trust.SetExitHook(nil)
	_ = r.console.Close()
	r.alloc.Disable()

	r.ownsPanic = false
	r.image = 0
	r.st = nil
	r.console = nil
	r.logger = nil
	r.alloc = nil
	r.state = Finalized
}

func (r *Runtime) exit(status uefi.Status, data []uint16) {
	if r.state != Initialized {
		r.fatal("bootstrap: Exit(%s) while %s", status, r.state)
	}
	trust.Infof("exit: %s", status)
	if l := trust.Current(); l != nil {
		_ = l.Flush()
	}
	if h := r.opts.harness; h != nil {
		if status.IsSuccess() {
			h.ExitSuccess()
		} else {
			h.ExitFailure()
		}
	}
	if bs := r.st.BootServices; bs != nil {
		bs.Exit(r.image, status, data)
	} else if rs := r.st.RuntimeServices; rs != nil {
		rs.ResetSystem(uefi.ResetShutdown, status, nil)
	}
	r.halt()
}

func (r *Runtime) mustBeLive(what string) {
	if r.state != Initialized {
		r.fatal("bootstrap: %s used while %s", what, r.state)
	}
}

// fatal logs (when it still can) and takes the machine down.
func (r *Runtime) fatal(format string, args ...interface{}) {
	trust.Errorf(format, args...)
	r.state = Aborted
	r.shutdown()
}

// shutdown is the tail shared by fatal errors and panics.
func (r *Runtime) shutdown() {
	if l := trust.Current(); l != nil {
		_ = l.Flush()
	}
	if h := r.opts.harness; h != nil {
		h.ExitFailure()
	}
	if r.st != nil && r.st.RuntimeServices != nil {
		r.st.RuntimeServices.ResetSystem(uefi.ResetShutdown, uefi.Aborted, nil)
	}
	trust.Errorf("could not shut down, please power off the system manually")
	r.halt()
}

func (r *Runtime) halt() {
	if r.opts.halt != nil {
		r.opts.halt()
	}
	for {
	}
}
