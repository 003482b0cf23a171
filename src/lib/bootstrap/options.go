package bootstrap

import (
	"time"

	"efiboot/src/lib/qemuexit"
	"efiboot/src/lib/trust"
)

// DefaultPanicStall is how long a panic message stays on screen before the
// machine is reset.
const DefaultPanicStall = 10 * time.Second

type options struct {
	ownPanic   bool
	harness    qemuexit.Exiter
	halt       func()
	panicStall time.Duration
	level      trust.MaskLevel
}

// Option configures Init and Run.
type Option func(*options)

func defaultOptions() options {
	return options{
		ownPanic:   ownsPanicByDefault,
		panicStall: DefaultPanicStall,
		level:      trust.DefaultMask,
	}
}

// WithHarness routes Exit and fatal errors through a test-harness
// termination channel as well as the firmware.
func WithHarness(e qemuexit.Exiter) Option {
	return func(o *options) {
		o.harness = e
	}
}

// WithoutPanicHandler leaves panics to the application, the run-time twin
// of the efi_custom_panic build tag.
func WithoutPanicHandler() Option {
	return func(o *options) {
		o.ownPanic = false
	}
}

// WithPanicStall changes how long the panic handler waits before reset.
func WithPanicStall(d time.Duration) Option {
	return func(o *options) {
		o.panicStall = d
	}
}

// WithHalt replaces the final spin loop.  The function must not return.
func WithHalt(halt func()) Option {
	return func(o *options) {
		o.halt = halt
	}
}

func WithLogLevel(mask trust.MaskLevel) Option {
	return func(o *options) {
		o.level = mask
	}
}
