package bootstrap

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"efiboot/src/lib/qemuexit"
	"efiboot/src/lib/trust"
	"efiboot/src/uefi"
	"efiboot/src/uefi/uefitest"
)

// stop replaces the spin loop with ending the calling goroutine.
var stop = []Option{WithHalt(runtime.Goexit), WithPanicStall(0)}

func opts(extra ...Option) []Option {
	return append(append([]Option{}, stop...), extra...)
}

// baseDefaults is what reset leaves in SetDefaults.
var baseDefaults []Option

func reset(t *testing.T) {
	t.Helper()
	zero := func() {
		rt = &Runtime{opts: defaultOptions()}
		rt.opts.halt = runtime.Goexit
		defaults = append([]Option(nil), baseDefaults...)
		trust.Uninstall()
		trust.SetExitHook(nil)
	}
	zero()
	t.Cleanup(zero)
}

// halts runs f on its own goroutine and reports whether it stopped in halt
// instead of returning.
func halts(f func()) bool {
	done := make(chan bool)
	go func() {
		returned := false
		defer func() { done <- !returned }()
		f()
		returned = true
	}()
	return <-done
}

type harness struct {
	successes, failures int
}

func (h *harness) ExitSuccess() { h.successes++ }
func (h *harness) ExitFailure() { h.failures++ }
func (h *harness) Codes() qemuexit.Codes { return qemuexit.Codes{Success: 3, Failure: 1} }

type explodingConsole struct{}

func (explodingConsole) OutputString([]uint16) uefi.Status { panic("console on fire") }
func (explodingConsole) Reset(bool) uefi.Status { return uefi.Success }

func TestRunForwardsStatus(t *testing.T) {
	for _, want := range []uefi.Status{uefi.Success, uefi.WarnStaleData, uefi.LoadError, uefi.Aborted} {
		reset(t)
		fw := uefitest.New()
		got := Run(7, fw.Table, func(image uefi.Handle, st *uefi.SystemTable) uefi.Status {
			assert.Equal(t, Initialized, CurrentState())
			assert.Equal(t, uefi.Handle(7), image)
			assert.Same(t, fw.Table, st)
			assert.Same(t, fw.Table, SystemTable())
			trust.Infof("hello from the entry point")
			return want
		}, opts()...)
		assert.Equal(t, want, got)
		assert.Equal(t, Finalized, CurrentState())
		assert.False(t, trust.Live())
		assert.Contains(t, fw.Console.Text(), "hello from the entry point\n")
		assert.Zero(t, fw.Boot.Outstanding(), "console buffer not returned")
		assert.Empty(t, fw.Runtime.Resets)
	}
}

func TestInitTwiceIsFatal(t *testing.T) {
	reset(t)
	fw := uefitest.New()
	Init(1, fw.Table, opts()...)
	require.Equal(t, Initialized, CurrentState())

	assert.True(t, halts(func() { Init(1, fw.Table, opts()...) }))
	assert.Equal(t, Aborted, CurrentState())
	assert.Contains(t, fw.Console.Text(), "Init called while initialized")
	assert.Equal(t, []uefitest.ResetCall{{Kind: uefi.ResetShutdown, Status: uefi.Aborted}}, fw.Runtime.Resets)

	// aborted is terminal
	assert.True(t, halts(func() { Init(1, fw.Table, opts()...) }))
}

func TestInitTwiceKeepsRunningOptions(t *testing.T) {
	reset(t)
	fw := uefitest.New()
	h := &harness{}
	Init(1, fw.Table, opts(WithHarness(h))...)

	assert.True(t, halts(func() { Init(1, fw.Table, WithPanicStall(time.Second)) }))
	assert.Equal(t, Aborted, CurrentState())
	assert.Equal(t, 1, h.failures)
	assert.Zero(t, h.successes)
}

func TestDefaultsApplyToRun(t *testing.T) {
	reset(t)
	fw := uefitest.New()
	h := &harness{}
	SetDefaults(append(opts(), WithHarness(h))...)
	called := false
	assert.True(t, halts(func() {
		Run(1, fw.Table, func(uefi.Handle, *uefi.SystemTable) uefi.Status {
			called = true
			Exit(uefi.Success, nil)
			return uefi.Success
		})
	}))
	assert.True(t, called)
	assert.Equal(t, 1, h.successes)
	require.Len(t, fw.Boot.Exits, 1)
}

func TestCallOptionsOverrideDefaults(t *testing.T) {
	reset(t)
	fw := uefitest.New()
	byDefault, byCall := &harness{}, &harness{}
	SetDefaults(WithHarness(byDefault), WithLogLevel(trust.ErrorMask))
	Init(1, fw.Table, opts(WithHarness(byCall))...)
	assert.Equal(t, trust.ErrorMask, trust.Level())

	assert.True(t, halts(func() { Exit(uefi.LoadError, nil) }))
	assert.Equal(t, 1, byCall.failures)
	assert.Zero(t, byDefault.failures)
}

func TestInitRejectsBadTable(t *testing.T) {
	reset(t)
	fw := uefitest.New()
	fw.Table.Hdr.Signature = 0
	assert.True(t, halts(func() { Init(1, fw.Table, opts()...) }))
	assert.Equal(t, Aborted, CurrentState())
	assert.False(t, trust.Live())
	assert.Zero(t, fw.Console.Calls)
}

func TestInitAfterFinalize(t *testing.T) {
	reset(t)
	fw := uefitest.New()
	Init(1, fw.Table, opts()...)
	Finalize()
	assert.Equal(t, Finalized, CurrentState())
	assert.False(t, trust.Live())
	assert.Zero(t, fw.Boot.Outstanding())

	// a second Finalize is ignored
	Finalize()
	assert.Equal(t, Finalized, CurrentState())

	Init(2, fw.Table, opts()...)
	assert.Equal(t, Initialized, CurrentState())
	assert.Equal(t, uefi.Handle(2), Image())
}

func TestExit(t *testing.T) {
	reset(t)
	fw := uefitest.New()
	Init(5, fw.Table, opts()...)
	data := []uint16{'o', 'k', 0}

	assert.True(t, halts(func() { Exit(uefi.Success, data) }))
	require.Len(t, fw.Boot.Exits, 1)
	assert.Equal(t, uefitest.ExitCall{Image: 5, Status: uefi.Success, Data: data}, fw.Boot.Exits[0])
	assert.Contains(t, fw.Console.Text(), "exit: SUCCESS")
	assert.Empty(t, fw.Runtime.Resets)
}

func TestExitWithHarness(t *testing.T) {
	tests := []struct {
		status              uefi.Status
		successes, failures int
	}{
		{uefi.Success, 1, 0},
		{uefi.WarnResetRequired, 0, 1},
		{uefi.DeviceError, 0, 1},
	}
	for _, tt := range tests {
		reset(t)
		fw := uefitest.New()
		h := &harness{}
		Init(1, fw.Table, opts(WithHarness(h))...)
		assert.True(t, halts(func() { Exit(tt.status, nil) }))
		assert.Equal(t, tt.successes, h.successes, tt.status.String())
		assert.Equal(t, tt.failures, h.failures, tt.status.String())
	}
}

func TestExitBeforeInitIsFatal(t *testing.T) {
	reset(t)
	assert.True(t, halts(func() { Exit(uefi.Success, nil) }))
	assert.Equal(t, Aborted, CurrentState())
}

func TestAccessorsBeforeInit(t *testing.T) {
	reset(t)
	assert.True(t, halts(func() { SystemTable() }))
	reset(t)
	assert.True(t, halts(func() { Allocator() }))
}

func TestFatalfExitsThroughFirmware(t *testing.T) {
	reset(t)
	fw := uefitest.New()
	Init(1, fw.Table, opts()...)
	assert.True(t, halts(func() { trust.Fatalf(0, "all done") }))
	require.Len(t, fw.Boot.Exits, 1)
	assert.Equal(t, uefi.Success, fw.Boot.Exits[0].Status)
	assert.Contains(t, fw.Console.Text(), "[FATAL]")

	reset(t)
	fw = uefitest.New()
	Init(1, fw.Table, opts()...)
	assert.True(t, halts(func() { trust.Fatalf(3, "broken") }))
	require.Len(t, fw.Boot.Exits, 1)
	assert.Equal(t, uefi.Aborted, fw.Boot.Exits[0].Status)
}

func TestPanicAfterInit(t *testing.T) {
	reset(t)
	fw := uefitest.New()
	h := &harness{}
	halted := halts(func() {
		Run(1, fw.Table, func(uefi.Handle, *uefi.SystemTable) uefi.Status {
			panic("boom")
		}, opts(WithHarness(h), WithPanicStall(2*time.Second))...)
	})
	assert.True(t, halted)
	assert.Equal(t, Aborted, CurrentState())
	text := fw.Console.Text()
	assert.Contains(t, text, "panic in bootstrap_test.go at line")
	assert.Contains(t, text, "boom")
	assert.Equal(t, []uint{2000000}, fw.Boot.Stalls)
	assert.Equal(t, 1, h.failures)
	assert.Equal(t, []uefitest.ResetCall{{Kind: uefi.ResetShutdown, Status: uefi.Aborted}}, fw.Runtime.Resets)
	assert.Empty(t, fw.Boot.Exits)
}

func TestPanicBeforeInitIsSilent(t *testing.T) {
	reset(t)
	assert.True(t, halts(func() {
		defer Recover()
		panic("too early")
	}))
	assert.Equal(t, Aborted, CurrentState())
	assert.False(t, trust.Live())
}

func TestPanicWhileReportingPanicHalts(t *testing.T) {
	reset(t)
	fw := uefitest.New()
	fw.Table.ConOut = explodingConsole{}
	assert.True(t, halts(func() {
		Run(1, fw.Table, func(uefi.Handle, *uefi.SystemTable) uefi.Status {
			panic("first")
		}, opts()...)
	}))
	// the handler gave up before touching the firmware again
	assert.Empty(t, fw.Runtime.Resets)
	assert.Equal(t, Aborted, CurrentState())
}

func TestWithoutPanicHandler(t *testing.T) {
	reset(t)
	fw := uefitest.New()
	assert.PanicsWithValue(t, "mine", func() {
		Run(1, fw.Table, func(uefi.Handle, *uefi.SystemTable) uefi.Status {
			panic("mine")
		}, opts(WithoutPanicHandler())...)
	})
	assert.Empty(t, fw.Runtime.Resets)
}

func TestExitBootServices(t *testing.T) {
	reset(t)
	fw := uefitest.New()
	Init(1, fw.Table, opts()...)
	alloc := Allocator()
	_, err := alloc.Alloc(32)
	require.NoError(t, err)

	require.NoError(t, ExitBootServices(42))
	assert.True(t, fw.Boot.ExitedBootServices)
	assert.False(t, trust.Live())
	assert.True(t, alloc.Disabled())
	assert.Nil(t, fw.Table.BootServices)
	assert.Nil(t, fw.Table.ConOut)

	// with boot services gone Exit falls back to a reset
	assert.True(t, halts(func() { Exit(uefi.Success, nil) }))
	assert.Equal(t, []uefitest.ResetCall{{Kind: uefi.ResetShutdown, Status: uefi.Success}}, fw.Runtime.Resets)
}

func TestExitBootServicesRefused(t *testing.T) {
	reset(t)
	fw := uefitest.New()
	Init(1, fw.Table, opts()...)
	fw.Boot.ExitBootServicesStatus = uefi.InvalidParameter

	err := ExitBootServices(7)
	assert.ErrorIs(t, err, uefi.InvalidParameter.Err())
	assert.Equal(t, Initialized, CurrentState())
	assert.True(t, trust.Live())
	assert.NotNil(t, fw.Table.BootServices)

	// the console buffer could not be taken back from the pool
	fw.Boot.AllocStatus = uefi.OutOfResources
	err = ExitBootServices(7)
	assert.ErrorIs(t, err, uefi.InvalidParameter.Err())
	assert.ErrorContains(t, err, "restore console buffer")
	assert.True(t, trust.Live())
	trust.Infof("still talking")
	assert.Contains(t, fw.Console.Text(), "still talking")
}

func TestExitBootServicesNotInitialized(t *testing.T) {
	reset(t)
	assert.ErrorIs(t, ExitBootServices(1), ErrNotInitialized)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "uninitialized", Uninitialized.String())
	assert.Equal(t, "aborted", Aborted.String())
	assert.Equal(t, "State(9)", State(9).String())
}
