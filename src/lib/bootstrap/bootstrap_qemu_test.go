//go:build qemu

package bootstrap

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"efiboot/src/uefi"
	"efiboot/src/uefi/uefitest"
)

func init() {
	baseDefaults = []Option{WithHarness(&harness{})}
}

// trampoline calls Run the way the generated efi_main does.
func trampoline(fw *uefitest.Firmware, entry EntryFunc) uefi.Status {
	return Run(1, fw.Table, entry)
}

func TestHarnessBuildRunsEntry(t *testing.T) {
	reset(t)
	fw := uefitest.New()
	h := &harness{}
	SetDefaults(WithHarness(h), WithHalt(runtime.Goexit), WithPanicStall(0))

	called := false
	assert.True(t, halts(func() {
		trampoline(fw, func(uefi.Handle, *uefi.SystemTable) uefi.Status {
			called = true
			Exit(uefi.Success, nil)
			return uefi.Success
		})
	}))
	assert.True(t, called)
	assert.Equal(t, 1, h.successes)
	require.Len(t, fw.Boot.Exits, 1)
}

func TestHarnessBuildWithoutHarnessIsFatal(t *testing.T) {
	reset(t)
	fw := uefitest.New()
	SetDefaults(WithHalt(runtime.Goexit), WithPanicStall(0))

	called := false
	assert.True(t, halts(func() {
		trampoline(fw, func(uefi.Handle, *uefi.SystemTable) uefi.Status {
			called = true
			return uefi.Success
		})
	}))
	assert.False(t, called)
	assert.Equal(t, Aborted, CurrentState())
	assert.Zero(t, fw.Console.Calls)
}
