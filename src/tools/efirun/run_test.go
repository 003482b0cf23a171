package efirun

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"efiboot/src/lib/qemuexit"
)

// fakeQEMU writes a shell script standing in for the emulator.
func fakeQEMU(t *testing.T, body string) Config {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs /bin/sh")
	}
	path := filepath.Join(t.TempDir(), "qemu-system-x86_64")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	c := DefaultConfig()
	c.QEMU = path
	c.Timeout = 10 * time.Second
	return c
}

func TestRunOutcomes(t *testing.T) {
	tests := []struct {
		script  string
		code    int
		outcome qemuexit.Outcome
	}{
		{"echo 'UEFI 2.70'\necho 'warning: TCG' >&2\nexit 3", 3, qemuexit.Passed},
		{"echo 'panic in main.go at line 12:'\nexit 1", 1, qemuexit.Failed},
		{"exit 0", 0, qemuexit.Unknown},
	}
	for _, tt := range tests {
		res, err := Run(context.Background(), fakeQEMU(t, tt.script))
		require.NoError(t, err, tt.script)
		assert.Equal(t, tt.code, res.ExitCode)
		assert.Equal(t, tt.outcome, res.Outcome)
	}
}

func TestRunTimeout(t *testing.T) {
	c := fakeQEMU(t, "exec sleep 30")
	c.Timeout = 200 * time.Millisecond
	_, err := Run(context.Background(), c)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestRunMissingBinary(t *testing.T) {
	c := DefaultConfig()
	c.QEMU = filepath.Join(t.TempDir(), "no-such-qemu")
	_, err := Run(context.Background(), c)
	assert.ErrorContains(t, err, "start")
}

func TestRunNoPTY(t *testing.T) {
	c := fakeQEMU(t, "exit 3")
	c.ScreenshotDir = t.TempDir()
	c.WorkDir = t.TempDir()
	_, err := Run(context.Background(), c)
	assert.ErrorContains(t, err, "did not report the test serial pty")
}

func TestExitCode(t *testing.T) {
	code, err := exitCode(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, code)
}
