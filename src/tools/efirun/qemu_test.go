package efirun

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQEMUArgsX86(t *testing.T) {
	c := DefaultConfig()
	c.ESP = "/build/esp"
	args := strings.Join(QEMUArgs(c), " ")
	assert.Contains(t, args, "-machine q35")
	assert.Contains(t, args, "-device isa-debug-exit,iobase=0xf4,iosize=0x04")
	assert.Contains(t, args, "-drive if=pflash,format=raw,readonly=on,file=OVMF_CODE.fd")
	assert.Contains(t, args, "-drive format=raw,file=fat:rw:/build/esp")
	assert.Contains(t, args, "-serial stdio")
	assert.NotContains(t, args, "-serial pty")
	assert.NotContains(t, args, "-monitor")
	assert.True(t, strings.HasSuffix(args, "-display none"))
}

func TestQEMUArgsScreenshots(t *testing.T) {
	c := DefaultConfig()
	c.Arch = ArchAArch64
	c.ScreenshotDir = "refs"
	c.WorkDir = "/tmp/run"
	c.Headless = false
	c.ExtraArgs = []string{"-s"}
	args := QEMUArgs(c)
	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "-machine virt")
	assert.Contains(t, joined, "-semihosting")
	assert.NotContains(t, joined, "isa-debug-exit")
	assert.Contains(t, joined, "-serial stdio -serial pty")
	assert.Contains(t, joined, "-monitor unix:/tmp/run/qemu-monitor.sock,server,nowait")
	assert.NotContains(t, joined, "-display")
	assert.Equal(t, "-s", args[len(args)-1])

	// same config, same command line
	assert.Equal(t, args, QEMUArgs(c))
}

func TestParsePTY(t *testing.T) {
	p, ok := parsePTY("char device redirected to /dev/pts/7 (label serial1)")
	assert.True(t, ok)
	assert.Equal(t, "/dev/pts/7", p)

	_, ok = parsePTY("qemu-system-x86_64: warning: host doesn't support requested feature")
	assert.False(t, ok)
}
