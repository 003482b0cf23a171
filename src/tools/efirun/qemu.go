package efirun

import (
	"fmt"
	"regexp"
)

// QEMUArgs is the emulator command line for c, without the binary.  The
// first serial port carries the firmware log on stdio; with screenshots
// enabled a second one is put on a pseudo terminal for the test channel.
func QEMUArgs(c Config) []string {
	args := []string{"-nodefaults"}
	switch c.Arch {
	case ArchAArch64:
		args = append(args,
			"-machine", "virt",
			"-cpu", "cortex-a57",
			"-device", "virtio-gpu-pci",
			"-semihosting",
		)
	default:
		args = append(args,
			"-machine", "q35",
			"-vga", "std",
			"-device", fmt.Sprintf("isa-debug-exit,iobase=%#x,iosize=0x04", c.ExitPort),
		)
	}
	args = append(args,
		"-m", c.Memory,
		"-drive", "if=pflash,format=raw,readonly=on,file="+c.OVMFCode,
		"-drive", "if=pflash,format=raw,file="+c.OVMFVars,
		"-drive", "format=raw,file=fat:rw:"+c.ESP,
		"-serial", "stdio",
	)
	if c.ScreenshotDir != "" {
		args = append(args,
			"-serial", "pty",
			"-monitor", "unix:"+c.MonitorSocket()+",server,nowait",
		)
	}
	if c.Headless {
		args = append(args, "-display", "none")
	}
	return append(args, c.ExtraArgs...)
}

var ptyLine = regexp.MustCompile(`char device redirected to (\S+)`)

// parsePTY recognizes QEMU's report of where it put a "-serial pty".
func parsePTY(line string) (string, bool) {
	m := ptyLine.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}
