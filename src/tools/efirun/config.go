// Package efirun boots a firmware image under QEMU and acts as the host end
// of its test harness: it mirrors the log serial line, answers screenshot
// requests on the second serial line and turns QEMU's exit status back into
// a pass or fail.
package efirun

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"efiboot/src/lib/qemuexit"
)

// Supported values of Config.Arch.
const (
	ArchX86_64  = "x86_64"
	ArchAArch64 = "aarch64"
)

// Config is everything needed to boot one image.
type Config struct {
	// QEMU is the emulator binary; empty picks qemu-system-<arch>.
	QEMU     string `mapstructure:"qemu"`
	Arch     string `mapstructure:"arch"`
	OVMFCode string `mapstructure:"ovmf_code"`
	OVMFVars string `mapstructure:"ovmf_vars"`
	// ESP is the directory exported to the guest as a FAT drive.
	ESP     string        `mapstructure:"esp"`
	Memory  string        `mapstructure:"memory"`
	Timeout time.Duration `mapstructure:"timeout"`
	// ExitPort and SuccessCode configure the isa-debug-exit device.
	ExitPort    uint16 `mapstructure:"exit_port"`
	SuccessCode int    `mapstructure:"success_code"`
	// ScreenshotDir holds the reference screenshots.  Empty disables the
	// test serial line and the monitor.
	ScreenshotDir string `mapstructure:"screenshot_dir"`
	// WorkDir receives monitor sockets and fresh screenshots.
	WorkDir  string `mapstructure:"work_dir"`
	Headless bool   `mapstructure:"headless"`
	// ExtraArgs are appended to the generated QEMU command line.
	ExtraArgs []string `mapstructure:"extra_args"`
}

// DefaultConfig is what the settings start from before the file, the
// environment and flags are applied.
func DefaultConfig() Config {
	return Config{
		Arch:        ArchX86_64,
		OVMFCode:    "OVMF_CODE.fd",
		OVMFVars:    "OVMF_VARS.fd",
		ESP:         "esp",
		Memory:      "128M",
		Timeout:     2 * time.Minute,
		ExitPort:    qemuexit.DefaultPort,
		SuccessCode: qemuexit.DefaultSuccess,
		Headless:    true,
	}
}

// SetDefaults registers DefaultConfig with v.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("qemu", d.QEMU)
	v.SetDefault("arch", d.Arch)
	v.SetDefault("ovmf_code", d.OVMFCode)
	v.SetDefault("ovmf_vars", d.OVMFVars)
	v.SetDefault("esp", d.ESP)
	v.SetDefault("memory", d.Memory)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("exit_port", d.ExitPort)
	v.SetDefault("success_code", d.SuccessCode)
	v.SetDefault("screenshot_dir", d.ScreenshotDir)
	v.SetDefault("work_dir", d.WorkDir)
	v.SetDefault("headless", d.Headless)
	v.SetDefault("extra_args", []string{})
}

// LoadConfig decodes and validates the settings held by v.
func LoadConfig(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("efirun: decode config: %w", err)
	}
	if c.QEMU == "" {
		c.QEMU = "qemu-system-" + c.Arch
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

var (
	ErrArch        = errors.New("efirun: arch must be x86_64 or aarch64")
	ErrNoESP       = errors.New("efirun: no ESP directory configured")
	ErrBadTimeout  = errors.New("efirun: timeout must be positive")
	ErrNoWorkDir   = errors.New("efirun: screenshots need a work directory")
	ErrSuccessCode = qemuexit.ErrSuccessCode
)

func (c Config) Validate() error {
	if _, err := c.Codes(); err != nil {
		return err
	}
	if c.ESP == "" {
		return ErrNoESP
	}
	if c.Timeout <= 0 {
		return ErrBadTimeout
	}
	if c.ScreenshotDir != "" && c.WorkDir == "" {
		return ErrNoWorkDir
	}
	return nil
}

// goarch maps QEMU's architecture names to Go's.
var goarch = map[string]string{
	ArchX86_64:  "amd64",
	ArchAArch64: "arm64",
}

// Codes is what QEMU's exit status will be for each outcome.
func (c Config) Codes() (qemuexit.Codes, error) {
	arch, ok := goarch[c.Arch]
	if !ok {
		return qemuexit.Codes{}, fmt.Errorf("%w, not %q", ErrArch, c.Arch)
	}
	return qemuexit.CodesFor(arch, c.SuccessCode)
}

// MonitorSocket is where the QEMU monitor listens.
func (c Config) MonitorSocket() string {
	return filepath.Join(c.WorkDir, "qemu-monitor.sock")
}
