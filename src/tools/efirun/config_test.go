package efirun

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"efiboot/src/lib/qemuexit"
)

func load(t *testing.T, yaml string) (Config, error) {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(yaml)))
	return LoadConfig(v)
}

func TestLoadConfigDefaults(t *testing.T) {
	c, err := load(t, "")
	require.NoError(t, err)
	assert.Equal(t, "qemu-system-x86_64", c.QEMU)
	assert.Equal(t, 2*time.Minute, c.Timeout)
	assert.Equal(t, uint16(qemuexit.DefaultPort), c.ExitPort)
	assert.Equal(t, qemuexit.DefaultSuccess, c.SuccessCode)
	assert.True(t, c.Headless)

	codes, err := c.Codes()
	require.NoError(t, err)
	assert.Equal(t, qemuexit.Codes{Success: 3, Failure: 1}, codes)
}

func TestLoadConfigFile(t *testing.T) {
	c, err := load(t, `
arch: aarch64
esp: build/esp
timeout: 30s
screenshot_dir: testdata/screenshots
work_dir: /tmp/efirun
headless: false
extra_args: ["-smp", "2"]
`)
	require.NoError(t, err)
	assert.Equal(t, "qemu-system-aarch64", c.QEMU)
	assert.Equal(t, 30*time.Second, c.Timeout)
	assert.Equal(t, "build/esp", c.ESP)
	assert.False(t, c.Headless)
	assert.Equal(t, []string{"-smp", "2"}, c.ExtraArgs)
	assert.Equal(t, "/tmp/efirun/qemu-monitor.sock", c.MonitorSocket())

	codes, err := c.Codes()
	require.NoError(t, err)
	assert.Equal(t, qemuexit.Codes{Success: 0, Failure: 1}, codes)
}

func TestLoadConfigRejects(t *testing.T) {
	tests := []struct {
		yaml string
		err  error
	}{
		{"arch: riscv64", ErrArch},
		{"success_code: 4", ErrSuccessCode},
		{"esp: \"\"", ErrNoESP},
		{"timeout: 0s", ErrBadTimeout},
		{"screenshot_dir: refs", ErrNoWorkDir},
	}
	for _, tt := range tests {
		_, err := load(t, tt.yaml)
		assert.ErrorIs(t, err, tt.err, tt.yaml)
	}
}
