//go:build qemu

package bootstrap

const requireHarness = true
