//go:build !qemu

package bootstrap

const requireHarness = false
