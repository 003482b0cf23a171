//go:build qemu

package main

import (
	"efiboot/src/lib/bootstrap"
	"efiboot/src/lib/qemuexit"
)

func init() {
	bootstrap.SetDefaults(bootstrap.WithHarness(qemuexit.Default()))
}
