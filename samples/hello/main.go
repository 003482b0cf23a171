package main

import (
	"fmt"

	"efiboot/src/lib/bootstrap"
	"efiboot/src/lib/screenshot"
	"efiboot/src/lib/trust"
	"efiboot/src/uefi"
)

//go:generate go run efiboot/src/tools/efientry/cmd/efientry generate

// greeting is a protocol this image could install for others to find.
//
//efi:guid "6d6bf5d0-1a8f-4e5b-9b6a-2f1f0c5a4e11"
//efi:protocol
type greeting struct {
	text string
}

//efi:entry
func efiMain(image uefi.Handle, st *uefi.SystemTable) uefi.Status {
	if err := greet(st); err != nil {
		trust.Errorf("%v", err)
		bootstrap.Exit(uefi.Aborted, nil)
	}
	bootstrap.Exit(uefi.Success, nil)
	return uefi.Success
}

func greet(st *uefi.SystemTable) error {
	if status := st.Stdout().Reset(false); status.IsError() {
		return status.OpErr("reset console")
	}
	trust.Infof("firmware vendor: %s", st.FirmwareVendor)

	ok, err := st.Hdr.Revision.Satisfies(">= 2.3")
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("UEFI %s is too old, need 2.3 or later", st.Hdr.Revision)
	}
	trust.Infof("UEFI %s", st.Hdr.Revision)

	if e, ok := st.ConfigEntry(uefi.ACPI2GUID); ok {
		trust.Infof("ACPI 2.0 tables at %#x", e.Address)
	} else {
		trust.Warnf("no ACPI 2.0 tables")
	}

	g := &greeting{text: "hello, world"}
	buf, err := bootstrap.Allocator().Alloc(len(g.text))
	if err != nil {
		return err
	}
	copy(buf, g.text)
	trust.With("protocol", g.GUID()).Infof("%s", buf)
	if err := bootstrap.Allocator().Free(buf); err != nil {
		return err
	}
	stats := bootstrap.Allocator().Stats()
	trust.Statsf("pool", "%d allocs, peak %d bytes", stats.Allocs, stats.PeakBytes)

	return screenshot.Check(bootstrap.Image(), st.BootServices, "hello")
}

// main is never called; the firmware enters through efi_main.
func main() {}
