// Package efientry checks functions marked //efi:entry against the firmware
// entry-point contract and generates the exported wrapper the firmware
// calls.  It also generates the GUID and protocol marker methods for types
// marked //efi:guid and //efi:protocol.
package efientry

// Contract names the host-side types an entry point must use.  The zero
// value is useless; start from DefaultContract.
type Contract struct {
	// ImportPath of the package declaring the contract types.
	ImportPath string
	// PackageName is the name that package declares.
	PackageName string
	Handle      string
	// Table is written as it appears in a signature, pointer included.
	Table  string
	Status string
	GUID   string
	// Protocol is the interface //efi:protocol types must satisfy.
	Protocol string
	// RuntimeImport is the package providing Run.
	RuntimeImport string
	RuntimeName   string
	// Symbol is the name the firmware looks up.
	Symbol string
}

// DefaultContract is the boot-time contract: the entry point receives the
// image handle and the boot-services system table and returns a status.
var DefaultContract = Contract{
	ImportPath:    "efiboot/src/uefi",
	PackageName:   "uefi",
	Handle:        "Handle",
	Table:         "*SystemTable",
	Status:        "Status",
	GUID:          "GUID",
	Protocol:      "Protocol",
	RuntimeImport: "efiboot/src/lib/bootstrap",
	RuntimeName:   "bootstrap",
	Symbol:        "efi_main",
}

// Signature is the entry function type spelled with the given package
// qualifier, e.g. "func(uefi.Handle, *uefi.SystemTable) uefi.Status".
func (c Contract) Signature(qual string) string {
	return "func(" + c.qualify(qual, c.Handle) + ", " + c.qualify(qual, c.Table) + ") " + c.qualify(qual, c.Status)
}

func (c Contract) qualify(qual, typ string) string {
	stars := 0
	for stars < len(typ) && typ[stars] == '*' {
		stars++
	}
	return typ[:stars] + qual + "." + typ[stars:]
}
