package efientry

import (
	"errors"
	"strings"
)

// ErrNoEntry is returned for a package with no directives at all.
var ErrNoEntry = errors.New("efientry: no //efi:entry function in package")

// Check runs the structural checks on one entry declaration.  Every check
// runs; the result holds one diagnostic per violation found.  Parameter and
// result types are not checked here: the generated assertion leaves that to
// the compiler.
func Check(d *EntryDecl) Diagnostics {
	var diags Diagnostics
	if d.Directive.Args != "" {
		diags = append(diags, diag(UnexpectedAttributeArgs, d.Directive.ArgsPos,
			"entry function %s: //%s takes no arguments, found %q", d.Name, d.Directive.Name, d.Directive.Args))
	}
	for _, l := range d.Linkage {
		diags = append(diags, diag(ExplicitAbiNotAllowed, l.Pos,
			"entry function %s must not carry %s; the generated wrapper provides the firmware symbol", d.Name, l))
	}
	if d.External {
		diags = append(diags, diag(ExplicitAbiNotAllowed, d.Pos,
			"entry function %s has no body; it must be a Go function, not an external implementation", d.Name))
	}
	if d.GoStmt.IsValid() {
		diags = append(diags, diag(AsyncNotAllowed, d.GoStmt,
			"entry function %s must not start goroutines", d.Name))
	}
	if len(d.TypeParams) > 0 {
		diags = append(diags, diag(GenericsNotAllowed, d.TypeParamsPos,
			"entry function %s must not have type parameters [%s]", d.Name, strings.Join(d.TypeParams, ", ")))
	}
	if d.Recv != "" {
		diags = append(diags, diag(MethodNotAllowed, d.RecvPos,
			"entry function %s must not be a method of %s", d.Name, d.Recv))
	}
	return diags
}

// CheckPackage checks every directive in pkg.  A package may hold only
// //efi:guid and //efi:protocol types, but one with no directives at all
// is ErrNoEntry.
func CheckPackage(pkg *Package) (Diagnostics, error) {
	if len(pkg.Entries) == 0 && len(pkg.Types) == 0 && len(pkg.Problems) == 0 {
		return nil, ErrNoEntry
	}
	diags := append(Diagnostics(nil), pkg.Problems...)
	for i, e := range pkg.Entries {
		if i > 0 {
			first := pkg.Entries[0]
			diags = append(diags, diag(DuplicateEntry, e.Directive.Pos,
				"%s is a second entry function; %s at %s is the first", e.Name, first.Name, first.Pos))
		}
		diags = append(diags, Check(e)...)
	}
	for _, t := range pkg.Types {
		if t.GUID != nil {
			_, ds := parseGUID(*t.GUID)
			diags = append(diags, ds...)
		}
	}
	diags.Sort()
	return diags, nil
}
