package efientry

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	entryDirective    = "efi:entry"
	guidDirective     = "efi:guid"
	protocolDirective = "efi:protocol"
)

// linkage directives give a function a symbol or calling convention of its
// own, which would collide with the generated wrapper.
var linkageDirectives = map[string]bool{
	"export":                true,
	"go:export":             true,
	"go:linkname":           true,
	"go:wasmexport":         true,
	"go:wasmimport":         true,
	"go:cgo_export_static":  true,
	"go:cgo_export_dynamic": true,
}

// Directive is one //efi: or linkage comment.
type Directive struct {
	// Name is the comment text after "//" up to the first blank, e.g.
	// "efi:entry" or "go:linkname".
	Name    string
	Args    string
	Pos     token.Position
	ArgsPos token.Position
}

func (d Directive) String() string {
	if d.Args == "" {
		return "//" + d.Name
	}
	return "//" + d.Name + " " + d.Args
}

// EntryDecl is a function marked //efi:entry, as written.
type EntryDecl struct {
	Name      string
	Pos       token.Position
	Directive Directive
	// Recv is the receiver type, empty for plain functions.
	Recv          string
	RecvPos       token.Position
	TypeParams    []string
	TypeParamsPos token.Position
	Signature     string
	Linkage       []Directive
	// External is set for a declaration without a body.
	External bool
	// GoStmt is the first go statement in the body; invalid if none.
	GoStmt token.Position
}

// TypeDecl is a type marked //efi:guid or //efi:protocol.
type TypeDecl struct {
	Name       string
	Pos        token.Position
	TypeParams int
	GUID       *Directive
	Protocol   *Directive
}

// Package is what the generator needs to know about one package directory.
type Package struct {
	Name    string
	Dir     string
	Files   []string
	Entries []*EntryDecl
	Types   []*TypeDecl
	// Idents holds every package scope name.
	Idents map[string]bool
	// Problems are directive misuse found while parsing.
	Problems Diagnostics
}

func newPackage(dir string) *Package {
	return &Package{Dir: dir, Idents: make(map[string]bool)}
}

// ParseDir reads the non-test Go files in dir.  Files written by this
// generator are left out.
func ParseDir(fset *token.FileSet, dir string) (*Package, error) {
	names, err := inputFiles(dir)
	if err != nil {
		return nil, err
	}
	pkg := newPackage(dir)
	for _, name := range names {
		path := filepath.Join(dir, name)
		f, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
		if err != nil {
			return nil, err
		}
		if isGenerated(f) {
			continue
		}
		if err := pkg.add(fset, f); err != nil {
			return nil, err
		}
		pkg.Files = append(pkg.Files, path)
	}
	if pkg.Name == "" {
		return nil, fmt.Errorf("efientry: no Go files in %s", dir)
	}
	return pkg, nil
}

// ParseFile treats a single file as a whole package.  src is passed to
// parser.ParseFile and may be nil.
func ParseFile(fset *token.FileSet, filename string, src interface{}) (*Package, error) {
	f, err := parser.ParseFile(fset, filename, src, parser.ParseComments)
	if err != nil {
		return nil, err
	}
	pkg := newPackage(filepath.Dir(filename))
	if err := pkg.add(fset, f); err != nil {
		return nil, err
	}
	pkg.Files = append(pkg.Files, filename)
	return pkg, nil
}

func inputFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		n := e.Name()
		if e.IsDir() || !strings.HasSuffix(n, ".go") || strings.HasSuffix(n, "_test.go") {
			continue
		}
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func isGenerated(f *ast.File) bool {
	for _, cg := range f.Comments {
		if cg.Pos() > f.Package {
			break
		}
		for _, c := range cg.List {
			if c.Text == Banner {
				return true
			}
		}
	}
	return false
}

func (p *Package) add(fset *token.FileSet, f *ast.File) error {
	if p.Name == "" {
		p.Name = f.Name.Name
	} else if f.Name.Name != p.Name {
		return fmt.Errorf("efientry: %s: package %s, expected %s",
			fset.Position(f.Package).Filename, f.Name.Name, p.Name)
	}
	for _, decl := range f.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if d.Recv == nil && d.Name.Name != "init" {
				p.Idents[d.Name.Name] = true
			}
			p.addFunc(fset, d)
		case *ast.GenDecl:
			p.addGen(fset, d)
		}
	}
	return nil
}

func (p *Package) addFunc(fset *token.FileSet, d *ast.FuncDecl) {
	efi, linkage := scanDirectives(fset, d.Doc)
	var entry *Directive
	for i := range efi {
		dir := efi[i]
		switch dir.Name {
		case entryDirective:
			if entry != nil {
				p.problem(InvalidDirective, dir.Pos, "%s repeated on %s", dir, d.Name.Name)
				continue
			}
			entry = &dir
		case guidDirective, protocolDirective:
			p.problem(InvalidDirective, dir.Pos, "//%s applies to type declarations, not function %s", dir.Name, d.Name.Name)
		default:
			p.problem(InvalidDirective, dir.Pos, "unknown directive //%s", dir.Name)
		}
	}
	if entry == nil {
		return
	}

	e := &EntryDecl{
		Name:      d.Name.Name,
		Pos:       fset.Position(d.Name.Pos()),
		Directive: *entry,
		Signature: types.ExprString(d.Type),
		Linkage:   linkage,
		External:  d.Body == nil,
	}
	if d.Recv != nil && len(d.Recv.List) > 0 {
		e.Recv = types.ExprString(d.Recv.List[0].Type)
		e.RecvPos = fset.Position(d.Recv.Opening)
	}
	if tp := d.Type.TypeParams; tp != nil {
		for _, field := range tp.List {
			for _, n := range field.Names {
				e.TypeParams = append(e.TypeParams, n.Name)
			}
		}
		e.TypeParamsPos = fset.Position(tp.Opening)
	}
	if d.Body != nil {
		ast.Inspect(d.Body, func(n ast.Node) bool {
			if e.GoStmt.IsValid() {
				return false
			}
			if g, ok := n.(*ast.GoStmt); ok {
				e.GoStmt = fset.Position(g.Go)
				return false
			}
			return true
		})
	}
	p.Entries = append(p.Entries, e)
}

func (p *Package) addGen(fset *token.FileSet, d *ast.GenDecl) {
	grouped := d.Lparen.IsValid()
	for _, spec := range d.Specs {
		switch s := spec.(type) {
		case *ast.ValueSpec:
			for _, n := range s.Names {
				p.Idents[n.Name] = true
			}
		case *ast.TypeSpec:
			p.Idents[s.Name.Name] = true
			doc := s.Doc
			if !grouped {
				doc = d.Doc
			}
			p.addType(fset, s, doc)
		}
	}
	if d.Tok != token.TYPE || grouped {
		efi, _ := scanDirectives(fset, d.Doc)
		for _, dir := range efi {
			p.problem(InvalidDirective, dir.Pos, "//%s must be attached to a single type or function", dir.Name)
		}
	}
}

func (p *Package) addType(fset *token.FileSet, s *ast.TypeSpec, doc *ast.CommentGroup) {
	efi, _ := scanDirectives(fset, doc)
	if len(efi) == 0 {
		return
	}
	t := &TypeDecl{Name: s.Name.Name, Pos: fset.Position(s.Name.Pos())}
	if s.TypeParams != nil {
		t.TypeParams = s.TypeParams.NumFields()
	}
	for i := range efi {
		dir := efi[i]
		switch dir.Name {
		case guidDirective:
			if t.GUID != nil {
				p.problem(InvalidDirective, dir.Pos, "//%s repeated on type %s", dir.Name, t.Name)
				continue
			}
			t.GUID = &dir
		case protocolDirective:
			if dir.Args != "" {
				p.problem(UnexpectedAttributeArgs, dir.ArgsPos, "//%s takes no arguments, found %q", dir.Name, dir.Args)
			}
			t.Protocol = &dir
		case entryDirective:
			p.problem(InvalidDirective, dir.Pos, "//%s applies to functions, not type %s", dir.Name, t.Name)
		default:
			p.problem(InvalidDirective, dir.Pos, "unknown directive //%s", dir.Name)
		}
	}
	if s.Assign.IsValid() && (t.GUID != nil || t.Protocol != nil) {
		p.problem(InvalidDirective, t.Pos, "cannot declare methods on alias %s", t.Name)
		return
	}
	if t.GUID != nil || t.Protocol != nil {
		p.Types = append(p.Types, t)
	}
}

func (p *Package) problem(k Kind, pos token.Position, format string, args ...interface{}) {
	p.Problems = append(p.Problems, diag(k, pos, format, args...))
}

// scanDirectives splits a doc comment's directives into //efi: ones and
// linkage ones.  Ordinary comment text is ignored.
func scanDirectives(fset *token.FileSet, cg *ast.CommentGroup) (efi, linkage []Directive) {
	if cg == nil {
		return nil, nil
	}
	for _, c := range cg.List {
		if !strings.HasPrefix(c.Text, "//") {
			continue
		}
		body := c.Text[2:]
		name := body
		rest := ""
		if i := strings.IndexAny(body, " \t"); i >= 0 {
			name, rest = body[:i], body[i:]
		}
		isEFI := strings.HasPrefix(name, "efi:")
		if !isEFI && !linkageDirectives[name] {
			continue
		}
		args := strings.TrimSpace(rest)
		lead := len(rest) - len(strings.TrimLeft(rest, " \t"))
		d := Directive{
			Name:    name,
			Args:    args,
			Pos:     fset.Position(c.Slash),
			ArgsPos: fset.Position(c.Slash + token.Pos(2+len(name)+lead)),
		}
		if isEFI {
			efi = append(efi, d)
		} else {
			linkage = append(linkage, d)
		}
	}
	return efi, linkage
}
