package efientry

import (
	"bytes"
	"fmt"
	"go/format"
	"path"
	"strconv"
	"text/template"
)

// Banner is the first line of every generated file.
const Banner = "// Code generated by efientry. DO NOT EDIT."

// DefaultOutput is the file name Write uses when Options.Output is empty.
const DefaultOutput = "zz_efi_entry.go"

const trampolineBase = "efiMainTrampoline"

// Options control generation.  The zero value generates a wrapper that
// runs the entry function under the bootstrap with DefaultContract.
type Options struct {
	// Output is the file name inside the package directory.
	Output string
	// Bare wrappers call the entry function directly; the application is
	// then responsible for initializing the runtime itself.
	Bare bool
	// Contract overrides DefaultContract when its ImportPath is set.
	Contract Contract
}

func (o Options) output() string {
	if o.Output == "" {
		return DefaultOutput
	}
	return o.Output
}

func (o Options) contract() Contract {
	if o.Contract.ImportPath == "" {
		return DefaultContract
	}
	c := o.Contract
	if c.PackageName == "" {
		c.PackageName = path.Base(c.ImportPath)
	}
	return c
}

// Result is either generated source or the diagnostics that prevented it,
// never both.
type Result struct {
	Source      []byte
	Diagnostics Diagnostics
	// Trampoline is the name given to the exported function.
	Trampoline string
}

type entryData struct {
	Func       string
	Trampoline string
	Symbol     string
	Handle     string
	Table      string
	Status     string
	Signature  string
	Runtime    string
}

type typeData struct {
	Name     string
	Recv     string
	GUID     *guidValue
	Protocol bool
	Generic  bool
}

type fileData struct {
	Banner       string
	Package      string
	Imports      []importData
	Entry        *entryData
	Types        []typeData
	Uefi         string
	GUIDType     string
	ProtocolType string
}

type importData struct {
	Name string
	Path string
}

func (i importData) String() string {
	if path.Base(i.Path) == i.Name {
		return strconv.Quote(i.Path)
	}
	return i.Name + " " + strconv.Quote(i.Path)
}

var wrapperTemplate = template.Must(template.New("wrapper").Parse(wrapperTemplateText))

// Generate checks pkg and renders its wrapper file.
func Generate(pkg *Package, opts Options) (*Result, error) {
	diags, err := CheckPackage(pkg)
	if err != nil {
		return nil, err
	}
	if len(diags) > 0 {
		return &Result{Diagnostics: diags}, nil
	}
	c := opts.contract()

	taken := func(name string) bool { return pkg.Idents[name] }
	uefiName := unusedName(c.PackageName, taken)
	data := fileData{
		Banner:       Banner,
		Package:      pkg.Name,
		Uefi:         uefiName,
		GUIDType:     uefiName + "." + c.GUID,
		ProtocolType: uefiName + "." + c.Protocol,
	}

	res := &Result{}
	var imports []importData
	if len(pkg.Entries) > 0 {
		e := pkg.Entries[0]
		ed := &entryData{
			Func:      e.Name,
			Symbol:    c.Symbol,
			Handle:    c.qualify(uefiName, c.Handle),
			Table:     c.qualify(uefiName, c.Table),
			Status:    c.qualify(uefiName, c.Status),
			Signature: c.Signature(uefiName),
		}
		if !opts.Bare {
			ed.Runtime = unusedName(c.RuntimeName, func(n string) bool { return taken(n) || n == uefiName })
			imports = append(imports, importData{Name: ed.Runtime, Path: c.RuntimeImport})
		}
		ed.Trampoline = unusedName(trampolineBase, func(n string) bool {
			return taken(n) || n == uefiName || n == ed.Runtime
		})
		res.Trampoline = ed.Trampoline
		data.Entry = ed
	}
	usesUefi := data.Entry != nil
	for _, t := range pkg.Types {
		td := typeData{Name: t.Name, Recv: t.Name, Protocol: t.Protocol != nil, Generic: t.TypeParams > 0}
		if t.TypeParams > 0 {
			td.Recv += "["
			for i := 0; i < t.TypeParams; i++ {
				if i > 0 {
					td.Recv += ", "
				}
				td.Recv += "_"
			}
			td.Recv += "]"
		}
		if t.GUID != nil {
			v, _ := parseGUID(*t.GUID)
			td.GUID = &v
		}
		if td.GUID != nil || !td.Generic {
			usesUefi = true
		}
		data.Types = append(data.Types, td)
	}
	if usesUefi {
		imports = append(imports, importData{Name: uefiName, Path: c.ImportPath})
	}
	data.Imports = imports

	var buf bytes.Buffer
	if err := wrapperTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("efientry: render wrapper: %w", err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("efientry: format wrapper: %w", err)
	}
	res.Source = src
	return res, nil
}

// unusedName returns base, or base with the smallest numeric suffix that is
// not taken.
func unusedName(base string, taken func(string) bool) string {
	name := base
	for i := 1; taken(name); i++ {
		name = base + strconv.Itoa(i)
	}
	return name
}

const wrapperTemplateText = `{{.Banner}}

package {{.Package}}

import (
{{- range .Imports}}
	{{.}}
{{- end}}
)
{{with .Entry}}
// {{.Trampoline}} is the image entry point, exported to the firmware as
// {{.Symbol}}.
//
//export {{.Symbol}}
func {{.Trampoline}}(image {{.Handle}}, st {{.Table}}) {{.Status}} {
	return {{if .Runtime}}{{.Runtime}}.Run(image, st, {{.Func}}){{else}}{{.Func}}(image, st){{end}}
}

var _ {{.Signature}} = {{.Func}}
{{end}}
{{- range .Types}}
{{- if .GUID}}

// GUID returns {{.GUID.Text}}.
func ({{.Recv}}) GUID() {{$.GUIDType}} {
	return {{$.Uefi}}.NewGUID(0x{{printf "%08x" .GUID.TimeLow}}, 0x{{printf "%04x" .GUID.TimeMid}}, 0x{{printf "%04x" .GUID.TimeHigh}}, 0x{{printf "%04x" .GUID.ClockSeq}}, 0x{{printf "%012x" .GUID.Node}})
}
{{- end}}
{{- if .Protocol}}

func (*{{.Recv}}) UEFIProtocol() {}
{{- if not .Generic}}

var _ {{$.ProtocolType}} = (*{{.Name}})(nil)
{{- end}}
{{- end}}
{{- end}}
`
