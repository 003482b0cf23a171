package efientry

import (
	"fmt"
	"go/token"
	"sort"
	"strings"
)

// Kind classifies a contract violation.
type Kind int

const (
	UnexpectedAttributeArgs Kind = iota + 1
	ExplicitAbiNotAllowed
	AsyncNotAllowed
	GenericsNotAllowed
	MethodNotAllowed
	DuplicateEntry
	MalformedGUID
	InvalidDirective
)

var kindNames = map[Kind]string{
	UnexpectedAttributeArgs: "UnexpectedAttributeArgs",
	ExplicitAbiNotAllowed:   "ExplicitAbiNotAllowed",
	AsyncNotAllowed:         "AsyncNotAllowed",
	GenericsNotAllowed:      "GenericsNotAllowed",
	MethodNotAllowed:        "MethodNotAllowed",
	DuplicateEntry:          "DuplicateEntry",
	MalformedGUID:           "MalformedGUID",
	InvalidDirective:        "InvalidDirective",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Diagnostic is one violation, anchored at the offending source text.
type Diagnostic struct {
	Kind    Kind
	Pos     token.Position
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Pos, d.Kind, d.Message)
}

// Diagnostics is every violation found in one run.  A non-empty set is an
// error.
type Diagnostics []Diagnostic

func (ds Diagnostics) Error() string {
	lines := make([]string, len(ds))
	for i, d := range ds {
		lines[i] = d.String()
	}
	return strings.Join(lines, "\n")
}

// Sort orders by file then offset, leaving the check order for ties.
func (ds Diagnostics) Sort() {
	sort.SliceStable(ds, func(i, j int) bool {
		a, b := ds[i].Pos, ds[j].Pos
		if a.Filename != b.Filename {
			return a.Filename < b.Filename
		}
		return a.Offset < b.Offset
	})
}

// Has reports whether any diagnostic is of kind k.
func (ds Diagnostics) Has(k Kind) bool {
	for _, d := range ds {
		if d.Kind == k {
			return true
		}
	}
	return false
}

func diag(k Kind, pos token.Position, format string, args ...interface{}) Diagnostic {
	return Diagnostic{Kind: k, Pos: pos, Message: fmt.Sprintf(format, args...)}
}
