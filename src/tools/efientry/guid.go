package efientry

import (
	"go/token"
	"strconv"
	"strings"
)

// guidValue holds the five groups of a canonical GUID string, in the order
// uefi.NewGUID takes them.
type guidValue struct {
	TimeLow  uint64
	TimeMid  uint64
	TimeHigh uint64
	ClockSeq uint64
	Node     uint64
	Text     string
}

// guidGroups is the number of hex digits in each dash separated group.
var guidGroups = [5]int{8, 4, 4, 4, 12}

// parseGUID validates the argument of a //efi:guid directive.  Diagnostics
// about one group point at that group's column.
func parseGUID(d Directive) (guidValue, Diagnostics) {
	var v guidValue
	if d.Args == "" {
		return v, Diagnostics{diag(MalformedGUID, d.Pos, "//%s needs a quoted GUID string", d.Name)}
	}
	s, err := strconv.Unquote(d.Args)
	if err != nil {
		return v, Diagnostics{diag(MalformedGUID, d.ArgsPos, "//%s argument %s is not a quoted string", d.Name, d.Args)}
	}
	if len(s) != 36 {
		return v, Diagnostics{diag(MalformedGUID, d.ArgsPos,
			"%q is not a canonical GUID string (expected 36 bytes, found %d)", s, len(s))}
	}
	parts := strings.Split(s, "-")
	if len(parts) != len(guidGroups) {
		return v, Diagnostics{diag(MalformedGUID, d.ArgsPos,
			"%q is not a canonical GUID string (expected 5 groups separated by '-', found %d)", s, len(parts))}
	}

	var diags Diagnostics
	var nums [5]uint64
	offset := 1 // opening quote
	for i, part := range parts {
		pos := shift(d.ArgsPos, offset)
		offset += len(part) + 1
		if len(part) != guidGroups[i] {
			diags = append(diags, diag(MalformedGUID, pos,
				"GUID component %q is not a %d-bit hexadecimal string", part, guidGroups[i]*4))
			continue
		}
		n, err := strconv.ParseUint(part, 16, 64)
		if err != nil {
			diags = append(diags, diag(MalformedGUID, pos,
				"GUID component %q is not a hexadecimal number", part))
			continue
		}
		nums[i] = n
	}
	if len(diags) > 0 {
		return v, diags
	}
	return guidValue{
		TimeLow:  nums[0],
		TimeMid:  nums[1],
		TimeHigh: nums[2],
		ClockSeq: nums[3],
		Node:     nums[4],
		Text:     strings.ToLower(s),
	}, nil
}

func shift(pos token.Position, n int) token.Position {
	pos.Offset += n
	pos.Column += n
	return pos
}
