package efientry

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func guidSource(arg string) string {
	return fmt.Sprintf(`package app

//efi:guid %s
type Proto struct{}
`, arg)
}

func TestParseGUID(t *testing.T) {
	pkg := parse(t, guidSource(`"8868E871-e4f1-11d3-bc22-0080c73c8881"`))
	require.Len(t, pkg.Types, 1)
	v, diags := parseGUID(*pkg.Types[0].GUID)
	require.Empty(t, diags)
	assert.Equal(t, guidValue{
		TimeLow:  0x8868e871,
		TimeMid:  0xe4f1,
		TimeHigh: 0x11d3,
		ClockSeq: 0xbc22,
		Node:     0x0080c73c8881,
		Text:     "8868e871-e4f1-11d3-bc22-0080c73c8881",
	}, v)
}

func TestMalformedGUID(t *testing.T) {
	tests := []struct {
		name     string
		arg      string
		columns  []int
		messages []string
	}{
		{
			name:     "missing",
			arg:      "",
			columns:  []int{1},
			messages: []string{"needs a quoted GUID string"},
		},
		{
			name:     "unquoted",
			arg:      "8868e871-e4f1-11d3-bc22-0080c73c8881",
			columns:  []int{12},
			messages: []string{"is not a quoted string"},
		},
		{
			name:     "short",
			arg:      `"8868e871"`,
			columns:  []int{12},
			messages: []string{"expected 36 bytes, found 8"},
		},
		{
			name:     "no dashes",
			arg:      `"8868e871e4f111d3bc220080c73c8881xxxx"`,
			columns:  []int{12},
			messages: []string{"expected 5 groups separated by '-', found 1"},
		},
		{
			name:    "group widths",
			arg:     `"123456789-abc-def0-fedc-ba9876543210"`,
			columns: []int{13, 23},
			messages: []string{
				`GUID component "123456789" is not a 32-bit hexadecimal string`,
				`GUID component "abc" is not a 16-bit hexadecimal string`,
			},
		},
		{
			name:     "not hex",
			arg:      `"8868e871-e4f1-11d3-bc2g-0080c73c8881"`,
			columns:  []int{32},
			messages: []string{`GUID component "bc2g" is not a hexadecimal number`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkg := parse(t, guidSource(tt.arg))
			diags, err := CheckPackage(pkg)
			require.NoError(t, err)
			require.Len(t, diags, len(tt.columns), diags.Error())
			for i, d := range diags {
				assert.Equal(t, MalformedGUID, d.Kind)
				assert.Equal(t, 3, d.Pos.Line)
				assert.Equal(t, tt.columns[i], d.Pos.Column)
				assert.Contains(t, d.Message, tt.messages[i])
			}
		})
	}
}

func TestProtocolTakesNoArguments(t *testing.T) {
	pkg := parse(t, `package app

//efi:protocol yes
type Proto struct{}
`)
	diags, err := CheckPackage(pkg)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, UnexpectedAttributeArgs, diags[0].Kind)
	assert.Equal(t, 16, diags[0].Pos.Column)
}
