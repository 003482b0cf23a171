package efientry

import (
	"bytes"
	"encoding/json"
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var sample = Diagnostics{
	{Kind: UnexpectedAttributeArgs, Pos: token.Position{Filename: "main.go", Line: 3, Column: 13}, Message: "//efi:entry takes no arguments, found \"x\""},
	{Kind: GenericsNotAllowed, Pos: token.Position{Filename: "main.go", Line: 4, Column: 13}, Message: "entry function efiMain must not have type parameters [T]"},
}

func TestWriteDiagnosticsText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDiagnostics(&buf, sample, FormatText))
	assert.Equal(t, sample.Error()+"\n", buf.String())
}

func TestWriteDiagnosticsStructured(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDiagnostics(&buf, sample, FormatJSON))
	var fromJSON []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fromJSON))
	require.Len(t, fromJSON, 2)
	assert.Equal(t, "UnexpectedAttributeArgs", fromJSON[0]["kind"])
	assert.Equal(t, float64(13), fromJSON[0]["column"])

	buf.Reset()
	require.NoError(t, WriteDiagnostics(&buf, sample, FormatYAML))
	var fromYAML []map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &fromYAML))
	require.Len(t, fromYAML, 2)
	assert.Equal(t, "GenericsNotAllowed", fromYAML[1]["kind"])
	assert.Equal(t, 4, fromYAML[1]["line"])
}

func TestWriteDiagnosticsTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDiagnostics(&buf, sample, FormatTable))
	assert.Contains(t, buf.String(), "main.go:4:13")
	assert.Contains(t, buf.String(), "GenericsNotAllowed")
}

func TestWriteDiagnosticsUnknownFormat(t *testing.T) {
	assert.ErrorContains(t, WriteDiagnostics(&bytes.Buffer{}, sample, "xml"), "unknown format")
}
