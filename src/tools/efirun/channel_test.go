package efirun

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelReadLine(t *testing.T) {
	ch := NewChannel(strings.NewReader("SCREENSHOT: \x1bboot\r\nsecond\n"), io.Discard)
	line, err := ch.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "SCREENSHOT: boot", line)

	line, err = ch.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "second", line)

	_, err = ch.ReadLine()
	assert.ErrorIs(t, err, io.EOF)
}

func TestChannelTruncatesLongLines(t *testing.T) {
	long := strings.Repeat("x", 2*maxLine)
	ch := NewChannel(strings.NewReader(long+"\nnext\n"), io.Discard)
	line, err := ch.ReadLine()
	require.NoError(t, err)
	assert.Len(t, line, maxLine-1)

	line, err = ch.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "next", line)
}

func TestChannelReply(t *testing.T) {
	var out bytes.Buffer
	ch := NewChannel(strings.NewReader(""), &out)
	require.NoError(t, ch.Reply("OK\n"))
	assert.Equal(t, "OK\n", out.String())
	assert.NoError(t, ch.Close())
}
