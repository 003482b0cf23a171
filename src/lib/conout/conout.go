// Package conout adapts the firmware text output protocol to io.Writer.
package conout

import (
	"bytes"
	"encoding/binary"
	"errors"
	"unicode/utf8"
	"unsafe"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"

	"efiboot/src/uefi"
)

// ChunkChars is the number of UCS-2 characters (excluding the terminating
// NUL) handed to OutputString per call.
const ChunkChars = 127

// BufferSource hands out the scratch buffer used for conversion; the pool
// allocator satisfies it.
type BufferSource interface {
	Alloc(size int) ([]byte, error)
	Free(buf []byte) error
}

// Writer converts UTF-8 to NUL terminated UCS-2 with CRLF line endings.
// Characters outside the basic multilingual plane cannot be shown by the
// firmware and are replaced with U+FFFD.
type Writer struct {
	out     uefi.TextOutput
	src     BufferSource
	scratch []uint16
	owned   []byte
	fixed   [ChunkChars + 1]uint16
	pending []byte // incomplete UTF-8 sequence from the previous Write
}

func New(out uefi.TextOutput) *Writer {
	return &Writer{out: out}
}

// Bind switches the scratch buffer to memory from src.  Passing nil returns
// to the writer's fixed buffer.
func (w *Writer) Bind(src BufferSource) error {
	if err := w.release(); err != nil {
		return err
	}
	w.src = src
	if src == nil {
		return nil
	}
	b, err := src.Alloc(2 * (ChunkChars + 1))
	if err != nil {
		w.src = nil
		return err
	}
	w.owned = b
	w.scratch = unsafe.Slice((*uint16)(unsafe.Pointer(&b[0])), ChunkChars+1)
	return nil
}

// Close gives back any scratch memory taken from the buffer source.
func (w *Writer) Close() error {
	return w.release()
}

func (w *Writer) release() error {
	if w.owned == nil {
		return nil
	}
	err := w.src.Free(w.owned)
	w.owned = nil
	w.scratch = nil
	w.src = nil
	return err
}

// Flush drops an incomplete UTF-8 tail by printing a replacement character.
func (w *Writer) Flush() error {
	if len(w.pending) == 0 {
		return nil
	}
	w.pending = w.pending[:0]
	return w.emit([]byte("\uFFFD"))
}

var encoder = transform.Chain(
	runes.Map(func(r rune) rune {
		if r > 0xffff {
			return utf8.RuneError
		}
		return r
	}),
	unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder(),
)

func (w *Writer) Write(p []byte) (int, error) {
	n := len(p)
	if len(w.pending) > 0 {
		p = append(w.pending, p...)
		w.pending = nil
	}
	// hold back a partial rune at the end
	cut := len(p)
	for i := len(p) - 1; i >= 0 && i >= len(p)-utf8.UTFMax; i-- {
		if utf8.RuneStart(p[i]) {
			if !utf8.FullRune(p[i:]) {
				cut = i
			}
			break
		}
	}
	if cut < len(p) {
		w.pending = append([]byte(nil), p[cut:]...)
		p = p[:cut]
	}
	if err := w.emit(p); err != nil {
		return 0, err
	}
	return n, nil
}

func (w *Writer) emit(p []byte) error {
	crlf := bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))
	le, _, err := transform.Bytes(encoder, crlf)
	if err != nil {
		return err
	}
	buf := w.fixed[:]
	if w.scratch != nil {
		buf = w.scratch
	}
	for len(le) > 0 {
		k := 0
		for ; k < ChunkChars && 2*k+1 < len(le); k++ {
			buf[k] = binary.LittleEndian.Uint16(le[2*k:])
		}
		buf[k] = 0
		if st := w.out.OutputString(buf[:k+1]); st.IsError() {
			return st.OpErr("OutputString")
		}
		le = le[2*k:]
	}
	return nil
}

// ErrNoConsole is returned by Open when the table has nowhere to print.
var ErrNoConsole = errors.New("conout: system table has no console output")

// Open returns a writer over st's console output.
func Open(st *uefi.SystemTable) (*Writer, error) {
	if st == nil || st.ConOut == nil {
		return nil, ErrNoConsole
	}
	return New(st.ConOut), nil
}
