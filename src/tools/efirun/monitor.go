package efirun

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"
)

const monitorPrompt = "(qemu) "

// Monitor speaks QEMU's human monitor protocol.
type Monitor struct {
	conn io.ReadWriteCloser
	r    *bufio.Reader
}

// NewMonitor takes over conn and consumes the greeting up to the first
// prompt.
func NewMonitor(conn io.ReadWriteCloser) (*Monitor, error) {
	m := &Monitor{conn: conn, r: bufio.NewReader(conn)}
	if _, err := m.untilPrompt(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("efirun: monitor greeting: %w", err)
	}
	return m, nil
}

// DialMonitor connects to the monitor socket, retrying while QEMU is still
// creating it.
func DialMonitor(ctx context.Context, socket string) (*Monitor, error) {
	var d net.Dialer
	for {
		conn, err := d.DialContext(ctx, "unix", socket)
		if err == nil {
			return NewMonitor(conn)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("efirun: dial monitor %s: %w", socket, err)
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// Command runs one monitor command and returns its output.
func (m *Monitor) Command(cmd string) (string, error) {
	if _, err := io.WriteString(m.conn, cmd+"\n"); err != nil {
		return "", err
	}
	out, err := m.untilPrompt()
	if err != nil {
		return "", fmt.Errorf("efirun: monitor %q: %w", cmd, err)
	}
	// the monitor echoes the command line first
	out = strings.TrimPrefix(out, cmd)
	return strings.TrimLeft(out, "\r\n"), nil
}

// Screendump writes the guest display to path in PPM format.
func (m *Monitor) Screendump(path string) error {
	out, err := m.Command("screendump " + path)
	if err != nil {
		return err
	}
	// the monitor prints nothing useful on success, so look for the file
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("efirun: screendump %s failed: %s", path, strings.TrimSpace(out))
	}
	return nil
}

func (m *Monitor) Close() error {
	return m.conn.Close()
}

func (m *Monitor) untilPrompt() (string, error) {
	var buf bytes.Buffer
	for {
		b, err := m.r.ReadByte()
		if err != nil {
			return buf.String(), err
		}
		buf.WriteByte(b)
		if bytes.HasSuffix(buf.Bytes(), []byte(monitorPrompt)) {
			buf.Truncate(buf.Len() - len(monitorPrompt))
			return buf.String(), nil
		}
	}
}
