package efirun

import (
	"io"

	tty "github.com/mattn/go-tty"
	"github.com/sirupsen/logrus"
)

// maxLine bounds a request line; longer lines are truncated.
const maxLine = 256

// Channel is the host end of the image's test serial line.  Requests are
// newline terminated; control characters are dropped.
type Channel struct {
	in     io.Reader
	out    io.Writer
	closer io.Closer
	buf    []byte
}

// NewChannel builds a channel over any reader and writer.
func NewChannel(in io.Reader, out io.Writer) *Channel {
	return &Channel{in: in, out: out, buf: make([]byte, maxLine)}
}

// OpenTTY opens the pseudo terminal QEMU attached the serial port to and
// puts it in raw mode.
func OpenTTY(path string) (*Channel, error) {
	t, err := tty.OpenDevice(path)
	if err != nil {
		return nil, err
	}
	if _, err := t.Raw(); err != nil {
		t.Close()
		return nil, err
	}
	c := NewChannel(t.Input(), t.Output())
	c.closer = t
	return c, nil
}

// ReadLine returns the next line without its terminator.
func (c *Channel) ReadLine() (string, error) {
	count := 0
	dropped := 0
	for {
		r, err := c.in.Read(c.buf[count : count+1])
		if err != nil {
			return "", err
		}
		if r == 0 {
			continue
		}
		switch ch := c.buf[count]; {
		case ch == '\n':
			if dropped != 0 {
				logrus.WithField("dropped", dropped).Warn("efirun: long line from the test channel truncated")
			}
			return string(c.buf[:count]), nil
		case ch < 32:
			continue
		default:
			if count == len(c.buf)-1 {
				dropped++
				continue
			}
			count++
		}
	}
}

// Reply sends s back to the image.
func (c *Channel) Reply(s string) error {
	_, err := io.WriteString(c.out, s)
	return err
}

func (c *Channel) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}
