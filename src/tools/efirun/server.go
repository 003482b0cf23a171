package efirun

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"efiboot/src/lib/screenshot"
)

// Screenshotter captures the guest display; Monitor is one.
type Screenshotter interface {
	Screendump(path string) error
}

var (
	ErrScreenshotName = errors.New("efirun: screenshot name must be a plain file name")
	// ErrChannel wraps failures of the serial line itself, which are
	// expected once QEMU has gone away.
	ErrChannel = errors.New("efirun: test channel failed")
)

// ScreenshotMismatch is returned when a capture differs from its reference.
type ScreenshotMismatch struct {
	Name      string
	Got, Want [sha256.Size]byte
}

func (e *ScreenshotMismatch) Error() string {
	return fmt.Sprintf("efirun: screenshot %s differs from reference (sha256 %x, want %x)", e.Name, e.Got, e.Want)
}

// Server answers requests from the image on the test channel.
type Server struct {
	ch      *Channel
	shots   Screenshotter
	refDir  string
	workDir string
	log     *logrus.Entry

	// Taken lists the screenshots verified so far.
	Taken []string
}

func NewServer(ch *Channel, shots Screenshotter, refDir, workDir string) *Server {
	return &Server{
		ch:      ch,
		shots:   shots,
		refDir:  refDir,
		workDir: workDir,
		log:     logrus.WithField("channel", "test"),
	}
}

// Serve handles requests until the channel closes, ctx is done or a request
// fails.  A closed channel is the normal end and is not an error.
func (s *Server) Serve(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := s.ch.ReadLine()
		if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrChannel, err)
		}
		switch {
		case strings.HasPrefix(line, screenshot.RequestPrefix):
			name := strings.TrimSpace(strings.TrimPrefix(line, screenshot.RequestPrefix))
			if err := s.capture(name); err != nil {
				return err
			}
			if err := s.ch.Reply(screenshot.Ack); err != nil {
				return fmt.Errorf("%w: reply: %v", ErrChannel, err)
			}
		case line == "":
		default:
			s.log.WithField("line", line).Warn("efirun: unknown request ignored")
		}
	}
}

func (s *Server) capture(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: %q", ErrScreenshotName, name)
	}
	got := filepath.Join(s.workDir, name+".ppm")
	if err := s.shots.Screendump(got); err != nil {
		return err
	}
	gotSum, err := sumFile(got)
	if err != nil {
		return err
	}
	wantSum, err := sumFile(filepath.Join(s.refDir, name+".ppm"))
	if err != nil {
		return fmt.Errorf("efirun: reference for screenshot %s: %w", name, err)
	}
	if gotSum != wantSum {
		return &ScreenshotMismatch{Name: name, Got: gotSum, Want: wantSum}
	}
	s.log.WithField("screenshot", name).Info("efirun: screenshot matches reference")
	s.Taken = append(s.Taken, name)
	return nil
}

func sumFile(path string) ([sha256.Size]byte, error) {
	var sum [sha256.Size]byte
	f, err := os.Open(path)
	if err != nil {
		return sum, err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return sum, err
	}
	copy(sum[:], h.Sum(nil))
	return sum, nil
}
