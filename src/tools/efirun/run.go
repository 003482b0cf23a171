package efirun

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"

	"efiboot/src/lib/qemuexit"
)

var ErrTimeout = errors.New("efirun: timed out waiting for the image")

// Result is how a run ended.
type Result struct {
	ExitCode    int
	Outcome     qemuexit.Outcome
	Screenshots []string
}

// Run boots the image described by c and waits for QEMU to exit.  The error
// is nil whenever QEMU ran to completion, even if the image failed; check
// Result.Outcome for that.
func Run(ctx context.Context, c Config) (*Result, error) {
	codes, err := c.Codes()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	if c.WorkDir != "" {
		if err := os.MkdirAll(c.WorkDir, 0o755); err != nil {
			return nil, err
		}
		_ = os.Remove(c.MonitorSocket())
	}

	args := QEMUArgs(c)
	log := logrus.WithField("qemu", c.QEMU)
	log.WithField("args", strings.Join(args, " ")).Debug("efirun: starting")
	cmd := exec.CommandContext(ctx, c.QEMU, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("efirun: start %s: %w", c.QEMU, err)
	}

	ptys := make(chan string, 1)
	done := make(chan struct{}, 2)
	go func() {
		mirror(stdout, logrus.WithField("serial", "log"))
		done <- struct{}{}
	}()
	go func() {
		watchStderr(stderr, ptys, log)
		done <- struct{}{}
	}()

	served := make(chan error, 1)
	var srv *Server
	if c.ScreenshotDir != "" {
		srv, err = startTestChannel(ctx, c, ptys)
		if err != nil {
			_ = cmd.Process.Kill()
			<-done
			<-done
			_ = cmd.Wait()
			return nil, err
		}
		go func() {
			err := srv.Serve(ctx)
			if err != nil && !errors.Is(err, ErrChannel) {
				// the image is waiting for a reply that will not come
				_ = cmd.Process.Kill()
			}
			served <- err
		}()
	} else {
		served <- nil
	}

	// drain the pipes before Wait closes them
	<-done
	<-done
	waitErr := cmd.Wait()
	if srv != nil {
		_ = srv.ch.Close()
		if m, ok := srv.shots.(*Monitor); ok {
			_ = m.Close()
		}
	}

	serr := <-served

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, ErrTimeout
	}
	res := &Result{}
	if srv != nil {
		res.Screenshots = srv.Taken
	}
	if serr != nil && !errors.Is(serr, ErrChannel) && !errors.Is(serr, context.Canceled) {
		res.ExitCode, _ = exitCode(waitErr)
		res.Outcome = qemuexit.Failed
		return res, serr
	}
	res.ExitCode, err = exitCode(waitErr)
	if err != nil {
		return nil, err
	}
	res.Outcome = codes.Decode(res.ExitCode)
	log.WithFields(logrus.Fields{
		"status":  res.ExitCode,
		"outcome": res.Outcome,
	}).Info("efirun: qemu exited")
	return res, nil
}

func startTestChannel(ctx context.Context, c Config, ptys <-chan string) (*Server, error) {
	var path string
	select {
	case p, ok := <-ptys:
		if !ok {
			return nil, errors.New("efirun: qemu did not report the test serial pty")
		}
		path = p
	case <-ctx.Done():
		return nil, ErrTimeout
	}
	ch, err := OpenTTY(path)
	if err != nil {
		return nil, fmt.Errorf("efirun: open test channel: %w", err)
	}
	mon, err := DialMonitor(ctx, c.MonitorSocket())
	if err != nil {
		ch.Close()
		return nil, err
	}
	return NewServer(ch, mon, c.ScreenshotDir, c.WorkDir), nil
}

// exitCode turns the result of Wait into QEMU's exit status.
func exitCode(waitErr error) (int, error) {
	if waitErr == nil {
		return 0, nil
	}
	var ee *exec.ExitError
	if errors.As(waitErr, &ee) && ee.Exited() {
		return ee.ExitCode(), nil
	}
	return -1, fmt.Errorf("efirun: qemu: %w", waitErr)
}

// mirror copies the firmware log to the host log, one record per line.
func mirror(r io.Reader, log *logrus.Entry) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		log.Info(strings.TrimRight(sc.Text(), "\r"))
	}
}

// watchStderr passes on the first pty QEMU reports and logs everything
// else.  ptys is closed when stderr ends.
func watchStderr(r io.Reader, ptys chan<- string, log *logrus.Entry) {
	defer close(ptys)
	sent := false
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if p, ok := parsePTY(line); ok && !sent {
			ptys <- p
			sent = true
			continue
		}
		log.Warn(line)
	}
}
