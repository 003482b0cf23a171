// Package trust is the firmware-side logger.  Records are formatted by logrus
// and written to whatever console writer was installed, normally the
// firmware's text output protocol.  Until Install is called (and after
// Uninstall) every logging call is a silent no-op, so code that may run
// before the bootstrap, or during a panic, can log unconditionally.
package trust

import (
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

type MaskLevel int

const (
	Nothing   MaskLevel = 0x0
	ErrorMask MaskLevel = 0x1
	WarnMask  MaskLevel = 0x2
	InfoMask  MaskLevel = 0x4
	DebugMask MaskLevel = 0x8
	StatsMask MaskLevel = 0x10
	fatalMask MaskLevel = 0x80
)

// DefaultMask is what a freshly installed logger prints.
const DefaultMask = ErrorMask | WarnMask | InfoMask | StatsMask

// Logger pairs a logrus logger with a mask and the writer it prints to.
type Logger struct {
	log   *logrus.Logger
	out   io.Writer
	level MaskLevel
}

// NewLogger returns a logger that formats records for a firmware console.
func NewLogger(out io.Writer) *Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&ConsoleFormatter{})
	l.SetLevel(logrus.TraceLevel)
	return &Logger{log: l, out: out, level: DefaultMask | fatalMask}
}

var current *Logger

// exitHook is how Fatalf terminates; the bootstrap points it at its exit path.
var exitHook func(code uint64)

// Install makes l the process logger and returns the previous one.
func Install(l *Logger) *Logger {
	prev := current
	current = l
	return prev
}

// Uninstall flushes and removes the process logger.
func Uninstall() *Logger {
	prev := current
	if prev != nil {
		_ = prev.Flush()
	}
	current = nil
	return prev
}

// Live reports whether a logger is installed.
func Live() bool {
	return current != nil
}

func Current() *Logger {
	return current
}

// SetExitHook sets the function Fatalf calls after logging.
func SetExitHook(f func(code uint64)) {
	exitHook = f
}

// SetLevel sets the mask of the installed logger directly.  You can pass in
// something like ErrorMask | DebugMask to control exactly what gets printed.
// It returns the previous mask.
func SetLevel(mask MaskLevel) MaskLevel {
	if current == nil {
		return Nothing
	}
	return current.SetLevel(mask)
}

func Level() MaskLevel {
	if current == nil {
		return Nothing
	}
	return current.Level()
}

func LevelToString() string {
	return maskString(Level())
}

func (l *Logger) SetLevel(mask MaskLevel) MaskLevel {
	if mask&0x1f == 0 {
		l.emit(2, WarnMask, nil, "trust.SetLevel is turning off log messages")
	}
	prev := l.level &^ fatalMask
	l.level = mask | fatalMask
	return prev
}

func (l *Logger) Level() MaskLevel {
	return l.level &^ fatalMask
}

// Flush pushes out anything the console writer buffers.
func (l *Logger) Flush() error {
	if f, ok := l.out.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

func maskString(level MaskLevel) string {
	var parts []string
	if level&ErrorMask > 0 {
		parts = append(parts, "error")
	}
	if level&WarnMask > 0 {
		parts = append(parts, "warn")
	}
	if level&InfoMask > 0 {
		parts = append(parts, "info")
	}
	if level&DebugMask > 0 {
		parts = append(parts, "debug")
	}
	if level&StatsMask > 0 {
		parts = append(parts, "stats")
	}
	return strings.Join(parts, " ")
}

func logrusLevel(l MaskLevel) logrus.Level {
	switch {
	case l&fatalMask > 0:
		return logrus.FatalLevel
	case l&ErrorMask > 0:
		return logrus.ErrorLevel
	case l&WarnMask > 0:
		return logrus.WarnLevel
	case l&DebugMask > 0:
		return logrus.DebugLevel
	}
	return logrus.InfoLevel
}

// emit logs one record.  depth counts the frames between the user's call
// and emit.
func (l *Logger) emit(depth int, mask MaskLevel, fields logrus.Fields, format string, params ...interface{}) {
	if l.level&mask == 0 {
		return
	}
	data := logrus.Fields{}
	for k, v := range fields {
		data[k] = v
	}
	if _, file, line, ok := runtime.Caller(depth); ok {
		data[fileKey] = filepath.Base(file)
		data[lineKey] = line
	}
	format = strings.TrimSuffix(format, "\n")
	l.log.WithFields(data).Logf(logrusLevel(mask), format, params...)
}

func logf(mask MaskLevel, fields logrus.Fields, format string, params ...interface{}) {
	if current == nil {
		return
	}
	current.emit(3, mask, fields, format, params...)
}

// FatalError is the panic value of a Fatalf that had no exit hook to call,
// or whose hook returned.
type FatalError struct {
	Code    int
	Message string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("trust: fatal (exit code %d): %s", e.Code, e.Message)
}

// Fatalf prints the given log message and then exits with the exitCode
// provided.  Fatalf is not maskable and does not return: without an exit
// hook it panics with a *FatalError.
func Fatalf(exitCode int, format string, params ...interface{}) {
	logf(fatalMask, nil, format, params...)
	if current != nil {
		_ = current.Flush()
	}
	if exitHook != nil {
		exitHook(uint64(exitCode))
	}
	panic(&FatalError{Code: exitCode, Message: strings.TrimSuffix(fmt.Sprintf(format, params...), "\n")})
}

// Errorf prints the given log message (format + params) using the ErrorMask level.
func Errorf(format string, params ...interface{}) {
	logf(ErrorMask, nil, format, params...)
}

// Warnf prints the given log message (format + params) using the WarnMask level.
func Warnf(format string, params ...interface{}) {
	logf(WarnMask, nil, format, params...)
}

// Infof prints the given log message (format + params) using the InfoMask level.
func Infof(format string, params ...interface{}) {
	logf(InfoMask, nil, format, params...)
}

// Debugf prints the given log message (format + params) using the DebugMask level.
func Debugf(format string, params ...interface{}) {
	logf(DebugMask, nil, format, params...)
}

// Statsf prints the given log message using the StatsMask level and takes an
// extra parameter that will be visible in the log message as the category
// of stats that is reported.
func Statsf(category string, format string, params ...interface{}) {
	logf(StatsMask, logrus.Fields{statsKey: category}, format, params...)
}

// Entry carries structured fields for a single record.
type Entry struct {
	fields logrus.Fields
}

// With starts a record with one field attached.
func With(key string, value interface{}) Entry {
	return Entry{fields: logrus.Fields{key: value}}
}

func (e Entry) With(key string, value interface{}) Entry {
	f := make(logrus.Fields, len(e.fields)+1)
	for k, v := range e.fields {
		f[k] = v
	}
	f[key] = value
	return Entry{fields: f}
}

func (e Entry) Errorf(format string, params ...interface{}) {
	logf(ErrorMask, e.fields, format, params...)
}

func (e Entry) Warnf(format string, params ...interface{}) {
	logf(WarnMask, e.fields, format, params...)
}

func (e Entry) Infof(format string, params ...interface{}) {
	logf(InfoMask, e.fields, format, params...)
}

func (e Entry) Debugf(format string, params ...interface{}) {
	logf(DebugMask, e.fields, format, params...)
}
