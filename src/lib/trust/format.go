package trust

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

const (
	fileKey  = "file"
	lineKey  = "line"
	statsKey = "stats"
)

// ConsoleFormatter renders a record as
//
//	[ INFO]:      main.go@042: message key=value
//
// which is narrow enough for an 80 column firmware console.
type ConsoleFormatter struct{}

func (f *ConsoleFormatter) Format(e *logrus.Entry) ([]byte, error) {
	b := e.Buffer
	if b == nil {
		b = &bytes.Buffer{}
	}
	level := levelName(e.Level)
	if cat, ok := e.Data[statsKey]; ok {
		level = "STATS"
		fmt.Fprintf(b, "[%5s:%s]: ", level, cat)
	} else {
		fmt.Fprintf(b, "[%5s]: ", level)
	}
	if file, ok := e.Data[fileKey]; ok {
		fmt.Fprintf(b, "%12s@%03d: ", file, e.Data[lineKey])
	}
	b.WriteString(e.Message)

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		switch k {
		case fileKey, lineKey, statsKey:
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, " %s=%v", k, e.Data[k])
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

func levelName(l logrus.Level) string {
	switch l {
	case logrus.PanicLevel:
		return "PANIC"
	case logrus.FatalLevel:
		return "FATAL"
	case logrus.ErrorLevel:
		return "ERROR"
	case logrus.WarnLevel:
		return "WARN"
	case logrus.InfoLevel:
		return "INFO"
	case logrus.DebugLevel:
		return "DEBUG"
	}
	return "TRACE"
}
