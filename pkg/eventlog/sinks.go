package eventlog

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// ConsoleSink writes events as timestamped lines, matching the
// persistent log file format.
type ConsoleSink struct {
	W io.Writer
}

func (s ConsoleSink) Append(ev Event) {
	fmt.Fprintln(s.W, ev.String())
}

// SlogSink forwards events to the process-wide structured logger.
type SlogSink struct{}

func (SlogSink) Append(ev Event) {
	switch ev.Severity {
	case SeverityError:
		slog.Error(ev.Message)
	case SeverityWarning:
		slog.Warn(ev.Message)
	default:
		slog.Info(ev.Message)
	}
}

// FileSink appends events to a rotating log file under the per-user
// application-data log directory.
type FileSink struct {
	out *lumberjack.Logger
}

// NewFileSink creates a rotating file sink in dir.
func NewFileSink(dir string) *FileSink {
	return &FileSink{
		out: &lumberjack.Logger{
			Filename:   filepath.Join(dir, "latest.log"),
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
		},
	}
}

func (s *FileSink) Append(ev Event) {
	fmt.Fprintln(s.out, ev.String())
}

// Close flushes and closes the underlying file.
func (s *FileSink) Close() error {
	return s.out.Close()
}
