package prettytrace

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Sink receives a fully rendered report for delivery. A delivery error is
// handed back to the Interceptor, which logs it and moves on; it is never
// raised in place of the intercepted failure.
type Sink interface {
	Deliver(report string) error
}

// WriterSink delivers reports by writing them to Writer.
type WriterSink struct {
	Writer io.Writer
}

func (s WriterSink) Deliver(report string) error {
	_, err := io.WriteString(s.Writer, report)
	return err
}

// NewConsoleSink returns the default sink, writing reports to stderr.
func NewConsoleSink() WriterSink {
	return WriterSink{Writer: os.Stderr}
}

// LoggerSink delivers a report line by line through a slog.Logger, for
// setups that route diagnostics into an existing logging pipeline. A nil
// Logger falls back to slog.Default.
type LoggerSink struct {
	Logger *slog.Logger
}

func (s LoggerSink) Deliver(report string) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	for _, line := range strings.Split(strings.TrimRight(report, "\n"), "\n") {
		logger.Error(line)
	}
	return nil
}

// TerminalSupportsColor reports whether w is a terminal able to display
// ANSI colors. It is a convenience for callers deciding the color flag.
func TerminalSupportsColor(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
