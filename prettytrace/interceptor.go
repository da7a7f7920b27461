package prettytrace

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/hashicorp/go-multierror"
)

// CallFunc is the calling convention of a wrapped unit of work. The Trace
// argument is the invocation's recording context; passing nil to a wrapped
// callable starts a fresh invocation.
type CallFunc func(tr *Trace) error

// ErrReported marks a failure that was reported and then absorbed because
// re-raising was disabled. Callers tell it apart from a genuine success
// with errors.Is.
var ErrReported = errors.New("prettytrace: failure reported and suppressed")

// Interceptor wraps callables and turns their failures into rendered
// reports. It holds only fixed configuration, so a single wrapped callable
// may be invoked concurrently; every invocation gets its own Trace and
// Report.
type Interceptor struct {
	sinks          []Sink
	colorEnabled   bool
	reraise        bool
	maxValueLength int
	maxDepth       int
	logger         *slog.Logger
}

// New returns an Interceptor with the default configuration: reports go to
// the console in color and the original failure is re-raised after
// reporting.
func New() Interceptor {
	return Interceptor{
		sinks:          []Sink{NewConsoleSink()},
		colorEnabled:   true,
		reraise:        true,
		maxValueLength: DefaultMaxValueLength,
		maxDepth:       DefaultMaxDepth,
		logger:         slog.Default(),
	}
}

// WithSinks replaces the set of delivery sinks. Reports are delivered in
// the given order, one attempt per sink.
func (i Interceptor) WithSinks(sinks ...Sink) Interceptor {
	i.sinks = sinks
	return i
}

// WithColor toggles ANSI color in rendered reports.
func (i Interceptor) WithColor(enabled bool) Interceptor {
	i.colorEnabled = enabled
	return i
}

// WithMaxValueLength sets the display budget for a single variable value.
func (i Interceptor) WithMaxValueLength(n int) Interceptor {
	if n <= 0 {
		panic("prettytrace: max value length must be positive")
	}
	i.maxValueLength = n
	return i
}

// WithMaxDepth sets the traversal depth budget for composite values.
func (i Interceptor) WithMaxDepth(n int) Interceptor {
	if n <= 0 {
		panic("prettytrace: max depth must be positive")
	}
	i.maxDepth = n
	return i
}

// WithReraise controls whether the original failure propagates after the
// report is delivered. When disabled, the call returns ErrReported instead.
func (i Interceptor) WithReraise(enabled bool) Interceptor {
	i.reraise = enabled
	return i
}

// WithLogger sets the logger used to record sink delivery failures.
func (i Interceptor) WithLogger(logger *slog.Logger) Interceptor {
	i.logger = logger
	return i
}

// Wrap returns a callable with the same calling convention that reports any
// failure of fn before letting it propagate. The normal return path passes
// through untouched.
func (i Interceptor) Wrap(fn CallFunc) CallFunc {
	return func(tr *Trace) error {
		return i.call(tr, fn)
	}
}

// Call wraps fn and invokes it immediately with a fresh Trace.
func (i Interceptor) Call(fn CallFunc) error {
	return i.call(nil, fn)
}

func (i Interceptor) call(tr *Trace, fn CallFunc) (err error) {
	if tr == nil {
		tr = newTrace()
	}
	tr.setEntry(reflect.ValueOf(fn).Pointer())
	defer func() {
		r := recover()
		if r == nil && err == nil {
			return
		}
		report := i.buildReport(tr, r, err)
		i.deliver(report.Text)
		if !i.reraise {
			err = ErrReported
			return
		}
		if r != nil {
			panic(r)
		}
	}()
	err = fn(tr)
	return err
}

// buildReport runs the stack walk and the renderer. A fault on this
// diagnostic path must never mask the intercepted failure, so it degrades
// to a minimal fallback report.
func (i Interceptor) buildReport(tr *Trace, panicValue interface{}, err error) (report *Report) {
	summary := failureSummary(panicValue, err)
	defer func() {
		if r := recover(); r != nil {
			report = &Report{
				Summary: summary,
				Text:    fmt.Sprintf("Error generating error report.\n%v [%s]\n", r, summary),
			}
		}
	}()
	walker := StackWalker{Formatter: &ValueFormatter{
		MaxLength: i.maxValueLength,
		MaxDepth:  i.maxDepth,
		MaxElems:  DefaultMaxElems,
	}}
	frames, note := walker.Walk(tr)
	renderer := ReportRenderer{ColorEnabled: i.colorEnabled}
	report = &Report{Frames: frames, Summary: summary, Note: note}
	report.Text = renderer.Render(report.Frames, report.Summary, report.Note)
	return report
}

// failureSummary combines the failure's category and message.
func failureSummary(panicValue interface{}, err error) string {
	if panicValue != nil {
		return fmt.Sprintf("panic: %v", panicValue)
	}
	return fmt.Sprintf("%T: %v", err, err)
}

// deliver pushes the rendered text to every sink in configuration order.
// Delivery failures are collected and logged, never raised; one failing
// sink does not keep the next one from receiving its report.
func (i Interceptor) deliver(text string) {
	var errs *multierror.Error
	for _, sink := range i.sinks {
		if err := i.deliverOne(sink, text); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		logger := i.logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("report delivery failed", "error", err)
	}
}

// deliverOne guards against sinks that panic instead of returning an error.
func (i Interceptor) deliverOne(sink Sink, text string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panic: %v", r)
		}
	}()
	return sink.Deliver(text)
}
