// Package prettytrace intercepts failures of wrapped units of work and
// renders readable, color-coded reports showing every call frame together
// with the local variables recorded at that frame.
package prettytrace

import (
	"runtime"
	"strings"

	"github.com/emirpasic/gods/maps/linkedhashmap"
)

const unknownFunction = "<unknown>"

// Trace records the call frames of a single wrapped invocation. It is
// created by the Interceptor, handed to the wrapped callable and discarded
// when the invocation finishes. A Trace belongs to exactly one invocation
// and must not be shared between goroutines.
type Trace struct {
	stack     []*Frame // live frames, outermost first
	pending   []*Frame // unwound failure chain, innermost frame first
	malformed bool

	entryFunction string
	entryFile     string
	entryLine     int
}

func newTrace() *Trace {
	return &Trace{}
}

// Enter opens a new frame for the calling function and captures the call
// site as the frame's initial location. An empty function name is derived
// from the caller. The returned frame must be closed with a deferred End.
func (tr *Trace) Enter(function string) *Frame {
	fr := &Frame{
		trace:    tr,
		function: function,
		depth:    len(tr.stack),
		vars:     linkedhashmap.New(),
	}
	if pc, file, line, ok := runtime.Caller(1); ok {
		fr.file = file
		fr.line = line
		if fr.function == "" {
			fr.function = functionName(pc)
		}
	}
	if fr.function == "" {
		fr.function = unknownFunction
	}
	tr.stack = append(tr.stack, fr)
	return fr
}

// setEntry remembers the wrapped callable's identity so a report can be
// produced even when the callable recorded no frames of its own.
func (tr *Trace) setEntry(pc uintptr) {
	if f := runtime.FuncForPC(pc); f != nil {
		tr.entryFunction = functionName(pc)
		tr.entryFile, tr.entryLine = f.FileLine(pc)
	}
	if tr.entryFunction == "" {
		tr.entryFunction = unknownFunction
	}
}

// fail moves fr from the live stack onto the pending failure chain. A
// failing frame that is not an ancestor of the chain recorded so far starts
// a fresh chain: the earlier failure was handled and is superseded.
func (tr *Trace) fail(fr *Frame) {
	tr.pop(fr)
	if n := len(tr.pending); n > 0 && tr.pending[n-1].depth <= fr.depth {
		tr.pending = tr.pending[:0]
	}
	tr.pending = append(tr.pending, fr)
}

func (tr *Trace) finish(fr *Frame) {
	tr.pop(fr)
}

// pop removes fr from the live stack. Frames above fr were entered but
// never closed; dropping them marks the trace so the report carries a note.
func (tr *Trace) pop(fr *Frame) {
	for i := len(tr.stack) - 1; i >= 0; i-- {
		if tr.stack[i] == fr {
			if i != len(tr.stack)-1 {
				tr.malformed = true
			}
			tr.stack = tr.stack[:i]
			return
		}
	}
	tr.malformed = true
}

// Frame is the live recording of one activation record. Locals recorded
// with Set are kept in first-binding order; rebinding a name overwrites its
// value in place, so a report shows the value at failure time.
type Frame struct {
	trace    *Trace
	function string
	file     string
	line     int
	depth    int
	vars     *linkedhashmap.Map
}

// Set records the current value of a local variable and moves the frame's
// location to the recording point. It returns the frame so calls can chain.
func (fr *Frame) Set(name string, value interface{}) *Frame {
	if _, file, line, ok := runtime.Caller(1); ok {
		fr.file = file
		fr.line = line
	}
	fr.vars.Put(name, value)
	return fr
}

// End closes the frame and must be called in a defer statement. errp may be
// nil for functions without an error result. When the function is unwinding
// with a failure the frame joins the trace's failure chain and the failure
// keeps propagating; otherwise the frame is discarded.
func (fr *Frame) End(errp *error) {
	if r := recover(); r != nil {
		fr.trace.fail(fr)
		panic(r)
	}
	if errp != nil && *errp != nil {
		fr.trace.fail(fr)
		return
	}
	fr.trace.finish(fr)
}

func functionName(pc uintptr) string {
	f := runtime.FuncForPC(pc)
	if f == nil {
		return ""
	}
	name := f.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name
}
