package prettytrace

// FrameSnapshot is an immutable capture of one call frame at failure time.
type FrameSnapshot struct {
	Function string
	File     string
	Line     int
	// Bindings holds the frame's locals in the order they were first
	// recorded. It is empty, never missing, for frames without locals.
	Bindings []Binding
}

// Binding pairs a local variable name with its formatted value.
type Binding struct {
	Name  string
	Value FormattedValue
}

const incompleteChainNote = "call frame chain is incomplete; one or more frames were not closed"

// StackWalker reconstructs the ordered frame list of a failed invocation,
// outermost frame first, failure site last.
type StackWalker struct {
	Formatter *ValueFormatter
}

// Walk converts the trace's recorded frames into snapshots. It never fails:
// a malformed chain or an internal fault degrades to the frames
// reconstructed so far plus a non-empty note.
func (w *StackWalker) Walk(tr *Trace) (frames []FrameSnapshot, note string) {
	defer func() {
		if recover() != nil {
			note = "stack walk aborted; the report may be incomplete"
		}
	}()
	formatter := w.Formatter
	if formatter == nil {
		formatter = NewValueFormatter()
	}

	// Frames still on the live stack are outer frames that never closed;
	// the pending chain holds the unwound frames, innermost first.
	for _, fr := range tr.stack {
		frames = append(frames, w.snapshot(fr, formatter))
	}
	for i := len(tr.pending) - 1; i >= 0; i-- {
		frames = append(frames, w.snapshot(tr.pending[i], formatter))
	}
	if len(frames) == 0 {
		frames = append(frames, FrameSnapshot{
			Function: tr.entryFunction,
			File:     tr.entryFile,
			Line:     tr.entryLine,
		})
	}
	if tr.malformed {
		note = incompleteChainNote
	}
	return frames, note
}

func (w *StackWalker) snapshot(fr *Frame, formatter *ValueFormatter) FrameSnapshot {
	snap := FrameSnapshot{
		Function: fr.function,
		File:     fr.file,
		Line:     fr.line,
	}
	for _, key := range fr.vars.Keys() {
		name, ok := key.(string)
		if !ok {
			continue
		}
		value, _ := fr.vars.Get(key)
		snap.Bindings = append(snap.Bindings, Binding{
			Name:  name,
			Value: formatter.Format(value),
		})
	}
	return snap
}
