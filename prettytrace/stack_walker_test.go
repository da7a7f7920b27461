package prettytrace

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func descend(tr *Trace, remaining int) (err error) {
	fr := tr.Enter(fmt.Sprintf("level%d", remaining))
	defer fr.End(&err)
	fr.Set("remaining", remaining)
	if remaining == 1 {
		return errors.New("bottom")
	}
	return descend(tr, remaining-1)
}

func TestWalkFrameCountMatchesCallDepth(t *testing.T) {
	for _, depth := range []int{1, 2, 5} {
		tr := newTrace()
		require.Error(t, descend(tr, depth))

		frames, note := (&StackWalker{}).Walk(tr)
		assert.Empty(t, note)
		require.Len(t, frames, depth)
		assert.Equal(t, fmt.Sprintf("level%d", depth), frames[0].Function)
		assert.Equal(t, "level1", frames[len(frames)-1].Function)
	}
}

func TestWalkKeepsBindingOrder(t *testing.T) {
	tr := newTrace()
	fn := func() (err error) {
		fr := tr.Enter("fn")
		defer fr.End(&err)
		fr.Set("x", 1)
		fr.Set("y", 2)
		fr.Set("x", 3) // rebinding keeps position, last value wins
		return errors.New("boom")
	}
	require.Error(t, fn())

	frames, note := (&StackWalker{}).Walk(tr)
	assert.Empty(t, note)
	require.Len(t, frames, 1)
	require.Len(t, frames[0].Bindings, 2)
	assert.Equal(t, "x", frames[0].Bindings[0].Name)
	assert.Equal(t, "3", frames[0].Bindings[0].Value.Display)
	assert.Equal(t, "y", frames[0].Bindings[1].Name)
	assert.Equal(t, "2", frames[0].Bindings[1].Value.Display)
}

func TestWalkKeepsFramesWithoutBindings(t *testing.T) {
	tr := newTrace()
	inner := func() (err error) {
		fr := tr.Enter("inner")
		defer fr.End(&err)
		fr.Set("x", 1)
		return errors.New("boom")
	}
	middle := func() (err error) {
		fr := tr.Enter("middle") // records no locals
		defer fr.End(&err)
		return inner()
	}
	require.Error(t, middle())

	frames, _ := (&StackWalker{}).Walk(tr)
	require.Len(t, frames, 2)
	assert.Equal(t, "middle", frames[0].Function)
	assert.Empty(t, frames[0].Bindings)
	assert.Equal(t, "inner", frames[1].Function)
	assert.Len(t, frames[1].Bindings, 1)
}

func TestWalkMalformedChainAddsNote(t *testing.T) {
	tr := newTrace()
	outer := tr.Enter("outer")
	tr.Enter("inner") // never closed
	boom := errors.New("boom")
	outer.End(&boom)

	frames, note := (&StackWalker{}).Walk(tr)
	assert.NotEmpty(t, note)
	require.NotEmpty(t, frames)
	assert.Equal(t, "outer", frames[len(frames)-1].Function)
}

func TestWalkSynthesizesEntryFrame(t *testing.T) {
	tr := newTrace()
	tr.setEntry(reflect.ValueOf(TestWalkSynthesizesEntryFrame).Pointer())

	frames, note := (&StackWalker{}).Walk(tr)
	assert.Empty(t, note)
	require.Len(t, frames, 1)
	assert.Contains(t, frames[0].Function, "TestWalkSynthesizesEntryFrame")
	assert.Empty(t, frames[0].Bindings)
}

func TestWalkUnendedRootFrameIsReported(t *testing.T) {
	tr := newTrace()
	fr := tr.Enter("root")
	fr.Set("a", 1)

	frames, note := (&StackWalker{}).Walk(tr)
	assert.Empty(t, note)
	require.Len(t, frames, 1)
	assert.Equal(t, "root", frames[0].Function)
	assert.Len(t, frames[0].Bindings, 1)
}
