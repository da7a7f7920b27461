package prettytrace

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type point struct {
	X, Y  int
	label string
}

type node struct {
	Next *node
}

type bomb struct{}

func (bomb) String() string {
	panic("boom")
}

func TestFormatBasicValues(t *testing.T) {
	f := NewValueFormatter()

	assert.Equal(t, "1", f.Format(1).Display)
	assert.Equal(t, "true", f.Format(true).Display)
	assert.Equal(t, "1.5", f.Format(1.5).Display)
	assert.Equal(t, `"two"`, f.Format("two").Display)
	assert.Equal(t, "nil", f.Format(nil).Display)
	assert.Equal(t, "[3]", f.Format([]int{3}).Display)
	assert.Equal(t, `"hi"`, f.Format([]byte("hi")).Display)
	assert.Equal(t, "boom", f.Format(errors.New("boom")).Display)
	assert.Equal(t, "<func()>", f.Format(func() {}).Display)
}

func TestFormatStructAndPointer(t *testing.T) {
	f := NewValueFormatter()

	p := point{X: 1, Y: 2, label: "p"}
	assert.Equal(t, `point{X: 1, Y: 2, label: "p"}`, f.Format(p).Display)
	assert.Equal(t, `&point{X: 1, Y: 2, label: "p"}`, f.Format(&p).Display)

	var nothing *point
	assert.Equal(t, "nil", f.Format(nothing).Display)
}

func TestFormatMapIsDeterministic(t *testing.T) {
	f := NewValueFormatter()

	m := map[string]int{"b": 2, "a": 1, "c": 3}
	first := f.Format(m).Display
	assert.Equal(t, `map["a": 1, "b": 2, "c": 3]`, first)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, f.Format(m).Display)
	}
}

func TestFormatTruncatesLongValues(t *testing.T) {
	f := &ValueFormatter{MaxLength: 16, MaxDepth: 4, MaxElems: 32}

	long := f.Format(strings.Repeat("x", 100))
	assert.True(t, long.Truncated)
	assert.True(t, strings.HasSuffix(long.Display, truncationMarker))
	assert.LessOrEqual(t, len(long.Display), 16+len(truncationMarker))

	short := f.Format("ok")
	assert.False(t, short.Truncated)
	assert.Equal(t, `"ok"`, short.Display)
}

func TestFormatCyclicValues(t *testing.T) {
	f := NewValueFormatter()

	n := &node{}
	n.Next = n
	got := f.Format(n)
	assert.False(t, got.FormatErr)
	assert.Contains(t, got.Display, "<cyclic")

	m := map[string]interface{}{}
	m["self"] = m
	got = f.Format(m)
	assert.Contains(t, got.Display, "<cyclic")

	s := make([]interface{}, 1)
	s[0] = s
	got = f.Format(s)
	assert.Contains(t, got.Display, "<cyclic")
}

func TestFormatSharedValuesAreNotCyclic(t *testing.T) {
	shared := &point{X: 1}
	pair := []*point{shared, shared}

	got := NewValueFormatter().Format(pair)
	assert.NotContains(t, got.Display, "<cyclic")
}

func TestFormatUnprintableValue(t *testing.T) {
	got := NewValueFormatter().Format(bomb{})
	assert.True(t, got.FormatErr)
	assert.Contains(t, got.Display, "<unprintable")
	assert.NotEmpty(t, got.Display)
}

func TestFormatDepthBound(t *testing.T) {
	f := &ValueFormatter{MaxLength: 200, MaxDepth: 2, MaxElems: 8}

	deep := []interface{}{[]interface{}{[]interface{}{[]interface{}{1}}}}
	got := f.Format(deep)
	assert.Contains(t, got.Display, "[...]")
}

func TestFormatElemBound(t *testing.T) {
	f := &ValueFormatter{MaxLength: 400, MaxDepth: 4, MaxElems: 3}

	got := f.Format([]int{1, 2, 3, 4, 5})
	assert.Equal(t, "[1, 2, 3, (+2 more)]", got.Display)
}
