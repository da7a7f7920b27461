package prettytrace

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Default formatting budgets. They bound both the work and the output size
// of a single Format call.
const (
	DefaultMaxValueLength = 160
	DefaultMaxDepth       = 4
	DefaultMaxElems       = 16
)

// truncationMarker terminates a display string that exceeded the length budget.
const truncationMarker = "..."

// FormattedValue is the bounded display form of a single variable.
type FormattedValue struct {
	// Display is never empty; when FormatErr is set it holds a placeholder.
	Display string
	// Truncated reports that the full representation exceeded the length budget.
	Truncated bool
	// FormatErr reports that the value's own textual conversion failed.
	FormatErr bool
}

// ValueFormatter converts arbitrary runtime values into bounded display
// strings. Format is total: it terminates on cyclic values and absorbs
// panics raised by a value's own String or Error method.
type ValueFormatter struct {
	MaxLength int
	MaxDepth  int
	MaxElems  int
}

// NewValueFormatter returns a formatter with the default budgets.
func NewValueFormatter() *ValueFormatter {
	return &ValueFormatter{
		MaxLength: DefaultMaxValueLength,
		MaxDepth:  DefaultMaxDepth,
		MaxElems:  DefaultMaxElems,
	}
}

// Format renders value within the configured budgets.
func (f *ValueFormatter) Format(value interface{}) (out FormattedValue) {
	defer func() {
		if recover() != nil {
			out = FormattedValue{
				Display:   fmt.Sprintf("<unprintable %T>", value),
				FormatErr: true,
			}
		}
	}()
	st := &formatState{
		b:        &strings.Builder{},
		maxLen:   f.maxLength(),
		maxDepth: f.maxDepth(),
		maxElems: f.maxElems(),
		visited:  make(map[visit]bool),
	}
	st.writeValue(reflect.ValueOf(value), 0)

	display := st.b.String()
	truncated := false
	if len(display) > st.maxLen {
		cut := st.maxLen
		for cut > 0 && !utf8.RuneStart(display[cut]) {
			cut--
		}
		display = display[:cut] + truncationMarker
		truncated = true
	}
	if display == "" {
		display = "nil"
	}
	return FormattedValue{Display: display, Truncated: truncated, FormatErr: st.errored}
}

func (f *ValueFormatter) maxLength() int {
	if f.MaxLength > 0 {
		return f.MaxLength
	}
	return DefaultMaxValueLength
}

func (f *ValueFormatter) maxDepth() int {
	if f.MaxDepth > 0 {
		return f.MaxDepth
	}
	return DefaultMaxDepth
}

func (f *ValueFormatter) maxElems() int {
	if f.MaxElems > 0 {
		return f.MaxElems
	}
	return DefaultMaxElems
}

// visit identifies a composite value on the current traversal path.
type visit struct {
	ptr uintptr
	typ reflect.Type
}

type formatState struct {
	b        *strings.Builder
	maxLen   int
	maxDepth int
	maxElems int
	visited  map[visit]bool
	errored  bool
}

// full reports that the builder already exceeds the length budget, so
// further traversal would only produce bytes the final cut discards.
func (st *formatState) full() bool {
	return st.b.Len() > st.maxLen
}

func (st *formatState) writeValue(v reflect.Value, depth int) {
	if st.full() {
		return
	}
	if !v.IsValid() {
		st.b.WriteString("nil")
		return
	}
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			st.b.WriteString("nil")
			return
		}
		st.writeValue(v.Elem(), depth)
		return
	}
	if s, ok := st.stringify(v); ok {
		st.b.WriteString(s)
		return
	}

	switch v.Kind() {
	case reflect.Bool:
		st.b.WriteString(strconv.FormatBool(v.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		st.b.WriteString(strconv.FormatInt(v.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		st.b.WriteString(strconv.FormatUint(v.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		st.b.WriteString(strconv.FormatFloat(v.Float(), 'g', -1, v.Type().Bits()))
	case reflect.Complex64, reflect.Complex128:
		st.b.WriteString(strconv.FormatComplex(v.Complex(), 'g', -1, v.Type().Bits()))
	case reflect.String:
		st.b.WriteString(strconv.Quote(v.String()))
	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		// Addresses would make reports nondeterministic, the type is enough.
		st.b.WriteString("<" + v.Type().String() + ">")
	case reflect.Ptr:
		st.writePointer(v, depth)
	case reflect.Slice, reflect.Array:
		st.writeSequence(v, depth)
	case reflect.Map:
		st.writeMap(v, depth)
	case reflect.Struct:
		st.writeStruct(v, depth)
	default:
		st.b.WriteString(v.Type().String())
	}
}

func (st *formatState) writePointer(v reflect.Value, depth int) {
	if v.IsNil() {
		st.b.WriteString("nil")
		return
	}
	if st.enter(v) {
		st.b.WriteString(cyclicPlaceholder(v.Type()))
		return
	}
	defer st.leave(v)
	st.b.WriteString("&")
	st.writeValue(v.Elem(), depth)
}

func (st *formatState) writeSequence(v reflect.Value, depth int) {
	if v.Kind() == reflect.Slice {
		if v.IsNil() {
			st.b.WriteString("nil")
			return
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			st.b.WriteString(strconv.Quote(string(v.Bytes())))
			return
		}
		if st.enter(v) {
			st.b.WriteString(cyclicPlaceholder(v.Type()))
			return
		}
		defer st.leave(v)
	}
	if depth >= st.maxDepth {
		st.b.WriteString("[...]")
		return
	}
	st.b.WriteString("[")
	n := v.Len()
	for i := 0; i < n; i++ {
		if st.full() {
			break
		}
		if i > 0 {
			st.b.WriteString(", ")
		}
		if i == st.maxElems {
			st.b.WriteString("(+" + strconv.Itoa(n-i) + " more)")
			break
		}
		st.writeValue(v.Index(i), depth+1)
	}
	st.b.WriteString("]")
}

func (st *formatState) writeMap(v reflect.Value, depth int) {
	if v.IsNil() {
		st.b.WriteString("nil")
		return
	}
	if st.enter(v) {
		st.b.WriteString(cyclicPlaceholder(v.Type()))
		return
	}
	defer st.leave(v)
	if depth >= st.maxDepth {
		st.b.WriteString("map[...]")
		return
	}

	// Map iteration order is random; sort entries by their formatted key so
	// identical maps always render identically.
	type entry struct {
		key string
		val reflect.Value
	}
	keys := v.MapKeys()
	entries := make([]entry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, entry{key: st.capture(k, depth+1), val: v.MapIndex(k)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	st.b.WriteString("map[")
	for i, e := range entries {
		if st.full() {
			break
		}
		if i > 0 {
			st.b.WriteString(", ")
		}
		if i == st.maxElems {
			st.b.WriteString("(+" + strconv.Itoa(len(entries)-i) + " more)")
			break
		}
		st.b.WriteString(e.key)
		st.b.WriteString(": ")
		st.writeValue(e.val, depth+1)
	}
	st.b.WriteString("]")
}

func (st *formatState) writeStruct(v reflect.Value, depth int) {
	t := v.Type()
	name := t.Name()
	if name == "" {
		name = t.String()
	}
	if depth >= st.maxDepth {
		st.b.WriteString(name + "{...}")
		return
	}
	st.b.WriteString(name + "{")
	for i := 0; i < t.NumField(); i++ {
		if st.full() {
			break
		}
		if i > 0 {
			st.b.WriteString(", ")
		}
		if i == st.maxElems {
			st.b.WriteString("(+" + strconv.Itoa(t.NumField()-i) + " more)")
			break
		}
		st.b.WriteString(t.Field(i).Name)
		st.b.WriteString(": ")
		st.writeValue(v.Field(i), depth+1)
	}
	st.b.WriteString("}")
}

// capture renders v into a separate buffer, for pieces that must be
// inspected before being appended (map keys that need sorting).
func (st *formatState) capture(v reflect.Value, depth int) string {
	old := st.b
	st.b = &strings.Builder{}
	st.writeValue(v, depth)
	s := st.b.String()
	st.b = old
	return s
}

// stringify uses a value's own error or Stringer conversion when it has
// one. The call is guarded: a panic inside the value's method is absorbed
// into a placeholder instead of propagating.
func (st *formatState) stringify(v reflect.Value) (string, bool) {
	if !v.CanInterface() {
		return "", false
	}
	if v.Kind() == reflect.Ptr && v.IsNil() {
		return "", false
	}
	switch x := v.Interface().(type) {
	case error:
		return st.safeCall(v.Type(), x.Error)
	case fmt.Stringer:
		return st.safeCall(v.Type(), x.String)
	}
	return "", false
}

// safeCall runs a value's own textual conversion. This is the one place a
// failure is deliberately absorbed rather than propagated.
func (st *formatState) safeCall(typ reflect.Type, call func() string) (s string, ok bool) {
	defer func() {
		if recover() != nil {
			st.errored = true
			s, ok = "<unprintable "+typ.String()+">", true
		}
	}()
	return call(), true
}

// enter marks a composite value as being on the traversal path. It reports
// true when the value is already on the path, i.e. a cycle.
func (st *formatState) enter(v reflect.Value) bool {
	key := visit{ptr: v.Pointer(), typ: v.Type()}
	if st.visited[key] {
		return true
	}
	st.visited[key] = true
	return false
}

func (st *formatState) leave(v reflect.Value) {
	delete(st.visited, visit{ptr: v.Pointer(), typ: v.Type()})
}

func cyclicPlaceholder(typ reflect.Type) string {
	return "<cyclic " + typ.String() + ">"
}
