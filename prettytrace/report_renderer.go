package prettytrace

import (
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

// Color roles of a report, following the classic traceback styling: file
// path on a green background, line number and function name in bright
// yellow, the failing source line and the failure summary in red.
var (
	fileStyle     = color.New(color.Bold, color.BgGreen)
	lineNumStyle  = color.New(color.Bold, color.FgYellow)
	functionStyle = color.New(color.Bold, color.FgYellow)
	sourceStyle   = color.New(color.Bold, color.FgRed)
	varNameStyle  = color.New(color.FgCyan)
	summaryStyle  = color.New(color.Bold, color.FgRed)
	noteStyle     = color.New(color.Faint)
)

func init() {
	// Styling must not depend on whether output happens to be a terminal;
	// the renderer's ColorEnabled flag is the only switch.
	styles := []*color.Color{
		fileStyle, lineNumStyle, functionStyle, sourceStyle,
		varNameStyle, summaryStyle, noteStyle,
	}
	for _, c := range styles {
		c.EnableColor()
	}
}

// ReportRenderer assembles the final report text. Rendering is
// deterministic: identical frames and summary produce identical bytes, and
// disabling color removes the escape sequences without touching the layout.
type ReportRenderer struct {
	ColorEnabled bool
}

// Render produces one section per frame, outermost first, followed by an
// optional note and the failure summary.
func (r *ReportRenderer) Render(frames []FrameSnapshot, summary string, note string) string {
	var b strings.Builder
	source := newSourceCache()
	for _, frame := range frames {
		b.WriteString(`  File "`)
		b.WriteString(r.paint(fileStyle, frame.File))
		b.WriteString(`", line `)
		b.WriteString(r.paint(lineNumStyle, strconv.Itoa(frame.Line)))
		b.WriteString(", in ")
		b.WriteString(r.paint(functionStyle, frame.Function))
		b.WriteString("\n")
		if line := source.Line(frame.File, frame.Line); line != "" {
			b.WriteString("    ")
			b.WriteString(r.paint(sourceStyle, line))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		for _, binding := range frame.Bindings {
			b.WriteString("    ")
			b.WriteString(r.paint(varNameStyle, binding.Name))
			b.WriteString(" = ")
			b.WriteString(binding.Value.Display)
			b.WriteString("\n")
		}
		if len(frame.Bindings) > 0 {
			b.WriteString("\n")
		}
	}
	if note != "" {
		b.WriteString("  ")
		b.WriteString(r.paint(noteStyle, "("+note+")"))
		b.WriteString("\n")
	}
	b.WriteString(r.paint(summaryStyle, summary))
	b.WriteString("\n")
	return b.String()
}

func (r *ReportRenderer) paint(style *color.Color, s string) string {
	if !r.ColorEnabled {
		return s
	}
	return style.Sprint(s)
}

// sourceCache lazily loads source files so each frame can show the line it
// was executing, the way interpreter tracebacks do. Unreadable files simply
// omit the excerpt. The cache lives for a single render.
type sourceCache struct {
	files map[string][]string
}

func newSourceCache() *sourceCache {
	return &sourceCache{files: make(map[string][]string)}
}

func (c *sourceCache) Line(file string, line int) string {
	if file == "" || line <= 0 {
		return ""
	}
	lines, ok := c.files[file]
	if !ok {
		if data, err := os.ReadFile(file); err == nil {
			lines = strings.Split(string(data), "\n")
		}
		c.files[file] = lines
	}
	if line > len(lines) {
		return ""
	}
	return strings.TrimSpace(lines[line-1])
}
