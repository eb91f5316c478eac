// Package report renders the operator-facing progress report of a purge run.
//
// The report is separate from the structured log: the log is for machines,
// the report is what the operator reads while deciding whether to hit Ctrl+C.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/gookit/color"
	"github.com/mattn/go-runewidth"
)

// Width is the column width of banner rules.
const Width = 70

// Level classifies a report line.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Sink receives report output.
type Sink interface {
	// Banner prints title framed between two rules.
	Banner(title string)
	// Rule prints a single horizontal rule.
	Rule()
	// Emit prints one message line.
	Emit(level Level, msg string)
	// KeyValues prints a titled, aligned key/value block in insertion order.
	KeyValues(title string, kv *orderedmap.OrderedMap[string, string])
	// Blank prints an empty line.
	Blank()
}

// Emitf is a printf-style helper over Sink.Emit.
func Emitf(s Sink, level Level, format string, args ...interface{}) {
	s.Emit(level, fmt.Sprintf(format, args...))
}

// Console writes the report to a terminal or any io.Writer.
type Console struct {
	w       io.Writer
	colored bool
}

var _ Sink = (*Console)(nil)

// NewConsole creates a Console. When colored is false no escape codes are
// written, which is what pipes and log files want.
func NewConsole(w io.Writer, colored bool) *Console {
	return &Console{w: w, colored: colored}
}

func (c *Console) println(s string) {
	fmt.Fprintln(c.w, s)
}

// Rule implements Sink.
func (c *Console) Rule() {
	c.println(strings.Repeat("=", Width))
}

// Banner implements Sink.
func (c *Console) Banner(title string) {
	c.Rule()
	line := Center(title, Width)
	if c.colored {
		line = color.Bold.Sprint(line)
	}
	c.println(line)
	c.Rule()
}

// Emit implements Sink.
func (c *Console) Emit(level Level, msg string) {
	line := prefix(level) + msg
	if c.colored {
		line = paint(level, line)
	}
	c.println(line)
}

// KeyValues implements Sink.
func (c *Console) KeyValues(title string, kv *orderedmap.OrderedMap[string, string]) {
	if title != "" {
		c.println(title)
	}

	keyWidth := 0
	for el := kv.Front(); el != nil; el = el.Next() {
		if w := runewidth.StringWidth(el.Key); w > keyWidth {
			keyWidth = w
		}
	}
	for el := kv.Front(); el != nil; el = el.Next() {
		key := runewidth.FillRight(el.Key+":", keyWidth+1)
		if c.colored {
			key = color.Cyan.Sprint(key)
		}
		c.println("   " + key + " " + el.Value)
	}
}

// Blank implements Sink.
func (c *Console) Blank() {
	c.println("")
}

// Center pads s on the left so it sits in the middle of width display
// columns. Emoji count as two columns.
func Center(s string, width int) string {
	w := runewidth.StringWidth(s)
	if w >= width {
		return s
	}
	return strings.Repeat(" ", (width-w)/2) + s
}

func prefix(level Level) string {
	switch level {
	case LevelSuccess:
		return "✅ "
	case LevelWarn:
		return "⚠️  "
	case LevelError:
		return "❌ "
	default:
		return ""
	}
}

func paint(level Level, s string) string {
	switch level {
	case LevelSuccess:
		return color.Green.Sprint(s)
	case LevelWarn:
		return color.Yellow.Sprint(s)
	case LevelError:
		return color.Red.Sprint(s)
	default:
		return s
	}
}
