package logger

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

type Console struct {
	Logger    *slog.Logger
	Output    io.Writer
	Colorized bool
}

func NewConsole(opts *RichLoggerOptions) *Console {
	if opts == nil {
		opts = DefaultOptions()
	}

	return &Console{
		Logger:    NewRichLogger(opts),
		Output:    opts.Output,
		Colorized: opts.EnableColors && !opts.EnableJSON,
	}
}

func (c *Console) StartTimer(name string) *Timer {
	return &Timer{
		Name:      name,
		StartTime: time.Now(),
		Console:   c,
	}
}

func (c *Console) Success(format string, args ...interface{}) {
	msg := "✓ " + fmt.Sprintf(format, args...)
	if c.Colorized {
		msg = Green + Bold + msg + Reset
	}
	c.Logger.Info(msg)
}

func (c *Console) Info(format string, args ...interface{}) {
	msg := "ℹ " + fmt.Sprintf(format, args...)
	if c.Colorized {
		msg = Blue + Bold + msg + Reset
	}
	c.Logger.Info(msg)
}

// Debug logs msg with structured attributes, e.g.
// c.Debug("converted", "input", in, "bytes", n).
func (c *Console) Debug(msg string, attrs ...any) {
	c.Logger.Debug(msg, attrs...)
}

func (c *Console) Warn(format string, args ...interface{}) {
	msg := "⚠ " + fmt.Sprintf(format, args...)
	if c.Colorized {
		msg = Yellow + Bold + msg + Reset
	}
	c.Logger.Warn(msg)
}

func (c *Console) Error(format string, args ...interface{}) {
	msg := "✖ " + fmt.Sprintf(format, args...)
	if c.Colorized {
		msg = Red + Bold + msg + Reset
	}
	c.Logger.Error(msg)
}

func (c *Console) NewTable(headers []string) *Table {
	return NewTable(headers, c.Output)
}

// Box draws content inside a titled frame.
func Box(w io.Writer, title string, content string) {
	lines := strings.Split(content, "\n")
	maxWidth := len(title)

	for _, line := range lines {
		if len(line) > maxWidth {
			maxWidth = len(line)
		}
	}

	maxWidth += 4

	fmt.Fprintln(w, "┌─"+title+strings.Repeat("─", maxWidth+1-len(title))+"┐")

	for _, line := range lines {
		fmt.Fprintln(w, "│ "+line+strings.Repeat(" ", maxWidth-len(line))+" │")
	}

	fmt.Fprintln(w, "└"+strings.Repeat("─", maxWidth+2)+"┘")
}
