package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"
)

const (
	Reset   = "\033[0m"
	Bold    = "\033[1m"
	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Blue    = "\033[34m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"
)

type RichLoggerOptions struct {
	Output           io.Writer
	TimeFormat       string
	Level            slog.Level
	AddSource        bool
	EnableJSON       bool
	EnableColors     bool
	TimestampInJSON  bool
	CompactJSON      bool
	EnableSeparators bool
}

// DefaultOptions logs to stderr; stdout is reserved for conversion results.
func DefaultOptions() *RichLoggerOptions {
	return &RichLoggerOptions{
		Level:           slog.LevelInfo,
		AddSource:       false,
		EnableColors:    true,
		TimeFormat:      "2006-01-02 15:04:05.000",
		Output:          os.Stderr,
		TimestampInJSON: true,
		CompactJSON:     true,
	}
}

type RichHandler struct {
	opts   *RichLoggerOptions
	mu     *sync.Mutex
	attrs  []slog.Attr
	groups []string
}

func NewRichHandler(opts *RichLoggerOptions) *RichHandler {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Output == nil {
		opts.Output = os.Stderr
	}

	return &RichHandler{
		opts: opts,
		mu:   &sync.Mutex{},
	}
}

func (h *RichHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level
}

func (h *RichHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := h.clone()
	for _, a := range attrs {
		a.Key = h.prefix() + a.Key
		h2.attrs = append(h2.attrs, a)
	}
	return h2
}

func (h *RichHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := h.clone()
	h2.groups = append(h2.groups, name)
	return h2
}

// clone shares the mutex so that derived handlers never interleave writes.
func (h *RichHandler) clone() *RichHandler {
	return &RichHandler{
		opts:   h.opts,
		mu:     h.mu,
		attrs:  append([]slog.Attr(nil), h.attrs...),
		groups: append([]string(nil), h.groups...),
	}
}

func (h *RichHandler) prefix() string {
	if len(h.groups) == 0 {
		return ""
	}
	return strings.Join(h.groups, ".") + "."
}

// collect returns handler and record attributes in emission order.
func (h *RichHandler) collect(record slog.Record) []slog.Attr {
	attrs := append([]slog.Attr(nil), h.attrs...)
	prefix := h.prefix()
	record.Attrs(func(a slog.Attr) bool {
		a.Key = prefix + a.Key
		attrs = append(attrs, a)
		return true
	})
	return attrs
}

func (h *RichHandler) Handle(ctx context.Context, record slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.opts.EnableJSON {
		return h.handleJSON(ctx, record)
	}

	return h.handleText(ctx, record)
}

func (h *RichHandler) handleJSON(_ context.Context, record slog.Record) error {
	jsonMap := make(map[string]interface{})

	if h.opts.TimestampInJSON {
		jsonMap["time"] = record.Time.Format(h.opts.TimeFormat)
	}

	jsonMap["level"] = record.Level.String()

	if h.opts.AddSource && record.PC != 0 {
		jsonMap["source"] = source(record.PC, false)
	}

	jsonMap["msg"] = record.Message

	for _, a := range h.collect(record) {
		jsonMap[a.Key] = a.Value.Resolve().Any()
	}

	var jsonData []byte
	var err error
	if h.opts.CompactJSON {
		jsonData, err = json.Marshal(jsonMap)
	} else {
		jsonData, err = json.MarshalIndent(jsonMap, "", "  ")
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(h.opts.Output, string(jsonData))
	return err
}

var levelColors = map[slog.Level]string{
	slog.LevelDebug: Cyan,
	slog.LevelInfo:  Green,
	slog.LevelWarn:  Yellow,
	slog.LevelError: Red,
}

func (h *RichHandler) handleText(_ context.Context, record slog.Record) error {
	var builder strings.Builder

	paint := func(color, s string) {
		if h.opts.EnableColors && color != "" {
			builder.WriteString(color)
			builder.WriteString(s)
			builder.WriteString(Reset)
			return
		}
		builder.WriteString(s)
	}

	paint(Blue, record.Time.Format(h.opts.TimeFormat))
	builder.WriteString(" ")

	paint(levelColors[record.Level]+Bold, fmt.Sprintf("%-5s", strings.ToUpper(record.Level.String())))
	builder.WriteString(" ")

	if h.opts.AddSource && record.PC != 0 {
		paint(Magenta, source(record.PC, true))
		builder.WriteString(" ")
	}

	builder.WriteString(record.Message)

	for _, a := range h.collect(record) {
		builder.WriteString(" ")
		paint(Cyan, a.Key+"=")
		builder.WriteString(a.Value.Resolve().String())
	}

	if h.opts.EnableSeparators {
		builder.WriteString("\n")
		paint(Blue, strings.Repeat("─", 80))
	}

	_, err := fmt.Fprintln(h.opts.Output, builder.String())
	return err
}

func source(pc uintptr, short bool) string {
	fs := runtime.CallersFrames([]uintptr{pc})
	f, _ := fs.Next()
	file := f.File
	if short {
		if lastSlash := strings.LastIndex(file, "/"); lastSlash >= 0 {
			file = file[lastSlash+1:]
		}
	}
	return fmt.Sprintf("%s:%d", file, f.Line)
}

func NewRichLogger(opts *RichLoggerOptions) *slog.Logger {
	if opts == nil {
		opts = DefaultOptions()
	}
	return slog.New(NewRichHandler(opts))
}
