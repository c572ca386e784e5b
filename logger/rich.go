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

	"github.com/mattn/go-isatty"
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
	White   = "\033[37m"
)

type RichLoggerOptions struct {
	Output           io.Writer
	TimeFormat       string
	Level            slog.Level
	AddSource        bool
	EnableJSON       bool
	EnableColors     bool
	CompactJSON      bool
	EnableSeparators bool
	// Interactive enables carriage-return widgets (progress bar, spinner).
	Interactive bool
}

// DefaultOptions writes to stdout and turns colours and widgets on only
// when stdout is a terminal.
func DefaultOptions() *RichLoggerOptions {
	tty := IsTerminal(os.Stdout)
	return &RichLoggerOptions{
		Level:        slog.LevelInfo,
		EnableColors: tty,
		Interactive:  tty,
		TimeFormat:   "15:04:05",
		Output:       os.Stdout,
		CompactJSON:  true,
	}
}

// IsTerminal reports whether w is a terminal file descriptor.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

type RichHandler struct {
	opts  *RichLoggerOptions
	mu    *sync.Mutex
	attrs []slog.Attr
}

func NewRichHandler(opts *RichLoggerOptions) *RichHandler {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
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
	h2 := &RichHandler{
		opts:  h.opts,
		mu:    h.mu,
		attrs: make([]slog.Attr, 0, len(h.attrs)+len(attrs)),
	}
	h2.attrs = append(h2.attrs, h.attrs...)
	h2.attrs = append(h2.attrs, attrs...)
	return h2
}

// WithGroup is a no-op; console records are flat.
func (h *RichHandler) WithGroup(string) slog.Handler {
	return h
}

func (h *RichHandler) Handle(_ context.Context, record slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.opts.EnableJSON {
		return h.handleJSON(record)
	}

	return h.handleText(record)
}

func (h *RichHandler) handleJSON(record slog.Record) error {
	jsonMap := map[string]any{
		"time":  record.Time.Format(h.opts.TimeFormat),
		"level": record.Level.String(),
		"msg":   stripANSI(record.Message),
	}

	if h.opts.AddSource && record.PC != 0 {
		fs := runtime.CallersFrames([]uintptr{record.PC})
		f, _ := fs.Next()
		jsonMap["source"] = fmt.Sprintf("%s:%d", f.File, f.Line)
	}

	for _, a := range h.attrs {
		jsonMap[a.Key] = a.Value.Any()
	}
	record.Attrs(func(a slog.Attr) bool {
		jsonMap[a.Key] = a.Value.Any()
		return true
	})

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

func (h *RichHandler) handleText(record slog.Record) error {
	var builder strings.Builder

	levelColors := map[slog.Level]string{
		slog.LevelDebug: Cyan,
		slog.LevelInfo:  Green,
		slog.LevelWarn:  Yellow,
		slog.LevelError: Red,
	}

	h.colored(&builder, Blue, record.Time.Format(h.opts.TimeFormat))
	builder.WriteString(" ")
	h.colored(&builder, levelColors[record.Level]+Bold, fmt.Sprintf("%-5s", strings.ToUpper(record.Level.String())))
	builder.WriteString(" ")

	if h.opts.AddSource && record.PC != 0 {
		fs := runtime.CallersFrames([]uintptr{record.PC})
		f, _ := fs.Next()
		sourceFile := f.File
		if lastSlash := strings.LastIndex(sourceFile, "/"); lastSlash >= 0 {
			sourceFile = sourceFile[lastSlash+1:]
		}
		h.colored(&builder, Magenta, fmt.Sprintf("%s:%d", sourceFile, f.Line))
		builder.WriteString(" ")
	}

	builder.WriteString(record.Message)

	writeAttr := func(a slog.Attr) bool {
		builder.WriteString(" ")
		h.colored(&builder, Cyan, a.Key+"=")
		builder.WriteString(a.Value.String())
		return true
	}
	for _, a := range h.attrs {
		writeAttr(a)
	}
	record.Attrs(writeAttr)

	if h.opts.EnableSeparators {
		builder.WriteString("\n")
		h.colored(&builder, Blue, strings.Repeat("─", 80))
	}

	_, err := fmt.Fprintln(h.opts.Output, builder.String())
	return err
}

func (h *RichHandler) colored(b *strings.Builder, color, s string) {
	if h.opts.EnableColors && color != "" {
		b.WriteString(color)
		b.WriteString(s)
		b.WriteString(Reset)
		return
	}
	b.WriteString(s)
}

func stripANSI(s string) string {
	if !strings.Contains(s, "\033[") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\033' && i+1 < len(s) && s[i+1] == '[' {
			j := i + 2
			for j < len(s) && s[j] != 'm' {
				j++
			}
			i = j
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func NewRichLogger(opts *RichLoggerOptions) *slog.Logger {
	return slog.New(NewRichHandler(opts))
}
