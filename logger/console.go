package logger

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

type Console struct {
	Logger      *slog.Logger
	Out         io.Writer
	Colorized   bool
	Interactive bool
}

func NewConsole(opts *RichLoggerOptions) *Console {
	if opts == nil {
		opts = DefaultOptions()
	}
	logger := NewRichLogger(opts)

	return &Console{
		Logger:      logger,
		Out:         opts.Output,
		Colorized:   opts.EnableColors && !opts.EnableJSON,
		Interactive: opts.Interactive && !opts.EnableJSON,
	}
}

// Discard returns a console that drops everything. Used by tests.
func Discard() *Console {
	return NewConsole(&RichLoggerOptions{Output: io.Discard, TimeFormat: time.TimeOnly})
}

func (c *Console) StartTimer(name string) *Timer {
	return &Timer{
		Name:      name,
		StartTime: time.Now(),
		Console:   c,
	}
}

func (c *Console) Success(format string, args ...any) {
	c.Logger.Info(c.paint(Green+Bold, "✓ "+fmt.Sprintf(format, args...)))
}

func (c *Console) Info(format string, args ...any) {
	c.Logger.Info(c.paint(Blue+Bold, "ℹ "+fmt.Sprintf(format, args...)))
}

func (c *Console) Log(format string, args ...any) {
	c.Logger.Info(c.paint(White, fmt.Sprintf(format, args...)))
}

func (c *Console) Warn(format string, args ...any) {
	c.Logger.Warn(c.paint(Yellow+Bold, "⚠ "+fmt.Sprintf(format, args...)))
}

func (c *Console) Error(format string, args ...any) {
	c.Logger.Error(c.paint(Red+Bold, "✖ "+fmt.Sprintf(format, args...)))
}

func (c *Console) paint(color, msg string) string {
	if !c.Colorized {
		return msg
	}
	return color + msg + Reset
}

func (c *Console) StartSpinner(message string) *Spinner {
	s := &Spinner{
		Message: message,
		Frames:  []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		Console: c,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}

	s.Start()
	return s
}

func (c *Console) NewProgressBar(total int64, label string) *ProgressBar {
	return NewProgressBar(total, label, c.Out, c.Interactive)
}

func (c *Console) NewTable(headers []string) *Table {
	return NewTable(headers, c.Out)
}

// Box prints content framed by a titled border. Output bypasses the
// structured logger.
func (c *Console) Box(title string, content string) {
	lines := strings.Split(content, "\n")
	maxWidth := len(title)

	for _, line := range lines {
		if len(line) > maxWidth {
			maxWidth = len(line)
		}
	}

	maxWidth += 4

	fmt.Fprintln(c.Out, "┌─"+title+"─"+strings.Repeat("─", maxWidth-len(title)-2)+"┐")
	for _, line := range lines {
		fmt.Fprintln(c.Out, "│ "+line+strings.Repeat(" ", maxWidth-len(line))+" │")
	}
	fmt.Fprintln(c.Out, "└"+strings.Repeat("─", maxWidth+2)+"┘")
}
