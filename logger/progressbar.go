package logger

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// ProgressBar redraws a single line with carriage returns. When the
// output is not interactive every call is a no-op so logs stay clean.
type ProgressBar struct {
	startTime time.Time
	mu        sync.Mutex
	out       io.Writer
	label     string
	total     int64
	current   int64
	width     int
	enabled   bool
	complete  bool
}

func NewProgressBar(total int64, label string, out io.Writer, enabled bool) *ProgressBar {
	return &ProgressBar{
		total:     total,
		width:     40,
		label:     label,
		startTime: time.Now(),
		out:       out,
		enabled:   enabled && total > 0,
	}
}

func (p *ProgressBar) Increment(amount int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current += amount
	if p.current > p.total {
		p.current = p.total
	}

	p.render()
}

func (p *ProgressBar) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.complete {
		return
	}

	p.current = p.total
	p.render()
	p.complete = true
	if p.enabled {
		fmt.Fprintln(p.out)
	}
}

func (p *ProgressBar) render() {
	if p.complete || !p.enabled {
		return
	}

	percent := float64(p.current) / float64(p.total) * 100
	filled := int(float64(p.width) * float64(p.current) / float64(p.total))

	elapsed := time.Since(p.startTime)
	var eta time.Duration
	if p.current > 0 {
		eta = time.Duration(float64(elapsed) * float64(p.total-p.current) / float64(p.current))
	}

	fmt.Fprintf(p.out, "\r%s [%s%s] %3.0f%% %d/%d ETA: %s ",
		p.label,
		strings.Repeat("█", filled),
		strings.Repeat("░", p.width-filled),
		percent,
		p.current,
		p.total,
		FormatDuration(eta),
	)
}

// FormatDuration renders d as 1h02m03s, 2m03s or 3s.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return "0s"
	}

	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
