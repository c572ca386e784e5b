package logger

import "time"

type Timer struct {
	StartTime time.Time
	Name      string
	Console   *Console
}

// End logs and returns the time elapsed since the timer started.
func (t *Timer) End() time.Duration {
	duration := time.Since(t.StartTime)
	t.Console.Info("%s finished in %s", t.Name, FormatDuration(duration))
	return duration
}
