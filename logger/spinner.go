package logger

import (
	"fmt"
	"sync"
	"time"
)

type Spinner struct {
	Frames  []string
	Message string
	Console *Console

	once    sync.Once
	done    chan struct{}
	stopped chan struct{}
}

func (s *Spinner) Start() {
	if !s.Console.Interactive {
		close(s.stopped)
		return
	}

	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i++ {
			fmt.Fprintf(s.Console.Out, "\r%s %s ", s.Frames[i%len(s.Frames)], s.Message)
			select {
			case <-s.done:
				fmt.Fprint(s.Console.Out, "\r\033[K")
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop halts the animation and waits for the line to be cleared. It is
// safe to call more than once.
func (s *Spinner) Stop() {
	s.once.Do(func() { close(s.done) })
	<-s.stopped
}
