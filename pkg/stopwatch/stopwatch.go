// Package stopwatch implements the on-screen stopwatch.
package stopwatch

import (
	"fmt"
	"sync"
	"time"
)

// Stopwatch measures elapsed time and reports it once per tick while running.
type Stopwatch struct {
	mu       sync.Mutex
	running  bool
	started  time.Time
	elapsed  time.Duration // accumulated before the current run
	stop     chan struct{}
	interval time.Duration
	now      func() time.Time

	onTick func(display string)
}

// New creates a stopped stopwatch ticking once per second.
func New() *Stopwatch {
	return &Stopwatch{
		interval: time.Second,
		now:      time.Now,
	}
}

// OnTick sets the callback invoked with the rendered time on every tick
// and on every state change.
func (s *Stopwatch) OnTick(fn func(display string)) {
	s.mu.Lock()
	s.onTick = fn
	s.mu.Unlock()
}

// Start begins or resumes timing. Starting a running stopwatch is a no-op.
func (s *Stopwatch) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.started = s.now()
	s.stop = make(chan struct{})
	go s.tickLoop(s.stop, s.interval)
	s.mu.Unlock()

	s.notify()
}

// Stop pauses timing, keeping the elapsed time.
func (s *Stopwatch) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.elapsed += s.now().Sub(s.started)
	s.running = false
	close(s.stop)
	s.mu.Unlock()

	s.notify()
}

// Reset stops the stopwatch and clears the elapsed time.
func (s *Stopwatch) Reset() {
	s.mu.Lock()
	if s.running {
		close(s.stop)
		s.running = false
	}
	s.elapsed = 0
	s.mu.Unlock()

	s.notify()
}

// Running reports whether the stopwatch is timing.
func (s *Stopwatch) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Elapsed returns the total measured time.
func (s *Stopwatch) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsedLocked()
}

func (s *Stopwatch) elapsedLocked() time.Duration {
	if s.running {
		return s.elapsed + s.now().Sub(s.started)
	}
	return s.elapsed
}

// String renders the elapsed time as HH:MM:SS.
func (s *Stopwatch) String() string {
	return Format(s.Elapsed())
}

// Format renders d as HH:MM:SS, truncating to whole seconds.
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs/60)%60, secs%60)
}

func (s *Stopwatch) tickLoop(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.notify()
		}
	}
}

func (s *Stopwatch) notify() {
	s.mu.Lock()
	fn := s.onTick
	display := Format(s.elapsedLocked())
	s.mu.Unlock()

	if fn != nil {
		fn(display)
	}
}
