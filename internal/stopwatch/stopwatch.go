// Package stopwatch is a drift-free elapsed time counter.
package stopwatch

import (
	"context"
	"sync"
	"time"
)

type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
)

// Stopwatch derives elapsed time from the clock on every read, so it never
// accumulates per-tick error.
type Stopwatch struct {
	now func() time.Time

	mu      sync.Mutex
	running bool
	start   time.Time
	frozen  time.Duration
}

func New() *Stopwatch {
	return NewWithClock(time.Now)
}

// NewWithClock uses now as the time source. time.Now carries a monotonic reading.
func NewWithClock(now func() time.Time) *Stopwatch {
	return &Stopwatch{now: now}
}

// Start runs the stopwatch, resuming from the frozen time of a previous run.
func (s *Stopwatch) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.start = s.now().Add(-s.frozen)
	s.running = true
}

// Stop freezes and returns the elapsed time.
func (s *Stopwatch) Stop() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.frozen = s.now().Sub(s.start)
		s.running = false
	}
	return s.frozen
}

// Reset stops the stopwatch and zeroes it.
func (s *Stopwatch) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running = false
	s.frozen = 0
}

func (s *Stopwatch) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return s.now().Sub(s.start)
	}
	return s.frozen
}

func (s *Stopwatch) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return StateRunning
	}
	return StateIdle
}

// Watch samples the elapsed time every interval until ctx is done.
// A slow reader only ever sees the latest sample.
func (s *Stopwatch) Watch(ctx context.Context, interval time.Duration) <-chan time.Duration {
	out := make(chan time.Duration, 1)

	go func() {
		defer close(out)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		offer(out, s.Elapsed())
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				offer(out, s.Elapsed())
			}
		}
	}()

	return out
}

func offer(ch chan time.Duration, v time.Duration) {
	select {
	case ch <- v:
		return
	default:
	}

	select {
	case <-ch:
	default:
	}

	select {
	case ch <- v:
	default:
	}
}
