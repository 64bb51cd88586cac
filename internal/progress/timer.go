// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package progress provides the elapsed-time counter shown while a research
// run executes. The timer ticks on its own goroutine and never influences
// stage sequencing.
package progress

import (
	"sync"
	"time"
)

// DefaultResolution is the tick interval used when none is configured.
const DefaultResolution = 100 * time.Millisecond

// Timer measures wall-clock time since Begin at a fixed resolution.
type Timer struct {
	resolution time.Duration
	onTick     func(time.Duration)
	now        func() time.Time

	mu      sync.Mutex
	start   time.Time
	elapsed time.Duration
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// Option customizes a Timer.
type Option func(*Timer)

// WithResolution sets the tick interval.
func WithResolution(d time.Duration) Option {
	return func(t *Timer) {
		if d > 0 {
			t.resolution = d
		}
	}
}

// WithTick registers fn to receive the elapsed time on every tick. fn runs
// on the timer goroutine and must not block.
func WithTick(fn func(time.Duration)) Option {
	return func(t *Timer) { t.onTick = fn }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Timer) { t.now = now }
}

// New returns a stopped Timer.
func New(opts ...Option) *Timer {
	t := &Timer{resolution: DefaultResolution, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Begin resets the counter to zero and starts ticking. Calling Begin on a
// running timer restarts it.
func (t *Timer) Begin() {
	t.Stop()

	t.mu.Lock()
	t.start = t.now()
	t.elapsed = 0
	t.running = true
	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	stop, done := t.stop, t.done
	t.mu.Unlock()

	go t.run(stop, done)
}

func (t *Timer) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(t.resolution)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.mu.Lock()
			if !t.running {
				t.mu.Unlock()
				return
			}
			t.elapsed = t.now().Sub(t.start).Truncate(t.resolution)
			e := t.elapsed
			t.mu.Unlock()
			if t.onTick != nil {
				t.onTick(e)
			}
		}
	}
}

// Stop halts the timer, waits for the ticking goroutine to exit, and returns
// the final elapsed time. Stop on a stopped timer returns the last value.
func (t *Timer) Stop() time.Duration {
	t.mu.Lock()
	if !t.running {
		e := t.elapsed
		t.mu.Unlock()
		return e
	}
	t.running = false
	t.elapsed = t.now().Sub(t.start)
	e := t.elapsed
	stop, done := t.stop, t.done
	t.mu.Unlock()

	close(stop)
	<-done
	return e
}

// Elapsed returns the current counter value.
func (t *Timer) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.elapsed
}

// Running reports whether the timer is ticking.
func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}
