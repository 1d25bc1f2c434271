package resilience

import (
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// ErrCircuitOpen is returned while the breaker is open so callers can tell
// "upstream is down" apart from an ordinary request failure.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Breaker trips open after a burst of errors within a rolling window and
// rejects calls without attempting I/O until the cool-down elapses. All
// state lives in atomics because fetch units record failures concurrently.
type Breaker struct {
	threshold int64
	window    time.Duration
	cooldown  time.Duration

	failures    atomic.Int64
	windowStart atomic.Int64 // unix nanos
	openUntil   atomic.Int64 // unix nanos
}

func NewBreaker(threshold int, window, cooldown time.Duration) *Breaker {
	b := &Breaker{
		threshold: int64(threshold),
		window:    window,
		cooldown:  cooldown,
	}
	b.windowStart.Store(time.Now().UnixNano())
	return b
}

// Allow reports whether a call may proceed.
func (b *Breaker) Allow() error {
	if time.Now().UnixNano() < b.openUntil.Load() {
		return ErrCircuitOpen
	}
	return nil
}

// Do runs fn under breaker protection. While open it fails fast with
// ErrCircuitOpen without invoking fn.
func (b *Breaker) Do(fn func() error) error {
	if err := b.Allow(); err != nil {
		return err
	}

	if err := fn(); err != nil {
		b.RecordFailure()
		return err
	}

	b.failures.Store(0)
	return nil
}

// RecordFailure bumps the rolling error counter and trips the breaker once
// the threshold is reached inside the current window.
func (b *Breaker) RecordFailure() {
	now := time.Now()

	start := b.windowStart.Load()
	if now.UnixNano()-start > int64(b.window) {
		// a CAS loser means someone else already rotated the window
		if b.windowStart.CompareAndSwap(start, now.UnixNano()) {
			b.failures.Store(0)
		}
	}

	if b.failures.Add(1) >= b.threshold {
		b.openUntil.Store(now.Add(b.cooldown).UnixNano())
		b.failures.Store(0)
	}
}

type Snapshot struct {
	Open      bool      `json:"open"`
	Failures  int64     `json:"failures"`
	OpenUntil time.Time `json:"open_until,omitempty"`
}

func (b *Breaker) State() Snapshot {
	openUntil := b.openUntil.Load()
	snapshot := Snapshot{
		Open:     time.Now().UnixNano() < openUntil,
		Failures: b.failures.Load(),
	}
	if snapshot.Open {
		snapshot.OpenUntil = time.Unix(0, openUntil)
	}
	return snapshot
}
