package core

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyComparisons is returned when no comparison slot frees up within
// the limiter's wait time.
var ErrTooManyComparisons = errors.New("too many concurrent comparisons, please try again later")

const (
	DefaultMaxConcurrentComparisons = 4
	DefaultMaxWaitTime              = 30 * time.Second
)

// ComparisonLimiter caps how many comparison requests run at once. Each
// request already fans out over the engine's worker pool, so the cap is on
// requests, not pairs.
type ComparisonLimiter struct {
	slots   chan struct{}
	maxWait time.Duration

	mu     sync.Mutex
	active int
	idle   chan struct{} // closed while active == 0
}

// NewComparisonLimiter allows maxConcurrent requests and makes others wait
// up to maxWait. Non-positive values select the defaults.
func NewComparisonLimiter(maxConcurrent int, maxWait time.Duration) *ComparisonLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentComparisons
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	idle := make(chan struct{})
	close(idle)
	return &ComparisonLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
		idle:    idle,
	}
}

// Acquire takes a slot for one comparison. The returned release func frees
// it; calling release more than once is harmless.
//
// It fails with ErrTooManyComparisons after maxWait, or with ctx's error if
// the caller gives up first.
func (l *ComparisonLimiter) Acquire(ctx context.Context) (release func(), err error) {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrTooManyComparisons
	}

	l.mu.Lock()
	if l.active == 0 {
		l.idle = make(chan struct{})
	}
	l.active++
	l.mu.Unlock()

	var once sync.Once
	return func() { once.Do(l.release) }, nil
}

func (l *ComparisonLimiter) release() {
	l.mu.Lock()
	l.active--
	if l.active == 0 {
		close(l.idle)
	}
	l.mu.Unlock()
	<-l.slots
}

// WaitForDrain blocks until no comparison holds a slot or ctx is done.
// Used by graceful shutdown.
func (l *ComparisonLimiter) WaitForDrain(ctx context.Context) error {
	l.mu.Lock()
	idle := l.idle
	l.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LimiterStatus is what /healthz and the admin dashboard show.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns a snapshot of slot usage.
func (l *ComparisonLimiter) Status() LimiterStatus {
	l.mu.Lock()
	active := l.active
	l.mu.Unlock()
	return LimiterStatus{
		Active:        active,
		Available:     cap(l.slots) - active,
		MaxConcurrent: cap(l.slots),
	}
}
