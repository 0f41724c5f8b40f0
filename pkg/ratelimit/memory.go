package ratelimit

import (
	"context"
	"sync"
	"time"
)

const cleanupEvery = 1024

// InMemoryRateLimiter keeps, per key, the timestamps of admitted events that
// are still inside the window. State lives in the process only.
type InMemoryRateLimiter struct {
	requests int
	window   time.Duration
	clock    Clock

	mu      sync.Mutex
	windows map[string][]time.Time
	ops     uint64
}

func NewInMemoryRateLimiter(requests int, window time.Duration, opts ...Option) *InMemoryRateLimiter {
	o := buildOptions(opts)
	return &InMemoryRateLimiter{
		requests: requests,
		window:   window,
		clock:    o.clock,
		windows:  make(map[string][]time.Time),
	}
}

func (r *InMemoryRateLimiter) GetLimitDetails() (int, time.Duration) {
	return r.requests, r.window
}

func (r *InMemoryRateLimiter) IsLimited(_ context.Context, key string) (bool, error) {
	if key == "" {
		key = "__empty__"
	}

	now := r.clock()
	cutoff := now.Add(-r.window)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.ops++
	if r.ops%cleanupEvery == 0 {
		r.sweep(cutoff)
	}

	stamps := prune(r.windows[key], cutoff)
	if len(stamps) >= r.requests {
		r.windows[key] = stamps
		return true, nil
	}

	r.windows[key] = append(stamps, now)
	return false, nil
}

// Cleanup evicts every key whose window holds no live timestamps.
func (r *InMemoryRateLimiter) Cleanup() {
	cutoff := r.clock().Add(-r.window)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweep(cutoff)
}

// Len returns the number of tracked keys.
func (r *InMemoryRateLimiter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.windows)
}

func (r *InMemoryRateLimiter) Close() error {
	return nil
}

// sweep must be called with mu held.
func (r *InMemoryRateLimiter) sweep(cutoff time.Time) {
	for key, stamps := range r.windows {
		stamps = prune(stamps, cutoff)
		if len(stamps) == 0 {
			delete(r.windows, key)
			continue
		}
		r.windows[key] = stamps
	}
}

// prune drops timestamps at or before cutoff. Timestamps are appended in
// clock order, so the live ones form a suffix.
func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return stamps
	}
	return append(stamps[:0], stamps[i:]...)
}
