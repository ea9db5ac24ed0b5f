package webdav

import (
	"context"
	"sync"
	"time"

	"github.com/flashnote/syncd/internal/metrics"
	"golang.org/x/sync/semaphore"
)

// Limiter enforces the transport-shaping rules from spec §4.1:
//   - at most 3 requests in flight at once
//   - at least 200ms between the start of consecutive requests
//   - a 2s cooldown every 50 requests
//   - a hard cap of 600 requests in any rolling 30-minute window
//
// It is grounded on the teacher's TokenBucket (internal/httpapi/ratelimit.go)
// but reshaped around a concurrency semaphore plus a rolling window, since
// this transport throttles itself as a client rather than rejecting inbound
// callers.
type Limiter struct {
	sem *semaphore.Weighted

	mu           sync.Mutex
	lastStart    time.Time
	requestCount uint64
	window       []time.Time // start times within the rolling window, oldest first
}

const (
	maxConcurrent = 3
	minSpacing    = 200 * time.Millisecond
	cooldownEvery = 50
	cooldownFor   = 2 * time.Second
	windowSize    = 30 * time.Minute
	windowMaxReqs = 600
)

func NewLimiter() *Limiter {
	return &Limiter{sem: semaphore.NewWeighted(maxConcurrent)}
}

// Acquire blocks until the request is clear to proceed under every rule
// above, then returns a release func the caller must call exactly once.
func (l *Limiter) Acquire(ctx context.Context) (func(), error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	if err := l.waitTurn(ctx); err != nil {
		l.sem.Release(1)
		return nil, err
	}

	released := false
	return func() {
		if !released {
			released = true
			l.sem.Release(1)
		}
	}, nil
}

func (l *Limiter) waitTurn(ctx context.Context) error {
	for {
		wait, ok := l.tryReserve()
		if ok {
			return nil
		}
		metrics.RateLimitBlockedSeconds.Add(wait.Seconds())
		if err := sleepCtx(ctx, wait); err != nil {
			return err
		}
	}
}

// tryReserve reports the wait duration needed (if any) before a slot is
// free, or ok=true if the caller may proceed now (and has been recorded).
func (l *Limiter) tryReserve() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.pruneWindow(now)

	if wait := minSpacing - now.Sub(l.lastStart); l.requestCount > 0 && wait > 0 {
		return wait, false
	}

	if len(l.window) >= windowMaxReqs {
		oldest := l.window[0]
		return oldest.Add(windowSize).Sub(now), false
	}

	if l.requestCount > 0 && l.requestCount%cooldownEvery == 0 {
		if wait := cooldownFor - now.Sub(l.lastStart); wait > 0 {
			return wait, false
		}
	}

	l.lastStart = now
	l.requestCount++
	l.window = append(l.window, now)
	return 0, true
}

func (l *Limiter) pruneWindow(now time.Time) {
	cutoff := now.Add(-windowSize)
	i := 0
	for ; i < len(l.window); i++ {
		if l.window[i].After(cutoff) {
			break
		}
	}
	l.window = l.window[i:]
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
