// Package scholar provides the client for the external scholarly index.
package scholar

import (
	"sync"
	"time"
)

// WindowLimiter enforces quota over sliding one-minute and one-hour windows.
// Unlike the HTTP client's token-bucket pacing, it never queues: once either
// window is exhausted, callers fail fast until old requests age out of the
// window. It is safe for concurrent use.
type WindowLimiter struct {
	mu        sync.Mutex
	perMinute int
	perHour   int

	// timestamps holds the send times of requests in the last hour,
	// oldest first. Entries older than one hour are pruned on each call.
	timestamps []time.Time

	// now is overridable for tests.
	now func() time.Time
}

// NewWindowLimiter creates a sliding-window limiter with the given
// per-minute and per-hour quotas.
func NewWindowLimiter(perMinute, perHour int) *WindowLimiter {
	return &WindowLimiter{
		perMinute: perMinute,
		perHour:   perHour,
		now:       time.Now,
	}
}

// Allow records a request if both windows have remaining quota and returns
// true. It returns false without recording when either window is exhausted.
func (w *WindowLimiter) Allow() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.prune(now)

	if w.countSince(now.Add(-time.Minute)) >= w.perMinute {
		return false
	}
	if len(w.timestamps) >= w.perHour {
		return false
	}

	w.timestamps = append(w.timestamps, now)
	return true
}

// Remaining returns the remaining quota in the current minute and hour windows.
func (w *WindowLimiter) Remaining() (minute, hour int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.prune(now)

	minute = w.perMinute - w.countSince(now.Add(-time.Minute))
	if minute < 0 {
		minute = 0
	}
	hour = w.perHour - len(w.timestamps)
	if hour < 0 {
		hour = 0
	}
	return minute, hour
}

// RetryAfter returns how long a caller must wait until the next request
// could be admitted. Zero means a request would be admitted now.
func (w *WindowLimiter) RetryAfter() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.prune(now)

	var wait time.Duration

	if w.countSince(now.Add(-time.Minute)) >= w.perMinute {
		// The minute window clears when its oldest member ages out.
		idx := len(w.timestamps) - w.perMinute
		if idx >= 0 {
			if d := w.timestamps[idx].Add(time.Minute).Sub(now); d > wait {
				wait = d
			}
		}
	}
	if len(w.timestamps) >= w.perHour {
		idx := len(w.timestamps) - w.perHour
		if idx >= 0 {
			if d := w.timestamps[idx].Add(time.Hour).Sub(now); d > wait {
				wait = d
			}
		}
	}

	return wait
}

// prune drops timestamps older than one hour. Callers must hold the mutex.
func (w *WindowLimiter) prune(now time.Time) {
	cutoff := now.Add(-time.Hour)
	i := 0
	for i < len(w.timestamps) && !w.timestamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.timestamps = append(w.timestamps[:0], w.timestamps[i:]...)
	}
}

// countSince counts timestamps after the cutoff. Callers must hold the mutex.
func (w *WindowLimiter) countSince(cutoff time.Time) int {
	// Timestamps are ordered, so scan from the tail.
	n := 0
	for i := len(w.timestamps) - 1; i >= 0; i-- {
		if !w.timestamps[i].After(cutoff) {
			break
		}
		n++
	}
	return n
}
