package infra

import (
	"time"
)

const (
	// Standard backoff constants
	baseDelay = 1 * time.Second
	maxDelay  = 60 * time.Second
)

// TransientRetryDelay is the fixed sleep applied after a transient
// fetch failure before the caller may try the same page again.
var TransientRetryDelay = 5 * time.Second

// CalculateBackoff returns the exponential backoff duration for a given retry count.
// Logic: baseDelay * 2^retryCount, capped at maxDelay.
// If retryCount is negative, it returns baseDelay.
// Used by the session watcher when the platform keeps failing liveness
// checks, so a dead connection does not get hammered every tick.
func CalculateBackoff(retryCount int) time.Duration {
	if retryCount < 0 {
		return baseDelay
	}

	// 2^30 already exceeds maxDelay by far; cap early to avoid shifting
	// into overflow territory.
	if retryCount > 30 {
		return maxDelay
	}

	backoff := baseDelay * time.Duration(1<<retryCount)

	if backoff > maxDelay {
		return maxDelay
	}

	return backoff
}

// Sleep waits for d or until done is closed, whichever comes first.
// Batch loops pass their cancellation channel so a torn-down UI panel
// never keeps a worker sleeping.
func Sleep(d time.Duration, done <-chan struct{}) bool {
	if done == nil {
		time.Sleep(d)
		return true
	}
	select {
	case <-time.After(d):
		return true
	case <-done:
		return false
	}
}
