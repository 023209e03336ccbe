// Package clock abstracts time so that deadlines, TTLs and debounce
// windows can be driven deterministically in tests.
package clock

import "time"

// Clock is the subset of the time package used by the search layer.
// Production code takes Real(); tests take Fake().
type Clock interface {
	Now() time.Time

	// After returns a channel that receives the time once d has elapsed.
	// If d <= 0 the channel is ready immediately.
	After(d time.Duration) <-chan time.Time

	// AfterFunc calls f once d has elapsed. The returned Timer cancels
	// the pending call.
	AfterFunc(d time.Duration, f func()) *Timer
}

// Timer cancels a pending AfterFunc call.
type Timer struct {
	stopFunc func() bool
}

// Stop prevents the timer from firing. It reports whether the call
// stopped the timer (false if it already fired or was stopped).
func (t *Timer) Stop() bool {
	if t == nil || t.stopFunc == nil {
		return false
	}
	return t.stopFunc()
}
