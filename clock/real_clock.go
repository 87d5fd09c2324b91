package clock

import "time"

// RealClock is the Clock a booted kernel runs against: process
// StartedAt/ExitedAt timestamps (internal/process) and console-device
// latency waits (internal/syscalls) are both measured against actual
// wall-clock time.
type RealClock struct{}

// Now returns the current wall-clock time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// After fires on the returned channel once d has actually elapsed,
// the way a real device interrupt would wake a blocked thread.
func (RealClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}
