// Package clock provides a swappable notion of "now", so process start and
// exit timestamps (internal/process) can be tested without sleeping.
package clock

import "time"

// Clock abstracts time.Now and time.After.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}
