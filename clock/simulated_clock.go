package clock

import (
	"sync"
	"time"
)

// pendingWake is one outstanding After call waiting for the simulated
// clock to reach its target time.
type pendingWake struct {
	targetTime time.Time
	ch         chan time.Time
}

// SimulatedClock is the Clock internal/process's tests run a Table
// against: time only moves when AdvanceTime or SetTime is called, so a
// process's StartedAt and ExitedAt can be asserted against an exact
// value instead of a fuzzy "recently" window. The zero value starts at
// the zero time.
type SimulatedClock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []*pendingWake
}

// NewSimulatedClock returns a clock frozen at startTime.
func NewSimulatedClock(startTime time.Time) *SimulatedClock {
	return &SimulatedClock{now: startTime}
}

// Now returns the clock's current frozen time.
func (sc *SimulatedClock) Now() time.Time {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.now
}

// SetTime jumps the clock directly to t, firing any After calls whose
// target time has now been reached or passed.
func (sc *SimulatedClock) SetTime(t time.Time) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.now = t
	sc.wake()
}

// AdvanceTime moves the clock forward by d, firing any After calls
// whose target time has now been reached or passed.
func (sc *SimulatedClock) AdvanceTime(d time.Duration) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.now = sc.now.Add(d)
	sc.wake()
}

// After returns a channel that receives the simulated target time once
// the clock has advanced d past its current time — immediately, if d
// is zero or negative.
func (sc *SimulatedClock) After(d time.Duration) <-chan time.Time {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	ch := make(chan time.Time, 1)
	target := sc.now.Add(d)
	if !target.After(sc.now) {
		ch <- sc.now
		return ch
	}

	sc.waiters = append(sc.waiters, &pendingWake{targetTime: target, ch: ch})
	return ch
}

// wake fires every waiter whose target time the clock has now reached
// or passed. Callers must hold sc.mu.
func (sc *SimulatedClock) wake() {
	remaining := sc.waiters[:0]
	for _, w := range sc.waiters {
		if !sc.now.Before(w.targetTime) {
			w.ch <- w.targetTime
			continue
		}
		remaining = append(remaining, w)
	}
	sc.waiters = remaining
}
