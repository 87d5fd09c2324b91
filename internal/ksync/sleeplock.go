// Package ksync provides the kernel's sleep-lock and condition-variable
// primitives: the Go stand-ins for the spinlock-plus-wait-channel pairs
// that guard shared kernel state, tracking the owner of each held lock
// so misuse turns into a loud panic instead of silent corruption.
package ksync

import (
	"github.com/jacobsa/syncutil"

	"github.com/gokernel/kernel/internal/logger"
)

// SleepLock is a mutex that records its holder, so double-acquire and
// wrong-owner release are caught immediately instead of deadlocking or
// corrupting state silently. It is built on syncutil.InvariantMutex
// rather than a bare sync.Mutex so the "no owner left dangling past
// Release" invariant is checked by the mutex itself on every unlock,
// instead of relying on Acquire/Release getting it right by hand.
type SleepLock struct {
	Name string

	mu    syncutil.InvariantMutex
	owner any
}

// NewSleepLock returns a free lock identified by name, used only in log
// and panic messages.
func NewSleepLock(name string) *SleepLock {
	l := &SleepLock{Name: name}
	l.mu = syncutil.NewInvariantMutex(l.checkInvariants)
	return l
}

// checkInvariants runs on every Unlock. By the time Release calls
// Unlock it has already cleared owner, and Acquire never calls Unlock
// at all, so this invariant must hold at every point it actually runs.
func (l *SleepLock) checkInvariants() {
	if l.owner != nil {
		logger.Fatalf("ksync: %s: unlocked with owner still recorded as %v", l.Name, l.owner)
	}
}

// Acquire blocks until the lock is free and then marks owner as holding
// it. Acquiring a lock already held by owner is a kernel bug.
func (l *SleepLock) Acquire(owner any) {
	// Checked before Lock: the mutex isn't reentrant, so if owner already
	// holds it this goroutine is the only one that could have set
	// l.owner, and calling Lock here would deadlock instead of panicking.
	if l.owner == owner {
		logger.Fatalf("ksync: %s: recursive acquire by %v", l.Name, owner)
	}
	l.mu.Lock()
	l.owner = owner
}

// Release hands the lock back. Releasing a lock you don't hold is a
// kernel bug.
func (l *SleepLock) Release(owner any) {
	if l.owner != owner {
		logger.Fatalf("ksync: %s: release by %v, held by %v", l.Name, owner, l.owner)
	}
	l.owner = nil
	l.mu.Unlock()
}

// HeldByMe reports whether owner currently holds the lock.
func (l *SleepLock) HeldByMe(owner any) bool {
	return l.owner == owner
}
