package ksync

import (
	"sync"

	"github.com/jacobsa/syncutil"
)

// CondVar is a condition variable that releases a caller-supplied
// SleepLock while the calling goroutine waits, then reacquires it on
// wake — mirroring cv_wait's lock-release/acquire contract. Its
// internal mutex is a syncutil.InvariantMutex like SleepLock's, even
// though a condition variable has no state of its own worth checking,
// so every lock in this package is built on the same invariant-checked
// primitive rather than mixing it with a bare sync.Mutex.
type CondVar struct {
	Name string

	mu   syncutil.InvariantMutex
	cond *sync.Cond
}

// NewCondVar returns a condition variable identified by name.
func NewCondVar(name string) *CondVar {
	cv := &CondVar{Name: name}
	cv.mu = syncutil.NewInvariantMutex(func() {})
	cv.cond = sync.NewCond(&cv.mu)
	return cv
}

// Wait releases lock, blocks until Signal or Broadcast wakes this
// goroutine, then reacquires lock before returning. owner must already
// hold lock.
func (cv *CondVar) Wait(lock *SleepLock, owner any) {
	cv.mu.Lock()
	lock.Release(owner)
	cv.cond.Wait()
	cv.mu.Unlock()
	lock.Acquire(owner)
}

// Signal wakes one goroutine blocked in Wait, if any.
func (cv *CondVar) Signal() {
	cv.mu.Lock()
	cv.cond.Signal()
	cv.mu.Unlock()
}

// Broadcast wakes every goroutine blocked in Wait.
func (cv *CondVar) Broadcast() {
	cv.mu.Lock()
	cv.cond.Broadcast()
	cv.mu.Unlock()
}
