// Package process implements P: the process table and the per-process
// object that owns a file table, an address space, a working
// directory, and the condition variable + lock pair used for
// wait/exit rendezvous between a process and its waiting parent.
package process

import (
	"sync"
	"time"

	"github.com/gokernel/kernel/clock"
	"github.com/gokernel/kernel/internal/addrspace"
	"github.com/gokernel/kernel/internal/fdtable"
	"github.com/gokernel/kernel/internal/ksync"
	"github.com/gokernel/kernel/internal/vfs"
)

// NoParent is the sentinel parent pid for an orphaned or root process.
const NoParent = -1

// Process is one process-table entry: status, parent pid, child list,
// file table, address space, cwd, thread count, and the wait
// lock/condvar pair used solely for rendezvous with a waiting parent.
type Process struct {
	Name string
	Pid  int

	AddrSpace *addrspace.AddressSpace
	Cwd       *vfs.Vnode
	FDTable   *fdtable.Table

	// StartedAt and ExitedAt are taken from the table's clock rather
	// than time.Now directly, so ps-style reporting and lifetime tests
	// can run against a clock.SimulatedClock instead of real sleeps.
	StartedAt time.Time
	ExitedAt  time.Time

	waitLock *ksync.SleepLock
	waitCV   *ksync.CondVar
	clk      clock.Clock

	mu          sync.Mutex
	parentPid   int
	children    []int
	threadCount int
	exited      bool
	exitStatus  int

	scratchMu     sync.Mutex
	scratchOffset int64
}

// AllocScratch reserves n bytes of low address-space addresses for
// staging a syscall argument or buffer, returning the base address.
// It is a bump allocator standing in for the portion of a real user
// heap the kernel never actually needs to manage on the process's
// behalf — only syscall dispatchers stage data here.
func (p *Process) AllocScratch(n int) int64 {
	p.scratchMu.Lock()
	defer p.scratchMu.Unlock()
	addr := p.scratchOffset
	p.scratchOffset += int64(n)
	return addr
}

func newProcess(name string, pid int, clk clock.Clock) *Process {
	return &Process{
		Name:      name,
		Pid:       pid,
		parentPid: NoParent,
		waitLock:  ksync.NewSleepLock(name + ".wait"),
		waitCV:    ksync.NewCondVar(name + ".wait-cv"),
		clk:       clk,
	}
}

// ParentPid returns the process's parent pid, or NoParent.
func (p *Process) ParentPid() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.parentPid
}

func (p *Process) setParentPid(pid int) {
	p.mu.Lock()
	p.parentPid = pid
	p.mu.Unlock()
}

// Children returns a snapshot of the process's child pid list.
func (p *Process) Children() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]int, len(p.children))
	copy(out, p.children)
	return out
}

func (p *Process) addChild(pid int) {
	p.mu.Lock()
	p.children = append(p.children, pid)
	p.mu.Unlock()
}

func (p *Process) removeChild(pid int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, c := range p.children {
		if c == pid {
			p.children = append(p.children[:i], p.children[i+1:]...)
			return
		}
	}
}

func (p *Process) isChild(pid int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.children {
		if c == pid {
			return true
		}
	}
	return false
}

// ThreadCount returns the number of threads currently attached to the
// process (0 or 1 — this kernel carries no multithreaded user
// processes).
func (p *Process) ThreadCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.threadCount
}

// Start marks the process as having one running thread.
func (p *Process) Start() {
	p.mu.Lock()
	p.threadCount = 1
	p.StartedAt = p.clk.Now()
	p.mu.Unlock()
}

// Exit records the process's exit status, encoding the low 8 bits the
// way _exit's contract requires, detaches its thread, and wakes any
// waiter blocked in Wait.
func (p *Process) Exit(code int) {
	tok := new(int)
	p.waitLock.Acquire(tok)
	p.mu.Lock()
	p.exitStatus = code & 0xff
	p.exited = true
	p.threadCount = 0
	p.ExitedAt = p.clk.Now()
	p.mu.Unlock()
	p.waitCV.Signal()
	p.waitLock.Release(tok)
}

// Exited reports whether the process has signalled exit but may not
// yet have been reaped — the zombie state.
func (p *Process) Exited() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exited
}

// ExitStatus returns the process's encoded exit status. Valid only
// once Exited() is true.
func (p *Process) ExitStatus() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitStatus
}

// Wait blocks the calling goroutine until the process has exited. It
// is the wait side of the exit/wait rendezvous; Exit is the signal
// side. Safe to call even if the process has already exited.
func (p *Process) Wait() {
	tok := new(int)
	p.waitLock.Acquire(tok)
	for !p.rawExited() {
		p.waitCV.Wait(p.waitLock, tok)
	}
	p.waitLock.Release(tok)
}

func (p *Process) rawExited() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exited
}
