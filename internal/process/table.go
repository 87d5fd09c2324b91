package process

import (
	"sync"

	"github.com/gokernel/kernel/clock"
	"github.com/gokernel/kernel/internal/kerrno"
)

// KernelPid is the process-table slot reserved for the kernel process.
// It is never recycled.
const KernelPid = 0

// Table is the bounded, pid-indexed process table. Capacity is
// PROC_MAX+1: slot 0 is the kernel process, slots 1..PROC_MAX are
// available to user processes.
type Table struct {
	mu      sync.Mutex
	slots   []*Process
	lastPid int
	clk     clock.Clock
}

// NewTable allocates an empty table sized for procMax user processes
// plus the reserved kernel slot, timestamping process lifetimes against
// the real wall clock.
func NewTable(procMax int) *Table {
	return NewTableWithClock(procMax, clock.RealClock{})
}

// NewTableWithClock is NewTable with an injectable clock, for tests that
// need to assert on StartedAt/ExitedAt without sleeping.
func NewTableWithClock(procMax int, clk clock.Clock) *Table {
	return &Table{slots: make([]*Process, procMax+1), clk: clk}
}

// CreateKernel installs the kernel process in slot 0, bypassing the
// ordinary pid-allocation path.
func (t *Table) CreateKernel(name string) *Process {
	p := newProcess(name, KernelPid, t.clk)
	t.mu.Lock()
	t.slots[KernelPid] = p
	t.mu.Unlock()
	return p
}

// allocSlot performs the circular next-fit scan from last_pid+1,
// skipping slot 0, under the table's spinlock.
func (t *Table) allocSlot() (int, error) {
	procMax := len(t.slots) - 1
	if procMax <= 0 {
		return -1, kerrno.ENPROC
	}
	for i := 0; i < procMax; i++ {
		candidate := (t.lastPid+i)%procMax + 1
		if t.slots[candidate] == nil {
			t.lastPid = candidate
			return candidate, nil
		}
	}
	return -1, kerrno.ENPROC
}

// Create allocates a pid and registers a new process under it,
// failing ENPROC if the table is full.
func (t *Table) Create(name string) (*Process, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pid, err := t.allocSlot()
	if err != nil {
		return nil, err
	}
	p := newProcess(name, pid, t.clk)
	t.slots[pid] = p
	return p, nil
}

// Get returns the process at pid, or nil if the slot is empty or out
// of range.
func (t *Table) Get(pid int) *Process {
	t.mu.Lock()
	defer t.mu.Unlock()
	if pid < 0 || pid >= len(t.slots) {
		return nil
	}
	return t.slots[pid]
}

// InUse reports how many process-table slots are occupied, for the
// tables/process_in_use gauge.
func (t *Table) InUse() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, s := range t.slots {
		if s != nil {
			n++
		}
	}
	return n
}

// LinkChild records parent/child filiation after a successful fork:
// child.parentPid = parent.Pid, and child's pid is appended to
// parent's child list.
func (t *Table) LinkChild(parent, child *Process) {
	child.setParentPid(parent.Pid)
	parent.addChild(child.Pid)
}

// IsChild reports whether childPid names an actual descendant of
// parent, the check waitpid uses to reject non-child pids with
// ECHILD. It is O(children), acceptable given PROC_MAX is small.
func (t *Table) IsChild(parent *Process, childPid int) bool {
	return parent.isChild(childPid)
}

// Destroy reaps a process: preconditions are thread count == 0 and the
// process is not the kernel process. It releases the cwd reference,
// detaches and destroys the address space, removes the table slot,
// and re-links the family graph — orphaning the dead process's
// children and unlinking it from its own parent's child list.
func (t *Table) Destroy(p *Process) error {
	if p.Pid == KernelPid {
		return kerrno.EINVAL
	}
	if p.ThreadCount() != 0 {
		return kerrno.EINVAL
	}

	p.Cwd = nil
	if p.AddrSpace != nil {
		p.AddrSpace.Destroy()
		p.AddrSpace = nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.slots[p.Pid] = nil

	for _, childPid := range p.Children() {
		if child := t.slots[childPid]; child != nil {
			child.setParentPid(NoParent)
		}
	}

	parentPid := p.ParentPid()
	if parentPid != NoParent {
		if parent := t.slots[parentPid]; parent != nil {
			parent.removeChild(p.Pid)
		}
	}

	return nil
}
