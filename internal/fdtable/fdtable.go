// Package fdtable implements T, the per-process file descriptor table:
// a fixed-size vector of handles into the system-wide open-file table,
// with descriptors 0, 1, 2 pre-populated with console handles on
// process creation.
package fdtable

import (
	"github.com/gokernel/kernel/internal/kerrno"
	"github.com/gokernel/kernel/internal/openfile"
	"github.com/gokernel/kernel/internal/vfs"
)

// Well-known descriptor numbers for the console handles every process
// starts with. User-visible descriptors begin at 3.
const (
	Stdin  = 0
	Stdout = 1
	Stderr = 2
)

// Table is a fixed-size vector of length OPEN_MAX, each slot either
// empty or holding a file descriptor's open-file handle.
type Table struct {
	slots []*openfile.File
}

// New allocates a zeroed table of the given capacity (OPEN_MAX).
func New(capacity int) *Table {
	return &Table{slots: make([]*openfile.File, capacity)}
}

// InitConsole allocates a table of the given capacity (OPEN_MAX) and
// populates fds 0, 1, 2 with read-only, write-only, and write-only
// handles on the console device respectively, each its own open-file
// object with its own sleep-lock.
func InitConsole(capacity int, openTable *openfile.Table, console *vfs.Vnode) (*Table, error) {
	t := New(capacity)

	_, stdin, err := openTable.Open(console, openfile.ORdonly, 0)
	if err != nil {
		return nil, err
	}
	_, stdout, err := openTable.Open(console, openfile.OWronly, 0)
	if err != nil {
		return nil, err
	}
	_, stderr, err := openTable.Open(console, openfile.OWronly, 0)
	if err != nil {
		return nil, err
	}

	t.slots[Stdin] = stdin
	t.slots[Stdout] = stdout
	t.slots[Stderr] = stderr
	return t, nil
}

// Get returns fd's file, validating that fd is in range and the slot
// is non-empty.
func (t *Table) Get(fd int) (*openfile.File, error) {
	if fd < 0 || fd >= len(t.slots) {
		return nil, kerrno.EBADF
	}
	f := t.slots[fd]
	if f == nil {
		return nil, kerrno.EBADF
	}
	return f, nil
}

// FirstFree returns the lowest-numbered free slot at or above start,
// failing EMFILE if the table is full.
func (t *Table) FirstFree(start int) (int, error) {
	for i := start; i < len(t.slots); i++ {
		if t.slots[i] == nil {
			return i, nil
		}
	}
	return -1, kerrno.EMFILE
}

// Install assigns f to fd, overwriting whatever was there without
// closing it — callers that need the close-on-replace semantics of
// dup2 must close the old handle themselves first.
func (t *Table) Install(fd int, f *openfile.File) error {
	if fd < 0 || fd >= len(t.slots) {
		return kerrno.EBADF
	}
	t.slots[fd] = f
	return nil
}

// Clear empties fd without touching the open-file table; used once
// the caller has already decremented the file's reference count.
func (t *Table) Clear(fd int) {
	if fd >= 0 && fd < len(t.slots) {
		t.slots[fd] = nil
	}
}

// Len returns the table's fixed capacity (OPEN_MAX).
func (t *Table) Len() int { return len(t.slots) }

// Fork duplicates the table for a child process: every non-empty slot
// is shared (not copied) with its reference count incremented in
// openTable, so lseek in one process is visible to the other.
func (t *Table) Fork(openTable *openfile.Table) *Table {
	clone := New(len(t.slots))
	for i, f := range t.slots {
		if f == nil {
			continue
		}
		clone.slots[i] = openTable.IncRef(f.ID())
	}
	return clone
}

// CloseAll closes every non-empty slot via the ordinary close path,
// used during _exit and proc_destroy.
func (t *Table) CloseAll(openTable *openfile.Table, fs *vfs.FS) {
	for i, f := range t.slots {
		if f == nil {
			continue
		}
		_ = openTable.Close(f.ID(), fs)
		t.slots[i] = nil
	}
}
