// Package openfile implements F, the shared open-file object, and its
// bounded system-wide table. Reference counting and I/O ordering for a
// single open-file object are serialised by one sleep-lock per object,
// exactly as spec'd: incref/decref and every read/write run with that
// lock held.
package openfile

import (
	"fmt"

	"github.com/gokernel/kernel/internal/kerrno"
	"github.com/gokernel/kernel/internal/ksync"
	"github.com/gokernel/kernel/internal/vfs"
)

// Access modes, aliased from the vfs open-flag bits so callers never
// juggle two numbering schemes for the same concept.
const (
	ORdonly = vfs.O_RDONLY
	OWronly = vfs.O_WRONLY
	ORdwr   = vfs.O_RDWR
)

// File is the shared instance one or more file descriptors refer to:
// a vnode, a seek offset, an access mode, a reference count, and the
// sleep-lock serialising all of the above.
type File struct {
	id     int
	vnode  *vfs.Vnode
	mode   int
	offset int64

	lock     *ksync.SleepLock
	refcount int
}

// ID returns the file's slot index in the system-wide open-file table.
func (f *File) ID() int { return f.id }

// Vnode returns the file's underlying vnode.
func (f *File) Vnode() *vfs.Vnode { return f.vnode }

// Mode returns the access mode the file was opened with.
func (f *File) Mode() int { return f.mode }

func (f *File) checkAccess(want int) error {
	switch want {
	case ORdonly:
		if f.mode == OWronly {
			return kerrno.EBADF
		}
	case OWronly:
		if f.mode == ORdonly {
			return kerrno.EBADF
		}
	}
	return nil
}

// Read performs a locked read: it reads at the file's current offset
// and advances it by the number of bytes actually read, atomically
// with respect to every other reader, writer, or seeker of this file.
func (f *File) Read(p []byte) (int, error) {
	if err := f.checkAccess(ORdonly); err != nil {
		return 0, err
	}
	tok := new(int)
	f.lock.Acquire(tok)
	defer f.lock.Release(tok)

	n, err := f.vnode.Read(f.offset, p)
	if err != nil {
		return 0, err
	}
	f.offset += int64(n)
	return n, nil
}

// Write performs a locked write: it writes at the file's current
// offset and advances it by the number of bytes written.
func (f *File) Write(p []byte) (int, error) {
	if err := f.checkAccess(OWronly); err != nil {
		return 0, err
	}
	tok := new(int)
	f.lock.Acquire(tok)
	defer f.lock.Release(tok)

	n, err := f.vnode.Write(f.offset, p)
	if err != nil {
		return 0, err
	}
	f.offset += int64(n)
	return n, nil
}

// Seek implements lseek's offset arithmetic under the file's lock.
func (f *File) Seek(off int64, whence int) (int64, error) {
	tok := new(int)
	f.lock.Acquire(tok)
	defer f.lock.Release(tok)

	var newOff int64
	switch whence {
	case SeekSet:
		newOff = off
	case SeekCur:
		newOff = f.offset + off
	case SeekEnd:
		st, err := f.vnode.Stat()
		if err != nil {
			return 0, err
		}
		newOff = st.Size + off
	default:
		return 0, kerrno.EINVAL
	}
	if newOff < 0 {
		return 0, kerrno.EINVAL
	}
	f.offset = newOff
	return newOff, nil
}

// Whence values for Seek, matching SEEK_SET/SEEK_CUR/SEEK_END.
const (
	SeekSet = 0
	SeekCur = 1
	SeekEnd = 2
)

func (f *File) incRef() {
	tok := new(int)
	f.lock.Acquire(tok)
	f.refcount++
	f.lock.Release(tok)
}

// Table is the bounded system-wide open-file table. Its capacity is
// SYSTEM_OPEN_MAX = 10 * OPEN_MAX.
type Table struct {
	lock  *ksync.SleepLock
	slots []*File
}

// NewTable allocates an empty table of the given capacity.
func NewTable(capacity int) *Table {
	return &Table{
		lock:  ksync.NewSleepLock("open-file-table"),
		slots: make([]*File, capacity),
	}
}

// Open claims the first free slot for v, opened with mode and seeded
// at offset, returning the new file's table id. Slot claiming is
// serialised by the table's own lock so two concurrent opens can never
// race to claim the same slot.
func (t *Table) Open(v *vfs.Vnode, mode int, offset int64) (int, *File, error) {
	tok := new(int)
	t.lock.Acquire(tok)
	defer t.lock.Release(tok)

	for i, slot := range t.slots {
		if slot == nil {
			f := &File{
				id:       i,
				vnode:    v,
				mode:     mode,
				offset:   offset,
				lock:     ksync.NewSleepLock(fmt.Sprintf("open-file[%d]", i)),
				refcount: 1,
			}
			t.slots[i] = f
			return i, f, nil
		}
	}
	return -1, nil, kerrno.ENFILE
}

// IncRef bumps id's reference count, used by fork and dup2 to share an
// existing File rather than reopening it.
func (t *Table) IncRef(id int) *File {
	tok := new(int)
	t.lock.Acquire(tok)
	f := t.slots[id]
	t.lock.Release(tok)
	if f != nil {
		f.incRef()
	}
	return f
}

// Get returns the File at id without changing its reference count.
func (t *Table) Get(id int) *File {
	tok := new(int)
	t.lock.Acquire(tok)
	defer t.lock.Release(tok)
	return t.slots[id]
}

// InUse reports how many slots are currently occupied, for the
// tables/open_file_in_use gauge.
func (t *Table) InUse() int {
	tok := new(int)
	t.lock.Acquire(tok)
	defer t.lock.Release(tok)
	n := 0
	for _, s := range t.slots {
		if s != nil {
			n++
		}
	}
	return n
}

// Close decrements id's reference count and, if it reaches zero,
// releases the vnode via fs.Close and frees the slot. The file's own
// lock is always released before the slot is cleared or the vnode is
// closed, so teardown never holds a lock across the vnode release.
func (t *Table) Close(id int, fs *vfs.FS) error {
	tok1 := new(int)
	t.lock.Acquire(tok1)
	f := t.slots[id]
	t.lock.Release(tok1)
	if f == nil {
		return kerrno.EBADF
	}

	tok := new(int)
	f.lock.Acquire(tok)
	f.refcount--
	last := f.refcount <= 0
	v := f.vnode
	f.lock.Release(tok)

	if !last {
		return nil
	}

	tok2 := new(int)
	t.lock.Acquire(tok2)
	t.slots[id] = nil
	t.lock.Release(tok2)
	return fs.Close(v)
}
