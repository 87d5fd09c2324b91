// Package vfs is the kernel's in-memory stand-in for the virtual
// filesystem the core kernel treats as an external collaborator: vfs_open,
// vfs_close, VOP_READ, VOP_WRITE, VOP_STAT, vfs_getcwd and
// vfs_setcurdir all have a concrete home here so the rest of the
// kernel has something real to call.
package vfs

import (
	"sync"

	"github.com/gokernel/kernel/internal/kerrno"
	"golang.org/x/sys/unix"
)

// Kind distinguishes the vnode types the kernel cares about.
type Kind int

const (
	KindFile Kind = iota
	KindDir
	KindConsole
)

// Stat mirrors the handful of fields VOP_STAT is asked for.
type Stat struct {
	Size  int64
	IsDir bool
}

// Vnode is one entry in the filesystem tree: a regular file, a
// directory, or the console device. Its own mutex guards the bytes and
// child map; it is not the per-open-file sleep-lock — that lock
// belongs to the open-file object layered on top in package openfile.
type Vnode struct {
	name   string
	kind   Kind
	parent *Vnode

	mu       sync.Mutex
	data     []byte
	children map[string]*Vnode

	console *consoleDevice
}

func newFile(name string, parent *Vnode) *Vnode {
	return &Vnode{name: name, kind: KindFile, parent: parent}
}

func newDir(name string, parent *Vnode) *Vnode {
	return &Vnode{name: name, kind: KindDir, parent: parent, children: make(map[string]*Vnode)}
}

// Name returns the vnode's leaf name.
func (v *Vnode) Name() string { return v.name }

// IsDir reports whether the vnode names a directory.
func (v *Vnode) IsDir() bool { return v.kind == KindDir }

// Stat returns the vnode's size and kind.
func (v *Vnode) Stat() (Stat, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return Stat{Size: int64(len(v.data)), IsDir: v.kind == KindDir}, nil
}

// Read implements VOP_READ: it copies up to len(p) bytes starting at
// off into p and returns the count read, or io.EOF-free zero at end of
// file (the kernel distinguishes EOF from error by byte count, same as
// the syscalls it backs).
func (v *Vnode) Read(off int64, p []byte) (int, error) {
	if v.kind == KindConsole {
		return v.console.read(p)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.kind == KindDir {
		return 0, kerrno.EISDIR
	}
	if off >= int64(len(v.data)) {
		return 0, nil
	}
	n := copy(p, v.data[off:])
	return n, nil
}

// Write implements VOP_WRITE: it writes p at off, growing the
// underlying buffer as needed, and returns the count written.
func (v *Vnode) Write(off int64, p []byte) (int, error) {
	if v.kind == KindConsole {
		return v.console.write(p)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.kind == KindDir {
		return 0, kerrno.EISDIR
	}
	end := off + int64(len(p))
	if end > int64(len(v.data)) {
		grown := make([]byte, end)
		copy(grown, v.data)
		v.data = grown
	}
	copy(v.data[off:end], p)
	return len(p), nil
}

// Truncate discards the vnode's contents, for O_TRUNC opens.
func (v *Vnode) Truncate() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.kind == KindDir {
		return kerrno.EISDIR
	}
	v.data = nil
	return nil
}

// Size reports the current byte length without the Stat wrapper, used
// by open() to seed an O_APPEND offset.
func (v *Vnode) Size() int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return int64(len(v.data))
}

func errnoFromOS(err error) error {
	if err == nil {
		return nil
	}
	if errno, ok := err.(unix.Errno); ok {
		return errno
	}
	return kerrno.EIO
}
