package vfs

import (
	"io"
	"strings"
	"sync"

	"github.com/gokernel/kernel/internal/kerrno"
	"golang.org/x/sys/unix"
)

// Open-flag bits, aliased from the real platform constants the way
// kerrno aliases unix.Errno — a caller sees the numbers it expects.
const (
	O_RDONLY = unix.O_RDONLY
	O_WRONLY = unix.O_WRONLY
	O_RDWR   = unix.O_RDWR
	O_CREAT  = unix.O_CREAT
	O_TRUNC  = unix.O_TRUNC
	O_APPEND = unix.O_APPEND
	O_EXCL   = unix.O_EXCL

	O_ACCMODE = unix.O_ACCMODE
)

// ConsoleName is the well-known path the shell and its children open
// for their stdin/stdout/stderr, mirroring OS161's "con:".
const ConsoleName = "con:"

// FS is the in-memory filesystem tree. One FS is shared by every
// process in a kernel instance; per-process position within it is
// tracked by the caller's cwd vnode, never by FS itself.
type FS struct {
	mu      sync.Mutex
	root    *Vnode
	console *Vnode
}

// New builds an empty filesystem with a root directory and a console
// device wired to in/out.
func New(consoleIn io.Reader, consoleOut io.Writer) *FS {
	root := newDir("/", nil)
	console := &Vnode{name: ConsoleName, kind: KindConsole, console: newConsole(consoleIn, consoleOut)}
	return &FS{root: root, console: console}
}

// Root returns the filesystem's root directory vnode, the initial cwd
// for the first process created.
func (fs *FS) Root() *Vnode { return fs.root }

// Console returns the shared console vnode.
func (fs *FS) Console() *Vnode { return fs.console }

func splitPath(path string) (absolute bool, parts []string) {
	absolute = strings.HasPrefix(path, "/")
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return absolute, parts
}

// resolveParent walks path from cwd (or root, if absolute), returning the
// parent directory and the leaf name, without requiring the leaf to
// exist — the split open() needs to decide between "found" and
// "create".
func (fs *FS) resolveParent(cwd *Vnode, path string) (*Vnode, string, error) {
	absolute, parts := splitPath(path)
	if len(parts) == 0 {
		return nil, "", kerrno.ENOENT
	}
	dir := cwd
	if absolute || dir == nil {
		dir = fs.root
	}
	for _, name := range parts[:len(parts)-1] {
		if dir.kind != KindDir {
			return nil, "", kerrno.ENOENT
		}
		dir.mu.Lock()
		next, ok := dir.children[name]
		dir.mu.Unlock()
		if !ok {
			return nil, "", kerrno.ENOENT
		}
		dir = next
	}
	return dir, parts[len(parts)-1], nil
}

// Lookup resolves path to an existing vnode relative to cwd, without
// opening it.
func (fs *FS) Lookup(cwd *Vnode, path string) (*Vnode, error) {
	if path == ConsoleName {
		return fs.console, nil
	}
	absolute, parts := splitPath(path)
	dir := cwd
	if absolute || dir == nil {
		dir = fs.root
	}
	if len(parts) == 0 {
		return dir, nil
	}
	for _, name := range parts {
		if dir.kind != KindDir {
			return nil, kerrno.ENOENT
		}
		dir.mu.Lock()
		next, ok := dir.children[name]
		dir.mu.Unlock()
		if !ok {
			return nil, kerrno.ENOENT
		}
		dir = next
	}
	return dir, nil
}

// Open implements vfs_open: it resolves path relative to cwd, honours
// O_CREAT/O_EXCL/O_TRUNC, and returns the target vnode.
func (fs *FS) Open(cwd *Vnode, path string, flags int, mode uint32) (*Vnode, error) {
	if path == ConsoleName {
		return fs.console, nil
	}

	parent, leaf, err := fs.resolveParent(cwd, path)
	if err != nil {
		return nil, err
	}

	parent.mu.Lock()
	child, ok := parent.children[leaf]
	if !ok {
		if flags&O_CREAT == 0 {
			parent.mu.Unlock()
			return nil, kerrno.ENOENT
		}
		child = newFile(leaf, parent)
		parent.children[leaf] = child
	} else if flags&O_CREAT != 0 && flags&O_EXCL != 0 {
		parent.mu.Unlock()
		return nil, kerrno.EEXIST
	}
	parent.mu.Unlock()

	if child.kind == KindDir && (flags&O_ACCMODE) != O_RDONLY {
		return nil, kerrno.EISDIR
	}
	if flags&O_TRUNC != 0 && child.kind == KindFile {
		if err := child.Truncate(); err != nil {
			return nil, err
		}
	}
	return child, nil
}

// Close implements vfs_close. The in-memory tree needs no teardown
// beyond what Go's garbage collector already does; it exists so
// callers keep the same open/use/close shape the real VFS has.
func (fs *FS) Close(v *Vnode) error {
	return nil
}

// Mkdir creates an empty directory at path relative to cwd.
func (fs *FS) Mkdir(cwd *Vnode, path string) error {
	parent, leaf, err := fs.resolveParent(cwd, path)
	if err != nil {
		return err
	}
	parent.mu.Lock()
	defer parent.mu.Unlock()
	if _, exists := parent.children[leaf]; exists {
		return kerrno.EEXIST
	}
	parent.children[leaf] = newDir(leaf, parent)
	return nil
}

// Remove implements the remove() syscall's VFS half: it deletes a leaf
// file, failing EISDIR on a directory.
func (fs *FS) Remove(cwd *Vnode, path string) error {
	parent, leaf, err := fs.resolveParent(cwd, path)
	if err != nil {
		return err
	}
	parent.mu.Lock()
	defer parent.mu.Unlock()
	target, ok := parent.children[leaf]
	if !ok {
		return kerrno.ENOENT
	}
	if target.kind == KindDir {
		return kerrno.EISDIR
	}
	delete(parent.children, leaf)
	return nil
}

// GetCwd implements vfs_getcwd: it walks cwd's parent chain and
// reassembles the absolute path.
func (fs *FS) GetCwd(cwd *Vnode) (string, error) {
	if cwd == nil || cwd == fs.root {
		return "/", nil
	}
	var names []string
	for v := cwd; v != nil && v != fs.root; v = v.parent {
		names = append([]string{v.name}, names...)
	}
	return "/" + strings.Join(names, "/"), nil
}

// SetCurDir implements vfs_setcurdir: it validates target is a
// directory and returns it for the caller to install as its cwd.
func (fs *FS) SetCurDir(target *Vnode) (*Vnode, error) {
	if target.kind != KindDir {
		return nil, kerrno.ENOENT
	}
	return target, nil
}
