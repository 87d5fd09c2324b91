package syscalls

import (
	"context"
	"time"

	"github.com/gokernel/kernel/internal/kerrno"
	"github.com/gokernel/kernel/internal/openfile"
	"github.com/gokernel/kernel/internal/ucopy"
	"github.com/gokernel/kernel/internal/vfs"
)

// Whence values for Seek, re-exported from openfile for callers that
// only import syscalls.
const (
	SeekSet = openfile.SeekSet
	SeekCur = openfile.SeekCur
	SeekEnd = openfile.SeekEnd
)

// Open implements open(pathname, flags, mode): it copies pathname in
// bounded by PATH_MAX, delegates to the filesystem, claims a
// system-table slot and a process-table fd, and seeds the initial
// offset.
func (k *Kernel) Open(ctx context.Context, p *Process, pathname string, flags int, mode uint32) (fd int, err error) {
	start := time.Now()
	defer func() { k.recordSyscall(ctx, "open", start, err) }()

	addr := p.AllocScratch(len(pathname) + 1)
	if err = ucopy.OutString(p.AddrSpace, addr, pathname); err != nil {
		return -1, err
	}
	kpath, err := ucopy.InString(p.AddrSpace, addr, k.cfg.PathMax)
	if err != nil {
		return -1, err
	}

	accmode := flags & vfs.O_ACCMODE
	if accmode != vfs.O_RDONLY && accmode != vfs.O_WRONLY && accmode != vfs.O_RDWR {
		return -1, kerrno.EINVAL
	}

	v, err := k.fs.Open(p.Cwd, kpath, flags, mode)
	if err != nil {
		return -1, err
	}

	var offset int64
	if flags&vfs.O_APPEND != 0 {
		offset = v.Size()
	}

	id, f, err := k.openTable.Open(v, accmode, offset)
	if err != nil {
		return -1, err
	}

	slot, err := p.FDTable.FirstFree(3)
	if err != nil {
		k.openTable.Close(id, k.fs)
		return -1, err
	}
	if err := p.FDTable.Install(slot, f); err != nil {
		k.openTable.Close(id, k.fs)
		return -1, err
	}
	return slot, nil
}

// Close implements close(fd): it clears the table entry and decrefs
// the open-file object, releasing the vnode on the last reference.
func (k *Kernel) Close(ctx context.Context, p *Process, fd int) (err error) {
	start := time.Now()
	defer func() { k.recordSyscall(ctx, "close", start, err) }()

	f, err := p.FDTable.Get(fd)
	if err != nil {
		return err
	}
	p.FDTable.Clear(fd)
	return k.openTable.Close(f.ID(), k.fs)
}

// Read implements read(fd, len): it allocates a kernel buffer, reads
// through the per-file lock, copies the result out to the caller's
// scratch address space, and returns the bytes actually read.
func (k *Kernel) Read(ctx context.Context, p *Process, fd int, length int) (data []byte, err error) {
	start := time.Now()
	defer func() { k.recordSyscall(ctx, "read", start, err) }()

	f, err := p.FDTable.Get(fd)
	if err != nil {
		return nil, err
	}
	k.simulateDeviceLatency(f)

	kbuf := make([]byte, length)
	n, err := f.Read(kbuf)
	if err != nil {
		return nil, err
	}

	addr := p.AllocScratch(n)
	if err := ucopy.Out(p.AddrSpace, addr, kbuf[:n]); err != nil {
		return nil, err
	}
	return kbuf[:n], nil
}

// Write implements write(fd, buf): it copies buf into a kernel buffer
// and writes through the per-file lock, returning the bytes actually
// written.
func (k *Kernel) Write(ctx context.Context, p *Process, fd int, buf []byte) (n int, err error) {
	start := time.Now()
	defer func() { k.recordSyscall(ctx, "write", start, err) }()

	f, err := p.FDTable.Get(fd)
	if err != nil {
		return 0, err
	}
	k.simulateDeviceLatency(f)

	addr := p.AllocScratch(len(buf))
	if err := ucopy.Out(p.AddrSpace, addr, buf); err != nil {
		return 0, err
	}
	kbuf, err := ucopy.In(p.AddrSpace, addr, len(buf))
	if err != nil {
		return 0, err
	}

	return f.Write(kbuf)
}

// Dup2 implements dup2(old, new): old==new is a no-op returning new;
// otherwise new's existing slot (if any) is closed first, then old's
// open-file is increfed into new.
func (k *Kernel) Dup2(ctx context.Context, p *Process, old, newFd int) (result int, err error) {
	start := time.Now()
	defer func() { k.recordSyscall(ctx, "dup2", start, err) }()

	if old < 0 || old >= p.FDTable.Len() || newFd < 0 || newFd >= p.FDTable.Len() {
		return -1, kerrno.EBADF
	}
	oldFile, err := p.FDTable.Get(old)
	if err != nil {
		return -1, err
	}
	if old == newFd {
		return newFd, nil
	}
	if _, err := p.FDTable.Get(newFd); err == nil {
		_ = k.Close(ctx, p, newFd)
	}

	shared := k.openTable.IncRef(oldFile.ID())
	if err := p.FDTable.Install(newFd, shared); err != nil {
		return -1, err
	}
	return newFd, nil
}

// Lseek implements lseek(fd, offset, whence).
func (k *Kernel) Lseek(ctx context.Context, p *Process, fd int, offset int64, whence int) (newOffset int64, err error) {
	start := time.Now()
	defer func() { k.recordSyscall(ctx, "lseek", start, err) }()

	f, err := p.FDTable.Get(fd)
	if err != nil {
		return 0, err
	}
	return f.Seek(offset, whence)
}

// Chdir implements chdir(path): it resolves path to a directory vnode
// and installs it as the calling process's cwd.
func (k *Kernel) Chdir(ctx context.Context, p *Process, path string) (err error) {
	start := time.Now()
	defer func() { k.recordSyscall(ctx, "chdir", start, err) }()

	addr := p.AllocScratch(len(path) + 1)
	if err = ucopy.OutString(p.AddrSpace, addr, path); err != nil {
		return err
	}
	kpath, err := ucopy.InString(p.AddrSpace, addr, k.cfg.PathMax)
	if err != nil {
		return err
	}

	v, err := k.fs.Open(p.Cwd, kpath, vfs.O_RDONLY, 0)
	if err != nil {
		return err
	}
	dir, err := k.fs.SetCurDir(v)
	if err != nil {
		return err
	}
	p.Cwd = dir
	return nil
}

// Getcwd implements getcwd(buf, len): it returns the process's current
// working directory as an absolute path.
func (k *Kernel) Getcwd(ctx context.Context, p *Process) (path string, err error) {
	start := time.Now()
	defer func() { k.recordSyscall(ctx, "getcwd", start, err) }()

	return k.fs.GetCwd(p.Cwd)
}

// Remove implements remove(path): it deletes a leaf file, failing
// EISDIR on a directory.
func (k *Kernel) Remove(ctx context.Context, p *Process, path string) (err error) {
	start := time.Now()
	defer func() { k.recordSyscall(ctx, "remove", start, err) }()

	return k.fs.Remove(p.Cwd, path)
}
