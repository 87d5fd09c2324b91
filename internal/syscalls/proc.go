package syscalls

import (
	"context"
	"time"

	"github.com/gokernel/kernel/internal/addrspace"
	"github.com/gokernel/kernel/internal/kerrno"
	"github.com/gokernel/kernel/internal/loader"
	"github.com/gokernel/kernel/internal/logger"
	"github.com/gokernel/kernel/internal/trapframe"
	"github.com/gokernel/kernel/internal/ucopy"
	"github.com/gokernel/kernel/internal/vfs"
)

// Getpid implements getpid(): a pure read of the calling process's own
// pid. It never fails.
func (k *Kernel) Getpid(ctx context.Context, p *Process) (pid int) {
	start := time.Now()
	defer k.recordSyscall(ctx, "getpid", start, nil)
	return p.Pid
}

// ChildEntry is the trampoline a caller supplies to Fork: it runs on
// its own goroutine, standing in for the child thread a real
// thread_fork would start, and receives the child's own Process and
// its copy of the parent's trapframe.
type ChildEntry func(child *Process, frame *trapframe.Frame)

// Fork implements fork(): it allocates a pid, copies the parent's
// address space and trapframe, shares (not copies) the parent's file
// table, links the new process into the family graph, and starts the
// child running childEntry on its own goroutine before returning the
// child's pid to the caller. It never returns an error path that
// leaves a half-registered process behind: a failure after pid
// allocation tears the slot back down before returning.
func (k *Kernel) Fork(ctx context.Context, parent *Process, tf *trapframe.Frame, childEntry ChildEntry) (childPid int, err error) {
	start := time.Now()
	defer func() { k.recordSyscall(ctx, "fork", start, err) }()

	child, err := k.procTable.Create(parent.Name + "-fork")
	if err != nil {
		return -1, err
	}

	as, err := parent.AddrSpace.Copy()
	if err != nil {
		_ = k.procTable.Destroy(child)
		return -1, err
	}

	frameCopy := tf.Copy()
	frameCopy.SetReturn(0, 0)

	child.AddrSpace = as
	child.FDTable = parent.FDTable.Fork(k.openTable)
	child.Cwd = parent.Cwd
	k.procTable.LinkChild(parent, child)
	child.Start()

	go func() {
		if err := k.sched.Acquire(context.Background(), 1); err != nil {
			logger.Fatalf("fork: acquiring a scheduler slot for pid %d: %v", child.Pid, err)
		}
		defer k.sched.Release(1)
		childEntry(child, frameCopy)
	}()

	return child.Pid, nil
}

// Execv implements execv(path, argv): it copies in the pathname and
// argument vector, opens the executable, then replaces the calling
// process's address space in place. Once the new address space has
// been installed and the old one destroyed there is no rollback path
// left — a load failure past that point is a kernel-fatal condition,
// not a returnable errno, exactly as it would be for a real loader
// that has already torn down the only address space the thread had.
//
// On success Execv drives the loaded program to completion and calls
// Exit on p itself before returning, mirroring the real syscall's
// contract that execv never returns to its caller on success: the
// calling goroutine only regains control after the process has
// already exited.
func (k *Kernel) Execv(ctx context.Context, p *Process, path string, argv []string, stdio loader.Env) (err error) {
	start := time.Now()
	defer func() { k.recordSyscall(ctx, "execv", start, err) }()

	pathAddr := p.AllocScratch(len(path) + 1)
	if err = ucopy.OutString(p.AddrSpace, pathAddr, path); err != nil {
		return err
	}
	kpath, err := ucopy.InString(p.AddrSpace, pathAddr, k.cfg.PathMax)
	if err != nil {
		return err
	}

	if len(argv) >= k.cfg.ArgMax {
		return kerrno.E2BIG
	}
	kargv := make([]string, len(argv))
	for i, a := range argv {
		addr := p.AllocScratch(len(a) + 1)
		if err = ucopy.OutString(p.AddrSpace, addr, a); err != nil {
			return err
		}
		kargv[i], err = ucopy.InString(p.AddrSpace, addr, k.cfg.PathMax)
		if err != nil {
			return err
		}
	}

	v, err := k.fs.Open(p.Cwd, kpath, vfs.O_RDONLY, 0)
	if err != nil {
		return err
	}

	newAS, err := addrspace.Create()
	if err != nil {
		return err
	}

	// Everything before this line is still cleanly reversible: no
	// process state has changed yet. Everything after it is not.
	oldAS := p.AddrSpace
	p.AddrSpace = newAS
	oldAS.Destroy()
	newAS.Activate()

	prog, err := k.loader.Load(kpath)
	if err != nil {
		logger.Fatalf("execv(%s): program load failed after address space was already replaced: %v", kpath, err)
	}
	if _, err := newAS.DefineStack(); err != nil {
		logger.Fatalf("execv(%s): failed to define user stack after address space was already replaced: %v", kpath, err)
	}
	_ = k.fs.Close(v)

	stdio.Args = kargv
	code := prog.Entry(stdio)
	k.Exit(ctx, p, code)
	return nil
}

// Waitpid implements waitpid(pid, options): it validates options,
// rejects self-wait and non-child pids with ECHILD, and either reaps
// an already-exited child immediately or blocks until the child exits.
// WNOHANG returns (0, 0, nil) immediately if the child is still
// running instead of blocking.
func (k *Kernel) Waitpid(ctx context.Context, p *Process, pid int, options int) (resultPid int, status int, err error) {
	start := time.Now()
	defer func() { k.recordSyscall(ctx, "waitpid", start, err) }()

	if pid == p.Pid {
		return -1, 0, kerrno.ECHILD
	}
	if options != 0 && options != WNOHANG {
		return -1, 0, kerrno.EINVAL
	}

	if !k.procTable.IsChild(p, pid) {
		return -1, 0, kerrno.ECHILD
	}
	child := k.procTable.Get(pid)
	if child == nil {
		return -1, 0, kerrno.ESRCH
	}

	if !child.Exited() {
		if options&WNOHANG != 0 {
			return 0, 0, nil
		}
		child.Wait()
	}

	status = child.ExitStatus()
	if err := k.procTable.Destroy(child); err != nil {
		logger.Fatalf("waitpid(%d): reaping exited child failed: %v", pid, err)
	}
	return pid, status, nil
}

// Exit implements _exit(code): it closes every open descriptor, then
// records the encoded exit status and wakes any parent blocked in
// Waitpid. The process table slot survives until a parent reaps it.
func (k *Kernel) Exit(ctx context.Context, p *Process, code int) {
	start := time.Now()
	if p.FDTable != nil {
		p.FDTable.CloseAll(k.openTable, k.fs)
	}
	p.Exit(code)
	k.recordSyscall(ctx, "_exit", start, nil)
}
