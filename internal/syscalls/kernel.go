// Package syscalls implements SF and SP: the file and process
// system-call dispatchers that sit at the top of the kernel, wiring
// together the process table, the per-process and system-wide file
// tables, the in-memory filesystem, address spaces, and the user-copy
// primitives every dispatcher validates input through.
package syscalls

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gokernel/kernel/cfg"
	"github.com/gokernel/kernel/clock"
	"github.com/gokernel/kernel/internal/addrspace"
	"github.com/gokernel/kernel/internal/fdtable"
	"github.com/gokernel/kernel/internal/kerrno"
	"github.com/gokernel/kernel/internal/kmetrics"
	"github.com/gokernel/kernel/internal/loader"
	"github.com/gokernel/kernel/internal/logger"
	"github.com/gokernel/kernel/internal/openfile"
	"github.com/gokernel/kernel/internal/process"
	"github.com/gokernel/kernel/internal/vfs"
	"golang.org/x/sync/semaphore"
)

// Process is the process type every dispatcher operates on, re-exported
// so callers only need to import package syscalls.
type Process = process.Process

// WNOHANG is the only waitpid option bit this kernel recognizes; any
// other bit is rejected with EINVAL.
const WNOHANG = 1

// Kernel owns every shared kernel-resident table and is the receiver
// for every syscall dispatcher. One Kernel models one booted instance;
// cmd/shell.go drives it interactively, tests drive it directly.
type Kernel struct {
	cfg cfg.KernelConfig

	fs        *vfs.FS
	openTable *openfile.Table
	procTable *process.Table
	loader    *loader.Registry
	metrics   kmetrics.Handle
	sched     *semaphore.Weighted
	ioClock   clock.Clock

	kernelProc *process.Process
}

// New boots a Kernel: it allocates the system-wide open-file table and
// process table to the sizes named in c, registers the kernel process
// in slot 0, and wires fs and reg as the filesystem and program
// registry every process shares.
func New(c cfg.KernelConfig, fs *vfs.FS, reg *loader.Registry, metrics kmetrics.Handle) *Kernel {
	if metrics == nil {
		metrics = kmetrics.NewNoop()
	}
	smpCores := c.SMPCores
	if smpCores < 1 {
		smpCores = cfg.DefaultSMPCores
	}

	var ioClock clock.Clock = clock.RealClock{}
	if c.ConsoleLatencyMS > 0 {
		ioClock = &clock.FakeClock{WaitTime: time.Duration(c.ConsoleLatencyMS) * time.Millisecond}
	}

	k := &Kernel{
		cfg:       c,
		fs:        fs,
		openTable: openfile.NewTable(c.OpenMax * cfg.SystemOpenMaxMultiplier),
		procTable: process.NewTable(c.ProcMax),
		loader:    reg,
		metrics:   metrics,
		sched:     semaphore.NewWeighted(int64(smpCores)),
		ioClock:   ioClock,
	}
	k.kernelProc = k.procTable.CreateKernel("kernel")
	k.seedProgramPaths()
	return k
}

// seedProgramPaths pre-creates placeholder vnodes for every program the
// loader knows about, so execv's vfs_open step has something to find
// for the programs the shell is actually allowed to run, and ENOENT
// continues to mean "no such file" rather than "no such program".
func (k *Kernel) seedProgramPaths() {
	for _, path := range k.loader.Paths() {
		k.ensureParentDirs(path)
		if _, err := k.fs.Open(k.fs.Root(), path, vfs.O_CREAT|vfs.O_WRONLY, 0o755); err != nil {
			logger.Warnf("seed program vnode %s: %v", path, err)
		}
	}
}

func (k *Kernel) ensureParentDirs(path string) {
	i := strings.LastIndex(path, "/")
	if i <= 0 {
		return
	}
	parts := strings.Split(strings.TrimPrefix(path[:i], "/"), "/")
	cur := ""
	for _, part := range parts {
		cur += "/" + part
		if err := k.fs.Mkdir(k.fs.Root(), cur); err != nil && err != kerrno.EEXIST {
			logger.Warnf("seed program directory %s: %v", cur, err)
		}
	}
}

// Spawn creates a fresh top-level user process (not the product of
// fork): a new pid, a console-backed file table, a private address
// space, and a cwd at the filesystem root. It is how the first shell
// process comes into being, since nothing forked it.
func (k *Kernel) Spawn(name string) (*process.Process, error) {
	p, err := k.procTable.Create(name)
	if err != nil {
		return nil, err
	}
	fdt, err := fdtable.InitConsole(k.cfg.OpenMax, k.openTable, k.fs.Console())
	if err != nil {
		return nil, err
	}
	as, err := addrspace.Create()
	if err != nil {
		return nil, err
	}
	p.FDTable = fdt
	p.AddrSpace = as
	p.Cwd = k.fs.Root()
	p.Start()
	return p, nil
}

// Process looks up a live process by pid, for callers (the shell's ps
// command) that need to inspect kernel state directly rather than
// through a syscall.
func (k *Kernel) Process(pid int) *process.Process {
	return k.procTable.Get(pid)
}

// simulateDeviceLatency blocks until k.ioClock fires, but only for I/O
// against the console vnode: in-memory file vnodes have no physical
// device behind them and complete instantly, but the console stands in
// for one, and a FakeClock-backed ioClock makes that latency real
// enough to exercise the kernel's suspension points around device I/O.
func (k *Kernel) simulateDeviceLatency(f *openfile.File) {
	if f.Vnode() != k.fs.Console() {
		return
	}
	<-k.ioClock.After(0)
}

func (k *Kernel) recordSyscall(ctx context.Context, name string, start time.Time, err error) {
	k.metrics.SyscallCount(ctx, name)
	k.metrics.SyscallLatency(ctx, name, time.Since(start))
	k.metrics.OpenFileTableInUse(ctx, int64(k.openTable.InUse()))
	k.metrics.ProcessTableInUse(ctx, int64(k.procTable.InUse()))
	if err != nil {
		k.metrics.SyscallErrorCount(ctx, name, errnoName(err))
	}
}

func errnoName(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("%v", err)
}
