package syscalls

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gokernel/kernel/cfg"
	"github.com/gokernel/kernel/internal/kerrno"
	"github.com/gokernel/kernel/internal/kmetrics"
	"github.com/gokernel/kernel/internal/loader"
	"github.com/gokernel/kernel/internal/trapframe"
	"github.com/gokernel/kernel/internal/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKernel(t *testing.T) (*Kernel, context.Context) {
	t.Helper()
	c := cfg.KernelConfig{OpenMax: 8, ProcMax: 8, PathMax: 256, ArgMax: 16}
	fs := vfs.New(bytes.NewReader(nil), &bytes.Buffer{})
	reg := loader.NewDefaultRegistry()
	k := New(c, fs, reg, kmetrics.NewNoop())
	return k, context.Background()
}

func spawnShell(t *testing.T, k *Kernel) *Process {
	t.Helper()
	p, err := k.Spawn("shell")
	require.NoError(t, err)
	return p
}

func TestFDUniquenessAcrossOpens(t *testing.T) {
	k, ctx := newTestKernel(t)
	p := spawnShell(t, k)

	fd1, err := k.Open(ctx, p, "/a.txt", vfs.O_CREAT|vfs.O_RDWR, 0o644)
	require.NoError(t, err)
	fd2, err := k.Open(ctx, p, "/b.txt", vfs.O_CREAT|vfs.O_RDWR, 0o644)
	require.NoError(t, err)

	assert.NotEqual(t, fd1, fd2)
	f1, err := p.FDTable.Get(fd1)
	require.NoError(t, err)
	f2, err := p.FDTable.Get(fd2)
	require.NoError(t, err)
	assert.NotEqual(t, f1.ID(), f2.ID())
}

func TestRefcountReleasesVnodeOnlyOnLastClose(t *testing.T) {
	k, ctx := newTestKernel(t)
	p := spawnShell(t, k)

	fd, err := k.Open(ctx, p, "/shared.txt", vfs.O_CREAT|vfs.O_RDWR, 0o644)
	require.NoError(t, err)

	dupFd, err := k.Dup2(ctx, p, fd, 6)
	require.NoError(t, err)
	assert.Equal(t, 6, dupFd)

	require.NoError(t, k.Close(ctx, p, fd))
	// The shared file is still reachable through the dup'd descriptor.
	n, err := k.Write(ctx, p, dupFd, []byte("hi"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, k.Close(ctx, p, dupFd))
	_, err = p.FDTable.Get(dupFd)
	assert.ErrorIs(t, err, kerrno.EBADF)
}

func TestOffsetSerializationAcrossConcurrentWriters(t *testing.T) {
	k, ctx := newTestKernel(t)
	p := spawnShell(t, k)

	fd, err := k.Open(ctx, p, "/log.txt", vfs.O_CREAT|vfs.O_RDWR, 0o644)
	require.NoError(t, err)

	const writers = 10
	chunk := []byte("0123456789")
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			_, _ = k.Write(ctx, p, fd, chunk)
		}()
	}
	wg.Wait()

	f, err := p.FDTable.Get(fd)
	require.NoError(t, err)
	assert.Equal(t, int64(writers*len(chunk)), f.Vnode().Size())
}

func TestForkIsolatesAddressSpace(t *testing.T) {
	k, ctx := newTestKernel(t)
	parent := spawnShell(t, k)
	tf := &trapframe.Frame{PC: 0x400000}

	done := make(chan int, 1)
	childPid, err := k.Fork(ctx, parent, tf, func(child *Process, frame *trapframe.Frame) {
		require.NoError(t, child.AddrSpace.WriteAt(0, []byte("child")))
		done <- child.Pid
	})
	require.NoError(t, err)
	assert.Equal(t, <-done, childPid)

	child := k.Process(childPid)
	require.NotNil(t, child)

	parentBuf := make([]byte, 5)
	require.NoError(t, parent.AddrSpace.ReadAt(0, parentBuf))
	assert.NotEqual(t, "child", string(parentBuf))
}

func TestForkSharesFileOffsetWithParent(t *testing.T) {
	k, ctx := newTestKernel(t)
	parent := spawnShell(t, k)
	fd, err := k.Open(ctx, parent, "/shared.txt", vfs.O_CREAT|vfs.O_RDWR, 0o644)
	require.NoError(t, err)

	done := make(chan struct{})
	_, err = k.Fork(ctx, parent, &trapframe.Frame{}, func(child *Process, frame *trapframe.Frame) {
		_, werr := k.Write(ctx, child, fd, []byte("from-child"))
		assert.NoError(t, werr)
		close(done)
	})
	require.NoError(t, err)
	<-done

	n, err := k.Write(ctx, parent, fd, []byte("!"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	f, err := parent.FDTable.Get(fd)
	require.NoError(t, err)
	assert.Equal(t, int64(len("from-child")+1), f.Vnode().Size())
}

func TestWaitExitRendezvousDeliversStatus(t *testing.T) {
	k, ctx := newTestKernel(t)
	parent := spawnShell(t, k)

	childPid, err := k.Fork(ctx, parent, &trapframe.Frame{}, func(child *Process, frame *trapframe.Frame) {
		time.Sleep(10 * time.Millisecond)
		k.Exit(ctx, child, 42)
	})
	require.NoError(t, err)

	gotPid, status, err := k.Waitpid(ctx, parent, childPid, 0)
	require.NoError(t, err)
	assert.Equal(t, childPid, gotPid)
	assert.Equal(t, 42, status)

	assert.Nil(t, k.Process(childPid), "reaped child should no longer occupy a table slot")
}

func TestWaitpidRejectsSelfWait(t *testing.T) {
	k, ctx := newTestKernel(t)
	p := spawnShell(t, k)

	_, _, err := k.Waitpid(ctx, p, p.Pid, 0)
	assert.ErrorIs(t, err, kerrno.ECHILD)
}

func TestWaitpidRejectsNonChildPid(t *testing.T) {
	k, ctx := newTestKernel(t)
	a := spawnShell(t, k)
	b := spawnShell(t, k)

	_, _, err := k.Waitpid(ctx, a, b.Pid, 0)
	assert.ErrorIs(t, err, kerrno.ECHILD)
}

func TestWaitpidWNOHANGReturnsImmediatelyWhenRunning(t *testing.T) {
	k, ctx := newTestKernel(t)
	parent := spawnShell(t, k)

	release := make(chan struct{})
	childPid, err := k.Fork(ctx, parent, &trapframe.Frame{}, func(child *Process, frame *trapframe.Frame) {
		<-release
		k.Exit(ctx, child, 0)
	})
	require.NoError(t, err)

	gotPid, _, err := k.Waitpid(ctx, parent, childPid, WNOHANG)
	require.NoError(t, err)
	assert.Equal(t, 0, gotPid)

	close(release)
	gotPid, _, err = k.Waitpid(ctx, parent, childPid, 0)
	require.NoError(t, err)
	assert.Equal(t, childPid, gotPid)
}

func TestPIDRecyclingAfterFullReapCycle(t *testing.T) {
	c := cfg.KernelConfig{OpenMax: 8, ProcMax: 2, PathMax: 256, ArgMax: 16}
	fs := vfs.New(bytes.NewReader(nil), &bytes.Buffer{})
	k := New(c, fs, loader.NewDefaultRegistry(), kmetrics.NewNoop())
	parent := spawnShell(t, k)

	var pids []int
	for i := 0; i < 2; i++ {
		pid, err := k.Fork(ctx(), parent, &trapframe.Frame{}, func(child *Process, frame *trapframe.Frame) {
			k.Exit(ctx(), child, 0)
		})
		require.NoError(t, err)
		pids = append(pids, pid)
	}

	for _, pid := range pids {
		_, _, err := k.Waitpid(ctx(), parent, pid, 0)
		require.NoError(t, err)
	}

	pid, err := k.Fork(ctx(), parent, &trapframe.Frame{}, func(child *Process, frame *trapframe.Frame) {
		k.Exit(ctx(), child, 0)
	})
	require.NoError(t, err)
	assert.Contains(t, pids, pid)
}

func ctx() context.Context { return context.Background() }

func TestExecvRunsRegisteredProgramAndExits(t *testing.T) {
	k, ctx := newTestKernel(t)
	parent := spawnShell(t, k)

	var out bytes.Buffer
	env := loader.Env{Stdin: bytes.NewReader(nil), Stdout: &out, Stderr: &out}
	err := k.Execv(ctx, parent, "/bin/echo", []string{"echo", "hello", "world"}, env)
	require.NoError(t, err)

	assert.True(t, parent.Exited())
	assert.Equal(t, 0, parent.ExitStatus())
	assert.Equal(t, "hello world\n", out.String())
}

func TestExecvUnknownPathFailsCleanlyBeforeInstall(t *testing.T) {
	k, ctx := newTestKernel(t)
	parent := spawnShell(t, k)
	oldAS := parent.AddrSpace

	env := loader.Env{Stdin: bytes.NewReader(nil), Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
	err := k.Execv(ctx, parent, "/nonexistent", nil, env)
	assert.ErrorIs(t, err, kerrno.ENOENT)
	assert.False(t, parent.Exited())
	assert.Same(t, oldAS, parent.AddrSpace)
}

func TestExecvTooManyArgsFailsE2BIG(t *testing.T) {
	k, ctx := newTestKernel(t)
	parent := spawnShell(t, k)

	argv := make([]string, parent.FDTable.Len()+100)
	for i := range argv {
		argv[i] = "x"
	}
	env := loader.Env{Stdin: bytes.NewReader(nil), Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
	err := k.Execv(ctx, parent, "/bin/true", argv, env)
	assert.ErrorIs(t, err, kerrno.E2BIG)
}

func TestGetpidReturnsOwnPid(t *testing.T) {
	k, ctx := newTestKernel(t)
	p := spawnShell(t, k)
	assert.Equal(t, p.Pid, k.Getpid(ctx, p))
}

func TestCloseUnknownFDFailsEBADF(t *testing.T) {
	k, ctx := newTestKernel(t)
	p := spawnShell(t, k)
	err := k.Close(ctx, p, 99)
	assert.ErrorIs(t, err, kerrno.EBADF)
}

func TestChdirAndGetcwdRoundTrip(t *testing.T) {
	k, ctx := newTestKernel(t)
	p := spawnShell(t, k)

	// /bin exists because the program registry seeds it with executables.
	require.NoError(t, k.Chdir(ctx, p, "/bin"))
	cwd, err := k.Getcwd(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "/bin", cwd)
}

func TestRemoveMissingFileFailsENOENT(t *testing.T) {
	k, ctx := newTestKernel(t)
	p := spawnShell(t, k)

	err := k.Remove(ctx, p, "/does-not-exist")
	assert.ErrorIs(t, err, kerrno.ENOENT)
}

func TestConsoleWriteAppliesConfiguredLatency(t *testing.T) {
	c := cfg.KernelConfig{OpenMax: 8, ProcMax: 8, PathMax: 256, ArgMax: 16, ConsoleLatencyMS: 20}
	fs := vfs.New(bytes.NewReader(nil), &bytes.Buffer{})
	k := New(c, fs, loader.NewDefaultRegistry(), kmetrics.NewNoop())
	p := spawnShell(t, k)

	start := time.Now()
	_, err := k.Write(context.Background(), p, 1, []byte("hi"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestFileWriteHasNoConsoleLatency(t *testing.T) {
	c := cfg.KernelConfig{OpenMax: 8, ProcMax: 8, PathMax: 256, ArgMax: 16, ConsoleLatencyMS: 500}
	fs := vfs.New(bytes.NewReader(nil), &bytes.Buffer{})
	k := New(c, fs, loader.NewDefaultRegistry(), kmetrics.NewNoop())
	p := spawnShell(t, k)

	fd, err := k.Open(context.Background(), p, "/f.txt", vfs.O_CREAT|vfs.O_RDWR, 0o644)
	require.NoError(t, err)

	start := time.Now()
	_, err = k.Write(context.Background(), p, fd, []byte("hi"))
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}
