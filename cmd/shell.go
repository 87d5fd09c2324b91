package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gokernel/kernel/cfg"
	"github.com/gokernel/kernel/internal/kmetrics"
	"github.com/gokernel/kernel/internal/loader"
	"github.com/gokernel/kernel/internal/logger"
	"github.com/gokernel/kernel/internal/syscalls"
	"github.com/gokernel/kernel/internal/trapframe"
	"github.com/gokernel/kernel/internal/vfs"
)

// RunShell boots a *syscalls.Kernel wired to in and out as its console
// device, spawns the first process (the shell itself, nothing forked
// it), and drives a line-oriented REPL over in that issues syscalls
// directly against that process: run, fork, wait, open, write, read,
// close, cd, pwd, ps, exit.
func RunShell(c cfg.Config, metrics kmetrics.Handle, in io.Reader, out, errOut io.Writer) error {
	ctx := context.Background()
	fs := vfs.New(in, out)
	reg := loader.NewDefaultRegistry()
	kernel := syscalls.New(c.Kernel, fs, reg, metrics)

	shell, err := kernel.Spawn("kernshell")
	if err != nil {
		return fmt.Errorf("spawning the shell process: %w", err)
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprintf(out, "kernshell(%d)$ ", shell.Pid)
		if !scanner.Scan() {
			return nil
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "run":
			runCommand(ctx, kernel, shell, fields[1:], in, out, errOut)
		case "fork":
			forkCommand(ctx, kernel, shell, out)
		case "wait":
			waitCommand(ctx, kernel, shell, fields[1:], out)
		case "open":
			openCommand(ctx, kernel, shell, fields[1:], out)
		case "write":
			writeCommand(ctx, kernel, shell, fields[1:], out)
		case "read":
			readCommand(ctx, kernel, shell, fields[1:], out)
		case "close":
			closeCommand(ctx, kernel, shell, fields[1:], out)
		case "cd":
			cdCommand(ctx, kernel, shell, fields[1:], out)
		case "pwd":
			pwdCommand(ctx, kernel, shell, out)
		case "ps":
			psCommand(kernel, c.Kernel.ProcMax, out)
		case "exit":
			code := 0
			if len(fields) > 1 {
				code, _ = strconv.Atoi(fields[1])
			}
			kernel.Exit(ctx, shell, code)
			return nil
		default:
			fmt.Fprintf(out, "unknown command %q\n", fields[0])
		}
	}
}

func runCommand(ctx context.Context, k *syscalls.Kernel, shell *syscalls.Process, argv []string, in io.Reader, out, errOut io.Writer) {
	if len(argv) == 0 {
		fmt.Fprintln(out, "usage: run <path> [args...]")
		return
	}
	path := argv[0]

	childPid, err := k.Fork(ctx, shell, &trapframe.Frame{}, func(child *syscalls.Process, frame *trapframe.Frame) {
		env := loader.Env{Stdin: in, Stdout: out, Stderr: errOut}
		if execErr := k.Execv(ctx, child, path, argv, env); execErr != nil {
			logger.Warnf("execv(%s) failed: %v", path, execErr)
			k.Exit(ctx, child, 1)
		}
	})
	if err != nil {
		fmt.Fprintf(out, "run: fork: %v\n", err)
		return
	}

	_, status, err := k.Waitpid(ctx, shell, childPid, 0)
	if err != nil {
		fmt.Fprintf(out, "run: waitpid: %v\n", err)
		return
	}
	fmt.Fprintf(out, "[%d] exited %d\n", childPid, status)
}

func forkCommand(ctx context.Context, k *syscalls.Kernel, shell *syscalls.Process, out io.Writer) {
	childPid, err := k.Fork(ctx, shell, &trapframe.Frame{}, func(child *syscalls.Process, frame *trapframe.Frame) {
		// A bare fork with nothing execv'd has nothing left to do: it
		// exits immediately and waits to be reaped, the same way a
		// forked child that calls _exit right away would.
		k.Exit(ctx, child, 0)
	})
	if err != nil {
		fmt.Fprintf(out, "fork: %v\n", err)
		return
	}
	fmt.Fprintf(out, "%d\n", childPid)
}

func waitCommand(ctx context.Context, k *syscalls.Kernel, shell *syscalls.Process, args []string, out io.Writer) {
	if len(args) != 1 {
		fmt.Fprintln(out, "usage: wait <pid>")
		return
	}
	pid, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintf(out, "wait: invalid pid %q\n", args[0])
		return
	}
	gotPid, status, err := k.Waitpid(ctx, shell, pid, 0)
	if err != nil {
		fmt.Fprintf(out, "wait: %v\n", err)
		return
	}
	fmt.Fprintf(out, "%d exited %d\n", gotPid, status)
}

func openCommand(ctx context.Context, k *syscalls.Kernel, shell *syscalls.Process, args []string, out io.Writer) {
	if len(args) < 1 {
		fmt.Fprintln(out, "usage: open <path>")
		return
	}
	flags := vfs.O_CREAT | vfs.O_RDWR
	fd, err := k.Open(ctx, shell, args[0], flags, 0o644)
	if err != nil {
		fmt.Fprintf(out, "open: %v\n", err)
		return
	}
	fmt.Fprintf(out, "%d\n", fd)
}

func writeCommand(ctx context.Context, k *syscalls.Kernel, shell *syscalls.Process, args []string, out io.Writer) {
	if len(args) < 2 {
		fmt.Fprintln(out, "usage: write <fd> <text...>")
		return
	}
	fd, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintf(out, "write: invalid fd %q\n", args[0])
		return
	}
	n, err := k.Write(ctx, shell, fd, []byte(strings.Join(args[1:], " ")+"\n"))
	if err != nil {
		fmt.Fprintf(out, "write: %v\n", err)
		return
	}
	fmt.Fprintf(out, "%d\n", n)
}

func readCommand(ctx context.Context, k *syscalls.Kernel, shell *syscalls.Process, args []string, out io.Writer) {
	if len(args) != 2 {
		fmt.Fprintln(out, "usage: read <fd> <len>")
		return
	}
	fd, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintf(out, "read: invalid fd %q\n", args[0])
		return
	}
	length, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Fprintf(out, "read: invalid length %q\n", args[1])
		return
	}
	data, err := k.Read(ctx, shell, fd, length)
	if err != nil {
		fmt.Fprintf(out, "read: %v\n", err)
		return
	}
	fmt.Fprintf(out, "%q\n", string(data))
}

func closeCommand(ctx context.Context, k *syscalls.Kernel, shell *syscalls.Process, args []string, out io.Writer) {
	if len(args) != 1 {
		fmt.Fprintln(out, "usage: close <fd>")
		return
	}
	fd, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintf(out, "close: invalid fd %q\n", args[0])
		return
	}
	if err := k.Close(ctx, shell, fd); err != nil {
		fmt.Fprintf(out, "close: %v\n", err)
	}
}

func cdCommand(ctx context.Context, k *syscalls.Kernel, shell *syscalls.Process, args []string, out io.Writer) {
	if len(args) != 1 {
		fmt.Fprintln(out, "usage: cd <path>")
		return
	}
	if err := k.Chdir(ctx, shell, args[0]); err != nil {
		fmt.Fprintf(out, "cd: %v\n", err)
	}
}

func pwdCommand(ctx context.Context, k *syscalls.Kernel, shell *syscalls.Process, out io.Writer) {
	cwd, err := k.Getcwd(ctx, shell)
	if err != nil {
		fmt.Fprintf(out, "pwd: %v\n", err)
		return
	}
	fmt.Fprintln(out, cwd)
}

func psCommand(k *syscalls.Kernel, procMax int, out io.Writer) {
	fmt.Fprintln(out, "PID\tPPID\tTHREADS\tSTATE\tAGE\tNAME")
	for pid := 0; pid <= procMax; pid++ {
		p := k.Process(pid)
		if p == nil {
			continue
		}
		state := "running"
		if p.Exited() {
			state = fmt.Sprintf("exited(%d)", p.ExitStatus())
		}
		fmt.Fprintf(out, "%d\t%d\t%d\t%s\t%s\t%s\n", p.Pid, p.ParentPid(), p.ThreadCount(), state, time.Since(p.StartedAt).Round(time.Millisecond), p.Name)
	}
}
