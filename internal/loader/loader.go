// Package loader is the kernel's stand-in for the ELF loader, which the core kernel
// treats as an external collaborator. Rather than parsing program
// headers out of a binary image, it resolves a path to a small
// registered Go function — the loaded "entry point" execv jumps to.
package loader

import (
	"fmt"
	"io"
	"sync"

	"github.com/gokernel/kernel/internal/kerrno"
)

// Env is the execution environment handed to a loaded program: its
// argument vector and the console streams it reads and writes.
type Env struct {
	Args   []string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Program is one loadable image: the path it is registered under and
// the entry function execv jumps to in place of a real user-mode
// instruction stream.
type Program struct {
	Path  string
	Entry func(env Env) int
}

// Registry resolves paths to programs, the way the ELF loader resolves
// a vnode to a parsed image.
type Registry struct {
	mu       sync.RWMutex
	programs map[string]Program
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{programs: make(map[string]Program)}
}

// Register installs a program at path, overwriting any prior entry.
func (r *Registry) Register(path string, p Program) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.Path = path
	r.programs[path] = p
}

// Paths returns every registered program path, used at boot to seed
// the filesystem with placeholder vnodes so vfs_open can resolve them
// before the loader ever gets a chance to refuse an unknown path.
func (r *Registry) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	paths := make([]string, 0, len(r.programs))
	for p := range r.programs {
		paths = append(paths, p)
	}
	return paths
}

// Load resolves path to a Program, the moral equivalent of mapping the
// ELF image and reading its entry point. Unknown paths fail ENOENT,
// same as vfs_open would for a nonexistent executable.
func (r *Registry) Load(path string) (Program, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.programs[path]
	if !ok {
		return Program{}, kerrno.ENOENT
	}
	return p, nil
}

// NewDefaultRegistry returns a registry pre-populated with the handful
// of coreutils-style programs the interactive shell can fork and exec.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("/bin/true", Program{Entry: func(Env) int { return 0 }})
	r.Register("/bin/false", Program{Entry: func(Env) int { return 1 }})
	r.Register("/bin/echo", Program{Entry: func(env Env) int {
		for i, a := range env.Args[1:] {
			if i > 0 {
				fmt.Fprint(env.Stdout, " ")
			}
			fmt.Fprint(env.Stdout, a)
		}
		fmt.Fprintln(env.Stdout)
		return 0
	}})
	r.Register("/bin/cat", Program{Entry: func(env Env) int {
		// Takes no file operands: it copies its console stdin to its
		// console stdout, the way a shell pipeline would use it.
		io.Copy(env.Stdout, env.Stdin)
		return 0
	}})
	return r
}
