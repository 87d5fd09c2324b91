// Package addrspace is the kernel's stand-in for the address-space
// abstraction the core kernel treats as an external collaborator: create,
// destroy, copy, activate, define_stack. Each process owns exactly one
// and it is never shared — fork always copies it.
package addrspace

import (
	"sync"

	"github.com/gokernel/kernel/internal/kerrno"
)

// defaultSize is the flat simulated memory region given to a fresh
// address space. DefineStack places the initial stack pointer at the top
// of it; syscall scratch staging (Process.AllocScratch) grows up from
// address 0. Nothing is written onto the stack region, argv included.
const defaultSize = 1 << 20 // 1 MiB

// AddressSpace is a process's private virtual memory, modelled as one
// flat byte slice rather than real page tables — there is no MMU to
// program here, only the copy semantics fork and exec depend on.
type AddressSpace struct {
	mu       sync.Mutex
	mem      []byte
	active   bool
	stackTop int64
}

// Create allocates a fresh, zeroed address space.
func Create() (*AddressSpace, error) {
	return &AddressSpace{mem: make([]byte, defaultSize)}, nil
}

// Destroy releases the address space's backing memory. Called once the
// owning process has detached it and it is no longer active.
func (as *AddressSpace) Destroy() {
	as.mu.Lock()
	defer as.mu.Unlock()
	as.mem = nil
}

// Copy produces an independent duplicate with identical contents, used
// by fork's as_copy step. Mutations to either copy are invisible to
// the other.
func (as *AddressSpace) Copy() (*AddressSpace, error) {
	as.mu.Lock()
	defer as.mu.Unlock()
	if as.mem == nil {
		return nil, kerrno.ENOMEM
	}
	clone := make([]byte, len(as.mem))
	copy(clone, as.mem)
	return &AddressSpace{mem: clone, stackTop: as.stackTop}, nil
}

// Activate marks this address space as the one the running thread is
// executing against. There's no TLB to reload; it only exists so exec
// can express "install the new space, destroy the old one, then
// new.Activate()" in the order execv needs.
func (as *AddressSpace) Activate() {
	as.mu.Lock()
	defer as.mu.Unlock()
	as.active = true
}

// DefineStack reserves the top of the region for the user stack and
// returns the initial stack pointer.
func (as *AddressSpace) DefineStack() (stackPointer int64, err error) {
	as.mu.Lock()
	defer as.mu.Unlock()
	if as.mem == nil {
		return 0, kerrno.ENOMEM
	}
	as.stackTop = int64(len(as.mem))
	return as.stackTop, nil
}

// ReadAt copies len(p) bytes starting at addr out of the address
// space, failing EFAULT if the range falls outside it.
func (as *AddressSpace) ReadAt(addr int64, p []byte) error {
	as.mu.Lock()
	defer as.mu.Unlock()
	if addr < 0 || addr+int64(len(p)) > int64(len(as.mem)) {
		return kerrno.EFAULT
	}
	copy(p, as.mem[addr:addr+int64(len(p))])
	return nil
}

// WriteAt copies p into the address space starting at addr, failing
// EFAULT if the range falls outside it.
func (as *AddressSpace) WriteAt(addr int64, p []byte) error {
	as.mu.Lock()
	defer as.mu.Unlock()
	if addr < 0 || addr+int64(len(p)) > int64(len(as.mem)) {
		return kerrno.EFAULT
	}
	copy(as.mem[addr:addr+int64(len(p))], p)
	return nil
}

// Size reports the address space's total addressable range.
func (as *AddressSpace) Size() int64 {
	as.mu.Lock()
	defer as.mu.Unlock()
	return int64(len(as.mem))
}
