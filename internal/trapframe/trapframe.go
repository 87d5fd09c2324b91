// Package trapframe models the machine-dependent register-file
// snapshot the kernel keeps opaque: fork must copy it by value and hand
// the copy to the child thread's entry trampoline.
package trapframe

// Frame is an opaque register snapshot captured at the user-to-kernel
// trap boundary. Its fields stand in for the registers a real
// trapframe carries (program counter, stack pointer, return value
// registers) without committing to any particular instruction set.
type Frame struct {
	PC      uint64
	SP      uint64
	Regs    [32]uint64
	ReturnV [2]uint64
}

// Copy returns an independent snapshot of f, the 1:1 copy fork takes
// before handing it to the child's entry trampoline.
func (f *Frame) Copy() *Frame {
	clone := *f
	return &clone
}

// SetReturn sets the syscall return-value registers the child sees
// when the trampoline resumes it in user mode: v0 = 0, v1 = 0 signals
// success with no error, matching the fork() contract that the child
// observes a return value of 0.
func (f *Frame) SetReturn(v0, v1 uint64) {
	f.ReturnV[0] = v0
	f.ReturnV[1] = v1
}
