// Package ucopy is the kernel's stand-in for the user/kernel copy
// primitives the core kernel treats as external collaborators: copyin,
// copyout, copyinstr. Every dispatcher that touches a user buffer goes
// through here instead of poking an address space directly, so the
// EFAULT contract lives in exactly one place.
package ucopy

import (
	"github.com/gokernel/kernel/internal/addrspace"
	"github.com/gokernel/kernel/internal/kerrno"
)

// In copies length bytes from the user address addr in as into a
// freshly allocated kernel buffer.
func In(as *addrspace.AddressSpace, addr int64, length int) ([]byte, error) {
	buf := make([]byte, length)
	if err := as.ReadAt(addr, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Out copies buf from the kernel into the user address addr in as.
func Out(as *addrspace.AddressSpace, addr int64, buf []byte) error {
	return as.WriteAt(addr, buf)
}

// InString copies a NUL-terminated string from the user address addr,
// reading at most max bytes including the terminator. It fails EFAULT
// if addr is out of range or no NUL terminator appears within max
// bytes — the caller (open, chdir, execv) is responsible for choosing
// max as PATH_MAX or ARG_MAX.
func InString(as *addrspace.AddressSpace, addr int64, max int) (string, error) {
	buf := make([]byte, max)
	if err := as.ReadAt(addr, buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i]), nil
		}
	}
	return "", kerrno.EFAULT
}

// OutString writes s followed by a NUL terminator to the user address
// addr. open, chdir and execv use it to stage their string arguments in
// the caller's scratch region before reading them back with InString;
// execv does not copy argv onto the new user stack.
func OutString(as *addrspace.AddressSpace, addr int64, s string) error {
	buf := make([]byte, len(s)+1)
	copy(buf, s)
	return as.WriteAt(addr, buf)
}
