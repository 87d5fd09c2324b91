// Package kerrno defines the kernel's numeric error taxonomy. Every code a
// dispatcher returns to a caller is a golang.org/x/sys/unix.Errno, so the
// numbers it sees are the real platform errno values rather than an
// invented enumeration.
package kerrno

import "golang.org/x/sys/unix"

// Errno is a kernel-visible error code.
type Errno = unix.Errno

const (
	EBADF  Errno = unix.EBADF
	EFAULT Errno = unix.EFAULT
	ENOMEM Errno = unix.ENOMEM
	ENFILE Errno = unix.ENFILE
	EMFILE Errno = unix.EMFILE
	ENPROC Errno = unix.ENPROC
	EINVAL Errno = unix.EINVAL
	E2BIG  Errno = unix.E2BIG
	ESRCH  Errno = unix.ESRCH
	ECHILD Errno = unix.ECHILD

	// VFS pass-through codes.
	ENOENT Errno = unix.ENOENT
	ENXIO  Errno = unix.ENXIO
	ENODEV Errno = unix.ENODEV
	EEXIST Errno = unix.EEXIST
	EISDIR Errno = unix.EISDIR
	ENOSPC Errno = unix.ENOSPC
	EIO    Errno = unix.EIO
)
