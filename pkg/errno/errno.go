// Package errno defines the kernel's error taxonomy. Every boundary between
// a primitive (allocator, block device, filesystem) and the syscall
// dispatcher either translates its error into one of these values or passes
// it through unchanged; the dispatcher negates the value into the syscall
// return register.
package errno

import "fmt"

// Errno is a kernel error code. The zero value is not an error.
type Errno int32

// Error implements error.
func (e Errno) Error() string {
	if s, ok := names[e]; ok {
		return s
	}
	return fmt.Sprintf("errno(%d)", int32(e))
}

// Negated returns the syscall-return-register encoding of e: -errno.
func (e Errno) Negated() int64 {
	return -int64(e)
}

// The taxonomy from spec.md §7.
const (
	EINVAL  Errno = iota + 1 // argument errors
	EFAULT                   // bad user pointer
	ERANGE
	EACCES // permission / existence
	EPERM
	ENOENT
	EEXIST
	ENOTDIR
	EISDIR
	EBUSY
	ENOMEM // resource
	EMFILE
	ENFILE
	ENOSPC
	EDQUOT
	EIO // I/O and device
	ENODEV
	ESRCH // liveness / process
	ECHILD
	EINTR
	ENOEXEC
	ENOSYS
	ENOTTY
)

var names = map[Errno]string{
	EINVAL:  "EINVAL",
	EFAULT:  "EFAULT",
	ERANGE:  "ERANGE",
	EACCES:  "EACCES",
	EPERM:   "EPERM",
	ENOENT:  "ENOENT",
	EEXIST:  "EEXIST",
	ENOTDIR: "ENOTDIR",
	EISDIR:  "EISDIR",
	EBUSY:   "EBUSY",
	ENOMEM:  "ENOMEM",
	EMFILE:  "EMFILE",
	ENFILE:  "ENFILE",
	ENOSPC:  "ENOSPC",
	EDQUOT:  "EDQUOT",
	EIO:     "EIO",
	ENODEV:  "ENODEV",
	ESRCH:   "ESRCH",
	ECHILD:  "ECHILD",
	EINTR:   "EINTR",
	ENOEXEC: "ENOEXEC",
	ENOSYS:  "ENOSYS",
	ENOTTY:  "ENOTTY",
}

// Is reports whether err wraps (or is) the given Errno.
func Is(err error, target Errno) bool {
	e, ok := err.(Errno)
	return ok && e == target
}
