// Package syscalls implements the validated syscall entry point of
// spec.md §4.6 (component C7): a stable call-number table, pointer-range
// argument validation against the caller's address space, and translation
// of internal errors to the pkg/errno taxonomy. It plays the role the
// teacher's linux.AMD64.Table (built by vfs2.Override in the original
// retrieval) plays for gVisor: one map from call number to handler,
// assembled once at init.
package syscalls

import (
	"github.com/IRodriguez13/IR0-sub002/pkg/context"
)

// Number is a syscall call number (spec.md §4.6).
type Number uintptr

// The call-number table named in spec.md §4.6, in the order listed there.
const (
	SysExit Number = iota
	SysFork
	SysRead
	SysWrite
	SysOpen
	SysClose
	SysExec
	SysWait
	SysKill
	SysGetpid
	SysGetppid
	SysSleep
	SysYield
	SysGettime
	SysChdir
	SysGetcwd
	SysMkdir
	SysRmdir
	SysStat
	SysFstat
	SysLseek
	SysDup
	SysDup2
	SysPipe
	SysLink
	SysUnlink
	SysBrk
	SysMmap
	SysMunmap
	SysGetuid
	SysSetuid
	SysSignal
	SysSigaction
	SysSigprocmask
	SysSigsuspend
	SysAlarm
	SysLs
	SysMount
	SysKernelInfo
	SysGetBlockDevices
)

// Args are the up-to-six syscall arguments, passed by register convention
// (spec.md §6); unused trailing arguments are zero. Path and Buf carry the
// content a real pointer argument would reference: since the ELF loader
// and any actual user-program memory image are out of scope (spec.md §1),
// this simulator has no backing bytes behind a user virtual address to
// decode a string or buffer from, so handlers that need path/buffer
// content read it here instead of walking AddressSpace; Regs alone still
// carries every syscall whose arguments are purely numeric (pids, flags,
// lengths, signal numbers).
type Args struct {
	Regs [6]uint64
	Path string
	Buf  []byte
}

// Handler implements one syscall. A negative return value is -errno
// (spec.md §4.6 step 3); ctx carries the calling task's identity.
type Handler func(ctx context.Context, args Args) int64

// Table maps call numbers to handlers. Numbers absent from the table are
// rejected with EINVAL by Dispatch, per spec.md §4.6 step 1.
type Table map[Number]Handler

// names gives each call number the name used in logging and /proc/netinfo
// -style diagnostics; kept alongside the table rather than derived by
// reflection, matching the teacher's own named-map-of-syscalls style.
var names = map[Number]string{
	SysExit: "exit", SysFork: "fork", SysRead: "read", SysWrite: "write",
	SysOpen: "open", SysClose: "close", SysExec: "exec", SysWait: "wait",
	SysKill: "kill", SysGetpid: "getpid", SysGetppid: "getppid",
	SysSleep: "sleep", SysYield: "yield", SysGettime: "gettime",
	SysChdir: "chdir", SysGetcwd: "getcwd", SysMkdir: "mkdir",
	SysRmdir: "rmdir", SysStat: "stat", SysFstat: "fstat", SysLseek: "lseek",
	SysDup: "dup", SysDup2: "dup2", SysPipe: "pipe", SysLink: "link",
	SysUnlink: "unlink", SysBrk: "brk", SysMmap: "mmap", SysMunmap: "munmap",
	SysGetuid: "getuid", SysSetuid: "setuid", SysSignal: "signal",
	SysSigaction: "sigaction", SysSigprocmask: "sigprocmask",
	SysSigsuspend: "sigsuspend", SysAlarm: "alarm", SysLs: "ls",
	SysMount: "mount", SysKernelInfo: "kernel_info",
	SysGetBlockDevices: "get_block_devices",
}

// Name returns the syscall's diagnostic name, or "unknown" if n is outside
// the registered table.
func Name(n Number) string {
	if s, ok := names[n]; ok {
		return s
	}
	return "unknown"
}
