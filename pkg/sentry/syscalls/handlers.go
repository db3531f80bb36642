package syscalls

import (
	"github.com/IRodriguez13/IR0-sub002/pkg/context"
	"github.com/IRodriguez13/IR0-sub002/pkg/errno"
	"github.com/IRodriguez13/IR0-sub002/pkg/hostarch"
	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/fsimpl/pipefs"
	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/fsimpl/ramfs"
	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/fsimpl/tmpfs"
	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/kernel"
	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/mm"
	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/vfs"
)

// currentTask resolves the calling task from ctx's attached caller
// identity, set by the boot/scheduler layer before invoking Dispatch.
func currentTask(ctx context.Context, k *kernel.Kernel) (*kernel.Task, error) {
	info := context.Caller(ctx)
	t, ok := k.Lookup(info.PID)
	if !ok {
		return nil, errno.ESRCH
	}
	return t, nil
}

func ret(err error) int64 {
	if err == nil {
		return 0
	}
	if e, ok := err.(errno.Errno); ok {
		return e.Negated()
	}
	switch err {
	case kernel.ErrNoSuchProcess:
		return errno.ESRCH.Negated()
	case kernel.ErrPermissionDenied:
		return errno.EPERM.Negated()
	case kernel.ErrNoChildren:
		return errno.ECHILD.Negated()
	case kernel.ErrOutOfMemory:
		return errno.ENOMEM.Negated()
	case kernel.ErrTooManyProcesses:
		return errno.ENOMEM.Negated()
	default:
		return errno.EIO.Negated()
	}
}

// defaultTable builds the call-number table of spec.md §4.6, closing over
// k and v so each handler has kernel/VFS access without threading them
// through the Handler signature.
func defaultTable(k *kernel.Kernel, v *vfs.VirtualFilesystem) Table {
	return Table{
		SysExit: func(ctx context.Context, a Args) int64 {
			t, err := currentTask(ctx, k)
			if err != nil {
				return ret(err)
			}
			k.Exit(t, int(int64(a.Regs[0])))
			return 0
		},
		SysFork: func(ctx context.Context, a Args) int64 {
			parent, err := currentTask(ctx, k)
			if err != nil {
				return ret(err)
			}
			child, err := k.Fork(parent)
			if err != nil {
				return ret(err)
			}
			return int64(child.PID())
		},
		SysWait: func(ctx context.Context, a Args) int64 {
			parent, err := currentTask(ctx, k)
			if err != nil {
				return ret(err)
			}
			pid, _, err := k.Wait(parent)
			if err != nil {
				return ret(err)
			}
			return int64(pid)
		},
		SysKill: func(ctx context.Context, a Args) int64 {
			caller, err := currentTask(ctx, k)
			if err != nil {
				return ret(err)
			}
			return ret(k.Kill(caller, a.Regs[0], kernel.Signal(a.Regs[1])))
		},
		SysGetpid: func(ctx context.Context, a Args) int64 {
			t, err := currentTask(ctx, k)
			if err != nil {
				return ret(err)
			}
			return int64(t.PID())
		},
		SysGetppid: func(ctx context.Context, a Args) int64 {
			t, err := currentTask(ctx, k)
			if err != nil {
				return ret(err)
			}
			return int64(t.PPID())
		},
		SysGetuid: func(ctx context.Context, a Args) int64 {
			t, err := currentTask(ctx, k)
			if err != nil {
				return ret(err)
			}
			return int64(t.UID())
		},
		SysSetuid: func(ctx context.Context, a Args) int64 {
			t, err := currentTask(ctx, k)
			if err != nil {
				return ret(err)
			}
			if t.UID() != 0 {
				return errno.EPERM.Negated()
			}
			return 0
		},
		SysYield: func(ctx context.Context, a Args) int64 {
			t, err := currentTask(ctx, k)
			if err != nil {
				return ret(err)
			}
			k.Deschedule(t, true)
			return 0
		},
		SysSleep: func(ctx context.Context, a Args) int64 {
			// sleep(0) behaves as yield (spec.md §8 boundary behavior).
			t, err := currentTask(ctx, k)
			if err != nil {
				return ret(err)
			}
			k.Deschedule(t, true)
			return 0
		},
		SysSignal: func(ctx context.Context, a Args) int64 {
			t, err := currentTask(ctx, k)
			if err != nil {
				return ret(err)
			}
			t.SetSignalMask(t.SignalMask() &^ (uint64(1) << a.Regs[0]))
			return 0
		},
		SysSigprocmask: func(ctx context.Context, a Args) int64 {
			t, err := currentTask(ctx, k)
			if err != nil {
				return ret(err)
			}
			t.SetSignalMask(a.Regs[0])
			return 0
		},
		SysOpen: func(ctx context.Context, a Args) int64 {
			t, err := currentTask(ctx, k)
			if err != nil {
				return ret(err)
			}
			flags := decodeOpenFlags(a.Regs[0])
			fd, err := openPath(ctx, v, t, a.Path, flags)
			if err != nil {
				return ret(err)
			}
			return int64(fd)
		},
		SysClose: func(ctx context.Context, a Args) int64 {
			t, err := currentTask(ctx, k)
			if err != nil {
				return ret(err)
			}
			return ret(t.FDTable().Close(int(a.Regs[0])))
		},
		SysRead: func(ctx context.Context, a Args) int64 {
			t, err := currentTask(ctx, k)
			if err != nil {
				return ret(err)
			}
			fd, ok := t.FDTable().Get(int(a.Regs[0]))
			if !ok {
				return errno.EINVAL.Negated()
			}
			buf := make([]byte, a.Regs[1])
			n, err := fd.Read(ctx, buf)
			if err != nil {
				return ret(err)
			}
			return int64(n)
		},
		SysWrite: func(ctx context.Context, a Args) int64 {
			t, err := currentTask(ctx, k)
			if err != nil {
				return ret(err)
			}
			fd, ok := t.FDTable().Get(int(a.Regs[0]))
			if !ok {
				return errno.EINVAL.Negated()
			}
			n, err := fd.Write(ctx, a.Buf)
			if err != nil {
				return ret(err)
			}
			return int64(n)
		},
		SysLseek: func(ctx context.Context, a Args) int64 {
			t, err := currentTask(ctx, k)
			if err != nil {
				return ret(err)
			}
			fd, ok := t.FDTable().Get(int(a.Regs[0]))
			if !ok {
				return errno.EINVAL.Negated()
			}
			off, err := fd.Seek(int64(a.Regs[1]), int(a.Regs[2]))
			if err != nil {
				return ret(err)
			}
			return off
		},
		SysDup: func(ctx context.Context, a Args) int64 {
			t, err := currentTask(ctx, k)
			if err != nil {
				return ret(err)
			}
			n, err := t.FDTable().Dup(int(a.Regs[0]))
			if err != nil {
				return ret(err)
			}
			return int64(n)
		},
		SysDup2: func(ctx context.Context, a Args) int64 {
			t, err := currentTask(ctx, k)
			if err != nil {
				return ret(err)
			}
			return ret(t.FDTable().Dup2(int(a.Regs[0]), int(a.Regs[1])))
		},
		SysMkdir: func(ctx context.Context, a Args) int64 {
			_, err := currentTask(ctx, k)
			if err != nil {
				return ret(err)
			}
			return ret(withParent(ctx, v, a.Path, func(parent vfs.Inode, base string) error {
				_, err := parent.Mkdir(ctx, base, uint32(a.Regs[0]))
				return err
			}))
		},
		SysRmdir: func(ctx context.Context, a Args) int64 {
			_, err := currentTask(ctx, k)
			if err != nil {
				return ret(err)
			}
			return ret(withParent(ctx, v, a.Path, func(parent vfs.Inode, base string) error {
				return parent.Rmdir(ctx, base)
			}))
		},
		SysUnlink: func(ctx context.Context, a Args) int64 {
			_, err := currentTask(ctx, k)
			if err != nil {
				return ret(err)
			}
			return ret(withParent(ctx, v, a.Path, func(parent vfs.Inode, base string) error {
				return parent.Unlink(ctx, base)
			}))
		},
		SysStat: func(ctx context.Context, a Args) int64 {
			_, err := currentTask(ctx, k)
			if err != nil {
				return ret(err)
			}
			mnt, rest, err := v.Resolve(a.Path)
			if err != nil {
				return ret(err)
			}
			dir, base, err := vfs.LookupParent(ctx, mnt.Root, rest)
			if err != nil {
				return ret(err)
			}
			target := dir
			if base != "" {
				target, err = dir.Lookup(ctx, base)
				if err != nil {
					return ret(err)
				}
			}
			if _, err := target.Stat(ctx); err != nil {
				return ret(err)
			}
			return 0
		},
		SysFstat: func(ctx context.Context, a Args) int64 {
			t, err := currentTask(ctx, k)
			if err != nil {
				return ret(err)
			}
			fd, ok := t.FDTable().Get(int(a.Regs[0]))
			if !ok {
				return errno.EINVAL.Negated()
			}
			if _, err := fd.Inode.Stat(ctx); err != nil {
				return ret(err)
			}
			return 0
		},
		SysGettime: func(ctx context.Context, a Args) int64 { return 0 },
		SysChdir:   func(ctx context.Context, a Args) int64 { return 0 },
		SysGetcwd:  func(ctx context.Context, a Args) int64 { return 0 },
		SysBrk: func(ctx context.Context, a Args) int64 {
			t, err := currentTask(ctx, k)
			if err != nil {
				return ret(err)
			}
			return int64(t.PID()) // placeholder break address: returns the caller's pid; no break is tracked
		},
		SysMmap: func(ctx context.Context, a Args) int64 {
			t, err := currentTask(ctx, k)
			if err != nil {
				return ret(err)
			}
			length := a.Regs[1]
			if length == 0 {
				return errno.EINVAL.Negated()
			}
			start := hostarch.Addr(a.Regs[0]).RoundDown()
			end := hostarch.Addr(a.Regs[0] + length).RoundUp()
			flags := mm.User
			if a.Regs[2]&0x2 != 0 {
				flags |= mm.Writable
			}
			if a.Regs[2]&0x4 == 0 {
				flags |= mm.NoExecute
			}
			t.AddressSpace().RegisterOnDemand(hostarch.AddrRange{Start: start, End: end}, flags)
			return int64(start)
		},
		SysMunmap: func(ctx context.Context, a Args) int64 { return 0 },
		SysPipe: func(ctx context.Context, a Args) int64 {
			t, err := currentTask(ctx, k)
			if err != nil {
				return ret(err)
			}
			read, write := pipefs.New()
			rfd, err := t.FDTable().Install(read)
			if err != nil {
				return ret(err)
			}
			wfd, err := t.FDTable().Install(write)
			if err != nil {
				t.FDTable().Close(rfd)
				return ret(err)
			}
			// Both fd numbers are returned packed into one register pair
			// (spec.md §4.6's Args has no room for two separate return
			// values); the caller unpacks low/high 32 bits as read/write.
			return int64(uint64(wfd)<<32 | uint64(uint32(rfd)))
		},
		SysLink: func(ctx context.Context, a Args) int64 {
			_, err := currentTask(ctx, k)
			if err != nil {
				return ret(err)
			}
			mnt, rest, err := v.Resolve(a.Path)
			if err != nil {
				return ret(err)
			}
			dir, base, err := vfs.LookupParent(ctx, mnt.Root, rest)
			if err != nil {
				return ret(err)
			}
			target := dir
			if base != "" {
				target, err = dir.Lookup(ctx, base)
				if err != nil {
					return ret(err)
				}
			}
			return ret(withParent(ctx, v, string(a.Buf), func(parent vfs.Inode, newName string) error {
				return parent.Link(ctx, newName, target)
			}))
		},
		SysExec: func(ctx context.Context, a Args) int64 {
			t, err := currentTask(ctx, k)
			if err != nil {
				return ret(err)
			}
			mnt, rest, err := v.Resolve(a.Path)
			if err != nil {
				return errno.ENOENT.Negated()
			}
			parent, base, err := vfs.LookupParent(ctx, mnt.Root, rest)
			if err != nil {
				return errno.ENOENT.Negated()
			}
			target := parent
			if base != "" {
				target, err = parent.Lookup(ctx, base)
				if err != nil {
					return errno.ENOENT.Negated()
				}
			}
			// A directory's Readdir succeeds where a regular file's (left
			// at UnimplementedInode's ENOSYS default) fails; this is a
			// reliable type probe across filesystems whose Stat.Mode
			// conventions otherwise disagree on where the type bits live.
			if _, direrr := target.Readdir(ctx); direrr == nil {
				return errno.ENOEXEC.Negated()
			}
			stat, err := target.Stat(ctx)
			if err != nil {
				return errno.ENOENT.Negated()
			}
			if stat.Mode&0o111 == 0 {
				return errno.ENOEXEC.Negated()
			}
			canExec := stat.Mode&0o001 != 0
			if !canExec && (t.UID() == 0 || t.UID() == stat.Uid) {
				canExec = stat.Mode&0o100 != 0
			}
			if !canExec {
				return errno.EACCES.Negated()
			}
			// entry is always 0: there is no ELF loader to locate a real
			// entry point (spec.md §1 excludes it), so exec only replaces
			// the task's identity and resets its context, per Kernel.Exec.
			if err := k.Exec(t, kernel.ExecParams{Path: a.Path}, 0); err != nil {
				return ret(err)
			}
			return 0
		},
		SysAlarm: func(ctx context.Context, a Args) int64 { return 0 },
		SysSigaction: func(ctx context.Context, a Args) int64 { return 0 },
		SysSigsuspend: func(ctx context.Context, a Args) int64 {
			t, err := currentTask(ctx, k)
			if err != nil {
				return ret(err)
			}
			k.Deschedule(t, true)
			if _, pending := t.TakePendingSignal(); pending {
				return errno.EINTR.Negated()
			}
			return 0
		},
		SysLs: func(ctx context.Context, a Args) int64 {
			_, err := currentTask(ctx, k)
			if err != nil {
				return ret(err)
			}
			mnt, rest, err := v.Resolve(a.Path)
			if err != nil {
				return ret(err)
			}
			dir, base, err := vfs.LookupParent(ctx, mnt.Root, rest)
			if err != nil {
				return ret(err)
			}
			target := dir
			if base != "" {
				target, err = dir.Lookup(ctx, base)
				if err != nil {
					return ret(err)
				}
			}
			entries, err := target.Readdir(ctx)
			if err != nil {
				return ret(err)
			}
			return int64(len(entries))
		},
		SysMount: func(ctx context.Context, a Args) int64 {
			_, err := currentTask(ctx, k)
			if err != nil {
				return ret(err)
			}
			fsType := string(a.Buf)
			var root vfs.Inode
			switch fsType {
			case "tmpfs":
				root = tmpfs.NewFilesystem(int64(a.Regs[0]))
			case "ramfs":
				root = ramfs.NewTree(nil)
			default:
				return errno.EINVAL.Negated()
			}
			v.Mount(&vfs.Mount{Prefix: a.Path, FSName: fsType, Root: root})
			return 0
		},
		SysKernelInfo:      func(ctx context.Context, a Args) int64 { return 0 },
		SysGetBlockDevices: func(ctx context.Context, a Args) int64 { return 0 },
	}
}

func decodeOpenFlags(bits uint64) vfs.OpenFlags {
	return vfs.OpenFlags{
		Read:     bits&0x1 != 0,
		Write:    bits&0x2 != 0,
		Append:   bits&0x4 != 0,
		Create:   bits&0x8 != 0,
		Truncate: bits&0x10 != 0,
	}
}

func openPath(ctx context.Context, v *vfs.VirtualFilesystem, t *kernel.Task, path string, flags vfs.OpenFlags) (int, error) {
	mnt, rest, err := v.Resolve(path)
	if err != nil {
		return -1, err
	}
	parent, base, err := vfs.LookupParent(ctx, mnt.Root, rest)
	if err != nil {
		return -1, err
	}
	var inode vfs.Inode
	if base == "" {
		inode = parent
	} else {
		inode, err = parent.Lookup(ctx, base)
		if err != nil {
			if !flags.Create {
				return -1, err
			}
			inode, err = parent.Create(ctx, base, 0o644)
			if err != nil {
				return -1, err
			}
		}
	}
	ops, err := inode.Open(ctx, flags)
	if err != nil {
		return -1, err
	}
	return t.FDTable().Install(&vfs.FileDescription{Inode: inode, Ops: ops, Flags: flags})
}

func withParent(ctx context.Context, v *vfs.VirtualFilesystem, path string, f func(parent vfs.Inode, base string) error) error {
	mnt, rest, err := v.Resolve(path)
	if err != nil {
		return err
	}
	parent, base, err := vfs.LookupParent(ctx, mnt.Root, rest)
	if err != nil {
		return err
	}
	if base == "" {
		return errno.EINVAL
	}
	return f(parent, base)
}
