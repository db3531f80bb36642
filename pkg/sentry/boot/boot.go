// Package boot implements the arch/boot shim of spec.md §1 (component
// C1): the PIT/console/PIC are pinned at interface level as TickSource,
// Console and PIC, and Bringup wires the physical allocator, paging,
// heap, kernel, VFS and mounts — the Go-idiomatic replacement for the
// assembly long-mode entry sequence spec.md §1 excludes.
package boot

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/IRodriguez13/IR0-sub002/pkg/context"
	"github.com/IRodriguez13/IR0-sub002/pkg/errno"
	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/devices/block"
	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/fsimpl/devfs"
	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/fsimpl/minix"
	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/fsimpl/procfs"
	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/fsimpl/ramfs"
	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/fsimpl/sysfs"
	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/fsimpl/tmpfs"
	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/kernel"
	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/kernel/sched"
	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/kheap"
	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/mm"
	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/pgalloc"
	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/vfs"
)

// Environment is everything Bringup wires: the running kernel plus the
// collaborators cmd/ir0 needs to drive it (the VFS for fsck/mount
// tooling, the heap, the tick source and arch-level console/PIC).
type Environment struct {
	Kernel *kernel.Kernel
	VFS    *vfs.VirtualFilesystem
	Heap   *kheap.Heap
	Alloc  *pgalloc.Allocator
	Init   *kernel.Task

	Disk block.Device // nil if cfg.Disk.Path was empty

	Tick    TickSource
	Console Console
	Pic     PIC
}

func pickPolicy(name string) (sched.Policy, error) {
	switch name {
	case "", "cfs":
		return sched.NewCFS(), nil
	case "priority":
		return sched.NewPriority(), nil
	case "rr":
		return sched.NewRoundRobin(), nil
	default:
		return nil, errno.EINVAL
	}
}

// Bringup wires the physical allocator, paging, heap, kernel, VFS and
// mounts, in that order, returning a running Environment whose Kernel has
// already Bootstrap'd pid 1 with fds 0/1/2 installed against the devfs
// console.
func Bringup(cfg Config) (*Environment, error) {
	log := logrus.WithField("subsystem", "boot")

	policy, err := pickPolicy(cfg.Scheduler)
	if err != nil {
		return nil, err
	}

	alloc := pgalloc.New(cfg.MemoryFrames, nil)
	kernelAS := mm.NewKernelAddressSpace(alloc)
	heap := kheap.New(cfg.HeapSize)

	k := kernel.New(policy)
	if cfg.Hostname != "" {
		if err := k.SetHostname(cfg.Hostname); err != nil {
			return nil, err
		}
	}

	init := k.Bootstrap(alloc, kernelAS)
	log.WithField("pid", init.PID()).Info("bootstrap task ready")

	vfsInst := vfs.New()

	console, err := devfs.NewConsoleDevice()
	if err != nil {
		return nil, err
	}
	deviceNames := []string{"console", "null", "zero"}
	devices := devfs.New(map[string]devfs.Device{
		"console": console,
		"null":    devfs.NullDevice{},
		"zero":    devfs.ZeroDevice{},
	})
	vfsInst.Mount(&vfs.Mount{Prefix: "/dev", FSName: "devfs", Root: devices.Root()})

	rootFS := tmpfs.NewFilesystem(0)
	vfsInst.Mount(&vfs.Mount{Prefix: "/", FSName: "tmpfs", Root: rootFS})

	var diskNames []string
	var disk block.Device
	if cfg.Disk.Path != "" {
		id := cfg.Disk.ID
		if id == "" {
			id = uuid.NewString()
		}
		dev, err := block.OpenFileDevice(cfg.Disk.Path, id)
		if err != nil {
			return nil, err
		}
		var mfs *minix.Filesystem
		if cfg.Disk.Format {
			mfs, err = minix.Format(dev, cfg.Disk.Inodes, cfg.Disk.Zones)
		} else {
			mfs, err = minix.Open(dev)
		}
		if err != nil {
			dev.Close()
			return nil, err
		}
		target := cfg.Disk.MountAt
		if target == "" {
			target = "/mnt"
		}
		vfsInst.Mount(&vfs.Mount{Prefix: target, FSName: "minix", Root: minix.Root(mfs), Device: dev.ID()})
		disk = dev
		diskNames = []string{dev.ID()}
		log.WithField("device", dev.ID()).WithField("path", cfg.Disk.Path).Info("minix volume mounted")
	}

	procRoot := procfs.New(k, alloc, deviceNames)
	vfsInst.Mount(&vfs.Mount{Prefix: "/proc", FSName: "procfs", Root: procRoot.Root()})

	sysRoot := sysfs.New(k, func() []string { return diskNames })
	vfsInst.Mount(&vfs.Mount{Prefix: "/sys", FSName: "sysfs", Root: sysRoot.Root()})

	for _, m := range cfg.Mounts {
		var root vfs.Inode
		switch m.Type {
		case "tmpfs":
			root = tmpfs.NewFilesystem(m.MaxSize)
		case "ramfs":
			root = ramfs.NewTree(nil)
		default:
			return nil, errno.EINVAL
		}
		vfsInst.Mount(&vfs.Mount{Prefix: m.Target, FSName: m.Type, Root: root})
	}

	if err := installConsoleFDs(init, devices); err != nil {
		return nil, err
	}

	env := &Environment{
		Kernel:  k,
		VFS:     vfsInst,
		Heap:    heap,
		Alloc:   alloc,
		Init:    init,
		Disk:    disk,
		Tick:    NewSimulatedTickSource(cfg.TickHz),
		Console: NewRingBufferConsole(),
		Pic:     newSimplePIC(),
	}
	return env, nil
}

// installConsoleFDs opens the devfs console three times, for stdin,
// stdout and stderr, installing each at its conventional fd number on
// init's table (spec.md §4.7's "fds 0/1/2 are reserved for the console").
func installConsoleFDs(init *kernel.Task, devices *devfs.Filesystem) error {
	ctx := context.Background()
	consoleInode, err := devices.Root().Lookup(ctx, "console")
	if err != nil {
		return err
	}
	for fd, flags := range map[int]vfs.OpenFlags{
		0: {Read: true},
		1: {Write: true},
		2: {Write: true},
	} {
		ops, err := consoleInode.Open(ctx, flags)
		if err != nil {
			return err
		}
		desc := &vfs.FileDescription{Inode: consoleInode, Ops: ops, Flags: flags}
		if err := init.FDTable().InstallAt(fd, desc); err != nil {
			return err
		}
	}
	return nil
}
