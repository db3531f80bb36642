// Package sysfs implements the small writable kernel-parameter registry of
// spec.md §4.9: "kernel/version, kernel/hostname, kernel/max_processes,
// devices/system/cpu0/online, devices/block. A writable entry parses
// decimal or 0/1, validates bounds, and updates a process-wide variable."
package sysfs

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/IRodriguez13/IR0-sub002/pkg/context"
	"github.com/IRodriguez13/IR0-sub002/pkg/errno"
	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/fsimpl/procfs"
	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/kernel"
	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/vfs"
)

// Filesystem owns the live kernel reference every entry reads from and
// writes back to; like procfs, it stores no content of its own.
type Filesystem struct {
	k          *kernel.Kernel
	cpu0Online int32 // 0 or 1, atomic
	devices    func() []string
}

// New returns a sysfs instance over k; devices lists registered block
// device ids on demand, for devices/block.
func New(k *kernel.Kernel, devices func() []string) *Filesystem {
	fs := &Filesystem{k: k, devices: devices}
	atomic.StoreInt32(&fs.cpu0Online, 1)
	return fs
}

// Root returns the /sys mount root.
func (fs *Filesystem) Root() vfs.Inode {
	kernelDir := &dir{children: map[string]vfs.Inode{
		"version":       &entry{get: func() []byte { return []byte(procfs.Version + "\n") }},
		"hostname":      &entry{get: fs.getHostname, set: fs.setHostname},
		"max_processes": &entry{get: fs.getMaxProcesses, set: fs.setMaxProcesses},
	}}
	cpu0Dir := &dir{children: map[string]vfs.Inode{
		"online": &entry{get: fs.getCPU0Online, set: fs.setCPU0Online},
	}}
	systemDir := &dir{children: map[string]vfs.Inode{"cpu0": cpu0Dir}}
	devicesDir := &dir{children: map[string]vfs.Inode{
		"system": systemDir,
		"block":  &entry{get: fs.getBlockDevices},
	}}
	return &dir{children: map[string]vfs.Inode{
		"kernel":  kernelDir,
		"devices": devicesDir,
	}}
}

func (fs *Filesystem) getHostname() []byte { return []byte(fs.k.Hostname() + "\n") }

func (fs *Filesystem) setHostname(buf []byte) error {
	return fs.k.SetHostname(strings.TrimSpace(string(buf)))
}

func (fs *Filesystem) getMaxProcesses() []byte {
	return []byte(strconv.Itoa(fs.k.MaxProcesses()) + "\n")
}

func (fs *Filesystem) setMaxProcesses(buf []byte) error {
	n, err := strconv.Atoi(strings.TrimSpace(string(buf)))
	if err != nil {
		return errno.EINVAL
	}
	return fs.k.SetMaxProcesses(n)
}

func (fs *Filesystem) getCPU0Online() []byte {
	return []byte(fmt.Sprintf("%d\n", atomic.LoadInt32(&fs.cpu0Online)))
}

func (fs *Filesystem) setCPU0Online(buf []byte) error {
	v, err := parseBit(buf)
	if err != nil {
		return err
	}
	atomic.StoreInt32(&fs.cpu0Online, v)
	return nil
}

func (fs *Filesystem) getBlockDevices() []byte {
	var b strings.Builder
	for _, id := range fs.devices() {
		b.WriteString(id)
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// parseBit accepts exactly "0" or "1" (ignoring surrounding whitespace),
// per spec.md §4.9's "parses decimal or 0/1, validates bounds".
func parseBit(buf []byte) (int32, error) {
	switch strings.TrimSpace(string(buf)) {
	case "0":
		return 0, nil
	case "1":
		return 1, nil
	default:
		return 0, errno.EINVAL
	}
}

// dir is a static sysfs directory, its children fixed at construction.
type dir struct {
	vfs.UnimplementedInode
	children map[string]vfs.Inode
}

func (d *dir) Stat(context.Context) (vfs.Stat, error) {
	return vfs.Stat{Mode: 0o555, Nlink: 2}, nil
}

func (d *dir) Lookup(_ context.Context, name string) (vfs.Inode, error) {
	child, ok := d.children[name]
	if !ok {
		return nil, errno.ENOENT
	}
	return child, nil
}

func (d *dir) Readdir(context.Context) ([]vfs.DirEntry, error) {
	out := make([]vfs.DirEntry, 0, len(d.children))
	for name, child := range d.children {
		typ := vfs.TypeRegular
		if _, isDir := child.(*dir); isDir {
			typ = vfs.TypeDirectory
		}
		out = append(out, vfs.DirEntry{Type: typ, Name: name})
	}
	return out, nil
}

func (d *dir) Open(context.Context, vfs.OpenFlags) (vfs.FileOps, error) {
	return dirFileOps{}, nil
}

type dirFileOps struct{ vfs.UnimplementedFileOps }

func (dirFileOps) Seekable() bool              { return false }
func (dirFileOps) Close(context.Context) error { return nil }

// entry is one readable, optionally writable leaf; get materializes the
// current value once per Open, matching the C10 offset-correctness
// contract shared with procfs.
type entry struct {
	vfs.UnimplementedInode
	get func() []byte
	set func([]byte) error // nil means read-only
}

func (e *entry) Stat(context.Context) (vfs.Stat, error) {
	mode := uint32(0o444)
	if e.set != nil {
		mode = 0o644
	}
	return vfs.Stat{Mode: mode, Nlink: 1, Size: int64(len(e.get()))}, nil
}

func (e *entry) Open(_ context.Context, flags vfs.OpenFlags) (vfs.FileOps, error) {
	if flags.Write && e.set == nil {
		return nil, errno.EACCES
	}
	return &entryFileOps{e: e, data: e.get()}, nil
}

type entryFileOps struct {
	vfs.UnimplementedFileOps
	e    *entry
	data []byte
}

func (o *entryFileOps) Read(_ context.Context, buf []byte, off int64) (int, error) {
	if off >= int64(len(o.data)) {
		return 0, nil
	}
	return copy(buf, o.data[off:]), nil
}

func (o *entryFileOps) Write(_ context.Context, buf []byte, _ int64) (int, error) {
	if o.e.set == nil {
		return 0, errno.EACCES
	}
	if err := o.e.set(buf); err != nil {
		return 0, err
	}
	return len(buf), nil
}

func (o *entryFileOps) Seekable() bool              { return true }
func (o *entryFileOps) Close(context.Context) error { return nil }
