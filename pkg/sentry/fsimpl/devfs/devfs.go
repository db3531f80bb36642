// Package devfs implements the character-device registry of spec.md §4.9:
// a device registers {open, close, read, write, ioctl} and is exposed as a
// named inode under the devfs mount root. The console device is backed by
// a real github.com/creack/pty pseudo-terminal; I/O against it goes through
// raw unix.Read/unix.Write on the master fd rather than os.File, the same
// style pkg/sentry/fsimpl/host uses for its host-fd-backed files.
package devfs

import (
	"github.com/IRodriguez13/IR0-sub002/pkg/context"
	"github.com/IRodriguez13/IR0-sub002/pkg/errno"
	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/vfs"
)

// Device is one registrable character device, per spec.md §4.9's
// "{open, close, read, write, ioctl}" operations table.
type Device interface {
	Open(ctx context.Context, flags vfs.OpenFlags) (vfs.FileOps, error)
}

// IoctlFileOps is implemented by open file descriptions that answer ioctl
// requests; not every device's FileOps needs one (null and zero don't), so
// it is a separate, optional interface rather than a vfs.FileOps method.
type IoctlFileOps interface {
	Ioctl(ctx context.Context, req uint64, arg uintptr) (uintptr, error)
}

// Filesystem is the devfs mount root: a flat, fixed set of named devices.
type Filesystem struct {
	devices map[string]Device
	names   []string
}

// New returns a devfs instance exposing devices under their registered
// names. Registration is closed at construction; devfs has no mknod.
func New(devices map[string]Device) *Filesystem {
	names := make([]string, 0, len(devices))
	for name := range devices {
		names = append(names, name)
	}
	return &Filesystem{devices: devices, names: names}
}

// Names lists registered device names, for /proc/drivers (spec.md §4.9).
func (fs *Filesystem) Names() []string { return fs.names }

// Root returns the /dev mount root.
func (fs *Filesystem) Root() vfs.Inode {
	return &rootDir{fs: fs}
}

type rootDir struct {
	vfs.UnimplementedInode
	fs *Filesystem
}

func (d *rootDir) Stat(context.Context) (vfs.Stat, error) {
	return vfs.Stat{Mode: 0o555, Nlink: 2}, nil
}

func (d *rootDir) Lookup(_ context.Context, name string) (vfs.Inode, error) {
	dev, ok := d.fs.devices[name]
	if !ok {
		return nil, errno.ENOENT
	}
	return &deviceInode{dev: dev}, nil
}

func (d *rootDir) Readdir(context.Context) ([]vfs.DirEntry, error) {
	out := make([]vfs.DirEntry, 0, len(d.fs.names))
	for _, name := range d.fs.names {
		out = append(out, vfs.DirEntry{Type: vfs.TypeCharDevice, Name: name})
	}
	return out, nil
}

func (d *rootDir) Open(context.Context, vfs.OpenFlags) (vfs.FileOps, error) {
	return dirFileOps{}, nil
}

type dirFileOps struct{ vfs.UnimplementedFileOps }

func (dirFileOps) Seekable() bool              { return false }
func (dirFileOps) Close(context.Context) error { return nil }

// deviceInode is the devfs leaf inode for one registered device; it holds
// no content of its own and delegates Open to the device itself.
type deviceInode struct {
	vfs.UnimplementedInode
	dev Device
}

func (i *deviceInode) Stat(context.Context) (vfs.Stat, error) {
	return vfs.Stat{Mode: 0o666, Nlink: 1}, nil
}

func (i *deviceInode) Open(ctx context.Context, flags vfs.OpenFlags) (vfs.FileOps, error) {
	return i.dev.Open(ctx, flags)
}
