// Package ramfs implements the in-memory inode tree shared by tmpfs and
// ramfs proper (spec.md §4.9, component C10): a parent/children/sibling
// tree of directories and growable byte-vector files, inode numbers
// allocated from a counter. tmpfs layers a size quota over this tree;
// ramfs uses it directly with no quota, boot-populated by its caller. It
// plays the same role here that gVisor's pkg/sentry/fsimpl/ramfs plays for
// the teacher: the generic dentry/inode scaffolding pseudo-filesystems
// build on.
package ramfs

import (
	"sync"
	"sync/atomic"

	"github.com/IRodriguez13/IR0-sub002/pkg/context"
	"github.com/IRodriguez13/IR0-sub002/pkg/errno"
	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/vfs"
)

// Quota tracks a mount-wide byte budget; a nil *Quota means unlimited,
// which is how ramfs (as opposed to tmpfs) uses this package.
type Quota struct {
	mu    sync.Mutex
	limit int64
	used  int64
}

// NewQuota returns a Quota capped at limit bytes.
func NewQuota(limit int64) *Quota {
	return &Quota{limit: limit}
}

func (q *Quota) reserve(n int64) error {
	if q == nil {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.used+n > q.limit {
		return errno.EDQUOT
	}
	q.used += n
	return nil
}

func (q *Quota) release(n int64) {
	if q == nil {
		return
	}
	q.mu.Lock()
	q.used -= n
	q.mu.Unlock()
}

// idAllocator mints monotonically increasing inode numbers for one tree.
type idAllocator struct{ next uint64 }

func (a *idAllocator) next_() uint64 { return atomic.AddUint64(&a.next, 1) }

// Dir is an in-memory directory inode.
type Dir struct {
	vfs.UnimplementedInode

	mu       sync.Mutex
	ino      uint64
	mode     uint32
	uid, gid uint32
	children map[string]vfs.Inode
	ids      *idAllocator
	quota    *Quota
}

// NewTree builds a fresh root directory with no children, quota-limited by
// quota (nil for unlimited).
func NewTree(quota *Quota) *Dir {
	ids := &idAllocator{}
	return &Dir{
		ino:      ids.next_(),
		mode:     uint32(vfs.TypeDirectory)<<28 | 0o755,
		children: make(map[string]vfs.Inode),
		ids:      ids,
		quota:    quota,
	}
}

func (d *Dir) Stat(context.Context) (vfs.Stat, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return vfs.Stat{Ino: d.ino, Mode: d.mode, Nlink: uint32(2 + len(d.children)), Uid: d.uid, Gid: d.gid}, nil
}

func (d *Dir) Lookup(_ context.Context, name string) (vfs.Inode, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	child, ok := d.children[name]
	if !ok {
		return nil, errno.ENOENT
	}
	return child, nil
}

func (d *Dir) Create(_ context.Context, name string, mode uint32) (vfs.Inode, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.children[name]; exists {
		return nil, errno.EEXIST
	}
	f := &File{
		ino:   d.ids.next_(),
		mode:  uint32(vfs.TypeRegular)<<28 | mode,
		quota: d.quota,
	}
	d.children[name] = f
	return f, nil
}

func (d *Dir) Mkdir(_ context.Context, name string, mode uint32) (vfs.Inode, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.children[name]; exists {
		return nil, errno.EEXIST
	}
	child := &Dir{
		ino:      d.ids.next_(),
		mode:     uint32(vfs.TypeDirectory)<<28 | mode,
		children: make(map[string]vfs.Inode),
		ids:      d.ids,
		quota:    d.quota,
	}
	d.children[name] = child
	return child, nil
}

func (d *Dir) Rmdir(_ context.Context, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	child, ok := d.children[name]
	if !ok {
		return errno.ENOENT
	}
	sub, ok := child.(*Dir)
	if !ok {
		return errno.ENOTDIR
	}
	sub.mu.Lock()
	empty := len(sub.children) == 0
	sub.mu.Unlock()
	if !empty {
		return errno.EEXIST
	}
	delete(d.children, name)
	return nil
}

func (d *Dir) Unlink(_ context.Context, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	child, ok := d.children[name]
	if !ok {
		return errno.ENOENT
	}
	if _, isDir := child.(*Dir); isDir {
		return errno.EISDIR
	}
	if f, ok := child.(*File); ok {
		f.mu.Lock()
		f.quota.release(int64(len(f.data)))
		f.mu.Unlock()
	}
	delete(d.children, name)
	return nil
}

func (d *Dir) Link(_ context.Context, name string, target vfs.Inode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.children[name]; exists {
		return errno.EEXIST
	}
	d.children[name] = target
	return nil
}

func (d *Dir) Readdir(context.Context) ([]vfs.DirEntry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]vfs.DirEntry, 0, len(d.children))
	for name, child := range d.children {
		typ := vfs.TypeRegular
		if _, ok := child.(*Dir); ok {
			typ = vfs.TypeDirectory
		}
		ino := uint64(0)
		if st, err := child.Stat(context.Background()); err == nil {
			ino = st.Ino
		}
		out = append(out, vfs.DirEntry{Inode: ino, Type: typ, Name: name})
	}
	return out, nil
}

func (d *Dir) Open(context.Context, vfs.OpenFlags) (vfs.FileOps, error) {
	return dirFileOps{}, nil
}

// dirFileOps rejects read/write on a directory file description; only
// Readdir (via the Inode, not FileOps) is meaningful for a directory.
type dirFileOps struct{ vfs.UnimplementedFileOps }

func (dirFileOps) Seekable() bool            { return false }
func (dirFileOps) Close(context.Context) error { return nil }

// File is an in-memory regular file: a growable byte vector guarded by its
// own mutex, optionally quota-limited.
type File struct {
	vfs.UnimplementedInode

	mu       sync.Mutex
	ino      uint64
	mode     uint32
	uid, gid uint32
	data     []byte
	quota    *Quota
}

func (f *File) Stat(context.Context) (vfs.Stat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return vfs.Stat{Ino: f.ino, Mode: f.mode, Nlink: 1, Uid: f.uid, Gid: f.gid, Size: int64(len(f.data))}, nil
}

func (f *File) Open(_ context.Context, flags vfs.OpenFlags) (vfs.FileOps, error) {
	if flags.Truncate {
		f.mu.Lock()
		f.quota.release(int64(len(f.data)))
		f.data = nil
		f.mu.Unlock()
	}
	return &fileOps{f: f}, nil
}

type fileOps struct {
	vfs.UnimplementedFileOps
	f *File
}

func (o *fileOps) Read(_ context.Context, buf []byte, off int64) (int, error) {
	o.f.mu.Lock()
	defer o.f.mu.Unlock()
	if off >= int64(len(o.f.data)) {
		return 0, nil
	}
	n := copy(buf, o.f.data[off:])
	return n, nil
}

func (o *fileOps) Write(_ context.Context, buf []byte, off int64) (int, error) {
	o.f.mu.Lock()
	defer o.f.mu.Unlock()
	end := off + int64(len(buf))
	if end > int64(len(o.f.data)) {
		grow := end - int64(len(o.f.data))
		if err := o.f.quota.reserve(grow); err != nil {
			return 0, err
		}
		grown := make([]byte, end)
		copy(grown, o.f.data)
		o.f.data = grown
	}
	n := copy(o.f.data[off:end], buf)
	return n, nil
}

func (o *fileOps) Seekable() bool { return true }

func (o *fileOps) Close(context.Context) error { return nil }
