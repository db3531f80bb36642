package minix

import (
	"github.com/IRodriguez13/IR0-sub002/pkg/context"
	"github.com/IRodriguez13/IR0-sub002/pkg/errno"
	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/vfs"
)

// vfsInode adapts one (Filesystem, inode number) pair to vfs.Inode, the
// shape the unified operations table of spec.md §4.7 routes onto.
type vfsInode struct {
	fs  *Filesystem
	num uint32
}

// Root returns fs's root directory wrapped as a vfs.Inode, suitable for
// passing as a vfs.Mount's Root.
func Root(fs *Filesystem) vfs.Inode {
	return &vfsInode{fs: fs, num: RootInodeNum}
}

func typeOf(mode uint16) vfs.FileType {
	switch mode & ModeTypeMask {
	case ModeDirectory:
		return vfs.TypeDirectory
	case ModeCharDevice:
		return vfs.TypeCharDevice
	case ModeBlockDevice:
		return vfs.TypeBlockDevice
	case ModeFIFO:
		return vfs.TypeFIFO
	case ModeSymlink:
		return vfs.TypeSymlink
	default:
		return vfs.TypeRegular
	}
}

func (i *vfsInode) Stat(context.Context) (vfs.Stat, error) {
	ino, err := i.fs.ReadInode(i.num)
	if err != nil {
		return vfs.Stat{}, err
	}
	nzones := 0
	for _, z := range ino.Zone {
		if z != 0 {
			nzones++
		}
	}
	return vfs.Stat{
		Ino:     uint64(i.num),
		Mode:    uint32(ino.Mode),
		Nlink:   uint32(ino.NLinks),
		Uid:     uint32(ino.UID),
		Gid:     uint32(ino.GID),
		Size:    int64(ino.Size),
		Mtime:   int64(ino.Mtime),
		Blksize: BlockSize,
		Blocks:  int64(nzones),
	}, nil
}

func (i *vfsInode) Lookup(_ context.Context, name string) (vfs.Inode, error) {
	dirIno, err := i.fs.ReadInode(i.num)
	if err != nil {
		return nil, err
	}
	if dirIno.Type() != ModeDirectory {
		return nil, errno.ENOTDIR
	}
	n, err := i.fs.LookupInDir(dirIno, name)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, errno.ENOENT
	}
	return &vfsInode{fs: i.fs, num: n}, nil
}

func (i *vfsInode) Create(_ context.Context, name string, mode uint32) (vfs.Inode, error) {
	n, err := i.fs.createChild(i.num, name, ModeRegular|uint16(mode), 1)
	if err != nil {
		return nil, err
	}
	return &vfsInode{fs: i.fs, num: n}, nil
}

func (i *vfsInode) Mkdir(_ context.Context, name string, mode uint32) (vfs.Inode, error) {
	n, err := i.fs.createChild(i.num, name, ModeDirectory|uint16(mode), 2)
	if err != nil {
		return nil, err
	}
	return &vfsInode{fs: i.fs, num: n}, nil
}

func (i *vfsInode) Rmdir(_ context.Context, name string) error {
	dirIno, err := i.fs.ReadInode(i.num)
	if err != nil {
		return err
	}
	targetNum, err := i.fs.LookupInDir(dirIno, name)
	if err != nil {
		return err
	}
	if targetNum == 0 {
		return errno.ENOENT
	}
	return i.fs.rmdirChild(i.num, name, targetNum)
}

func (i *vfsInode) Unlink(_ context.Context, name string) error {
	dirIno, err := i.fs.ReadInode(i.num)
	if err != nil {
		return err
	}
	targetNum, err := i.fs.LookupInDir(dirIno, name)
	if err != nil {
		return err
	}
	if targetNum == 0 {
		return errno.ENOENT
	}
	return i.fs.unlinkChild(i.num, name, targetNum)
}

func (i *vfsInode) Link(_ context.Context, name string, target vfs.Inode) error {
	t, ok := target.(*vfsInode)
	if !ok || t.fs != i.fs {
		return errno.EINVAL
	}
	dirIno, err := i.fs.ReadInode(i.num)
	if err != nil {
		return err
	}
	if existing, _ := i.fs.LookupInDir(dirIno, name); existing != 0 {
		return errno.EEXIST
	}
	if err := i.fs.AddDirent(&dirIno, name, t.num); err != nil {
		return err
	}
	if err := i.fs.WriteInode(i.num, dirIno); err != nil {
		return err
	}
	targetIno, err := i.fs.ReadInode(t.num)
	if err != nil {
		return err
	}
	targetIno.NLinks++
	return i.fs.WriteInode(t.num, targetIno)
}

func (i *vfsInode) Readdir(context.Context) ([]vfs.DirEntry, error) {
	dirIno, err := i.fs.ReadInode(i.num)
	if err != nil {
		return nil, err
	}
	if dirIno.Type() != ModeDirectory {
		return nil, errno.ENOTDIR
	}
	entries, err := i.fs.Readdir(dirIno)
	if err != nil {
		return nil, err
	}
	out := make([]vfs.DirEntry, 0, len(entries))
	for _, e := range entries {
		childIno, err := i.fs.ReadInode(uint32(e.Inode))
		if err != nil {
			return nil, err
		}
		out = append(out, vfs.DirEntry{
			Inode: uint64(e.Inode),
			Type:  typeOf(childIno.Mode),
			Name:  e.name(),
		})
	}
	return out, nil
}

func (i *vfsInode) Open(_ context.Context, flags vfs.OpenFlags) (vfs.FileOps, error) {
	ino, err := i.fs.ReadInode(i.num)
	if err != nil {
		return nil, err
	}
	if flags.Truncate && ino.Type() == ModeRegular {
		for idx, z := range ino.Zone {
			if z != 0 {
				i.fs.FreeZone(uint32(z))
				ino.Zone[idx] = 0
			}
		}
		ino.Size = 0
		if err := i.fs.WriteInode(i.num, ino); err != nil {
			return nil, err
		}
	}
	return &vfsFileOps{fs: i.fs, num: i.num}, nil
}

// vfsFileOps adapts a minix inode's ReadAt/WriteAt to vfs.FileOps.
type vfsFileOps struct {
	vfs.UnimplementedFileOps
	fs  *Filesystem
	num uint32
}

func (f *vfsFileOps) Read(_ context.Context, buf []byte, off int64) (int, error) {
	return f.fs.ReadAt(f.num, buf, off)
}

func (f *vfsFileOps) Write(_ context.Context, buf []byte, off int64) (int, error) {
	return f.fs.WriteAt(f.num, buf, off)
}

func (f *vfsFileOps) Seekable() bool { return true }

func (f *vfsFileOps) Close(context.Context) error { return nil }
