package vfs

import (
	"github.com/IRodriguez13/IR0-sub002/pkg/context"
	"github.com/IRodriguez13/IR0-sub002/pkg/errno"
)

// FileType classifies an Inode, per spec.md §3's inode type list.
type FileType int

const (
	TypeRegular FileType = iota
	TypeDirectory
	TypeSymlink
	TypeCharDevice
	TypeBlockDevice
	TypeFIFO
	TypeSocket
)

// Stat is the fixed stat record of spec.md §4.7.
type Stat struct {
	Dev     uint64
	Ino     uint64
	Mode    uint32
	Nlink   uint32
	Uid     uint32
	Gid     uint32
	Size    int64
	Atime   int64
	Mtime   int64
	Ctime   int64
	Blksize int32
	Blocks  int64
}

// DirEntry is one record of a readdir stream (spec.md §4.7).
type DirEntry struct {
	Inode uint64
	Type  FileType
	Name  string
}

// OpenFlags are the flags passed to Inode.Open (spec.md §3, open-file handle).
type OpenFlags struct {
	Read     bool
	Write    bool
	Append   bool
	Create   bool
	Truncate bool
}

// Inode is the per-filesystem operations table of spec.md §4.7. Concrete
// filesystems embed UnimplementedInode and override only what they support;
// everything else falls back to ENOSYS exactly as the dispatcher requires.
type Inode interface {
	// Stat populates the fixed stat record.
	Stat(ctx context.Context) (Stat, error)
	// Lookup resolves one path component as a child of this (directory)
	// inode, returning ENOENT if absent.
	Lookup(ctx context.Context, name string) (Inode, error)
	// Create makes a new regular file named name as a child of this inode.
	Create(ctx context.Context, name string, mode uint32) (Inode, error)
	// Mkdir makes a new directory named name as a child of this inode.
	Mkdir(ctx context.Context, name string, mode uint32) (Inode, error)
	// Rmdir removes the empty child directory named name.
	Rmdir(ctx context.Context, name string) error
	// Unlink removes the directory entry named name. Whether an inode that
	// is still open outlives its last name is up to the filesystem: minix
	// frees it as soon as its link count reaches zero.
	Unlink(ctx context.Context, name string) error
	// Link creates a new name for an existing inode within this directory.
	Link(ctx context.Context, name string, target Inode) error
	// Readdir streams this directory's entries.
	Readdir(ctx context.Context) ([]DirEntry, error)
	// Open returns the FileOps used to service reads/writes/seeks against
	// this inode under the given flags.
	Open(ctx context.Context, flags OpenFlags) (FileOps, error)
}

// FileOps is the per-open-file-description operations set.
type FileOps interface {
	Read(ctx context.Context, buf []byte, off int64) (int, error)
	Write(ctx context.Context, buf []byte, off int64) (int, error)
	// Seek reports whether arbitrary seeks are meaningful for this file;
	// devices may opt out per spec.md §4.9 ("seeks on devices are no-ops").
	Seekable() bool
	Close(ctx context.Context) error
}

// UnimplementedInode gives every optional Inode method an ENOSYS body; a
// concrete filesystem embeds it and overrides only the operations it
// supports, per spec.md §4.7: "a filesystem may leave optional operations
// null and the VFS returns ENOSYS for them."
type UnimplementedInode struct{}

func (UnimplementedInode) Stat(context.Context) (Stat, error) { return Stat{}, errno.ENOSYS }
func (UnimplementedInode) Lookup(context.Context, string) (Inode, error) {
	return nil, errno.ENOSYS
}
func (UnimplementedInode) Create(context.Context, string, uint32) (Inode, error) {
	return nil, errno.ENOSYS
}
func (UnimplementedInode) Mkdir(context.Context, string, uint32) (Inode, error) {
	return nil, errno.ENOSYS
}
func (UnimplementedInode) Rmdir(context.Context, string) error        { return errno.ENOSYS }
func (UnimplementedInode) Unlink(context.Context, string) error       { return errno.ENOSYS }
func (UnimplementedInode) Link(context.Context, string, Inode) error  { return errno.ENOSYS }
func (UnimplementedInode) Readdir(context.Context) ([]DirEntry, error) {
	return nil, errno.ENOSYS
}
func (UnimplementedInode) Open(context.Context, OpenFlags) (FileOps, error) {
	return nil, errno.ENOSYS
}

// UnimplementedFileOps mirrors UnimplementedInode for FileOps.
type UnimplementedFileOps struct{}

func (UnimplementedFileOps) Read(context.Context, []byte, int64) (int, error) {
	return 0, errno.ENOSYS
}
func (UnimplementedFileOps) Write(context.Context, []byte, int64) (int, error) {
	return 0, errno.ENOSYS
}
func (UnimplementedFileOps) Seekable() bool            { return false }
func (UnimplementedFileOps) Close(context.Context) error { return nil }
