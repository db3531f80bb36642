// Package tmpfs implements the size-limited in-memory filesystem of
// spec.md §4.9: "tree of in-memory inodes; mkdir/create/write grow
// storage; size limit is a mount parameter." All tree logic (directories,
// growable files, inode numbering) lives in pkg/sentry/fsimpl/ramfs;
// tmpfs's only addition is the mount-wide ramfs.Quota that package enforces
// on every write.
package tmpfs

import "github.com/IRodriguez13/IR0-sub002/pkg/sentry/fsimpl/ramfs"

// NewFilesystem returns a fresh tmpfs root directory, capped at maxSize
// total bytes across every file in the tree. maxSize <= 0 means unlimited,
// matching a mount with no size= option.
func NewFilesystem(maxSize int64) *ramfs.Dir {
	var quota *ramfs.Quota
	if maxSize > 0 {
		quota = ramfs.NewQuota(maxSize)
	}
	return ramfs.NewTree(quota)
}
