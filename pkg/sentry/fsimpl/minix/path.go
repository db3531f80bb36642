package minix

import (
	"strings"

	"github.com/IRodriguez13/IR0-sub002/pkg/errno"
)

// Resolve walks path component-by-component from the root inode, using
// LookupInDir at each step, and returns the final inode number.
func (fs *Filesystem) Resolve(path string) (uint32, error) {
	cur := uint32(RootInodeNum)
	for _, c := range splitPath(path) {
		dirIno, err := fs.ReadInode(cur)
		if err != nil {
			return 0, err
		}
		if dirIno.Type() != ModeDirectory {
			return 0, errno.ENOTDIR
		}
		next, err := fs.LookupInDir(dirIno, c)
		if err != nil {
			return 0, err
		}
		if next == 0 {
			return 0, errno.ENOENT
		}
		cur = next
	}
	return cur, nil
}

// resolveParent resolves path's containing directory and returns its inode
// number alongside the final path component.
func (fs *Filesystem) resolveParent(path string) (uint32, string, error) {
	comps := splitPath(path)
	if len(comps) == 0 {
		return 0, "", errno.EINVAL
	}
	parent := uint32(RootInodeNum)
	for _, c := range comps[:len(comps)-1] {
		dirIno, err := fs.ReadInode(parent)
		if err != nil {
			return 0, "", err
		}
		next, err := fs.LookupInDir(dirIno, c)
		if err != nil {
			return 0, "", err
		}
		if next == 0 {
			return 0, "", errno.ENOENT
		}
		parent = next
	}
	return parent, comps[len(comps)-1], nil
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// StatPath resolves path and returns its inode record (spec.md §4.8's stat
// primitive operates directly on ReadInode; this wrapper exists for the
// path-taking variant).
func (fs *Filesystem) StatPath(path string) (DiskInode, error) {
	n, err := fs.Resolve(path)
	if err != nil {
		return DiskInode{}, err
	}
	return fs.ReadInode(n)
}

// CreatePath makes a regular file named by the final component of path,
// in the directory named by its prefix (spec.md §4.8's create).
func (fs *Filesystem) CreatePath(path string, mode uint16) (uint32, error) {
	parentNum, name, err := fs.resolveParent(path)
	if err != nil {
		return 0, err
	}
	return fs.createChild(parentNum, name, ModeRegular|mode, 1)
}

// MkdirPath makes a directory named by the final component of path,
// seeding it with "." and ".." entries (spec.md §4.8's mkdir).
func (fs *Filesystem) MkdirPath(path string, mode uint16) (uint32, error) {
	parentNum, name, err := fs.resolveParent(path)
	if err != nil {
		return 0, err
	}
	return fs.createChild(parentNum, name, ModeDirectory|mode, 2)
}

// createChild is the by-inode-number primitive behind CreatePath/MkdirPath
// and the vfs adapter's Inode.Create/Inode.Mkdir: it allocates a new inode
// named name inside the directory numbered parentNum.
func (fs *Filesystem) createChild(parentNum uint32, name string, mode uint16, nlinks uint8) (uint32, error) {
	if len(name) > NameMax {
		return 0, errTooLongName
	}
	parentIno, err := fs.ReadInode(parentNum)
	if err != nil {
		return 0, err
	}
	if existing, _ := fs.LookupInDir(parentIno, name); existing != 0 {
		return 0, errno.EEXIST
	}

	newNum, err := fs.AllocInode()
	if err != nil {
		return 0, err
	}
	newIno := DiskInode{Mode: mode, NLinks: 1}
	if mode&ModeTypeMask == ModeDirectory {
		newIno.NLinks = nlinks
		zone, err := fs.AllocZone()
		if err != nil {
			fs.FreeInode(newNum)
			return 0, err
		}
		blk := make([]byte, BlockSize)
		dot, _ := newDirEntry(newNum, ".")
		dotdot, _ := newDirEntry(parentNum, "..")
		copy(blk[0:DirEntrySize], dot.encode())
		copy(blk[DirEntrySize:2*DirEntrySize], dotdot.encode())
		if err := fs.writeBlock(zone, blk); err != nil {
			return 0, err
		}
		newIno.Zone[0] = uint16(zone)
		newIno.Size = BlockSize
	}
	if err := fs.WriteInode(newNum, newIno); err != nil {
		return 0, err
	}
	if err := fs.AddDirent(&parentIno, name, newNum); err != nil {
		return 0, err
	}
	if mode&ModeTypeMask == ModeDirectory {
		parentIno.NLinks++
	}
	return newNum, fs.WriteInode(parentNum, parentIno)
}

// RmdirPath removes the empty directory named by path (spec.md §4.8's
// rmdir).
func (fs *Filesystem) RmdirPath(path string) error {
	parentNum, name, err := fs.resolveParent(path)
	if err != nil {
		return err
	}
	parentIno, err := fs.ReadInode(parentNum)
	if err != nil {
		return err
	}
	targetNum, err := fs.LookupInDir(parentIno, name)
	if err != nil {
		return err
	}
	if targetNum == 0 {
		return errno.ENOENT
	}
	return fs.rmdirChild(parentNum, name, targetNum)
}

// rmdirChild is the by-inode-number primitive behind RmdirPath and the vfs
// adapter's Inode.Rmdir: targetNum must already be known to be the entry
// named name inside the directory numbered parentNum.
func (fs *Filesystem) rmdirChild(parentNum uint32, name string, targetNum uint32) error {
	targetIno, err := fs.ReadInode(targetNum)
	if err != nil {
		return err
	}
	if targetIno.Type() != ModeDirectory {
		return errno.ENOTDIR
	}
	entries, err := fs.Readdir(targetIno)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.name() != "." && e.name() != ".." {
			return errno.EEXIST // directory not empty
		}
	}
	for _, z := range targetIno.Zone {
		if z != 0 {
			fs.FreeZone(uint32(z))
		}
	}
	targetIno.Zone = [ZonesPerInode]uint16{}
	if err := fs.WriteInode(targetNum, targetIno); err != nil {
		return err
	}
	if err := fs.FreeInode(targetNum); err != nil {
		return err
	}
	parentIno, err := fs.ReadInode(parentNum)
	if err != nil {
		return err
	}
	if err := fs.RemoveDirent(parentIno, name); err != nil {
		return err
	}
	parentIno.NLinks--
	return fs.WriteInode(parentNum, parentIno)
}

// UnlinkPath removes the directory entry named by path and decrements the
// inode's link count. When the count reaches zero the zones named by the
// inode's zone pointers and the inode itself are freed at once; open file
// descriptions are not counted, so an inode that is still open is freed
// all the same.
func (fs *Filesystem) UnlinkPath(path string) error {
	parentNum, name, err := fs.resolveParent(path)
	if err != nil {
		return err
	}
	parentIno, err := fs.ReadInode(parentNum)
	if err != nil {
		return err
	}
	targetNum, err := fs.LookupInDir(parentIno, name)
	if err != nil {
		return err
	}
	if targetNum == 0 {
		return errno.ENOENT
	}
	return fs.unlinkChild(parentNum, name, targetNum)
}

// unlinkChild is the by-inode-number primitive behind UnlinkPath and the
// vfs adapter's Inode.Unlink.
func (fs *Filesystem) unlinkChild(parentNum uint32, name string, targetNum uint32) error {
	targetIno, err := fs.ReadInode(targetNum)
	if err != nil {
		return err
	}
	if targetIno.Type() == ModeDirectory {
		return errno.EISDIR
	}
	parentIno, err := fs.ReadInode(parentNum)
	if err != nil {
		return err
	}
	if err := fs.RemoveDirent(parentIno, name); err != nil {
		return err
	}
	targetIno.NLinks--
	if targetIno.NLinks == 0 {
		for _, z := range targetIno.Zone {
			if z != 0 {
				fs.FreeZone(uint32(z))
			}
		}
		targetIno.Zone = [ZonesPerInode]uint16{}
		targetIno.Size = 0
		if err := fs.WriteInode(targetNum, targetIno); err != nil {
			return err
		}
		return fs.FreeInode(targetNum)
	}
	return fs.WriteInode(targetNum, targetIno)
}

// ReadAt reads into buf starting at byte offset off in inode n, stopping
// at n's recorded size; holes (unallocated zones) read as zero bytes.
func (fs *Filesystem) ReadAt(n uint32, buf []byte, off int64) (int, error) {
	ino, err := fs.ReadInode(n)
	if err != nil {
		return 0, err
	}
	if off >= int64(ino.Size) {
		return 0, nil
	}
	total := 0
	for total < len(buf) && off+int64(total) < int64(ino.Size) {
		pos := off + int64(total)
		zone, err := fs.BlockForOffset(&ino, pos, false)
		if err != nil {
			return total, err
		}
		blockOff := int(pos % BlockSize)
		n := min(len(buf)-total, BlockSize-blockOff, int(int64(ino.Size)-pos))
		if zone == 0 {
			for i := 0; i < n; i++ {
				buf[total+i] = 0
			}
		} else {
			blk, err := fs.readBlock(zone)
			if err != nil {
				return total, err
			}
			copy(buf[total:total+n], blk[blockOff:blockOff+n])
		}
		total += n
	}
	return total, nil
}

// WriteAt writes buf at byte offset off in inode n, allocating zones as
// needed and growing n's recorded size, per spec.md §4.8's write(path,
// buf, off) built on block_for_offset.
func (fs *Filesystem) WriteAt(n uint32, buf []byte, off int64) (int, error) {
	ino, err := fs.ReadInode(n)
	if err != nil {
		return 0, err
	}
	if uint32(off)+uint32(len(buf)) > fs.sb.MaxSize {
		return 0, errno.ERANGE
	}
	total := 0
	for total < len(buf) {
		pos := off + int64(total)
		zone, err := fs.BlockForOffset(&ino, pos, true)
		if err != nil {
			return total, err
		}
		blockOff := int(pos % BlockSize)
		n := min(len(buf)-total, BlockSize-blockOff)
		blk, err := fs.readBlock(zone)
		if err != nil {
			return total, err
		}
		copy(blk[blockOff:blockOff+n], buf[total:total+n])
		if err := fs.writeBlock(zone, blk); err != nil {
			return total, err
		}
		total += n
	}
	if uint32(off+int64(total)) > ino.Size {
		ino.Size = uint32(off + int64(total))
	}
	return total, fs.WriteInode(n, ino)
}
