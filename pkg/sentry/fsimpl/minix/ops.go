package minix

import (
	"encoding/binary"

	"github.com/IRodriguez13/IR0-sub002/pkg/errno"
)

// BlockForOffset translates a file byte offset into the zone holding it,
// walking single and double indirect blocks as needed (spec.md §4.8's
// block_for_offset). When allocate is true and the offset falls past the
// file's current end, missing direct/indirect zones are allocated and
// zeroed and ino is updated in place; the caller is responsible for
// persisting ino afterward. A hole read (allocate == false, zone unset)
// returns (0, nil); callers treat zone 0 as "read as zeros".
func (fs *Filesystem) BlockForOffset(ino *DiskInode, byteOff int64, allocate bool) (uint32, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.blockForOffsetLocked(ino, byteOff, allocate)
}

func (fs *Filesystem) blockForOffsetLocked(ino *DiskInode, byteOff int64, allocate bool) (uint32, error) {
	if byteOff < 0 || uint32(byteOff) >= fs.sb.MaxSize {
		return 0, errno.ERANGE
	}
	zoneIdx := int(byteOff / BlockSize)

	if zoneIdx < DirectZones {
		z := ino.Zone[zoneIdx]
		if z == 0 && allocate {
			nz, err := fs.allocZoneLocked()
			if err != nil {
				return 0, err
			}
			if err := fs.zeroZone(nz); err != nil {
				return 0, err
			}
			ino.Zone[zoneIdx] = uint16(nz)
			z = uint16(nz)
		}
		return uint32(z), nil
	}

	zoneIdx -= DirectZones
	if zoneIdx < IndirectZones {
		return fs.throughIndirect(&ino.Zone[DirectZones], zoneIdx, allocate)
	}

	zoneIdx -= IndirectZones
	if zoneIdx >= IndirectZones*IndirectZones {
		return 0, errno.ERANGE
	}
	outerIdx, innerIdx := zoneIdx/IndirectZones, zoneIdx%IndirectZones
	innerBlockZone, err := fs.throughIndirect(&ino.Zone[DirectZones+1], outerIdx, allocate)
	if err != nil || innerBlockZone == 0 {
		return 0, err
	}
	var innerPtr uint16 = uint16(innerBlockZone)
	return fs.throughIndirect(&innerPtr, innerIdx, allocate)
}

// throughIndirect dereferences the indirect block named by *indirectZone
// (allocating it first if zero and allocate is set) at slot idx, allocating
// the target zone too if it is unset and allocate is set.
func (fs *Filesystem) throughIndirect(indirectZone *uint16, idx int, allocate bool) (uint32, error) {
	if *indirectZone == 0 {
		if !allocate {
			return 0, nil
		}
		nz, err := fs.allocZoneLocked()
		if err != nil {
			return 0, err
		}
		if err := fs.zeroZone(nz); err != nil {
			return 0, err
		}
		*indirectZone = uint16(nz)
	}
	blk, err := fs.readBlock(uint32(*indirectZone))
	if err != nil {
		return 0, err
	}
	off := idx * zonePtrSize
	ptr := binary.LittleEndian.Uint16(blk[off : off+2])
	if ptr == 0 {
		if !allocate {
			return 0, nil
		}
		nz, err := fs.allocZoneLocked()
		if err != nil {
			return 0, err
		}
		if err := fs.zeroZone(nz); err != nil {
			return 0, err
		}
		binary.LittleEndian.PutUint16(blk[off:off+2], uint16(nz))
		if err := fs.writeBlock(uint32(*indirectZone), blk); err != nil {
			return 0, err
		}
		return nz, nil
	}
	return uint32(ptr), nil
}

const dirEntsPerBlock = BlockSize / DirEntrySize

// LookupInDir linearly scans every zone of dirIno for an entry named name,
// returning its inode number or 0 if absent (spec.md §4.8's
// lookup_in_dir).
func (fs *Filesystem) LookupInDir(dirIno DiskInode, name string) (uint32, error) {
	n, err := fs.forEachDirent(dirIno, func(e dirEntry, _ uint32, _ int) (stop bool) {
		return e.Inode != 0 && e.name() == name
	})
	return n, err
}

// Readdir returns every occupied directory entry of dirIno.
func (fs *Filesystem) Readdir(dirIno DiskInode) ([]dirEntry, error) {
	var out []dirEntry
	_, err := fs.forEachDirent(dirIno, func(e dirEntry, _ uint32, _ int) bool {
		if e.Inode != 0 {
			out = append(out, e)
		}
		return false
	})
	return out, err
}

// forEachDirent visits every directory-block slot of dirIno in order,
// stopping and returning the matching slot's inode number when visit
// reports true. visit receives the entry, its containing zone, and its
// slot index within that zone.
func (fs *Filesystem) forEachDirent(dirIno DiskInode, visit func(dirEntry, uint32, int) bool) (uint32, error) {
	nblocks := (int(dirIno.Size) + BlockSize - 1) / BlockSize
	for b := 0; b < nblocks; b++ {
		zone, err := fs.BlockForOffset(&dirIno, int64(b)*BlockSize, false)
		if err != nil {
			return 0, err
		}
		if zone == 0 {
			continue
		}
		blk, err := fs.readBlock(zone)
		if err != nil {
			return 0, err
		}
		for slot := 0; slot < dirEntsPerBlock; slot++ {
			e := decodeDirEntry(blk[slot*DirEntrySize : (slot+1)*DirEntrySize])
			if visit(e, zone, slot) {
				return uint32(e.Inode), nil
			}
		}
	}
	return 0, nil
}

// AddDirent writes a new entry into the first free slot of dirIno,
// growing it by one zone if none is free, and updates dirIno's size
// in-place (caller persists it). (spec.md §4.8's add_dirent)
func (fs *Filesystem) AddDirent(dirIno *DiskInode, name string, inode uint32) error {
	entry, err := newDirEntry(inode, name)
	if err != nil {
		return err
	}

	nblocks := (int(dirIno.Size) + BlockSize - 1) / BlockSize
	for b := 0; b < nblocks; b++ {
		zone, err := fs.BlockForOffset(dirIno, int64(b)*BlockSize, false)
		if err != nil {
			return err
		}
		if zone == 0 {
			continue
		}
		blk, err := fs.readBlock(zone)
		if err != nil {
			return err
		}
		for slot := 0; slot < dirEntsPerBlock; slot++ {
			if decodeDirEntry(blk[slot*DirEntrySize:(slot+1)*DirEntrySize]).Inode == 0 {
				copy(blk[slot*DirEntrySize:(slot+1)*DirEntrySize], entry.encode())
				return fs.writeBlock(zone, blk)
			}
		}
	}

	// No free slot: grow the directory by one zone.
	zone, err := fs.BlockForOffset(dirIno, int64(nblocks)*BlockSize, true)
	if err != nil {
		return err
	}
	blk := make([]byte, BlockSize)
	copy(blk[0:DirEntrySize], entry.encode())
	if err := fs.writeBlock(zone, blk); err != nil {
		return err
	}
	dirIno.Size = uint32(nblocks+1) * BlockSize
	return nil
}

// RemoveDirent zeroes the slot named name in dirIno (spec.md §4.8's
// remove_dirent).
func (fs *Filesystem) RemoveDirent(dirIno DiskInode, name string) error {
	var target struct {
		zone uint32
		slot int
		ok   bool
	}
	_, err := fs.forEachDirent(dirIno, func(e dirEntry, zone uint32, slot int) bool {
		if e.Inode != 0 && e.name() == name {
			target.zone, target.slot, target.ok = zone, slot, true
			return true
		}
		return false
	})
	if err != nil {
		return err
	}
	if !target.ok {
		return errno.ENOENT
	}
	blk, err := fs.readBlock(target.zone)
	if err != nil {
		return err
	}
	clear := make([]byte, DirEntrySize)
	copy(blk[target.slot*DirEntrySize:(target.slot+1)*DirEntrySize], clear)
	return fs.writeBlock(target.zone, blk)
}
