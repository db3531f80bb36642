package minix

import "encoding/binary"

// DiskInode is the packed on-disk inode record (spec.md §3/§4.8): mode,
// uid, size in bytes, modification time, gid, link count, and nine zone
// pointers — the first seven direct, the eighth single-indirect, the
// ninth double-indirect.
type DiskInode struct {
	Mode   uint16
	UID    uint16
	Size   uint32
	Mtime  uint32
	GID    uint8
	NLinks uint8
	Zone   [ZonesPerInode]uint16
}

// Type returns the inode's type nibble.
func (d DiskInode) Type() uint16 { return d.Mode & ModeTypeMask }

// Free reports whether d has no allocated zones, the precondition spec.md
// §4.8 places on freeing an inode ("a freed inode must have all nine zone
// pointers zero").
func (d DiskInode) Free() bool {
	for _, z := range d.Zone {
		if z != 0 {
			return false
		}
	}
	return true
}

func (d DiskInode) encode() []byte {
	buf := make([]byte, DiskInodeSize)
	binary.LittleEndian.PutUint16(buf[0:2], d.Mode)
	binary.LittleEndian.PutUint16(buf[2:4], d.UID)
	binary.LittleEndian.PutUint32(buf[4:8], d.Size)
	binary.LittleEndian.PutUint32(buf[8:12], d.Mtime)
	buf[12] = d.GID
	buf[13] = d.NLinks
	for i, z := range d.Zone {
		binary.LittleEndian.PutUint16(buf[14+i*2:16+i*2], z)
	}
	return buf
}

func decodeDiskInode(buf []byte) DiskInode {
	var d DiskInode
	d.Mode = binary.LittleEndian.Uint16(buf[0:2])
	d.UID = binary.LittleEndian.Uint16(buf[2:4])
	d.Size = binary.LittleEndian.Uint32(buf[4:8])
	d.Mtime = binary.LittleEndian.Uint32(buf[8:12])
	d.GID = buf[12]
	d.NLinks = buf[13]
	for i := range d.Zone {
		d.Zone[i] = binary.LittleEndian.Uint16(buf[14+i*2 : 16+i*2])
	}
	return d
}
