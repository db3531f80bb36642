// Package minix implements the MINIX-v1-compatible on-disk filesystem of
// spec.md §4.8 (component C9): superblock, inode and zone bitmaps, 9-zone
// -pointer inodes with single/double indirect addressing, and 16-byte
// directory entries, laid out exactly as the real MINIX V1 format. It
// issues all I/O through pkg/sentry/devices/block.Device rather than
// touching a file directly, mirroring how gVisor's own on-disk filesystem
// packages (e.g. fsimpl/gofer) separate format logic from the transport
// underneath.
package minix

// BlockSize is the on-disk block size (spec.md §4.8): two 512-byte sectors.
const BlockSize = 1024

// DirEntrySize is the packed size of one directory entry: a 2-byte inode
// number plus a 14-byte, NUL-padded (not NUL-terminated when full) name.
const DirEntrySize = 16

// NameMax is the longest filename this filesystem accepts.
const NameMax = 14

// DiskInodeSize is the packed size of one on-disk inode.
const DiskInodeSize = 32

// ZonesPerInode is the fixed zone-pointer array length: 7 direct zones,
// one single-indirect, one double-indirect.
const ZonesPerInode = 9

// DirectZones is the number of direct zone pointers before the indirect
// pointers begin.
const DirectZones = 7

// Magic is the required superblock magic number (spec.md §3).
const Magic = 0x137F

// RootInodeNum is the fixed inode number of the root directory (spec.md
// §4.8: "inodes are indexed from 1; inode 1 is the root directory").
const RootInodeNum = 1

// zonePtrSize is the on-disk width of one zone pointer, and therefore the
// number of entries an indirect block holds: BlockSize / zonePtrSize.
const zonePtrSize = 2

// IndirectZones is the number of zone pointers packed into one indirect
// block.
const IndirectZones = BlockSize / zonePtrSize

// Mode bits. Only the type nibble is interpreted by this package; the
// permission bits are carried through unchanged for stat()/access checks
// performed above this layer.
const (
	ModeTypeMask    uint16 = 0xF000
	ModeRegular     uint16 = 0x8000
	ModeDirectory   uint16 = 0x4000
	ModeCharDevice  uint16 = 0x2000
	ModeBlockDevice uint16 = 0x6000
	ModeFIFO        uint16 = 0x1000
	ModeSymlink     uint16 = 0xA000
)
