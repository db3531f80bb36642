package minix

import "encoding/binary"

// SuperBlock holds the fields named in spec.md §3: inode count, zone
// count, bitmap block counts, the first allocatable data zone, the log2
// zone-size factor (kept at 0 here: one zone is one block, the common
// MINIX V1 case), the maximum file size and the magic number.
type SuperBlock struct {
	NInodes       uint32
	NZones        uint32
	ImapBlocks    uint32
	ZmapBlocks    uint32
	FirstDataZone uint32
	LogZoneSize   uint32
	MaxSize       uint32
	Magic         uint32
}

// ZoneSize is the byte size of one zone under this superblock's
// LogZoneSize factor.
func (s SuperBlock) ZoneSize() uint32 {
	return BlockSize << s.LogZoneSize
}

// inodeTableStart returns the block number of the first inode-table block,
// immediately following the boot block, the superblock block, and the two
// bitmaps.
func (s SuperBlock) inodeTableStart() uint32 {
	return 2 + s.ImapBlocks + s.ZmapBlocks
}

// encode packs s into a full block-sized buffer; unused trailing bytes are
// zero, matching an on-disk superblock with reserved padding.
func (s SuperBlock) encode() []byte {
	buf := make([]byte, BlockSize)
	binary.LittleEndian.PutUint32(buf[0:4], s.NInodes)
	binary.LittleEndian.PutUint32(buf[4:8], s.NZones)
	binary.LittleEndian.PutUint32(buf[8:12], s.ImapBlocks)
	binary.LittleEndian.PutUint32(buf[12:16], s.ZmapBlocks)
	binary.LittleEndian.PutUint32(buf[16:20], s.FirstDataZone)
	binary.LittleEndian.PutUint32(buf[20:24], s.LogZoneSize)
	binary.LittleEndian.PutUint32(buf[24:28], s.MaxSize)
	binary.LittleEndian.PutUint32(buf[28:32], s.Magic)
	return buf
}

func decodeSuperBlock(buf []byte) SuperBlock {
	return SuperBlock{
		NInodes:       binary.LittleEndian.Uint32(buf[0:4]),
		NZones:        binary.LittleEndian.Uint32(buf[4:8]),
		ImapBlocks:    binary.LittleEndian.Uint32(buf[8:12]),
		ZmapBlocks:    binary.LittleEndian.Uint32(buf[12:16]),
		FirstDataZone: binary.LittleEndian.Uint32(buf[16:20]),
		LogZoneSize:   binary.LittleEndian.Uint32(buf[20:24]),
		MaxSize:       binary.LittleEndian.Uint32(buf[24:28]),
		Magic:         binary.LittleEndian.Uint32(buf[28:32]),
	}
}
