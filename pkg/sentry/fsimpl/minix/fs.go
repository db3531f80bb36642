package minix

import (
	"sync"

	"github.com/IRodriguez13/IR0-sub002/pkg/bitmap"
	"github.com/IRodriguez13/IR0-sub002/pkg/errno"
	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/devices/block"
)

// errTooLongName is returned by path operations when a component exceeds
// NameMax bytes (spec.md §4.8's "filenames > 14 bytes are rejected").
var errTooLongName = errno.ERANGE

// Filesystem is a mounted MINIX-v1 volume: a superblock, its two bitmaps
// kept resident in memory (persisted back to disk block-by-block on every
// mutation, per spec.md §4.8's failure semantics), and the block device
// backing it.
type Filesystem struct {
	mu  sync.Mutex
	dev block.Device
	sb  SuperBlock
	im  *bitmap.Bitmap // inode bitmap, index 0 == inode 1
	zm  *bitmap.Bitmap // zone bitmap, index 0 == zone FirstDataZone
}

// Format writes a fresh MINIX-v1 volume to dev: superblock, all-free
// bitmaps except inode 1 (root) and its one zone, and an empty root
// directory containing "." and "..". Used by mkfs-style setup and by
// tests that need a ready filesystem without a prebuilt image.
func Format(dev block.Device, ninodes, nzones uint32) (*Filesystem, error) {
	imapBlocks := blocksFor(ninodes)
	zmapBlocks := blocksFor(nzones)
	firstDataZone := 2 + imapBlocks + zmapBlocks + inodeBlocks(ninodes)

	sb := SuperBlock{
		NInodes:       ninodes,
		NZones:        nzones,
		ImapBlocks:    imapBlocks,
		ZmapBlocks:    zmapBlocks,
		FirstDataZone: firstDataZone,
		LogZoneSize:   0,
		MaxSize:       uint32(DirectZones)*BlockSize + IndirectZones*BlockSize + IndirectZones*IndirectZones*BlockSize,
		Magic:         Magic,
	}
	if firstDataZone >= nzones {
		return nil, errno.ENOSPC
	}
	if dev.SectorCount()*block.SectorSize < uint64(nzones)*BlockSize {
		return nil, errno.ENOSPC
	}

	fs := &Filesystem{
		dev: dev,
		sb:  sb,
		im:  bitmap.New(int(ninodes)),
		zm:  bitmap.New(int(nzones - firstDataZone)),
	}
	for i := 0; i < int(ninodes); i++ {
		fs.im.Set(i) // free
	}
	for i := 0; i < fs.zm.Len(); i++ {
		fs.zm.Set(i) // free
	}

	if err := fs.writeBlock(1, sb.encode()); err != nil {
		return nil, err
	}
	if err := fs.persistBitmap(fs.im, 2); err != nil {
		return nil, err
	}
	if err := fs.persistBitmap(fs.zm, 2+imapBlocks); err != nil {
		return nil, err
	}

	rootIno, err := fs.AllocInode()
	if err != nil {
		return nil, err
	}
	if rootIno != RootInodeNum {
		return nil, errno.EIO
	}
	rootZone, err := fs.AllocZone()
	if err != nil {
		return nil, err
	}
	root := DiskInode{Mode: ModeDirectory | 0o755, NLinks: 2, Size: BlockSize}
	root.Zone[0] = uint16(rootZone)
	if err := fs.WriteInode(rootIno, root); err != nil {
		return nil, err
	}
	blk := make([]byte, BlockSize)
	dot, _ := newDirEntry(rootIno, ".")
	dotdot, _ := newDirEntry(rootIno, "..")
	copy(blk[0:DirEntrySize], dot.encode())
	copy(blk[DirEntrySize:2*DirEntrySize], dotdot.encode())
	if err := fs.writeBlock(rootZone, blk); err != nil {
		return nil, err
	}
	return fs, nil
}

// Open reads an existing MINIX-v1 volume's superblock and bitmaps from
// dev.
func Open(dev block.Device) (*Filesystem, error) {
	sbBuf, err := readRawBlock(dev, 1)
	if err != nil {
		return nil, err
	}
	sb := decodeSuperBlock(sbBuf)
	if sb.Magic != Magic {
		return nil, errno.EINVAL
	}
	fs := &Filesystem{dev: dev, sb: sb}

	imBuf, err := readRawBlocks(dev, 2, sb.ImapBlocks)
	if err != nil {
		return nil, err
	}
	fs.im = bitmap.FromBytes(imBuf, int(sb.NInodes))

	zmBuf, err := readRawBlocks(dev, 2+sb.ImapBlocks, sb.ZmapBlocks)
	if err != nil {
		return nil, err
	}
	fs.zm = bitmap.FromBytes(zmBuf, int(sb.NZones-sb.FirstDataZone))

	return fs, nil
}

// blocksFor returns the number of whole bitmap blocks needed to hold n
// bits.
func blocksFor(n uint32) uint32 {
	bits := uint32(BlockSize * 8)
	return (n + bits - 1) / bits
}

// inodeBlocks returns the number of blocks the inode table occupies for
// ninodes inodes.
func inodeBlocks(ninodes uint32) uint32 {
	perBlock := uint32(BlockSize / DiskInodeSize)
	return (ninodes + perBlock - 1) / perBlock
}

func (fs *Filesystem) readBlock(n uint32) ([]byte, error) {
	return readRawBlock(fs.dev, n)
}

func (fs *Filesystem) writeBlock(n uint32, data []byte) error {
	if len(data) != BlockSize {
		return errno.EINVAL
	}
	return fs.dev.WriteSectors(uint64(n)*(BlockSize/block.SectorSize), BlockSize/block.SectorSize, data)
}

func readRawBlock(dev block.Device, n uint32) ([]byte, error) {
	buf := make([]byte, BlockSize)
	if err := dev.ReadSectors(uint64(n)*(BlockSize/block.SectorSize), BlockSize/block.SectorSize, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func readRawBlocks(dev block.Device, start, count uint32) ([]byte, error) {
	out := make([]byte, 0, int(count)*BlockSize)
	for i := uint32(0); i < count; i++ {
		b, err := readRawBlock(dev, start+i)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

// persistBitmap writes bm's full backing bytes to the blocks starting at
// firstBlock, one block at a time (spec.md §4.8: "every bitmap mutation is
// read-modify-write at block granularity").
func (fs *Filesystem) persistBitmap(bm *bitmap.Bitmap, firstBlock uint32) error {
	raw := bm.Bytes()
	for off := 0; off < len(raw); off += BlockSize {
		end := off + BlockSize
		blk := make([]byte, BlockSize)
		if end > len(raw) {
			copy(blk, raw[off:])
		} else {
			copy(blk, raw[off:end])
		}
		if err := fs.writeBlock(firstBlock+uint32(off/BlockSize), blk); err != nil {
			return err
		}
	}
	return nil
}

// ReadInode computes n's block and in-block offset and returns its
// unpacked record (spec.md §4.8's read_inode).
func (fs *Filesystem) ReadInode(n uint32) (DiskInode, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.readInodeLocked(n)
}

func (fs *Filesystem) readInodeLocked(n uint32) (DiskInode, error) {
	if n == 0 || n > fs.sb.NInodes {
		return DiskInode{}, errno.EINVAL
	}
	perBlock := uint32(BlockSize / DiskInodeSize)
	blockNum := fs.sb.inodeTableStart() + (n-1)/perBlock
	offset := ((n - 1) % perBlock) * DiskInodeSize
	blk, err := fs.readBlock(blockNum)
	if err != nil {
		return DiskInode{}, err
	}
	return decodeDiskInode(blk[offset : offset+DiskInodeSize]), nil
}

// WriteInode read-modify-writes n's containing block with ino (spec.md
// §4.8's write_inode).
func (fs *Filesystem) WriteInode(n uint32, ino DiskInode) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.writeInodeLocked(n, ino)
}

func (fs *Filesystem) writeInodeLocked(n uint32, ino DiskInode) error {
	if n == 0 || n > fs.sb.NInodes {
		return errno.EINVAL
	}
	perBlock := uint32(BlockSize / DiskInodeSize)
	blockNum := fs.sb.inodeTableStart() + (n-1)/perBlock
	offset := ((n - 1) % perBlock) * DiskInodeSize
	blk, err := fs.readBlock(blockNum)
	if err != nil {
		return err
	}
	copy(blk[offset:offset+DiskInodeSize], ino.encode())
	return fs.writeBlock(blockNum, blk)
}

// AllocInode scans the inode bitmap for a free (1) bit, flips it to
// allocated (0) and persists the bitmap block (spec.md §4.8's
// alloc_inode).
func (fs *Filesystem) AllocInode() (uint32, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.allocInodeLocked()
}

func (fs *Filesystem) allocInodeLocked() (uint32, error) {
	idx, ok := fs.im.FirstSet(0)
	if !ok {
		return 0, errno.ENOSPC
	}
	fs.im.Clear(idx)
	if err := fs.persistBitmap(fs.im, 2); err != nil {
		fs.im.Set(idx)
		return 0, err
	}
	return uint32(idx) + 1, nil
}

// FreeInode flips n's bit back to free, requiring all nine zone pointers
// already be zero (spec.md §4.8's invariant).
func (fs *Filesystem) FreeInode(n uint32) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.freeInodeLocked(n)
}

func (fs *Filesystem) freeInodeLocked(n uint32) error {
	ino, err := fs.readInodeLocked(n)
	if err != nil {
		return err
	}
	if !ino.Free() {
		return errno.EBUSY
	}
	fs.im.Set(int(n - 1))
	return fs.persistBitmap(fs.im, 2)
}

// AllocZone scans the zone bitmap for a free bit at or past
// FirstDataZone, flips it to allocated and persists the bitmap block
// (spec.md §4.8's alloc_zone). Only zones >= FirstDataZone are ever
// allocatable, enforced by the bitmap being indexed from FirstDataZone.
func (fs *Filesystem) AllocZone() (uint32, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.allocZoneLocked()
}

func (fs *Filesystem) allocZoneLocked() (uint32, error) {
	idx, ok := fs.zm.FirstSet(0)
	if !ok {
		return 0, errno.ENOSPC
	}
	fs.zm.Clear(idx)
	if err := fs.persistBitmap(fs.zm, 2+fs.sb.ImapBlocks); err != nil {
		fs.zm.Set(idx)
		return 0, err
	}
	return fs.sb.FirstDataZone + uint32(idx), nil
}

// FreeZone flips z's bit back to free.
func (fs *Filesystem) FreeZone(z uint32) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.freeZoneLocked(z)
}

func (fs *Filesystem) freeZoneLocked(z uint32) error {
	if z < fs.sb.FirstDataZone {
		return errno.EINVAL
	}
	fs.zm.Set(int(z - fs.sb.FirstDataZone))
	return fs.persistBitmap(fs.zm, 2+fs.sb.ImapBlocks)
}

// zeroZone overwrites z with BlockSize zero bytes, used when a newly
// allocated zone is first attached to a file or indirect block.
func (fs *Filesystem) zeroZone(z uint32) error {
	return fs.writeBlock(z, make([]byte, BlockSize))
}
