package minix

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/IRodriguez13/IR0-sub002/pkg/errno"
	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/devices/block"
)

// memDevice is an in-memory block.Device standing in for a real disk image,
// fast enough to format repeatedly inside unit tests.
type memDevice struct {
	sectors []byte
}

func newMemDevice(sectors int) *memDevice {
	return &memDevice{sectors: make([]byte, sectors*block.SectorSize)}
}

func (d *memDevice) ReadSectors(lba uint64, count int, buf []byte) error {
	off := int(lba) * block.SectorSize
	n := count * block.SectorSize
	if off+n > len(d.sectors) {
		return errno.EINVAL
	}
	copy(buf[:n], d.sectors[off:off+n])
	return nil
}

func (d *memDevice) WriteSectors(lba uint64, count int, buf []byte) error {
	off := int(lba) * block.SectorSize
	n := count * block.SectorSize
	if off+n > len(d.sectors) {
		return errno.EINVAL
	}
	copy(d.sectors[off:off+n], buf[:n])
	return nil
}

func (d *memDevice) ID() string          { return "mem0" }
func (d *memDevice) SectorCount() uint64 { return uint64(len(d.sectors) / block.SectorSize) }
func (d *memDevice) Close() error        { return nil }

// newTestFS formats a fresh volume of 64+nzones zones, sized generously
// enough to hold the metadata blocks plus at least nzones data zones.
func newTestFS(t *testing.T, ninodes, nzones uint32) *Filesystem {
	t.Helper()
	// Headroom for superblock + bitmaps + inode table ahead of the data
	// zones, expressed in whole blocks and padded generously.
	totalBlocks := 64 + nzones
	dev := newMemDevice(int(totalBlocks) * (BlockSize / block.SectorSize))
	fs, err := Format(dev, ninodes, totalBlocks)
	require.NoError(t, err)
	return fs
}

func TestFormatCreatesEmptyRoot(t *testing.T) {
	fs := newTestFS(t, 64, 64)
	root, err := fs.ReadInode(RootInodeNum)
	require.NoError(t, err)
	require.Equal(t, ModeDirectory, root.Type())
	require.EqualValues(t, 2, root.NLinks)

	entries, err := fs.Readdir(root)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestCreateWriteReadRoundTrip(t *testing.T) {
	fs := newTestFS(t, 64, 64)
	n, err := fs.CreatePath("/hello.txt", 0o644)
	require.NoError(t, err)

	want := []byte("hello, minix")
	written, err := fs.WriteAt(n, want, 0)
	require.NoError(t, err)
	require.Equal(t, len(want), written)

	got := make([]byte, len(want))
	read, err := fs.ReadAt(n, got, 0)
	require.NoError(t, err)
	require.Equal(t, len(want), read)
	require.Equal(t, want, got)

	ino, err := fs.ReadInode(n)
	require.NoError(t, err)
	require.EqualValues(t, len(want), ino.Size)
}

func TestReadHoleReturnsZeros(t *testing.T) {
	fs := newTestFS(t, 64, 64)
	n, err := fs.CreatePath("/sparse.bin", 0o644)
	require.NoError(t, err)
	_, err = fs.WriteAt(n, []byte("x"), 5000)
	require.NoError(t, err)

	buf := make([]byte, 10)
	read, err := fs.ReadAt(n, buf, 0)
	require.NoError(t, err)
	require.Equal(t, 10, read)
	for _, b := range buf {
		require.EqualValues(t, 0, b)
	}
}

func TestMkdirThenLookup(t *testing.T) {
	fs := newTestFS(t, 64, 64)
	_, err := fs.MkdirPath("/etc", 0o755)
	require.NoError(t, err)
	n, err := fs.CreatePath("/etc/passwd", 0o644)
	require.NoError(t, err)

	resolved, err := fs.Resolve("/etc/passwd")
	require.NoError(t, err)
	require.Equal(t, n, resolved)
}

func TestCreateDuplicateNameFailsEEXIST(t *testing.T) {
	fs := newTestFS(t, 64, 64)
	_, err := fs.CreatePath("/a", 0o644)
	require.NoError(t, err)
	_, err = fs.CreatePath("/a", 0o644)
	require.Equal(t, errno.EEXIST, err)
}

func TestCreateNameTooLongRejected(t *testing.T) {
	fs := newTestFS(t, 64, 64)
	_, err := fs.CreatePath("/"+string(make([]byte, NameMax+1)), 0o644)
	require.Equal(t, errTooLongName, err)
}

func TestRmdirNonEmptyFailsEEXIST(t *testing.T) {
	fs := newTestFS(t, 64, 64)
	_, err := fs.MkdirPath("/d", 0o755)
	require.NoError(t, err)
	_, err = fs.CreatePath("/d/f", 0o644)
	require.NoError(t, err)
	require.Equal(t, errno.EEXIST, fs.RmdirPath("/d"))
}

func TestRmdirEmptyFreesInode(t *testing.T) {
	fs := newTestFS(t, 64, 64)
	n, err := fs.MkdirPath("/d", 0o755)
	require.NoError(t, err)
	require.NoError(t, fs.RmdirPath("/d"))

	_, err = fs.Resolve("/d")
	require.Equal(t, errno.ENOENT, err)

	// The freed inode number must be reusable (spec.md §4.8's free-list
	// reuse invariant).
	n2, err := fs.CreatePath("/e", 0o644)
	require.NoError(t, err)
	require.Equal(t, n, n2)
}

func TestUnlinkDecrementsNLinksAndFreesAtZero(t *testing.T) {
	fs := newTestFS(t, 64, 64)
	n, err := fs.CreatePath("/f", 0o644)
	require.NoError(t, err)

	root, err := fs.ReadInode(RootInodeNum)
	require.NoError(t, err)
	require.NoError(t, fs.AddDirent(&root, "f2", n))
	require.NoError(t, fs.WriteInode(RootInodeNum, root))
	targetIno, err := fs.ReadInode(n)
	require.NoError(t, err)
	targetIno.NLinks++
	require.NoError(t, fs.WriteInode(n, targetIno))

	require.NoError(t, fs.UnlinkPath("/f"))
	ino, err := fs.ReadInode(n)
	require.NoError(t, err)
	require.EqualValues(t, 1, ino.NLinks)

	require.NoError(t, fs.UnlinkPath("/f2"))
	_, err = fs.ReadInode(n)
	require.NoError(t, err) // inode slot still decodes, now free
}

func TestUnlinkDirectoryFailsEISDIR(t *testing.T) {
	fs := newTestFS(t, 64, 64)
	_, err := fs.MkdirPath("/d", 0o755)
	require.NoError(t, err)
	require.Equal(t, errno.EISDIR, fs.UnlinkPath("/d"))
}

func TestWriteAcrossIndirectZoneBoundary(t *testing.T) {
	// 7 direct zones * BlockSize bytes lands exactly at the single-indirect
	// boundary; write one byte just past it to force indirect allocation.
	fs := newTestFS(t, 16, 600)
	n, err := fs.CreatePath("/big", 0o644)
	require.NoError(t, err)

	off := int64(DirectZones) * BlockSize
	_, err = fs.WriteAt(n, []byte{0xAB}, off)
	require.NoError(t, err)

	got := make([]byte, 1)
	_, err = fs.ReadAt(n, got, off)
	require.NoError(t, err)
	require.Equal(t, byte(0xAB), got[0])
}

func TestDirectoryGrowsAcrossZoneBoundary(t *testing.T) {
	fs := newTestFS(t, 256, 256)
	_, err := fs.MkdirPath("/d", 0o755)
	require.NoError(t, err)

	// One zone holds dirEntsPerBlock (64) slots; "." and ".." occupy two,
	// so the 63rd new entry must grow the directory into a second zone.
	for i := 0; i < 63; i++ {
		_, err := fs.CreatePath("/d/f"+string(rune('a'+i%26))+string(rune('0'+i/26)), 0o644)
		require.NoError(t, err)
	}

	dirIno, err := fs.ReadInode(mustResolve(t, fs, "/d"))
	require.NoError(t, err)
	require.Greater(t, dirIno.Size, uint32(BlockSize))
}

func mustResolve(t *testing.T, fs *Filesystem, path string) uint32 {
	t.Helper()
	n, err := fs.Resolve(path)
	require.NoError(t, err)
	return n
}
