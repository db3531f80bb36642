package minix

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckCleanVolumeReportsNoErrors(t *testing.T) {
	fs := newTestFS(t, 64, 64)
	_, err := fs.MkdirPath("/etc", 0o755)
	require.NoError(t, err)
	n, err := fs.CreatePath("/etc/passwd", 0o644)
	require.NoError(t, err)
	_, err = fs.WriteAt(n, []byte("root:x:0:0"), 0)
	require.NoError(t, err)

	report, err := fs.Check()
	require.NoError(t, err)
	require.True(t, report.Clean(), "%v", report.Errors)
	require.Equal(t, fs.sb.NInodes, report.InodesTotal)
}

func TestCheckAcrossIndirectZoneBoundary(t *testing.T) {
	fs := newTestFS(t, 16, 600)
	n, err := fs.CreatePath("/big", 0o644)
	require.NoError(t, err)
	off := int64(DirectZones) * BlockSize
	_, err = fs.WriteAt(n, []byte{0xAB}, off)
	require.NoError(t, err)

	report, err := fs.Check()
	require.NoError(t, err)
	require.True(t, report.Clean(), "%v", report.Errors)
}

func TestCheckFlagsInodeAllocatedButUnreachable(t *testing.T) {
	fs := newTestFS(t, 64, 64)
	// Allocate an inode directly, bypassing CreatePath, so nothing in the
	// tree ever links to it.
	orphan, err := fs.AllocInode()
	require.NoError(t, err)
	ino := DiskInode{Mode: ModeRegular | 0o644, NLinks: 1}
	zone, err := fs.AllocZone()
	require.NoError(t, err)
	ino.Zone[0] = uint16(zone)
	require.NoError(t, fs.WriteInode(orphan, ino))

	report, err := fs.Check()
	require.NoError(t, err)
	require.False(t, report.Clean())
	require.Contains(t, report.Errors[0], "allocated but unreachable")
}

func TestCheckFlagsReachableInodeMarkedFreeInBitmap(t *testing.T) {
	fs := newTestFS(t, 64, 64)
	n, err := fs.CreatePath("/f", 0o644)
	require.NoError(t, err)

	// Corrupt the bitmap directly: mark n's bit free even though the
	// tree still points at it.
	fs.im.Set(int(n - 1))

	report, err := fs.Check()
	require.NoError(t, err)
	require.False(t, report.Clean())
	require.Contains(t, report.Errors, fmt.Sprintf("inode %d: reachable but bitmap marks it free", n))
}
