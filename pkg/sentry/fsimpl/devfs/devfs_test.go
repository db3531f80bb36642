package devfs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/IRodriguez13/IR0-sub002/pkg/context"
	"github.com/IRodriguez13/IR0-sub002/pkg/errno"
	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/vfs"
)

func TestLookupMissingDeviceReturnsENOENT(t *testing.T) {
	fs := New(map[string]Device{"null": NullDevice{}})
	_, err := fs.Root().Lookup(context.Background(), "nope")
	require.Equal(t, errno.ENOENT, err)
}

func TestReaddirListsRegisteredDevices(t *testing.T) {
	fs := New(map[string]Device{"null": NullDevice{}, "zero": ZeroDevice{}})
	entries, err := fs.Root().Readdir(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		require.Equal(t, vfs.TypeCharDevice, e.Type)
	}
}

func TestNullDeviceDiscardsWritesAndReadsEOF(t *testing.T) {
	fs := New(map[string]Device{"null": NullDevice{}})
	ctx := context.Background()
	inode, err := fs.Root().Lookup(ctx, "null")
	require.NoError(t, err)
	ops, err := inode.Open(ctx, vfs.OpenFlags{Read: true, Write: true})
	require.NoError(t, err)

	n, err := ops.Write(ctx, []byte("hello"), 0)
	require.NoError(t, err)
	require.Equal(t, 5, n)

	buf := make([]byte, 16)
	n, err = ops.Read(ctx, buf, 0)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestZeroDeviceFillsReadsWithZero(t *testing.T) {
	fs := New(map[string]Device{"zero": ZeroDevice{}})
	ctx := context.Background()
	inode, err := fs.Root().Lookup(ctx, "zero")
	require.NoError(t, err)
	ops, err := inode.Open(ctx, vfs.OpenFlags{Read: true})
	require.NoError(t, err)

	buf := make([]byte, 8)
	for i := range buf {
		buf[i] = 0xFF
	}
	n, err := ops.Read(ctx, buf, 0)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)
	for _, b := range buf {
		require.Equal(t, byte(0), b)
	}
}

func TestConsoleDeviceOpensRealPseudoTerminal(t *testing.T) {
	console, err := NewConsoleDevice()
	require.NoError(t, err)
	defer console.Close()
	require.NotEmpty(t, console.SlaveName())

	fs := New(map[string]Device{"console": console})
	ctx := context.Background()
	inode, err := fs.Root().Lookup(ctx, "console")
	require.NoError(t, err)
	ops, err := inode.Open(ctx, vfs.OpenFlags{Read: true, Write: true})
	require.NoError(t, err)
	require.False(t, ops.Seekable())
}

func TestConsoleIoctlRejectsUnknownRequest(t *testing.T) {
	console, err := NewConsoleDevice()
	require.NoError(t, err)
	defer console.Close()

	ctx := context.Background()
	ops, err := console.Open(ctx, vfs.OpenFlags{Read: true, Write: true})
	require.NoError(t, err)
	ioctl, ok := ops.(IoctlFileOps)
	require.True(t, ok)
	_, err = ioctl.Ioctl(ctx, 0xdeadbeef, 0)
	require.Equal(t, errno.ENOSYS, err)
}
