package ramfs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/IRodriguez13/IR0-sub002/pkg/context"
	"github.com/IRodriguez13/IR0-sub002/pkg/errno"
	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/vfs"
)

func TestCreateWriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	root := NewTree(nil)
	inode, err := root.Create(ctx, "a.txt", 0o644)
	require.NoError(t, err)

	ops, err := inode.Open(ctx, vfs.OpenFlags{Write: true})
	require.NoError(t, err)
	n, err := ops.Write(ctx, []byte("hi"), 0)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	buf := make([]byte, 2)
	n, err = ops.Read(ctx, buf, 0)
	require.NoError(t, err)
	require.Equal(t, "hi", string(buf[:n]))
}

func TestMkdirThenReaddir(t *testing.T) {
	ctx := context.Background()
	root := NewTree(nil)
	_, err := root.Mkdir(ctx, "etc", 0o755)
	require.NoError(t, err)
	_, err = root.Create(ctx, "f", 0o644)
	require.NoError(t, err)

	entries, err := root.Readdir(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestRmdirNonEmptyFailsEEXIST(t *testing.T) {
	ctx := context.Background()
	root := NewTree(nil)
	d, err := root.Mkdir(ctx, "d", 0o755)
	require.NoError(t, err)
	_, err = d.(*Dir).Create(ctx, "f", 0o644)
	require.NoError(t, err)
	require.Equal(t, errno.EEXIST, root.Rmdir(ctx, "d"))
}

func TestQuotaRejectsOversizedWrite(t *testing.T) {
	ctx := context.Background()
	root := NewTree(NewQuota(4))
	inode, err := root.Create(ctx, "f", 0o644)
	require.NoError(t, err)
	ops, err := inode.Open(ctx, vfs.OpenFlags{Write: true})
	require.NoError(t, err)

	_, err = ops.Write(ctx, []byte("1234"), 0)
	require.NoError(t, err)
	_, err = ops.Write(ctx, []byte("5"), 4)
	require.Equal(t, errno.EDQUOT, err)
}

func TestUnlinkReleasesQuota(t *testing.T) {
	ctx := context.Background()
	q := NewQuota(4)
	root := NewTree(q)
	inode, err := root.Create(ctx, "f", 0o644)
	require.NoError(t, err)
	ops, err := inode.Open(ctx, vfs.OpenFlags{Write: true})
	require.NoError(t, err)
	_, err = ops.Write(ctx, []byte("1234"), 0)
	require.NoError(t, err)

	require.NoError(t, root.Unlink(ctx, "f"))
	inode2, err := root.Create(ctx, "g", 0o644)
	require.NoError(t, err)
	ops2, err := inode2.Open(ctx, vfs.OpenFlags{Write: true})
	require.NoError(t, err)
	_, err = ops2.Write(ctx, []byte("1234"), 0)
	require.NoError(t, err)
}

func TestLookupMissingReturnsENOENT(t *testing.T) {
	ctx := context.Background()
	root := NewTree(nil)
	_, err := root.Lookup(ctx, "missing")
	require.Equal(t, errno.ENOENT, err)
}

func TestBootFilesystemSeedsNestedFile(t *testing.T) {
	root, err := NewBootFilesystem(map[string][]byte{
		"etc/motd": []byte("welcome"),
	})
	require.NoError(t, err)

	ctx := context.Background()
	etc, err := root.Lookup(ctx, "etc")
	require.NoError(t, err)
	motd, err := etc.Lookup(ctx, "motd")
	require.NoError(t, err)

	ops, err := motd.Open(ctx, vfs.OpenFlags{Read: true})
	require.NoError(t, err)
	buf := make([]byte, 7)
	n, err := ops.Read(ctx, buf, 0)
	require.NoError(t, err)
	require.Equal(t, "welcome", string(buf[:n]))
}
