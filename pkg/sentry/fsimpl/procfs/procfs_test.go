package procfs

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/IRodriguez13/IR0-sub002/pkg/context"
	"github.com/IRodriguez13/IR0-sub002/pkg/errno"
	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/kernel"
	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/kernel/sched"
	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/pgalloc"
	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/vfs"
)

func newTestFilesystem(t *testing.T) (*Filesystem, *kernel.Kernel) {
	t.Helper()
	alloc := pgalloc.New(256, nil)
	k := kernel.New(sched.NewCFS())
	k.Bootstrap(alloc, nil)
	return New(k, alloc, []string{"console"}), k
}

func readFull(t *testing.T, inode vfs.Inode) string {
	t.Helper()
	ctx := context.Background()
	ops, err := inode.Open(ctx, vfs.OpenFlags{Read: true})
	require.NoError(t, err)
	buf := make([]byte, 4096)
	n, err := ops.Read(ctx, buf, 0)
	require.NoError(t, err)
	return string(buf[:n])
}

func mustLookup(t *testing.T, fs *Filesystem, name string) vfs.Inode {
	t.Helper()
	inode, err := fs.Root().Lookup(context.Background(), name)
	require.NoError(t, err)
	return inode
}

func TestMeminfoReportsFrameCounts(t *testing.T) {
	fs, _ := newTestFilesystem(t)
	require.Contains(t, readFull(t, mustLookup(t, fs, "meminfo")), "MemTotal:")
}

func TestVersionFile(t *testing.T) {
	fs, _ := newTestFilesystem(t)
	require.Equal(t, Version+"\n", readFull(t, mustLookup(t, fs, "version")))
}

// TestPartialReadsEqualFullRead exercises spec.md §8 scenario 3's exact
// framing against /proc/ps: concatenated small reads from one open file
// description equal a single full read at offset 0.
func TestPartialReadsEqualFullRead(t *testing.T) {
	fs, _ := newTestFilesystem(t)
	ctx := context.Background()
	inode := mustLookup(t, fs, "ps")
	full := readFull(t, inode)

	ops, err := inode.Open(ctx, vfs.OpenFlags{Read: true})
	require.NoError(t, err)
	var got strings.Builder
	buf := make([]byte, 8)
	off := int64(0)
	for {
		n, err := ops.Read(ctx, buf, off)
		require.NoError(t, err)
		if n == 0 {
			break
		}
		got.Write(buf[:n])
		off += int64(n)
	}
	require.Equal(t, full, got.String())
}

func TestWriteRejectedEACCES(t *testing.T) {
	fs, _ := newTestFilesystem(t)
	ctx := context.Background()
	inode := mustLookup(t, fs, "uptime")
	_, err := inode.Open(ctx, vfs.OpenFlags{Write: true})
	require.Equal(t, errno.EACCES, err)
}

func TestPidStatusForExistingTask(t *testing.T) {
	fs, k := newTestFilesystem(t)
	ctx := context.Background()
	infos := k.Snapshot()
	require.NotEmpty(t, infos)

	dir, err := fs.Root().Lookup(ctx, strconv.FormatUint(infos[0].PID, 10))
	require.NoError(t, err)
	status, err := dir.Lookup(ctx, "status")
	require.NoError(t, err)
	require.Contains(t, readFull(t, status), "Pid:")
}

func TestUnknownPidReturnsENOENT(t *testing.T) {
	fs, _ := newTestFilesystem(t)
	ctx := context.Background()
	_, err := fs.Root().Lookup(ctx, "999999")
	require.Equal(t, errno.ENOENT, err)
}
