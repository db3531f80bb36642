package boot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/IRodriguez13/IR0-sub002/pkg/context"
	"github.com/IRodriguez13/IR0-sub002/pkg/errno"
	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/vfs"
)

func minimalConfig(t *testing.T) Config {
	t.Helper()
	cfg := defaultConfig()
	cfg.MemoryFrames = 256
	cfg.HeapSize = 4096
	return cfg
}

// resolveInode walks path against env's VFS the same way
// pkg/sentry/syscalls/handlers.go's openPath does: Resolve to a mount,
// then LookupParent plus a final Lookup for the basename.
func resolveInode(t *testing.T, env *Environment, path string) vfs.Inode {
	t.Helper()
	ctx := context.Background()
	mnt, rest, err := env.VFS.Resolve(path)
	require.NoError(t, err)
	parent, base, err := vfs.LookupParent(ctx, mnt.Root, rest)
	require.NoError(t, err)
	if base == "" {
		return parent
	}
	inode, err := parent.Lookup(ctx, base)
	require.NoError(t, err)
	return inode
}

func TestBringupWithoutDiskMountsPseudoFilesystems(t *testing.T) {
	env, err := Bringup(minimalConfig(t))
	require.NoError(t, err)
	require.NotNil(t, env.Kernel)
	require.Equal(t, uint64(1), env.Init.PID())

	for _, path := range []string{"/dev", "/proc", "/sys"} {
		_, _, err := env.VFS.Resolve(path)
		require.NoError(t, err, path)
	}
}

func TestBringupInstallsConsoleFDs(t *testing.T) {
	env, err := Bringup(minimalConfig(t))
	require.NoError(t, err)

	for _, fd := range []int{0, 1, 2} {
		desc, ok := env.Init.FDTable().Get(fd)
		require.True(t, ok)
		require.NotNil(t, desc)
	}
}

func TestBringupRejectsUnknownScheduler(t *testing.T) {
	cfg := minimalConfig(t)
	cfg.Scheduler = "bogus"
	_, err := Bringup(cfg)
	require.Equal(t, errno.EINVAL, err)
}

func TestBringupFormatsAndMountsDisk(t *testing.T) {
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "disk.img")
	require.NoError(t, os.WriteFile(imgPath, make([]byte, 128*1024), 0o600))

	cfg := minimalConfig(t)
	cfg.Disk = DiskConfig{Path: imgPath, Format: true, Inodes: 64, Zones: 64, MountAt: "/mnt"}

	env, err := Bringup(cfg)
	require.NoError(t, err)
	require.NotNil(t, env.Disk)

	inode := resolveInode(t, env, "/mnt")
	stat, err := inode.Stat(context.Background())
	require.NoError(t, err)
	require.NotZero(t, stat.Nlink)
}

func TestBringupAddsExtraMount(t *testing.T) {
	cfg := minimalConfig(t)
	cfg.Mounts = []MountConfig{{Type: "ramfs", Target: "/run"}}

	env, err := Bringup(cfg)
	require.NoError(t, err)
	_, _, err = env.VFS.Resolve("/run")
	require.NoError(t, err)
}

func TestBringupRejectsUnknownMountType(t *testing.T) {
	cfg := minimalConfig(t)
	cfg.Mounts = []MountConfig{{Type: "bogus", Target: "/x"}}
	_, err := Bringup(cfg)
	require.Equal(t, errno.EINVAL, err)
}
