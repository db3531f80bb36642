package devfs

import (
	"github.com/creack/pty"
	"golang.org/x/sys/unix"

	"github.com/IRodriguez13/IR0-sub002/pkg/context"
	"github.com/IRodriguez13/IR0-sub002/pkg/errno"
	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/vfs"
)

// NullDevice discards writes and reads as EOF, the usual /dev/null.
type NullDevice struct{}

func (NullDevice) Open(context.Context, vfs.OpenFlags) (vfs.FileOps, error) {
	return nullFileOps{}, nil
}

type nullFileOps struct{ vfs.UnimplementedFileOps }

func (nullFileOps) Read(context.Context, []byte, int64) (int, error)  { return 0, nil }
func (nullFileOps) Write(_ context.Context, buf []byte, _ int64) (int, error) {
	return len(buf), nil
}
func (nullFileOps) Seekable() bool              { return false }
func (nullFileOps) Close(context.Context) error { return nil }

// ZeroDevice reads as an endless stream of zero bytes and discards writes.
type ZeroDevice struct{}

func (ZeroDevice) Open(context.Context, vfs.OpenFlags) (vfs.FileOps, error) {
	return zeroFileOps{}, nil
}

type zeroFileOps struct{ vfs.UnimplementedFileOps }

func (zeroFileOps) Read(_ context.Context, buf []byte, _ int64) (int, error) {
	for i := range buf {
		buf[i] = 0
	}
	return len(buf), nil
}
func (zeroFileOps) Write(_ context.Context, buf []byte, _ int64) (int, error) {
	return len(buf), nil
}
func (zeroFileOps) Seekable() bool              { return false }
func (zeroFileOps) Close(context.Context) error { return nil }

// ConsoleDevice is the devfs tty, backed by one real pseudo-terminal pair
// opened at registration time. Every Open shares the same master side;
// I/O against it goes through raw unix.Read/unix.Write on the master's
// file descriptor, mirroring pkg/sentry/fsimpl/host's hostFD-based reads
// and writes rather than going through os.File's buffered methods.
type ConsoleDevice struct {
	masterFD  int
	slaveFD   int
	slaveName string
}

// NewConsoleDevice opens a fresh pseudo-terminal pair for the console.
func NewConsoleDevice() (*ConsoleDevice, error) {
	master, slave, err := pty.Open()
	if err != nil {
		return nil, errno.EIO
	}
	return &ConsoleDevice{
		masterFD:  int(master.Fd()),
		slaveFD:   int(slave.Fd()),
		slaveName: slave.Name(),
	}, nil
}

// SlaveName is the pty's slave-side path (e.g. /dev/pts/N on Linux), for
// callers that need to hand a real terminal path to an attached process.
func (c *ConsoleDevice) SlaveName() string { return c.slaveName }

// Close releases both sides of the pseudo-terminal pair.
func (c *ConsoleDevice) Close() error {
	err1 := unix.Close(c.masterFD)
	err2 := unix.Close(c.slaveFD)
	if err1 != nil {
		return errno.EIO
	}
	if err2 != nil {
		return errno.EIO
	}
	return nil
}

func (c *ConsoleDevice) Open(context.Context, vfs.OpenFlags) (vfs.FileOps, error) {
	return &consoleFileOps{c: c}, nil
}

type consoleFileOps struct {
	vfs.UnimplementedFileOps
	c *ConsoleDevice
}

func (o *consoleFileOps) Read(_ context.Context, buf []byte, _ int64) (int, error) {
	n, err := unix.Read(o.c.masterFD, buf)
	if err != nil {
		return 0, errno.EIO
	}
	return n, nil
}

func (o *consoleFileOps) Write(_ context.Context, buf []byte, _ int64) (int, error) {
	n, err := unix.Write(o.c.masterFD, buf)
	if err != nil {
		return 0, errno.EIO
	}
	return n, nil
}

// Seekable is false: the console is a stream device, not a random-access
// one, per spec.md §4.9's device-vs-file distinction.
func (o *consoleFileOps) Seekable() bool { return false }

func (o *consoleFileOps) Close(context.Context) error { return nil }

// Ioctl answers TIOCGWINSZ/TIOCSWINSZ by delegating to the real pty's
// window-size ioctl on the master fd; anything else is ENOSYS.
func (o *consoleFileOps) Ioctl(_ context.Context, req uint64, arg uintptr) (uintptr, error) {
	switch req {
	case unix.TIOCGWINSZ, unix.TIOCSWINSZ:
		_, _, errno1 := unix.Syscall(unix.SYS_IOCTL, uintptr(o.c.masterFD), uintptr(req), arg)
		if errno1 != 0 {
			return 0, errno.EIO
		}
		return 0, nil
	default:
		return 0, errno.ENOSYS
	}
}
