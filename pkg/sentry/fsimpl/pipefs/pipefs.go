// Package pipefs implements the anonymous byte pipe behind spec.md
// §4.6's pipe() syscall (component C7): two file descriptions sharing
// one buffer, one end readable only and the other writable only. Unlike
// a real pipe, reading an empty buffer returns 0 bytes immediately
// instead of blocking the caller — this simulator has no scheduler hook
// for a task to block on I/O readiness, only on sleep/yield/sigsuspend
// (spec.md §4.6), so pipe reads behave as if every pipe were opened
// O_NONBLOCK.
package pipefs

import (
	"sync"

	"github.com/IRodriguez13/IR0-sub002/pkg/context"
	"github.com/IRodriguez13/IR0-sub002/pkg/errno"
	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/vfs"
)

// buffer is the byte queue shared by a pipe's two ends.
type buffer struct {
	mu   sync.Mutex
	data []byte
}

// inode is the shared stat view of one pipe; its reported size is the
// number of bytes currently buffered, matching FIFO stat conventions.
type inode struct {
	vfs.UnimplementedInode
	buf *buffer
}

func (n *inode) Stat(context.Context) (vfs.Stat, error) {
	n.buf.mu.Lock()
	defer n.buf.mu.Unlock()
	return vfs.Stat{Mode: 0o600, Nlink: 1, Size: int64(len(n.buf.data))}, nil
}

type readEnd struct {
	vfs.UnimplementedFileOps
	buf *buffer
}

func (r *readEnd) Read(_ context.Context, p []byte, _ int64) (int, error) {
	r.buf.mu.Lock()
	defer r.buf.mu.Unlock()
	n := copy(p, r.buf.data)
	r.buf.data = r.buf.data[n:]
	return n, nil
}

func (r *readEnd) Write(context.Context, []byte, int64) (int, error) { return 0, errno.EINVAL }
func (r *readEnd) Seekable() bool                                    { return false }
func (r *readEnd) Close(context.Context) error                       { return nil }

type writeEnd struct {
	vfs.UnimplementedFileOps
	buf *buffer
}

func (w *writeEnd) Write(_ context.Context, p []byte, _ int64) (int, error) {
	w.buf.mu.Lock()
	defer w.buf.mu.Unlock()
	w.buf.data = append(w.buf.data, p...)
	return len(p), nil
}

func (w *writeEnd) Read(context.Context, []byte, int64) (int, error) { return 0, errno.EINVAL }
func (w *writeEnd) Seekable() bool                                   { return false }
func (w *writeEnd) Close(context.Context) error                      { return nil }

// New returns a fresh pipe's read and write file descriptions, ready for
// the pipe() syscall handler to install into the caller's fd table.
func New() (read, write *vfs.FileDescription) {
	buf := &buffer{}
	ino := &inode{buf: buf}
	read = &vfs.FileDescription{Inode: ino, Ops: &readEnd{buf: buf}, Flags: vfs.OpenFlags{Read: true}}
	write = &vfs.FileDescription{Inode: ino, Ops: &writeEnd{buf: buf}, Flags: vfs.OpenFlags{Write: true}}
	return read, write
}
