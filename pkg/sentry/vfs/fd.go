package vfs

import (
	"sync"

	"github.com/IRodriguez13/IR0-sub002/pkg/context"
	"github.com/IRodriguez13/IR0-sub002/pkg/errno"
)

// FileDescription is the per-fd open-file handle of spec.md §3: an inode
// reference, a byte offset and open flags. Reads/writes advance the offset
// atomically with respect to other operations on the same handle (spec.md
// §5's ordering guarantee), enforced by mu.
type FileDescription struct {
	mu     sync.Mutex
	Inode  Inode
	Ops    FileOps
	Offset int64
	Flags  OpenFlags
}

// Read reads into buf starting at the handle's current offset, advancing it.
func (f *FileDescription) Read(ctx context.Context, buf []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, err := f.Ops.Read(ctx, buf, f.Offset)
	f.Offset += int64(n)
	return n, err
}

// Write writes buf at the handle's current offset (or at EOF if Append is
// set), advancing the offset.
func (f *FileDescription) Write(ctx context.Context, buf []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	off := f.Offset
	if f.Flags.Append {
		if st, err := f.Inode.Stat(ctx); err == nil {
			off = st.Size
		}
	}
	n, err := f.Ops.Write(ctx, buf, off)
	f.Offset = off + int64(n)
	return n, err
}

// Seek repositions the handle's offset; devices that opt out of seeking
// (spec.md §4.9) report that via Ops.Seekable.
func (f *FileDescription) Seek(off int64, whence int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.Ops.Seekable() {
		return f.Offset, nil
	}
	switch whence {
	case 0: // SEEK_SET
		f.Offset = off
	case 1: // SEEK_CUR
		f.Offset += off
	default:
		return f.Offset, errno.EINVAL
	}
	if f.Offset < 0 {
		f.Offset = 0
		return f.Offset, errno.EINVAL
	}
	return f.Offset, nil
}

func (f *FileDescription) Close(ctx context.Context) error {
	return f.Ops.Close(ctx)
}

// FDTable maps small non-negative integers to open FileDescriptions
// (spec.md §4.7). fds 0/1/2 are reserved for the console by convention;
// callers preallocate them via Install before any user code runs.
type FDTable struct {
	mu    sync.Mutex
	slots map[int]*FileDescription
	limit int
}

// NewFDTable returns an empty table bounded by limit open descriptors
// (spec.md §7's EMFILE condition).
func NewFDTable(limit int) *FDTable {
	return &FDTable{slots: make(map[int]*FileDescription), limit: limit}
}

// Install allocates the lowest free fd for fd and returns it.
func (t *FDTable) Install(fd *FileDescription) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.slots) >= t.limit {
		return -1, errno.EMFILE
	}
	for i := 0; ; i++ {
		if _, used := t.slots[i]; !used {
			t.slots[i] = fd
			return i, nil
		}
	}
}

// InstallAt installs fd at a specific descriptor number, as dup2 requires.
func (t *FDTable) InstallAt(n int, fd *FileDescription) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n < 0 {
		return errno.EINVAL
	}
	t.slots[n] = fd
	return nil
}

func (t *FDTable) Get(n int) (*FileDescription, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fd, ok := t.slots[n]
	return fd, ok
}

func (t *FDTable) Close(n int) error {
	t.mu.Lock()
	fd, ok := t.slots[n]
	if !ok {
		t.mu.Unlock()
		return errno.EINVAL
	}
	delete(t.slots, n)
	t.mu.Unlock()
	return fd.Close(context.Background())
}

// Dup duplicates n onto the lowest free descriptor, per spec.md §4.6's dup.
func (t *FDTable) Dup(n int) (int, error) {
	t.mu.Lock()
	fd, ok := t.slots[n]
	t.mu.Unlock()
	if !ok {
		return -1, errno.EINVAL
	}
	return t.Install(fd)
}

// Dup2 duplicates oldfd onto newfd, closing any existing newfd first.
func (t *FDTable) Dup2(oldfd, newfd int) error {
	t.mu.Lock()
	fd, ok := t.slots[oldfd]
	t.mu.Unlock()
	if !ok {
		return errno.EINVAL
	}
	if _, exists := t.Get(newfd); exists {
		t.Close(newfd)
	}
	return t.InstallAt(newfd, fd)
}

// Clone produces an independent copy of the table for fork(), per spec.md
// §4.4's invariant that "the fd table after fork is an independent copy
// (duplicated handle counts)". The FileDescription pointers are shared
// (matching POSIX fork semantics: parent and child share the same open-file
// offset), but the slot map itself is a fresh copy so that a later
// close/dup/dup2 in one task never mutates the other's table.
func (t *FDTable) Clone() *FDTable {
	t.mu.Lock()
	defer t.mu.Unlock()
	clonedSlots := make(map[int]*FileDescription, len(t.slots))
	for k, v := range t.slots {
		clonedSlots[k] = v
	}
	return &FDTable{slots: clonedSlots, limit: t.limit}
}

func (t *FDTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.slots)
}
