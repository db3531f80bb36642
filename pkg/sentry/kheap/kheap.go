// Package kheap implements the kernel-space heap allocator (spec.md §4.3,
// component C4): kmalloc/kfree over a reserved arena. spec.md §9 leaves
// open whether kfree actually reclaims; this implementation resolves
// that in favor of freelist reuse (see DESIGN.md), since spec.md §8's
// boundary stress test requires that freeing and reallocating the same
// size class returns usable memory rather than exhausting the arena.
package kheap

import (
	"sync"

	"github.com/IRodriguez13/IR0-sub002/pkg/errno"
)

const align = 16

// Heap is a bump allocator over a fixed-size arena with freelist reuse on
// Free, keyed by rounded-up size class.
type Heap struct {
	mu       sync.Mutex
	arena    []byte
	bump     int
	freelist map[int][]int // size class -> list of offsets into arena
}

// New creates a Heap over an arena of the given size in bytes.
func New(size int) *Heap {
	return &Heap{
		arena:    make([]byte, size),
		freelist: make(map[int][]int),
	}
}

func sizeClass(n int) int {
	if n <= 0 {
		n = 1
	}
	c := align
	for c < n {
		c *= 2
	}
	return c
}

// Alloc returns a 16-byte-aligned offset into the heap's arena able to
// hold size bytes, or an error if the arena is exhausted. Size 0 yields a
// unique, non-null offset, matching spec.md §4.3's either/or and
// choosing "unique" for this implementation.
func (h *Heap) Alloc(size int) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	class := sizeClass(size)
	if free := h.freelist[class]; len(free) > 0 {
		off := free[len(free)-1]
		h.freelist[class] = free[:len(free)-1]
		return off, nil
	}

	start := (h.bump + align - 1) &^ (align - 1)
	if start+class > len(h.arena) {
		return 0, errno.ENOMEM
	}
	h.bump = start + class
	return start, nil
}

// Free returns the allocation at off (originally requested with the given
// size) to the freelist for its size class, making it available to a
// future Alloc of any size that rounds up to the same class; Allocs of a
// smaller class do not reuse it.
func (h *Heap) Free(off, size int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	class := sizeClass(size)
	h.freelist[class] = append(h.freelist[class], off)
}

// Bytes returns a slice view of the arena starting at off, length size,
// for callers that need to read/write the allocated region directly.
func (h *Heap) Bytes(off, size int) []byte {
	return h.arena[off : off+size]
}

// Used returns the number of bytes currently bump-allocated (not
// necessarily all live, since freed blocks are reused rather than
// shrinking bump), for /proc/meminfo.
func (h *Heap) Used() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.bump
}

// Cap returns the total arena size in bytes.
func (h *Heap) Cap() int {
	return len(h.arena)
}
