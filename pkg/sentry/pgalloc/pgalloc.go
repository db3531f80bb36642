// Package pgalloc implements the physical frame allocator (spec.md §4.1,
// component C2): a bitmap over usable physical memory, first-fit
// allocation, with frames occupied by the kernel image, the bitmap itself
// and reserved memory-map ranges pre-marked allocated.
package pgalloc

import (
	"sync"

	"github.com/IRodriguez13/IR0-sub002/pkg/bitmap"
	"github.com/IRodriguez13/IR0-sub002/pkg/errno"
	"github.com/IRodriguez13/IR0-sub002/pkg/hostarch"
)

// FrameNumber identifies a physical page frame.
type FrameNumber uint64

// Range describes a reserved physical range, in frame numbers, that must
// be pre-marked allocated (kernel image, the bitmap's own backing memory,
// firmware-reserved regions from the boot memory map).
type Range struct {
	Start, End FrameNumber // [Start, End)
}

// Allocator is the physical frame allocator.
type Allocator struct {
	mu     sync.Mutex
	bm     *bitmap.Bitmap
	nframe int
	next   int // next search cursor, for amortized first-fit
}

// New builds an Allocator over nframes physical frames: all frames start
// free except for the given reserved ranges (kernel image, the bitmap's
// own backing memory, firmware-reserved regions), which start allocated.
func New(nframes int, reserved []Range) *Allocator {
	a := &Allocator{bm: bitmap.New(nframes), nframe: nframes}
	for i := 0; i < nframes; i++ {
		a.bm.Set(i) // free
	}
	for _, r := range reserved {
		for f := r.Start; f < r.End && int(f) < nframes; f++ {
			a.bm.Clear(int(f))
		}
	}
	return a
}

// AllocFrame returns the lowest-numbered free frame, marking it allocated.
// Fails with errno.ENOMEM when no frame is free (spec.md §4.1).
func (a *Allocator) AllocFrame() (FrameNumber, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	idx, ok := a.bm.FirstSet(a.next)
	if !ok {
		idx, ok = a.bm.FirstSet(0)
		if !ok {
			return 0, errno.ENOMEM
		}
	}
	a.bm.Clear(idx)
	a.next = idx + 1
	return FrameNumber(idx), nil
}

// AllocContiguous returns n consecutive free frames as a single run,
// marking them all allocated, or errno.ENOMEM if no run of that length
// exists.
func (a *Allocator) AllocContiguous(n int) (FrameNumber, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if n <= 0 {
		return 0, errno.EINVAL
	}
	run := 0
	start := -1
	for i := 0; i < a.nframe; i++ {
		if a.bm.Test(i) {
			if run == 0 {
				start = i
			}
			run++
			if run == n {
				for j := start; j < start+n; j++ {
					a.bm.Clear(j)
				}
				return FrameNumber(start), nil
			}
		} else {
			run = 0
		}
	}
	return 0, errno.ENOMEM
}

// FreeFrame returns a previously allocated frame to the free pool.
func (a *Allocator) FreeFrame(f FrameNumber) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.bm.Set(int(f))
	// Every frame below the cursor stays allocated, so AllocFrame's scan
	// from the cursor still finds the lowest-numbered free frame.
	if int(f) < a.next {
		a.next = int(f)
	}
}

// FreeFrames reports the current number of free frames, used by the
// /proc/meminfo generator (spec.md §4.9).
func (a *Allocator) FreeFrames() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.bm.PopCount()
}

// TotalFrames returns the total number of frames managed.
func (a *Allocator) TotalFrames() int {
	return a.nframe
}

// ToAddr converts a frame number to a physical byte address.
func (f FrameNumber) ToAddr() hostarch.Addr {
	return hostarch.Addr(uint64(f) << hostarch.PageShift)
}
