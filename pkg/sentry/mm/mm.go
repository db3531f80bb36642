// Package mm implements the virtual-memory manager (spec.md §4.2,
// component C3): a page-table-backed address space with on-demand
// paging. Following the re-architecture note in spec.md §9, the 4-level
// page table is represented as a sparse map from page number to PTE
// rather than literal page-table pages, and "CR3" is simply a pointer to
// the owning AddressSpace — there is no hardware to point at.
package mm

import (
	"sync"

	"github.com/IRodriguez13/IR0-sub002/pkg/hostarch"
	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/pgalloc"
)

// PTEFlags encodes the page-table entry bits named in spec.md §4.2.
type PTEFlags uint32

const (
	Present PTEFlags = 1 << iota
	Writable
	User
	WriteThrough
	NoCache
	NoExecute
)

type pte struct {
	frame pgalloc.FrameNumber
	flags PTEFlags
}

// FaultErrorCode mirrors the error-code bits delivered to a page-fault
// handler (spec.md §4.2).
type FaultErrorCode struct {
	Present        bool
	Write          bool
	User           bool
	Reserved       bool
	InstructionFetch bool
}

// Region is an on-demand paging region registered with an AddressSpace:
// touching any page in [Start, End) before it is backed triggers the
// fault handler to allocate and zero a frame for it.
type Region struct {
	Range hostarch.AddrRange
	Flags PTEFlags
}

// AddressSpace is one process's (or the kernel's) virtual address space.
// Every non-kernel task exclusively owns one (spec.md §3 Process
// invariants).
type AddressSpace struct {
	mu      sync.Mutex
	alloc   *pgalloc.Allocator
	table   map[uint64]pte // virtual page number -> pte
	regions []Region
	// higher half mappings shared by every address space, installed at
	// construction (spec.md §4.2 "canonical higher-half mapping").
	higherHalf *AddressSpace
}

// NewKernelAddressSpace creates the canonical higher-half mapping that is
// replicated into every subsequently created address space.
func NewKernelAddressSpace(alloc *pgalloc.Allocator) *AddressSpace {
	return &AddressSpace{alloc: alloc, table: make(map[uint64]pte)}
}

// NewAddressSpace creates a fresh user address space whose higher half is
// shared with (reads through to) the kernel address space.
func NewAddressSpace(alloc *pgalloc.Allocator, kernel *AddressSpace) *AddressSpace {
	return &AddressSpace{alloc: alloc, table: make(map[uint64]pte), higherHalf: kernel}
}

// Destroy releases every physical frame owned by this address space. The
// kernel's shared higher half is left untouched.
func (as *AddressSpace) Destroy() {
	as.mu.Lock()
	defer as.mu.Unlock()
	for _, e := range as.table {
		if e.flags&Present != 0 {
			as.alloc.FreeFrame(e.frame)
		}
	}
	as.table = nil
}

// Map installs a mapping from a page-aligned virtual address to a
// physical frame with the given flags.
func (as *AddressSpace) Map(virt hostarch.Addr, frame pgalloc.FrameNumber, flags PTEFlags) {
	as.mu.Lock()
	defer as.mu.Unlock()
	as.table[virt.PageNumber()] = pte{frame: frame, flags: flags | Present}
}

// Unmap removes any mapping for virt. It is not an error to unmap an
// unmapped page.
func (as *AddressSpace) Unmap(virt hostarch.Addr) {
	as.mu.Lock()
	defer as.mu.Unlock()
	delete(as.table, virt.PageNumber())
}

// Translate returns the physical frame backing virt, or ok == false if
// unmapped.
func (as *AddressSpace) Translate(virt hostarch.Addr) (pgalloc.FrameNumber, bool) {
	as.mu.Lock()
	e, ok := as.table[virt.PageNumber()]
	as.mu.Unlock()
	if ok {
		return e.frame, true
	}
	if as.higherHalf != nil {
		return as.higherHalf.Translate(virt)
	}
	return 0, false
}

// RegisterOnDemand registers a virtual range as on-demand paged: the
// first touch of any page in the range allocates and zero-fills a frame
// for it rather than faulting.
func (as *AddressSpace) RegisterOnDemand(r hostarch.AddrRange, flags PTEFlags) {
	as.mu.Lock()
	defer as.mu.Unlock()
	as.regions = append(as.regions, Region{Range: r, Flags: flags})
}

// FaultResult describes the outcome of HandleFault.
type FaultResult int

const (
	// FaultResolved means a frame was installed and the faulting
	// instruction may be retried.
	FaultResolved FaultResult = iota
	// FaultFatal means the access was outside every on-demand region and
	// the caller must raise SIGSEGV on the faulting task (spec.md §4.2).
	FaultFatal
)

// HandleFault implements the spec.md §4.2 page-fault policy: if the
// faulting address lies in a registered on-demand region and the page is
// absent, allocate a frame, zero it, and install it; otherwise the fault
// is fatal.
func (as *AddressSpace) HandleFault(addr hostarch.Addr, ec FaultErrorCode) (FaultResult, error) {
	as.mu.Lock()
	pn := addr.PageNumber()
	if _, ok := as.table[pn]; ok {
		as.mu.Unlock()
		// Already mapped: a write to a read-only page etc. is fatal; we
		// don't implement copy-on-write here (spec.md §4.4 marks COW
		// optional for fork).
		return FaultFatal, nil
	}
	var region *Region
	for i := range as.regions {
		if as.regions[i].Range.Contains(addr) {
			region = &as.regions[i]
			break
		}
	}
	as.mu.Unlock()

	if region == nil {
		return FaultFatal, nil
	}

	frame, err := as.alloc.AllocFrame()
	if err != nil {
		return FaultFatal, err
	}
	as.mu.Lock()
	as.table[pn] = pte{frame: frame, flags: region.Flags | Present}
	as.mu.Unlock()
	return FaultResolved, nil
}

// Fork returns a new AddressSpace that is a snapshot of as: every present
// mapping gets a freshly allocated frame in the child with the same flags
// (frames carry no byte contents here, so nothing is copied; no
// copy-on-write, per
// the spec.md §4.4 "optional" note — we always take the simple,
// correct-by-construction path and document the tradeoff in DESIGN.md).
func (as *AddressSpace) Fork() (*AddressSpace, error) {
	as.mu.Lock()
	defer as.mu.Unlock()

	child := &AddressSpace{alloc: as.alloc, table: make(map[uint64]pte, len(as.table)), higherHalf: as.higherHalf}
	child.regions = append(child.regions, as.regions...)

	for vpn, e := range as.table {
		if e.flags&Present == 0 {
			continue
		}
		nf, err := as.alloc.AllocFrame()
		if err != nil {
			child.Destroy()
			return nil, err
		}
		child.table[vpn] = pte{frame: nf, flags: e.flags}
	}
	return child, nil
}

// Frames are bare numbers handed out by pgalloc: there is no simulated
// physical memory behind them, so neither this package nor its callers
// (pkg/sentry/kernel's fork included) copy any frame's byte contents.
