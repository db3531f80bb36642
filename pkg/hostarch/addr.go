// Package hostarch defines the page-granular address types shared by the
// paging (pkg/sentry/mm) and physical allocator (pkg/sentry/pgalloc)
// subsystems, mirroring gVisor's pkg/hostarch.
package hostarch

// PageSize is the page size in bytes (spec.md §4.2 on-demand paging).
const PageSize = 4096

// PageShift is log2(PageSize).
const PageShift = 12

// Addr is a virtual or physical byte address.
type Addr uint64

// PageNumber returns the page-aligned page number containing a.
func (a Addr) PageNumber() uint64 {
	return uint64(a) >> PageShift
}

// RoundDown returns a rounded down to the nearest page boundary.
func (a Addr) RoundDown() Addr {
	return Addr(uint64(a) &^ (PageSize - 1))
}

// RoundUp returns a rounded up to the nearest page boundary.
func (a Addr) RoundUp() Addr {
	return Addr((uint64(a) + PageSize - 1) &^ (PageSize - 1))
}

// AddrRange is a half-open virtual address range [Start, End).
type AddrRange struct {
	Start Addr
	End   Addr
}

// Length returns the length of the range in bytes.
func (r AddrRange) Length() uint64 {
	if r.End <= r.Start {
		return 0
	}
	return uint64(r.End - r.Start)
}

// Contains reports whether addr lies within the range.
func (r AddrRange) Contains(addr Addr) bool {
	return addr >= r.Start && addr < r.End
}

// Overlaps reports whether r and o share any address.
func (r AddrRange) Overlaps(o AddrRange) bool {
	return r.Start < o.End && o.Start < r.End
}

// AccessType describes the permissions requested of, or granted to, a
// mapping (spec.md §4.2 page-table flags).
type AccessType struct {
	Read    bool
	Write   bool
	Execute bool
}

// AnyAccess is full read/write/execute.
var AnyAccess = AccessType{Read: true, Write: true, Execute: true}
