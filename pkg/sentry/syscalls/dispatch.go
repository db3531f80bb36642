package syscalls

import (
	"github.com/IRodriguez13/IR0-sub002/pkg/context"
	"github.com/IRodriguez13/IR0-sub002/pkg/errno"
	"github.com/IRodriguez13/IR0-sub002/pkg/hostarch"
	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/kernel"
	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/mm"
	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/vfs"
)

// Dispatcher implements spec.md §4.6's four-step entry sequence over a
// fixed Table.
type Dispatcher struct {
	Table  Table
	Kernel *kernel.Kernel
	VFS    *vfs.VirtualFilesystem
}

// NewDispatcher returns a Dispatcher over the default syscall table,
// wired to k and vfsInst for process-state and filesystem lookups shared
// across handlers.
func NewDispatcher(k *kernel.Kernel, vfsInst *vfs.VirtualFilesystem) *Dispatcher {
	return &Dispatcher{Table: defaultTable(k, vfsInst), Kernel: k, VFS: vfsInst}
}

// Dispatch rejects an unknown num with EINVAL, invokes the registered
// handler, and applies any pending fatal signal before returning to user
// mode, per spec.md §4.6. It does not validate pointer arguments: Path and
// Buf carry their content directly, and Dispatch never calls
// ValidatePointer.
func (d *Dispatcher) Dispatch(ctx context.Context, current *kernel.Task, num Number, args Args) int64 {
	h, ok := d.Table[num]
	if !ok {
		return errno.EINVAL.Negated()
	}

	ret := h(ctx, args)

	if current.State() == kernel.StateZombie || current.State() == kernel.StateDead {
		return ret
	}
	if sig, pending := current.TakePendingSignal(); pending {
		if sig.DefaultFatal() {
			d.Kernel.Exit(current, -int(sig))
			return errno.EINTR.Negated()
		}
	}
	return ret
}

// ValidatePointer checks a user pointer range page by page: a page that
// already translates (in as or the shared kernel higher half) is
// accepted, and any other page is brought in on demand via
// AddressSpace.HandleFault, failing with EFAULT if that fault is fatal.
// Neither writability (write only shapes the fault error code) nor a
// user/kernel address boundary is checked.
func ValidatePointer(as *mm.AddressSpace, addr hostarch.Addr, length uintptr, write bool) error {
	if length == 0 {
		return nil
	}
	start := addr.RoundDown()
	end := (addr + hostarch.Addr(length) - 1).RoundDown()
	for p := start; p <= end; p += hostarch.PageSize {
		if _, ok := as.Translate(p); ok {
			continue
		}
		ec := mm.FaultErrorCode{Present: false, Write: write, User: true}
		result, err := as.HandleFault(p, ec)
		if err != nil || result == mm.FaultFatal {
			return errno.EFAULT
		}
	}
	return nil
}
