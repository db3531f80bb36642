package kernel

import (
	"sync"
	"sync/atomic"

	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/mm"
	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/vfs"
)

// State is a task's lifecycle state (spec.md §3).
type State int

const (
	StateNew State = iota
	StateReady
	StateRunning
	StateSleeping
	StateBlocked
	StateZombie
	StateDead
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateReady:
		return "READY"
	case StateRunning:
		return "RUNNING"
	case StateSleeping:
		return "SLEEPING"
	case StateBlocked:
		return "BLOCKED"
	case StateZombie:
		return "ZOMBIE"
	case StateDead:
		return "DEAD"
	default:
		return "UNKNOWN"
	}
}

// TaskContext holds the "saved CPU context" of spec.md §3. With no real
// hardware underneath, these are plain struct fields rather than a
// register-save area; a context switch is just Schedule installing a
// different Task as the kernel's running task instead of restoring these
// fields onto real registers. They exist so the contract named by the
// spec (general/control registers, instruction pointer, stack pointer,
// segment selectors) has a concrete home callers can inspect.
type TaskContext struct {
	InstructionPointer uint64
	StackPointer       uint64
	GeneralRegisters   [16]uint64
	SegmentSelectors   [6]uint16
}

// Task is one process/task control block (spec.md §3, component C5).
type Task struct {
	mu sync.Mutex

	pid      uint64
	ppid     uint64
	name     string
	uid      uint32
	gid      uint32
	priority int
	nice     int

	state    State
	exitCode int

	ctx     TaskContext
	as      *mm.AddressSpace
	fds     *vfs.FDTable
	heapLo  uint64
	heapHi  uint64

	pendingSignals uint64
	signalMask     uint64

	// wake is closed exactly once, when the task transitions out of
	// SLEEPING/BLOCKED due to a tick, a signal, or an explicit wake.
	wake chan struct{}
	// zombieNotify is closed when the task becomes a ZOMBIE, letting a
	// blocked wait() in the parent observe it without polling.
	zombieNotify chan struct{}

	runTicks int64 // ticks consumed since the last scheduling decision
	vruntime int64 // CFS accounting base, valid only while this task is running (see sched.vruntimeHandle)
}

// ID satisfies sched.TaskHandle.
func (t *Task) ID() uint64 { return t.pid }

// Priority satisfies sched.TaskHandle.
func (t *Task) Priority() int { return t.priority }

// Nice satisfies sched.TaskHandle.
func (t *Task) Nice() int { return t.nice }

func (t *Task) PID() uint64  { return t.pid }
func (t *Task) PPID() uint64 { return t.ppid }
func (t *Task) Name() string { return t.name }
func (t *Task) UID() uint32  { return t.uid }
func (t *Task) GID() uint32  { return t.gid }

func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Task) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// ExitCode returns the code recorded by exit(), valid once State is ZOMBIE.
func (t *Task) ExitCode() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.exitCode
}

// AddressSpace returns the task's virtual address space.
func (t *Task) AddressSpace() *mm.AddressSpace { return t.as }

// HeapBase and HeapLimit report the task's current brk region, read by
// procfs's per-pid status file (spec.md §4.9's VmSize field).
func (t *Task) HeapBase() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.heapLo
}

func (t *Task) HeapLimit() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.heapHi
}

// FDTable returns the task's file-descriptor table.
func (t *Task) FDTable() *vfs.FDTable { return t.fds }

// RunTicks reports ticks consumed since the last scheduling decision, used
// by the policy's Quantum calculation to decide on preemption.
func (t *Task) RunTicks() int64 {
	return atomic.LoadInt64(&t.runTicks)
}

func (t *Task) addRunTicks(n int64) int64 {
	return atomic.AddInt64(&t.runTicks, n)
}

func (t *Task) resetRunTicks() {
	atomic.StoreInt64(&t.runTicks, 0)
}

// Vruntime and SetVruntime satisfy sched's vruntimeHandle, letting CFS
// recover a task's accumulated virtual runtime after PickNext has already
// dropped its own bookkeeping entry for it.
func (t *Task) Vruntime() int64 {
	return atomic.LoadInt64(&t.vruntime)
}

func (t *Task) SetVruntime(v int64) {
	atomic.StoreInt64(&t.vruntime, v)
}

// pendingSignal reports whether any bit of pendingSignals is set and not
// masked off, per spec.md §5's "signals raised before a syscall returns
// are delivered before user-mode resumes".
func (t *Task) pendingSignal() (Signal, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	deliverable := t.pendingSignals &^ t.signalMask
	if deliverable == 0 {
		return 0, false
	}
	for s := Signal(0); s < 64; s++ {
		bit := uint64(1) << uint(s)
		if deliverable&bit != 0 {
			t.pendingSignals &^= bit
			return s, true
		}
	}
	return 0, false
}

// TakePendingSignal is pendingSignal's exported form, used by the syscall
// dispatcher at syscall exit (spec.md §7: "a pending fatal signal observed
// on syscall exit terminates the task before returning to user mode").
func (t *Task) TakePendingSignal() (Signal, bool) {
	return t.pendingSignal()
}

// SetSignalMask installs the blocked-signal mask (sigprocmask).
func (t *Task) SetSignalMask(mask uint64) {
	t.mu.Lock()
	t.signalMask = mask
	t.mu.Unlock()
}

// SignalMask returns the current blocked-signal mask.
func (t *Task) SignalMask() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.signalMask
}

func (t *Task) raiseSignal(s Signal) {
	t.mu.Lock()
	t.pendingSignals |= uint64(1) << uint(s)
	t.mu.Unlock()
}
