// Package sched implements the pluggable scheduling policies of spec.md
// §4.5 (component C6): round-robin, priority, and a CFS-style policy. A
// Policy only ever sees opaque TaskHandles — it knows nothing about
// goroutines, fd tables or address spaces, which keeps it testable in
// isolation and mirrors how gVisor's kernel separates task bookkeeping
// from run-queue policy.
package sched

// TaskHandle identifies a schedulable entity; pkg/sentry/kernel's Task
// satisfies this by its pid.
type TaskHandle interface {
	// ID returns a value stable for the task's lifetime, used as a
	// tie-breaker and map key by policies.
	ID() uint64
	// Priority returns the static priority (lower numeric value sorts
	// first for the Priority policy).
	Priority() int
	// Nice returns the task's niceness in [-20, 19], used by CFS to
	// compute its scheduling weight.
	Nice() int
}

// DefaultQuantum is the RR time slice in ticks (spec.md §4.5).
const DefaultQuantum = 10

// MinGranularity and Period bound the CFS per-task time slice
// (spec.md §4.5: "time slice = max(min_granularity, period / runnable_count)").
const (
	MinGranularity = 3
	Period         = 48
)

// Policy is a pluggable scheduling policy. All methods are called with
// the scheduler's interrupts-disabled critical section already held by
// the caller (pkg/sentry/kernel), so implementations need no internal
// locking of their own.
type Policy interface {
	// Enqueue adds t to the READY set.
	Enqueue(t TaskHandle)
	// Remove drops t from the READY set, e.g. because it blocked or exited.
	Remove(t TaskHandle)
	// PickNext selects and removes the next task to run, or returns
	// ok == false if the READY set is empty (the caller falls back to the
	// idle task, per spec.md §4.5).
	PickNext() (t TaskHandle, ok bool)
	// Requeue is called by tick() when the running task's slice has
	// expired but it is still runnable; policies reinsert it as
	// appropriate (RR: tail of the queue; CFS: reinsert at its new
	// vruntime).
	Requeue(t TaskHandle)
	// Quantum returns the number of ticks the given task (assumed to be
	// the current head of the policy's own bookkeeping) may run before
	// tick() preempts it. runnable is the number of currently runnable
	// tasks, used by CFS's proportional-slice formula.
	Quantum(t TaskHandle, runnable int) int
	// Len reports the number of tasks currently enqueued.
	Len() int
}

// Accountant is implemented by policies that track per-task accumulated
// execution time across scheduling decisions (CFS's vruntime); RR and
// Priority have no such state, so this is optional rather than folded
// into Policy itself.
type Accountant interface {
	// AccountExec advances t's accounting by deltaExecTicks ticks of
	// actual execution, called once per tick by pkg/sentry/kernel before
	// the preemption decision.
	AccountExec(t TaskHandle, deltaExecTicks int64)
}
