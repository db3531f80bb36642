package kernel

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/kernel/sched"
	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/mm"
	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/pgalloc"
)

func newTestKernel(t *testing.T) (*Kernel, *Task) {
	t.Helper()
	alloc := pgalloc.New(256, nil)
	kernelAS := mm.NewKernelAddressSpace(alloc)
	k := New(sched.NewRoundRobin())
	init := k.Bootstrap(alloc, kernelAS)
	return k, init
}

func TestForkExitWait(t *testing.T) {
	k, init := newTestKernel(t)

	child, err := k.Fork(init)
	require.NoError(t, err)
	require.NotEqual(t, init.pid, child.pid)

	k.Exit(child, 7)

	pid, status, err := k.Wait(init)
	require.NoError(t, err)
	require.Equal(t, child.pid, pid)
	require.Equal(t, 7, status)

	_, stillThere := k.Lookup(child.pid)
	require.False(t, stillThere, "reaped zombie must leave the process table")

	err = k.Kill(init, child.pid, 0)
	require.ErrorIs(t, err, ErrNoSuchProcess)
}

func TestWaitWithNoChildrenFails(t *testing.T) {
	k, init := newTestKernel(t)
	_, _, err := k.Wait(init)
	require.ErrorIs(t, err, ErrNoChildren)
}

func TestZombieReparentsOrphansToInit(t *testing.T) {
	k, init := newTestKernel(t)

	mid, err := k.Fork(init)
	require.NoError(t, err)
	grandchild, err := k.Fork(mid)
	require.NoError(t, err)

	k.Exit(mid, 0)
	_, _, err = k.Wait(init)
	require.NoError(t, err)

	require.Equal(t, uint64(initPID), grandchild.ppid, "orphan must be reparented to pid 1")
}

func TestKillRequiresRootForCrossTreeSignal(t *testing.T) {
	k, init := newTestKernel(t)
	childA, err := k.Fork(init)
	require.NoError(t, err)
	childB, err := k.Fork(init)
	require.NoError(t, err)
	childA.uid = 1000
	childB.uid = 1000

	err = k.Kill(childA, childB.pid, SIGTERM)
	require.ErrorIs(t, err, ErrPermissionDenied)

	childA.uid = 0
	err = k.Kill(childA, childB.pid, SIGTERM)
	require.NoError(t, err)
}

func TestKillOwnDescendantNeedsNoPrivilege(t *testing.T) {
	k, init := newTestKernel(t)
	child, err := k.Fork(init)
	require.NoError(t, err)

	err = k.Kill(init, child.pid, SIGKILL)
	require.NoError(t, err)
	require.Equal(t, StateZombie, child.State())
}

func TestScheduleThenDescheduleNeverPanics(t *testing.T) {
	// Regression test: Deschedule used to unconditionally release a
	// semaphore that nothing had acquired, panicking on the very first
	// yield/sleep/sigsuspend. Schedule/Deschedule must now round-trip
	// through plain k.mu bookkeeping with no such mismatch possible.
	k, init := newTestKernel(t)

	current, err := k.Schedule()
	require.NoError(t, err)
	require.Equal(t, init, current)
	require.Equal(t, StateRunning, current.State())

	require.NotPanics(t, func() {
		k.Deschedule(current, true)
	})
	_, running := k.Current()
	require.False(t, running)
}

func TestScheduleRefusesToDoubleAssignRunningSlot(t *testing.T) {
	k, _ := newTestKernel(t)
	_, err := k.Schedule()
	require.NoError(t, err)

	_, err = k.Schedule()
	require.Error(t, err, "a second Schedule before Deschedule must fail, not silently hand out the CPU twice")
}

func TestTickAccountsExecAndReportsPreemption(t *testing.T) {
	k := New(sched.NewCFS())
	alloc := pgalloc.New(256, nil)
	kernelAS := mm.NewKernelAddressSpace(alloc)
	init := k.Bootstrap(alloc, kernelAS)

	current, err := k.Schedule()
	require.NoError(t, err)
	require.Equal(t, init, current)

	var preempted bool
	for i := 0; i < 64; i++ {
		if k.Tick(current) {
			preempted = true
			break
		}
	}
	require.True(t, preempted, "a lone runnable task must eventually exhaust its quantum")
}

func TestSIGKILLTerminatesImmediately(t *testing.T) {
	k, init := newTestKernel(t)
	child, err := k.Fork(init)
	require.NoError(t, err)

	require.NoError(t, k.Kill(init, child.pid, SIGKILL))
	require.Equal(t, StateZombie, child.State())
	require.Equal(t, -int(SIGKILL), child.ExitCode())
}
