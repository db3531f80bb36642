package sched

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeTask struct {
	id       uint64
	priority int
	nice     int
}

func (f *fakeTask) ID() uint64    { return f.id }
func (f *fakeTask) Priority() int { return f.priority }
func (f *fakeTask) Nice() int     { return f.nice }

// vruntimeTask additionally satisfies the unexported vruntimeHandle
// interface, the way pkg/sentry/kernel's Task does, so tests can verify
// CFS resumes accounting across a PickNext instead of resetting it.
type vruntimeTask struct {
	fakeTask
	vruntime int64
}

func (v *vruntimeTask) Vruntime() int64    { return v.vruntime }
func (v *vruntimeTask) SetVruntime(n int64) { v.vruntime = n }

func TestRoundRobinRotates(t *testing.T) {
	rr := NewRoundRobin()
	a, b, c := &fakeTask{id: 1}, &fakeTask{id: 2}, &fakeTask{id: 3}
	rr.Enqueue(a)
	rr.Enqueue(b)
	rr.Enqueue(c)

	first, ok := rr.PickNext()
	require.True(t, ok)
	require.Equal(t, a, first)
	rr.Requeue(first)

	second, _ := rr.PickNext()
	require.Equal(t, b, second)
}

func TestPriorityOrdersByLevel(t *testing.T) {
	p := NewPriority()
	low := &fakeTask{id: 1, priority: 5}
	high := &fakeTask{id: 2, priority: 0}
	p.Enqueue(low)
	p.Enqueue(high)

	next, ok := p.PickNext()
	require.True(t, ok)
	require.Equal(t, high, next, "lower priority value must win")
}

func TestCFSLeftmostNodeIsEarliestVruntime(t *testing.T) {
	c := NewCFS()
	a := &fakeTask{id: 1}
	b := &fakeTask{id: 2}
	c.Enqueue(a)
	c.Enqueue(b)

	// Simulate a ran and accumulated vruntime, b never ran.
	c.Remove(a)
	c.AccountExec(a, 100)

	next, ok := c.PickNext()
	require.True(t, ok)
	require.Equal(t, b, next, "task with lower vruntime must be picked first")
}

func TestCFSAccountExecResumesRunningTaskVruntime(t *testing.T) {
	c := NewCFS()
	running := &vruntimeTask{fakeTask: fakeTask{id: 1}}
	other := &fakeTask{id: 2}
	c.Enqueue(running)
	c.Enqueue(other)

	// PickNext drops running's bookkeeping entry, the way the real
	// scheduler does the instant a task is handed the CPU; its vruntime
	// must survive on the handle itself rather than reset to 0 on the
	// next AccountExec.
	picked, ok := c.PickNext()
	require.True(t, ok)
	require.Equal(t, running, picked)

	c.AccountExec(running, 50)
	firstVruntime := running.Vruntime()
	require.Greater(t, firstVruntime, int64(0))

	c.AccountExec(running, 50)
	require.Greater(t, running.Vruntime(), firstVruntime, "second AccountExec must add to the first's result, not reset it")
}

func TestCFSFairnessBound(t *testing.T) {
	// Three nice=0 tasks should converge to within one slice (plus one
	// tick) of each other's consumed ticks, per spec.md §8 scenario 4.
	c := NewCFS()
	tasks := []*fakeTask{{id: 1}, {id: 2}, {id: 3}}
	consumed := map[uint64]int64{}
	for _, tk := range tasks {
		c.Enqueue(tk)
	}

	for i := 0; i < 300; i++ {
		cur, ok := c.PickNext()
		require.True(t, ok)
		q := int64(c.Quantum(cur, len(tasks)))
		consumed[cur.ID()] += q
		c.AccountExec(cur, q)
	}

	var min, max int64 = -1, -1
	for _, v := range consumed {
		if min == -1 || v < min {
			min = v
		}
		if max == -1 || v > max {
			max = v
		}
	}
	require.LessOrEqual(t, max-min, int64(c.Quantum(nil, len(tasks))+1), "fairness spread must stay bounded")
}
