package sched

import (
	"math"

	"github.com/google/btree"
)

// cfsEntry is the btree.Item stored per runnable task, ordered by
// (vruntime, id). Using github.com/google/btree's ordered tree as the
// concrete stand-in for the "valid red-black tree" invariant of spec.md
// §8: both are self-balancing ordered trees giving O(log n)
// leftmost-node lookup, which is all CFS needs from the structure.
type cfsEntry struct {
	vruntime int64
	task     TaskHandle
}

func (e *cfsEntry) Less(other btree.Item) bool {
	o := other.(*cfsEntry)
	if e.vruntime != o.vruntime {
		return e.vruntime < o.vruntime
	}
	return e.task.ID() < o.task.ID()
}

// vruntimeHandle is implemented by TaskHandles that carry their own
// accumulated vruntime across scheduling decisions (pkg/sentry/kernel's
// Task does). PickNext removes a task's bookkeeping entry from both the
// tree and byID before returning it, so without this the task's vruntime
// would be lost for the duration it is actually running; syncing it onto
// the handle itself lets AccountExec resume from the right place instead
// of resetting to minVruntime.
type vruntimeHandle interface {
	Vruntime() int64
	SetVruntime(int64)
}

// CFS is the completely-fair-scheduler-shaped policy described in
// spec.md §4.5: leftmost node of an ordered tree keyed by accumulated
// virtual runtime, with niceness-weighted vruntime accounting.
type CFS struct {
	tree        *btree.BTree
	byID        map[uint64]*cfsEntry
	minVruntime int64
}

// NewCFS returns an empty CFS policy.
func NewCFS() *CFS {
	return &CFS{tree: btree.New(32), byID: make(map[uint64]*cfsEntry)}
}

// niceWeight approximates Linux's per-nice-level weight table: each step
// down in niceness is roughly 1.25x more CPU share.
func niceWeight(nice int) float64 {
	return 1024 * math.Pow(1.25, float64(-nice))
}

// Enqueue inserts t. Per spec.md §4.5, "on enqueue, set new task's
// vruntime to max(current_min_vruntime, vruntime) to avoid starvation
// reset abuse" — a previously unseen task starts exactly at minVruntime.
func (c *CFS) Enqueue(t TaskHandle) {
	e := &cfsEntry{vruntime: c.minVruntime, task: t}
	if existing, ok := c.byID[t.ID()]; ok {
		v := existing.vruntime
		if v < c.minVruntime {
			v = c.minVruntime
		}
		e.vruntime = v
	}
	c.byID[t.ID()] = e
	c.tree.ReplaceOrInsert(e)
}

func (c *CFS) Remove(t TaskHandle) {
	if e, ok := c.byID[t.ID()]; ok {
		c.tree.Delete(e)
		delete(c.byID, t.ID())
	}
}

func (c *CFS) PickNext() (TaskHandle, bool) {
	var min btree.Item
	c.tree.Ascend(func(item btree.Item) bool {
		min = item
		return false // stop after the first (leftmost) item
	})
	if min == nil {
		return nil, false
	}
	e := min.(*cfsEntry)
	c.tree.Delete(e)
	delete(c.byID, e.task.ID())
	if e.vruntime > c.minVruntime {
		c.minVruntime = e.vruntime
	}
	if vh, ok := e.task.(vruntimeHandle); ok {
		vh.SetVruntime(e.vruntime)
	}
	return e.task, true
}

// Requeue re-inserts a task that exhausted its slice but is still
// runnable. It is Enqueue: a task that still has an entry (AccountExec
// leaves one) keeps that entry's vruntime, raised to minVruntime if lower;
// a task with no entry starts at minVruntime.
func (c *CFS) Requeue(t TaskHandle) {
	c.Enqueue(t)
}

// AccountExec advances t's vruntime by delta_exec * weight(nice), per
// spec.md §4.5. The caller (pkg/sentry/kernel's tick handler) invokes
// this once per tick for the currently running task. On the first call
// after PickNext the task has no entry in byID/tree, so its running base
// vruntime is recovered from the handle itself (see vruntimeHandle)
// rather than from this policy's own bookkeeping. Every call (re)inserts
// the task into the tree at its new vruntime, so from then on it counts
// in Len and later calls find its entry.
func (c *CFS) AccountExec(t TaskHandle, deltaExecTicks int64) {
	e, ok := c.byID[t.ID()]
	if !ok {
		base := c.minVruntime
		if vh, vok := t.(vruntimeHandle); vok {
			base = vh.Vruntime()
		}
		e = &cfsEntry{vruntime: base, task: t}
	} else {
		c.tree.Delete(e)
	}
	weight := niceWeight(t.Nice())
	scaled := int64(float64(deltaExecTicks) * (1024.0 / weight))
	e.vruntime += scaled
	c.byID[t.ID()] = e
	c.tree.ReplaceOrInsert(e)
	if vh, ok := t.(vruntimeHandle); ok {
		vh.SetVruntime(e.vruntime)
	}
}

// Quantum implements spec.md §4.5's proportional slice:
// max(min_granularity, period / runnable_count).
func (c *CFS) Quantum(_ TaskHandle, runnable int) int {
	if runnable <= 0 {
		runnable = 1
	}
	q := Period / runnable
	if q < MinGranularity {
		q = MinGranularity
	}
	return q
}

func (c *CFS) Len() int {
	return c.tree.Len()
}
