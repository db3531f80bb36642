package sched

// RoundRobin rotates through a single READY queue with a fixed quantum
// (spec.md §4.5).
type RoundRobin struct {
	queue []TaskHandle
}

// NewRoundRobin returns an empty round-robin policy.
func NewRoundRobin() *RoundRobin {
	return &RoundRobin{}
}

func (rr *RoundRobin) Enqueue(t TaskHandle) {
	rr.queue = append(rr.queue, t)
}

func (rr *RoundRobin) Remove(t TaskHandle) {
	for i, h := range rr.queue {
		if h.ID() == t.ID() {
			rr.queue = append(rr.queue[:i], rr.queue[i+1:]...)
			return
		}
	}
}

func (rr *RoundRobin) PickNext() (TaskHandle, bool) {
	if len(rr.queue) == 0 {
		return nil, false
	}
	t := rr.queue[0]
	rr.queue = rr.queue[1:]
	return t, true
}

func (rr *RoundRobin) Requeue(t TaskHandle) {
	rr.queue = append(rr.queue, t)
}

func (rr *RoundRobin) Quantum(TaskHandle, int) int {
	return DefaultQuantum
}

func (rr *RoundRobin) Len() int {
	return len(rr.queue)
}
