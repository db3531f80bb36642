package sched

// PriorityQueue picks the highest-priority (lowest Priority() value)
// runnable task, breaking ties round-robin within a level (spec.md §4.5).
type PriorityQueue struct {
	levels map[int][]TaskHandle
}

// NewPriority returns an empty priority policy.
func NewPriority() *PriorityQueue {
	return &PriorityQueue{levels: make(map[int][]TaskHandle)}
}

func (p *PriorityQueue) Enqueue(t TaskHandle) {
	lvl := t.Priority()
	p.levels[lvl] = append(p.levels[lvl], t)
}

func (p *PriorityQueue) Remove(t TaskHandle) {
	lvl := t.Priority()
	q := p.levels[lvl]
	for i, h := range q {
		if h.ID() == t.ID() {
			p.levels[lvl] = append(q[:i], q[i+1:]...)
			return
		}
	}
}

func (p *PriorityQueue) bestLevel() (int, bool) {
	best := 0
	found := false
	for lvl, q := range p.levels {
		if len(q) == 0 {
			continue
		}
		if !found || lvl < best {
			best = lvl
			found = true
		}
	}
	return best, found
}

func (p *PriorityQueue) PickNext() (TaskHandle, bool) {
	lvl, ok := p.bestLevel()
	if !ok {
		return nil, false
	}
	q := p.levels[lvl]
	t := q[0]
	p.levels[lvl] = q[1:]
	return t, true
}

func (p *PriorityQueue) Requeue(t TaskHandle) {
	p.Enqueue(t)
}

func (p *PriorityQueue) Quantum(TaskHandle, int) int {
	return DefaultQuantum
}

func (p *PriorityQueue) Len() int {
	n := 0
	for _, q := range p.levels {
		n += len(q)
	}
	return n
}
