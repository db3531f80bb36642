package boot

import "time"

// TickSource simulates the PIT (spec.md §6) at a configurable frequency:
// each receive from Ticks is one timer interrupt.
type TickSource interface {
	Ticks() <-chan uint64
	Stop()
}

// simulatedTickSource drives Ticks from a real time.Ticker; the tick
// count is monotonic and never resets, matching a free-running PIT
// counter rather than a one-shot.
type simulatedTickSource struct {
	ticker *time.Ticker
	ch     chan uint64
	stop   chan struct{}
}

// NewSimulatedTickSource returns a TickSource firing at hz Hz. hz <= 0
// falls back to 1000 Hz.
func NewSimulatedTickSource(hz int) TickSource {
	if hz <= 0 {
		hz = 1000
	}
	s := &simulatedTickSource{
		ticker: time.NewTicker(time.Second / time.Duration(hz)),
		ch:     make(chan uint64, 1),
		stop:   make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *simulatedTickSource) run() {
	var n uint64
	for {
		select {
		case <-s.ticker.C:
			n++
			select {
			case s.ch <- n:
			default:
				// A consumer that is still processing the previous tick
				// simply misses this one rather than blocking the PIT.
			}
		case <-s.stop:
			s.ticker.Stop()
			return
		}
	}
}

func (s *simulatedTickSource) Ticks() <-chan uint64 { return s.ch }

func (s *simulatedTickSource) Stop() { close(s.stop) }
