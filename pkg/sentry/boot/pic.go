package boot

import "github.com/sirupsen/logrus"

// PIC simulates the 8259 PIC's end-of-interrupt convention of spec.md §6:
// a handler calls EOI(irq) exactly once after servicing an interrupt,
// before another on the same line is delivered.
type PIC interface {
	EOI(irq int)
}

// simplePIC counts EOIs per line for diagnostics; it has no masking logic
// because nothing in this simulator raises interrupts it would need to
// mask.
type simplePIC struct {
	counts map[int]uint64
	log    *logrus.Entry
}

func newSimplePIC() *simplePIC {
	return &simplePIC{counts: make(map[int]uint64), log: logrus.WithField("subsystem", "boot")}
}

func (p *simplePIC) EOI(irq int) {
	p.counts[irq]++
	p.log.WithField("irq", irq).Debug("eoi")
}
