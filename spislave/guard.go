// spislave/guard.go

package spislave

import "sync/atomic"

// rxGuard masks the RX event for the lifetime of a consumer critical section
// and puts the mask back the way it found it.
//
//	g := d.maskRX()
//	defer g.release()
//
// The driver's armed flag is cleared before the hardware mask and set before
// it, so the handler never sees the event armed while the ring is owned here.
type rxGuard struct {
	bus      Peripheral
	wasArmed bool
	armed    *atomic.Bool
}

func (d *Driver[W]) maskRX() rxGuard {
	g := rxGuard{bus: d.Bus, wasArmed: d.rxArmed.Load(), armed: &d.rxArmed}
	if g.wasArmed {
		d.rxArmed.Store(false)
		d.Bus.SetRxEventEnabled(false)
	}
	return g
}

func (g rxGuard) release() {
	if g.wasArmed {
		g.armed.Store(true)
		g.bus.SetRxEventEnabled(true)
	}
}
