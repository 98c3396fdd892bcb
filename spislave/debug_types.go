//go:build spislavedebug

package spislave

import "sync/atomic"

// Stats holds counters since the last reset.
type Stats struct {
	// Handler-level
	ISRCount uint32 // handler entries

	// Receive path
	RxWords     uint32 // words stored in the ring
	RxDrops     uint32 // words dropped on a full ring (overflow)
	RingMaxUsed uint32 // high-water mark of ring occupancy

	// Transmit path
	TxWords     uint32 // words handed to the peripheral
	TxStreams   uint32 // streams that ran to completion
	BusyRejects uint32 // Send/SendMany calls refused with ErrBusy

	// Blocking API behaviour
	ReadWaits uint32 // times ReceiveContext had to wait
}

func (d *Driver[W]) DebugReset() {
	d.stats = Stats{}
}

func (d *Driver[W]) DebugStats() Stats {
	// Return a copy; 32-bit atomic reads are fine on Cortex-M0+
	return Stats{
		ISRCount: atomic.LoadUint32(&d.stats.ISRCount),

		RxWords:     atomic.LoadUint32(&d.stats.RxWords),
		RxDrops:     atomic.LoadUint32(&d.stats.RxDrops),
		RingMaxUsed: atomic.LoadUint32(&d.stats.RingMaxUsed),

		TxWords:     atomic.LoadUint32(&d.stats.TxWords),
		TxStreams:   atomic.LoadUint32(&d.stats.TxStreams),
		BusyRejects: atomic.LoadUint32(&d.stats.BusyRejects),

		ReadWaits: atomic.LoadUint32(&d.stats.ReadWaits),
	}
}
