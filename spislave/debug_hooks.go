//go:build spislavedebug

package spislave

import "sync/atomic"

// Called at handler entry.
func (d *Driver[W]) dbgISR() {
	atomic.AddUint32(&d.stats.ISRCount, 1)
}

// Called per received word with the Put outcome and ring occupancy after it.
func (d *Driver[W]) dbgRx(putOK bool, used int) {
	if !putOK {
		atomic.AddUint32(&d.stats.RxDrops, 1)
		return
	}
	atomic.AddUint32(&d.stats.RxWords, 1)
	// track high-water mark
	for {
		max := atomic.LoadUint32(&d.stats.RingMaxUsed)
		if uint32(used) <= max {
			break
		}
		if atomic.CompareAndSwapUint32(&d.stats.RingMaxUsed, max, uint32(used)) {
			break
		}
	}
}

func (d *Driver[W]) dbgTx() {
	atomic.AddUint32(&d.stats.TxWords, 1)
}

func (d *Driver[W]) dbgTxDone() {
	atomic.AddUint32(&d.stats.TxStreams, 1)
}

func (d *Driver[W]) dbgBusy() {
	atomic.AddUint32(&d.stats.BusyRejects, 1)
}

func (d *Driver[W]) dbgReadWait() {
	atomic.AddUint32(&d.stats.ReadWaits, 1)
}
