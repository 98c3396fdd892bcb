// spislave/sim.go

package spislave

// SimPeripheral is a software model of a slave peripheral and the master
// driving it. It has no hardware dependencies and backs the host build and
// the unit tests.
//
// The master side is driven explicitly: MasterWrite clocks one word in and
// raises the RX event; Step raises a TX-empty event so the driver can feed
// the next word. Like the hardware, events are levels: arming a source whose
// condition already holds raises it at once. Every value the driver writes
// is recorded in Written.
type SimPeripheral struct {
	Polarity Polarity
	Phase    Phase
	Width    WordWidth

	Configured bool
	Enabled    bool
	RxEvent    bool
	TxEvent    bool

	// Written is every raw value passed to WriteWord, in order.
	Written []uint16

	rxq     []uint16
	txBusy  bool
	onEvent func()
}

// Configure records the settings. It fails for widths other than 8 or 16.
func (p *SimPeripheral) Configure(pol Polarity, ph Phase, width WordWidth) error {
	if width != Width8 && width != Width16 {
		return ErrUnsupportedMode
	}
	p.Polarity, p.Phase, p.Width = pol, ph, width
	p.Configured = true
	p.rxq = p.rxq[:0]
	p.txBusy = false
	return nil
}

func (p *SimPeripheral) SetEnabled(enabled bool) { p.Enabled = enabled }

func (p *SimPeripheral) RxReady() bool { return len(p.rxq) > 0 }

func (p *SimPeripheral) TxEmpty() bool { return !p.txBusy }

func (p *SimPeripheral) ReadWord() uint16 {
	if len(p.rxq) == 0 {
		return 0
	}
	v := p.rxq[0]
	p.rxq = p.rxq[1:]
	return v
}

// WriteWord records v. The transmit register is considered full until the
// next Step.
func (p *SimPeripheral) WriteWord(v uint16) {
	p.Written = append(p.Written, v)
	p.txBusy = true
}

// SetRxEventEnabled sets the RX mask. Events are level triggered: arming
// with a word already waiting runs the handler straight away.
func (p *SimPeripheral) SetRxEventEnabled(enabled bool) {
	p.RxEvent = enabled
	if enabled && p.Enabled && len(p.rxq) > 0 {
		p.fire()
	}
}

// SetTxEventEnabled sets the TX mask. Arming while the transmit register is
// free runs the handler straight away.
func (p *SimPeripheral) SetTxEventEnabled(enabled bool) {
	p.TxEvent = enabled
	if enabled && p.Enabled && !p.txBusy {
		p.fire()
	}
}

// OnEvent installs the handler called for simulated interrupts.
func (p *SimPeripheral) OnEvent(fn func()) { p.onEvent = fn }

// MasterWrite clocks v into the receive register. If the peripheral is
// enabled and the RX event is armed, the handler runs before MasterWrite
// returns, as an interrupt would.
func (p *SimPeripheral) MasterWrite(v uint16) {
	if !p.Enabled {
		return
	}
	p.rxq = append(p.rxq, v)
	if p.RxEvent {
		p.fire()
	}
}

// Step models the master clocking out the transmit register. It frees the
// register and, if the TX event is armed, runs the handler once. It reports
// whether the handler ran.
func (p *SimPeripheral) Step() bool {
	p.txBusy = false
	if !p.Enabled || !p.TxEvent {
		return false
	}
	p.fire()
	return true
}

// Pending returns the number of words clocked in but not yet read.
func (p *SimPeripheral) Pending() int { return len(p.rxq) }

// Reset forgets recorded writes.
func (p *SimPeripheral) Reset() { p.Written = p.Written[:0] }

func (p *SimPeripheral) fire() {
	if p.onEvent != nil {
		p.onEvent()
	}
}
