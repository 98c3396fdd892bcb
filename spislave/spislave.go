// spislave/spislave.go

// Package spislave provides an interrupt-driven SPI slave driver. Words
// clocked in by the master are buffered in a fixed ring for the application;
// words handed to SendMany are fed to the peripheral one per interrupt while
// the master clocks them out.
//
// Two contexts touch a Driver: application code and the event handler, which
// runs from the peripheral's interrupt and never blocks. The only critical
// section is Receive, which masks the RX event while it moves the ring's tail.
package spislave

import (
	"errors"
	"sync/atomic"
)

var (
	// ErrBusy is returned when a transmission is requested while another is
	// still in flight. Wait for TransferComplete and retry.
	ErrBusy = errors.New("spislave: transmission in flight")
	// ErrClosed is returned by the blocking helpers after Disable.
	ErrClosed = errors.New("spislave: disabled")
)

// Driver is the state of one slave peripheral. W fixes the frame width.
//
// Ownership: the event handler writes the ring's head, the stream fields and
// sets the pending/overflow flags; application code writes the ring's tail,
// clears the pending/overflow flags, and is the only caller of SendMany.
type Driver[W Word] struct {
	Bus    Peripheral
	config Config
	width  WordWidth

	rx RingBuffer[W]
	tx txStream[W]

	transferComplete atomic.Bool
	messagePending   atomic.Bool
	messageOverflow  atomic.Bool

	rxArmed atomic.Bool // RX event mask as last set by the driver
	single  [1]W        // backing store for Send
	handler func()      // HandleEvent, bound once

	notify   chan struct{}                 // coalesced "word buffered"
	txNotify chan struct{}                 // coalesced "stream finished"
	closed   atomic.Pointer[chan struct{}] // replaced by Enable after Disable

	stats Stats
}

// New returns a driver for bus. Call Enable before use.
func New[W Word](bus Peripheral, cfg Config) *Driver[W] {
	d := &Driver[W]{}
	d.init(bus, cfg)
	return d
}

func (d *Driver[W]) init(bus Peripheral, cfg Config) {
	d.Bus = bus
	d.config = cfg
	d.width = WidthOf[W]()
	d.notify = make(chan struct{}, 1)
	d.txNotify = make(chan struct{}, 1)
	closed := make(chan struct{})
	d.closed.Store(&closed)
	d.transferComplete.Store(true)
}

// Width returns the frame width of this driver.
func (d *Driver[W]) Width() WordWidth { return d.width }

// Config returns the clock settings used on Enable.
func (d *Driver[W]) Config() Config { return d.config }

// Enable configures the peripheral and resets all driver state: flags to
// their initial values, an empty ring with cursors at the origin, no stream.
// It then starts the peripheral and arms the RX event. Calling it again
// performs the same reset.
func (d *Driver[W]) Enable() error {
	if d.handler == nil {
		d.handler = d.HandleEvent
	}
	if src, ok := d.Bus.(EventSource); ok {
		src.OnEvent(d.handler)
	}

	// Quiesce both event sources before touching shared state.
	d.rxArmed.Store(false)
	d.Bus.SetRxEventEnabled(false)
	d.Bus.SetTxEventEnabled(false)

	if err := d.Bus.Configure(d.config.Polarity, d.config.Phase, d.width); err != nil {
		return err
	}

	d.transferComplete.Store(true)
	d.messagePending.Store(false)
	d.messageOverflow.Store(false)
	d.rx.Clear()
	d.tx.clear()
	d.drainNotify()
	d.reopen()

	d.Bus.SetEnabled(true)
	d.rxArmed.Store(true)
	d.Bus.SetRxEventEnabled(true)
	return nil
}

// Disable stops the peripheral once the frame being shifted (if any) has
// completed, and releases blocked waiters with ErrClosed. Buffered words and
// the stream state are kept until the next Enable.
func (d *Driver[W]) Disable() {
	d.Bus.SetEnabled(false)
	closed := d.closedChan()
	select {
	case <-closed:
	default:
		close(closed)
	}
}

// Send transmits a single word. It is SendMany with a one-word slice held by
// the driver.
func (d *Driver[W]) Send(w W) error {
	if !d.transferComplete.Load() {
		d.dbgBusy()
		return ErrBusy
	}
	d.single[0] = w
	return d.SendMany(d.single[:])
}

// SendMany starts streaming words to the master. The slice is borrowed: it
// must not be modified until TransferComplete reports true. Only one stream
// can be in flight; a second call returns ErrBusy and leaves the running
// stream untouched.
//
// Each TX event writes one word, so a stream of L words completes on the
// (L+1)th TX event, counting the one raised when the event is armed.
func (d *Driver[W]) SendMany(words []W) error {
	if !d.transferComplete.Load() {
		d.dbgBusy()
		return ErrBusy
	}
	d.tx.reset(words)
	d.transferComplete.Store(false)
	d.Bus.SetTxEventEnabled(true)
	return nil
}

// Receive removes the oldest buffered word. The second result is false when
// nothing is buffered. A successful read clears MessageOverflow, however long
// ago the overflow happened.
func (d *Driver[W]) Receive() (W, bool) {
	if !d.messagePending.Load() {
		return 0, false
	}

	g := d.maskRX()
	defer g.release()

	w, ok := d.rx.Get()
	if !ok {
		return 0, false
	}
	if d.rx.Used() == 0 {
		d.messagePending.Store(false)
	}
	d.messageOverflow.Store(false)
	return w, true
}

// TransferComplete reports that no transmission is in flight.
func (d *Driver[W]) TransferComplete() bool { return d.transferComplete.Load() }

// MessagePending reports that at least one received word is buffered.
func (d *Driver[W]) MessagePending() bool { return d.messagePending.Load() }

// MessageOverflow reports that a word was dropped because the ring was full.
// It stays set until the next successful Receive.
func (d *Driver[W]) MessageOverflow() bool { return d.messageOverflow.Load() }

// Buffered returns the number of words waiting in the ring.
func (d *Driver[W]) Buffered() int { return d.rx.Used() }

// Remaining returns how many words of the current stream are still to be
// written to the peripheral. It is zero when no stream is in flight.
func (d *Driver[W]) Remaining() int {
	if d.transferComplete.Load() {
		return 0
	}
	return d.tx.remaining()
}

// HandleEvent services the peripheral. Adapters call it from their
// interrupt. Both conditions are checked on every call since a single line
// carries both events. A received word is only taken while the RX event is
// armed: Receive masks it to own the ring, and a TX event in that window
// must leave the ring alone. It does not block or allocate and runs in
// bounded time.
func (d *Driver[W]) HandleEvent() {
	d.dbgISR()

	if d.rxArmed.Load() && d.Bus.RxReady() {
		d.push(W(d.Bus.ReadWord() & d.width.Mask()))
	}

	if d.Bus.TxEmpty() {
		d.step()
	}
}

// push runs in the handler.
func (d *Driver[W]) push(w W) {
	if !d.rx.Put(w) {
		d.messageOverflow.Store(true)
		d.dbgRx(false, d.rx.Used())
		return
	}
	d.messagePending.Store(true)
	d.dbgRx(true, d.rx.Used())
	select {
	case d.notify <- struct{}{}:
	default:
	}
}

// step advances the stream by one event. It runs in the handler.
func (d *Driver[W]) step() {
	if d.transferComplete.Load() {
		// TX register idle with no stream; the event itself is disarmed.
		return
	}
	if d.tx.finished() {
		d.tx.clear()
		d.Bus.SetTxEventEnabled(false)
		d.transferComplete.Store(true)
		d.dbgTxDone()
		select {
		case d.txNotify <- struct{}{}:
		default:
		}
		return
	}
	writeWord(d.Bus, d.width, d.tx.next())
	d.dbgTx()
}

func (d *Driver[W]) drainNotify() {
	for {
		select {
		case <-d.notify:
		case <-d.txNotify:
		default:
			return
		}
	}
}

func (d *Driver[W]) closedChan() chan struct{} { return *d.closed.Load() }

func (d *Driver[W]) reopen() {
	select {
	case <-d.closedChan():
		closed := make(chan struct{})
		d.closed.Store(&closed)
	default:
	}
}
