package spislave

import (
	"errors"
	"testing"
)

// newTestDriver returns an enabled driver over a fresh SimPeripheral.
func newTestDriver[W Word](t *testing.T) (*Driver[W], *SimPeripheral) {
	t.Helper()
	sim := &SimPeripheral{}
	d := New[W](sim, DefaultConfig)
	if err := d.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	return d, sim
}

func TestEnable_ConfiguresAndArmsRX(t *testing.T) {
	sim := &SimPeripheral{}
	d := New[uint16](sim, Config{Polarity: IdleHigh, Phase: CaptureLeading})
	if err := d.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}

	if !sim.Configured || !sim.Enabled {
		t.Fatalf("configured=%v enabled=%v; want true,true", sim.Configured, sim.Enabled)
	}
	if sim.Width != Width16 || sim.Polarity != IdleHigh || sim.Phase != CaptureLeading {
		t.Fatalf("got width=%d pol=%d ph=%d; want 16,%d,%d", sim.Width, sim.Polarity, sim.Phase, IdleHigh, CaptureLeading)
	}
	if !sim.RxEvent || sim.TxEvent {
		t.Fatalf("rxEvent=%v txEvent=%v; want true,false", sim.RxEvent, sim.TxEvent)
	}
	if !d.TransferComplete() || d.MessagePending() || d.MessageOverflow() {
		t.Fatalf("flags complete=%v pending=%v overflow=%v; want true,false,false",
			d.TransferComplete(), d.MessagePending(), d.MessageOverflow())
	}
}

func TestReceive_FIFOThenEmpty(t *testing.T) {
	d, sim := newTestDriver[uint16](t)

	if _, ok := d.Receive(); ok {
		t.Fatal("Receive on fresh driver returned a word")
	}

	for _, w := range []uint16{1, 2, 3} {
		sim.MasterWrite(w)
	}
	if !d.MessagePending() || d.Buffered() != 3 {
		t.Fatalf("pending=%v buffered=%d; want true,3", d.MessagePending(), d.Buffered())
	}

	for _, want := range []uint16{1, 2, 3} {
		got, ok := d.Receive()
		if !ok || got != want {
			t.Fatalf("Receive() = %d,%v; want %d,true", got, ok, want)
		}
	}
	if got, ok := d.Receive(); ok {
		t.Fatalf("Receive() after drain = %d,true; want empty", got)
	}
	if d.MessagePending() {
		t.Fatal("MessagePending() = true after drain")
	}
}

func TestReceive_OverflowDropsNewest(t *testing.T) {
	d, sim := newTestDriver[uint16](t)

	for w := uint16(1); w <= RxBufferLen; w++ {
		sim.MasterWrite(w)
		if d.MessageOverflow() {
			t.Fatalf("overflow set after %d words", w)
		}
	}
	sim.MasterWrite(RxBufferLen + 1)
	if !d.MessageOverflow() {
		t.Fatal("MessageOverflow() = false after capacity+1 words")
	}
	if sim.Pending() != 0 {
		t.Fatalf("dropped word left in peripheral: pending=%d", sim.Pending())
	}

	// Sticky until a successful read.
	for i := 0; i < 3; i++ {
		if !d.MessageOverflow() {
			t.Fatalf("overflow cleared by check %d", i)
		}
	}

	for want := uint16(1); want <= RxBufferLen; want++ {
		got, ok := d.Receive()
		if !ok || got != want {
			t.Fatalf("Receive() = %d,%v; want %d,true", got, ok, want)
		}
		if d.MessageOverflow() {
			t.Fatalf("overflow still set after reading %d", want)
		}
	}
	if _, ok := d.Receive(); ok {
		t.Fatal("buffer not empty after draining capacity words")
	}
}

func TestReceive_OverflowExcessK(t *testing.T) {
	const k = 5
	d, sim := newTestDriver[uint8](t)

	for w := 0; w < RxBufferLen+k; w++ {
		sim.MasterWrite(uint16(w))
	}
	if !d.MessageOverflow() || d.Buffered() != RxBufferLen {
		t.Fatalf("overflow=%v buffered=%d; want true,%d", d.MessageOverflow(), d.Buffered(), RxBufferLen)
	}
	for want := 0; want < RxBufferLen; want++ {
		got, _ := d.Receive()
		if int(got) != want {
			t.Fatalf("word = %d; want %d", got, want)
		}
	}
}

func TestReceive_OverflowClearsOnReadLongAfter(t *testing.T) {
	d, sim := newTestDriver[uint16](t)

	for w := uint16(0); w < RxBufferLen+1; w++ {
		sim.MasterWrite(w)
	}
	// Free one slot and refill it without overflowing again.
	d.Receive()
	if d.MessageOverflow() {
		t.Fatal("overflow not cleared by successful Receive")
	}
	sim.MasterWrite(100)
	sim.MasterWrite(101) // full again: dropped
	if !d.MessageOverflow() {
		t.Fatal("second overflow not reported")
	}
	if _, ok := d.Receive(); !ok {
		t.Fatal("Receive failed on full buffer")
	}
	if d.MessageOverflow() {
		t.Fatal("overflow not cleared by Receive after second overflow")
	}
}

func TestReceive_MasksRXAndRestores(t *testing.T) {
	spy := &spyPeripheral{}
	d := New[uint16](spy, DefaultConfig)
	if err := d.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	spy.rx = append(spy.rx, 0x1234)
	d.HandleEvent()
	spy.rxMask = nil

	got, ok := d.Receive()
	if !ok || got != 0x1234 {
		t.Fatalf("Receive() = %#x,%v; want 0x1234,true", got, ok)
	}
	if len(spy.rxMask) != 2 || spy.rxMask[0] || !spy.rxMask[1] {
		t.Fatalf("RX mask sequence = %v; want [false true]", spy.rxMask)
	}

	// Empty: the critical section is skipped entirely.
	spy.rxMask = nil
	if _, ok := d.Receive(); ok {
		t.Fatal("Receive on empty returned a word")
	}
	if len(spy.rxMask) != 0 {
		t.Fatalf("RX mask touched on empty Receive: %v", spy.rxMask)
	}
}

func TestReceive_RestoresDisarmedState(t *testing.T) {
	d, sim := newTestDriver[uint16](t)
	sim.MasterWrite(7)

	// Simulate the RX event having been disarmed by the application.
	d.rxArmed.Store(false)
	sim.RxEvent = false

	if got, ok := d.Receive(); !ok || got != 7 {
		t.Fatalf("Receive() = %d,%v; want 7,true", got, ok)
	}
	if sim.RxEvent {
		t.Fatal("Receive re-armed an RX event that was disarmed on entry")
	}
}

func TestSendMany_16BitHighByteFirst(t *testing.T) {
	d, sim := newTestDriver[uint16](t)

	if err := d.SendMany([]uint16{0xAABB, 0x1122}); err != nil {
		t.Fatalf("SendMany: %v", err)
	}
	if d.TransferComplete() {
		t.Fatal("TransferComplete() = true immediately after SendMany")
	}
	if !sim.TxEvent {
		t.Fatal("TX event not armed by SendMany")
	}
	// Arming with the transmit register free raised the first event.
	if !equalWords(sim.Written, []uint16{0xAA, 0xBB}) {
		t.Fatalf("written after arming = %#x; want [0xaa 0xbb]", sim.Written)
	}

	sim.Step()
	want := []uint16{0xAA, 0xBB, 0x11, 0x22}
	if !equalWords(sim.Written, want) {
		t.Fatalf("written = %#x; want %#x", sim.Written, want)
	}
	if d.Remaining() != 0 || d.TransferComplete() {
		t.Fatalf("Remaining()=%d complete=%v after last write; want 0,false", d.Remaining(), d.TransferComplete())
	}

	// The next TX event finds the cursor at the end.
	sim.Step()
	if !d.TransferComplete() {
		t.Fatal("TransferComplete() = false after completion event")
	}
	if sim.TxEvent {
		t.Fatal("TX event still armed after completion")
	}
	if d.tx.data != nil {
		t.Fatal("stream reference not cleared")
	}
	if sim.Step() {
		t.Fatal("handler ran on a disarmed TX event")
	}
}

func TestSendMany_8BitWordsInOrder(t *testing.T) {
	d, sim := newTestDriver[uint8](t)
	in := []uint8{0x01, 0x80, 0xFF, 0x42, 0x00}

	if err := d.SendMany(in); err != nil {
		t.Fatalf("SendMany: %v", err)
	}
	// The arming event wrote in[0]; one step per remaining word.
	for i := 1; i < len(in); i++ {
		sim.Step()
	}
	if len(sim.Written) != len(in) {
		t.Fatalf("wrote %d values; want %d", len(sim.Written), len(in))
	}
	for i, v := range in {
		if sim.Written[i] != uint16(v) {
			t.Fatalf("write %d = %#x; want %#x", i, sim.Written[i], v)
		}
	}
	if d.TransferComplete() {
		t.Fatal("stream complete after only L events")
	}
	sim.Step()
	if !d.TransferComplete() {
		t.Fatal("stream of length L not complete after L+1 events")
	}
}

func TestSend_BusyLeavesStreamUntouched(t *testing.T) {
	d, sim := newTestDriver[uint16](t)

	if err := d.SendMany([]uint16{1, 2, 3}); err != nil {
		t.Fatalf("SendMany: %v", err)
	}
	sim.Step()
	pos, length := d.tx.pos, d.tx.length

	if err := d.Send(9); !errors.Is(err, ErrBusy) {
		t.Fatalf("Send while in flight = %v; want ErrBusy", err)
	}
	if err := d.SendMany([]uint16{7, 7}); !errors.Is(err, ErrBusy) {
		t.Fatalf("SendMany while in flight = %v; want ErrBusy", err)
	}
	if d.tx.pos != pos || d.tx.length != length {
		t.Fatalf("stream changed: pos=%d len=%d; want %d,%d", d.tx.pos, d.tx.length, pos, length)
	}

	for i := 0; i < 3; i++ {
		sim.Step()
	}
	want := []uint16{0, 1, 0, 2, 0, 3}
	if !equalWords(sim.Written, want) {
		t.Fatalf("written = %v; want %v", sim.Written, want)
	}
	if !d.TransferComplete() {
		t.Fatal("stream did not complete")
	}
	if err := d.Send(9); err != nil {
		t.Fatalf("Send after completion: %v", err)
	}
}

func TestSend_SingleWord(t *testing.T) {
	d, sim := newTestDriver[uint16](t)

	if err := d.Send(0xBEEF); err != nil {
		t.Fatalf("Send: %v", err)
	}
	sim.Step()
	if !equalWords(sim.Written, []uint16{0xBE, 0xEF}) || !d.TransferComplete() {
		t.Fatalf("written=%#x complete=%v; want [0xbe 0xef],true", sim.Written, d.TransferComplete())
	}
}

func TestSendMany_Empty(t *testing.T) {
	d, sim := newTestDriver[uint16](t)

	if err := d.SendMany(nil); err != nil {
		t.Fatalf("SendMany(nil): %v", err)
	}
	// The event raised on arming finds nothing to write.
	if !d.TransferComplete() || len(sim.Written) != 0 || sim.TxEvent {
		t.Fatalf("complete=%v written=%v txEvent=%v; want true,[],false",
			d.TransferComplete(), sim.Written, sim.TxEvent)
	}

	spy := &spyPeripheral{}
	d2 := New[uint16](spy, DefaultConfig)
	if err := d2.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	if err := d2.SendMany(nil); err != nil {
		t.Fatalf("SendMany(nil): %v", err)
	}
	if d2.TransferComplete() {
		t.Fatal("empty stream complete before any event")
	}
	d2.HandleEvent()
	if !d2.TransferComplete() {
		t.Fatal("empty stream not complete after one event")
	}
}

func TestHandleEvent_RXAndTXSameInvocation(t *testing.T) {
	spy := &spyPeripheral{}
	d := New[uint8](spy, DefaultConfig)
	if err := d.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	if err := d.SendMany([]uint8{0x5A}); err != nil {
		t.Fatalf("SendMany: %v", err)
	}

	// One interrupt: a word arrived and the transmit register is free.
	spy.rx = append(spy.rx, 0x33)
	d.HandleEvent()

	if got, ok := d.Receive(); !ok || got != 0x33 {
		t.Fatalf("Receive() = %#x,%v; want 0x33,true", got, ok)
	}
	if !equalWords(spy.written, []uint16{0x5A}) {
		t.Fatalf("written = %#x; want [0x5a]", spy.written)
	}
}

func TestHandleEvent_TXEventWhileRXMasked(t *testing.T) {
	d, sim := newTestDriver[uint16](t)
	sim.MasterWrite(1)
	if err := d.SendMany([]uint16{0xAAAA, 0xBBBB}); err != nil {
		t.Fatalf("SendMany: %v", err)
	}

	g := d.maskRX()
	sim.MasterWrite(2) // latched, RX event masked
	if !sim.Step() {
		t.Fatal("TX event did not run the handler")
	}
	if d.Buffered() != 1 {
		t.Fatalf("Buffered() = %d inside the masked section; want 1", d.Buffered())
	}
	if sim.Pending() != 1 {
		t.Fatalf("latched word taken while masked: pending=%d", sim.Pending())
	}
	g.release()

	// Re-arming with a word waiting raises the RX event.
	if d.Buffered() != 2 || sim.Pending() != 0 {
		t.Fatalf("after release: buffered=%d pending=%d; want 2,0", d.Buffered(), sim.Pending())
	}
	for _, want := range []uint16{1, 2} {
		if got, ok := d.Receive(); !ok || got != want {
			t.Fatalf("Receive() = %d,%v; want %d,true", got, ok, want)
		}
	}
}

func TestReceive_TXEventInsideCriticalSection(t *testing.T) {
	spy := &spyPeripheral{}
	d := New[uint16](spy, DefaultConfig)
	if err := d.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	spy.rx = append(spy.rx, 1)
	d.HandleEvent()
	if err := d.SendMany([]uint16{0x0102}); err != nil {
		t.Fatalf("SendMany: %v", err)
	}

	// A second word lands and the TX-empty interrupt runs while Receive
	// holds the ring.
	spy.onRxMask = func(enabled bool) {
		if enabled {
			return
		}
		spy.onRxMask = nil
		spy.rx = append(spy.rx, 2)
		d.HandleEvent()
	}

	if got, ok := d.Receive(); !ok || got != 1 {
		t.Fatalf("Receive() = %d,%v; want 1,true", got, ok)
	}
	if d.Buffered() != 0 || d.MessagePending() {
		t.Fatalf("buffered=%d pending=%v; want 0,false", d.Buffered(), d.MessagePending())
	}
	if !equalWords(spy.written, []uint16{0x01, 0x02}) {
		t.Fatalf("TX not serviced inside the section: written=%#x", spy.written)
	}

	// The still-asserted RX level is serviced once the event is re-armed.
	d.HandleEvent()
	if d.Buffered() != 1 || !d.MessagePending() {
		t.Fatalf("buffered=%d pending=%v; want 1,true", d.Buffered(), d.MessagePending())
	}
	if got, ok := d.Receive(); !ok || got != 2 {
		t.Fatalf("Receive() = %d,%v; want 2,true", got, ok)
	}
}

func TestHandleEvent_NoConditionIsNoop(t *testing.T) {
	spy := &spyPeripheral{txFull: true}
	d := New[uint16](spy, DefaultConfig)
	if err := d.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	d.HandleEvent()
	if d.Buffered() != 0 || len(spy.written) != 0 || d.MessageOverflow() {
		t.Fatalf("handler changed state: buffered=%d written=%v", d.Buffered(), spy.written)
	}
}

func TestHandleEvent_IdleTXDoesNotWrite(t *testing.T) {
	d, sim := newTestDriver[uint16](t)
	// RX event with the transmit register free and no stream.
	sim.MasterWrite(1)
	if len(sim.Written) != 0 || !d.TransferComplete() {
		t.Fatalf("written=%v complete=%v; want [],true", sim.Written, d.TransferComplete())
	}
}

func TestReceive_Masks8BitRawValue(t *testing.T) {
	d, sim := newTestDriver[uint8](t)
	sim.MasterWrite(0xAB12)
	if got, _ := d.Receive(); got != 0x12 {
		t.Fatalf("Receive() = %#x; want 0x12", got)
	}
}

func TestEnable_ResetsState(t *testing.T) {
	d, sim := newTestDriver[uint16](t)
	for w := uint16(0); w < RxBufferLen+2; w++ {
		sim.MasterWrite(w)
	}
	if err := d.SendMany([]uint16{1, 2}); err != nil {
		t.Fatalf("SendMany: %v", err)
	}
	sim.Step()

	if err := d.Enable(); err != nil {
		t.Fatalf("second Enable: %v", err)
	}
	if d.Buffered() != 0 || d.MessagePending() || d.MessageOverflow() || !d.TransferComplete() {
		t.Fatalf("state after re-Enable: buffered=%d pending=%v overflow=%v complete=%v",
			d.Buffered(), d.MessagePending(), d.MessageOverflow(), d.TransferComplete())
	}
	if d.rx.head != 0 || d.rx.tail != 0 || d.tx.data != nil {
		t.Fatalf("cursors not at origin: head=%d tail=%d", d.rx.head, d.rx.tail)
	}
	if sim.TxEvent || !sim.RxEvent {
		t.Fatalf("txEvent=%v rxEvent=%v; want false,true", sim.TxEvent, sim.RxEvent)
	}

	sim.MasterWrite(42)
	if got, ok := d.Receive(); !ok || got != 42 {
		t.Fatalf("Receive() after re-Enable = %d,%v; want 42,true", got, ok)
	}
}

func TestEnable_ConfigureError(t *testing.T) {
	spy := &spyPeripheral{configErr: ErrInvalidPins}
	d := New[uint16](spy, DefaultConfig)
	if err := d.Enable(); !errors.Is(err, ErrInvalidPins) {
		t.Fatalf("Enable() = %v; want ErrInvalidPins", err)
	}
	if spy.enabled {
		t.Fatal("peripheral enabled after configuration failure")
	}
}

func TestDisable_StopsPeripheral(t *testing.T) {
	d, sim := newTestDriver[uint16](t)
	sim.MasterWrite(5)

	d.Disable()
	if sim.Enabled {
		t.Fatal("peripheral still enabled after Disable")
	}
	// Words clocked while disabled are not seen.
	sim.MasterWrite(6)
	if got, ok := d.Receive(); !ok || got != 5 {
		t.Fatalf("Receive() = %d,%v; want buffered 5", got, ok)
	}
	if _, ok := d.Receive(); ok {
		t.Fatal("word received while disabled")
	}
}

func equalWords(a, b []uint16) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// spyPeripheral records event mask changes and lets tests control the
// status probes directly.
type spyPeripheral struct {
	configErr error
	enabled   bool
	txFull    bool
	rx        []uint16
	written   []uint16
	rxMask    []bool
	txMask    []bool
	onRxMask  func(enabled bool)
}

func (s *spyPeripheral) Configure(Polarity, Phase, WordWidth) error { return s.configErr }
func (s *spyPeripheral) SetEnabled(enabled bool)                    { s.enabled = enabled }
func (s *spyPeripheral) RxReady() bool                              { return len(s.rx) > 0 }
func (s *spyPeripheral) TxEmpty() bool                              { return !s.txFull }
func (s *spyPeripheral) WriteWord(v uint16)                         { s.written = append(s.written, v) }
func (s *spyPeripheral) SetTxEventEnabled(enabled bool)             { s.txMask = append(s.txMask, enabled) }

func (s *spyPeripheral) SetRxEventEnabled(enabled bool) {
	s.rxMask = append(s.rxMask, enabled)
	if s.onRxMask != nil {
		s.onRxMask(enabled)
	}
}

func (s *spyPeripheral) ReadWord() uint16 {
	v := s.rx[0]
	s.rx = s.rx[1:]
	return v
}
