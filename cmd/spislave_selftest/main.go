package main

import (
	"context"
	"time"

	"machine"

	"github.com/jangala-dev/tinygo-spislave/spislave"
	"tinygo.org/x/drivers"
)

// Wiring (Pico, SPI1 as master driving the SPI0 slave):
//
//	GP14 SCK  -> GP18 SCK
//	GP15 MOSI -> GP16 SDI
//	GP12 MISO <- GP19 SDO
//	GP13 CS   -> GP17 CS
var (
	s      = spislave.SPI0
	cs     = machine.GPIO13
	master drivers.SPI
	freq   = uint32(1_000_000)
)

func configureMaster() error {
	spi := machine.SPI1
	if err := spi.Configure(machine.SPIConfig{
		Frequency: freq,
		SCK:       machine.GPIO14,
		SDO:       machine.GPIO15,
		SDI:       machine.GPIO12,
		Mode:      spislave.Mode(spislave.ClockPolarity, spislave.ClockPhase),
	}); err != nil {
		return err
	}
	cs.Configure(machine.PinConfig{Mode: machine.PinOutput})
	cs.High()
	master = spi
	return nil
}

// xfer16 clocks one 16-bit frame, high byte first, with CS held low across
// both bytes.
func xfer16(w uint16) uint16 {
	tx := [2]byte{byte(w >> 8), byte(w)}
	var rx [2]byte
	cs.Low()
	err := master.Tx(tx[:], rx[:])
	cs.High()
	if err != nil {
		println("master Tx error:", err.Error())
	}
	return uint16(rx[0])<<8 | uint16(rx[1])
}

func xfer8(b byte) byte {
	cs.Low()
	r, err := master.Transfer(b)
	cs.High()
	if err != nil {
		println("master Transfer error:", err.Error())
	}
	return r
}

// settle gives the slave's handler time to run after the master stops
// clocking. The receive timeout fires 32 bit periods after the last frame.
func settle() { time.Sleep(2 * time.Millisecond) }

func drain[W spislave.Word](d *spislave.Driver[W]) {
	for {
		if _, ok := d.Receive(); !ok {
			return
		}
	}
}

func ledBlink(times int, on time.Duration) {
	for i := 0; i < times; i++ {
		machine.LED.High()
		time.Sleep(on)
		machine.LED.Low()
		time.Sleep(on)
	}
}

func main() {
	// Give the monitor time to attach.
	time.Sleep(3 * time.Second)

	println("spislave self-test starting")

	machine.LED.Configure(machine.PinConfig{Mode: machine.PinOutput})

	if err := configureMaster(); err != nil {
		println("master Configure failed")
		for {
			ledBlink(1, 500*time.Millisecond)
		}
	}
	if err := s.Enable(); err != nil {
		println("slave Enable failed:", err.Error())
		for {
			ledBlink(1, 500*time.Millisecond)
		}
	}

	pass, fail := 0, 0
	defer func() {
		println("")
		println("Summary")
		println("  passed =", pass)
		println("  failed =", fail)
		if fail == 0 {
			ledBlink(3, 120*time.Millisecond)
		} else {
			for {
				ledBlink(1, 600*time.Millisecond)
				time.Sleep(800 * time.Millisecond)
			}
		}
	}()

	run := func(name string, f func() string) {
		println("")
		println("[Test]", name)
		if msg := f(); msg == "" {
			println("  PASS")
			pass++
		} else {
			println("  FAIL:", msg)
			fail++
		}
	}

	run("state: flags after Enable", func() string {
		if !s.TransferComplete() {
			return "transfer in flight"
		}
		if s.MessagePending() || s.MessageOverflow() {
			return "stale receive flags"
		}
		return ""
	})

	run("rx: three words in order", func() string {
		drain(s)
		for _, w := range []uint16{0x0001, 0x0002, 0x0003} {
			xfer16(w)
		}
		settle()
		for _, want := range []uint16{0x0001, 0x0002, 0x0003} {
			got, ok := s.Receive()
			if !ok {
				return "missing word"
			}
			if got != want {
				return "out of order"
			}
		}
		if _, ok := s.Receive(); ok {
			return "extra word"
		}
		if s.MessagePending() {
			return "pending after drain"
		}
		return ""
	})

	run("rx: overflow keeps the oldest words", func() string {
		drain(s)
		for w := uint16(1); w <= spislave.RxBufferLen+1; w++ {
			xfer16(w)
		}
		settle()
		if !s.MessageOverflow() {
			return "overflow not reported"
		}
		for want := uint16(1); want <= spislave.RxBufferLen; want++ {
			got, ok := s.Receive()
			if !ok || got != want {
				return "wrong survivor"
			}
			if s.MessageOverflow() {
				return "overflow not cleared by read"
			}
		}
		if _, ok := s.Receive(); ok {
			return "dropped word was stored"
		}
		return ""
	})

	run("rx: ReceiveContext wakes on a word", func() string {
		drain(s)
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		go func() {
			time.Sleep(20 * time.Millisecond)
			xfer16(0xC0DE)
		}()
		got, err := s.ReceiveContext(ctx)
		if err != nil {
			return "timeout"
		}
		if got != 0xC0DE {
			return "wrong word"
		}
		return ""
	})

	run("rx: ReceiveContext times out with no master", func() string {
		drain(s)
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		if _, err := s.ReceiveContext(ctx); err != context.DeadlineExceeded {
			return "unexpected word"
		}
		return ""
	})

	run("tx: SendMany reaches the master high byte first", func() string {
		drain(s)
		if err := s.SendMany([]uint16{0xAABB, 0x1122}); err != nil {
			return "SendMany: " + err.Error()
		}
		settle()
		if got := xfer16(0); got != 0xAABB {
			return "first word wrong"
		}
		if got := xfer16(0); got != 0x1122 {
			return "second word wrong"
		}
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		if err := s.WaitTransferComplete(ctx); err != nil {
			return "never completed"
		}
		drain(s)
		return ""
	})

	run("tx: second stream rejected while busy", func() string {
		drain(s)
		words := make([]uint16, 64)
		for i := range words {
			words[i] = uint16(i*0x0101 + 0x00A5)
		}
		if err := s.SendMany(words); err != nil {
			return "SendMany: " + err.Error()
		}
		if err := s.Send(0xFFFF); err != spislave.ErrBusy {
			return "Send accepted while busy"
		}
		settle()
		for i, want := range words {
			if got := xfer16(0); got != want {
				println("  word", i, "got", got, "want", want)
				return "stream corrupted"
			}
			// The ring only holds a few of the dummy frames.
			if i%4 == 3 {
				drain(s)
			}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		if err := s.WaitTransferComplete(ctx); err != nil {
			return "never completed"
		}
		drain(s)
		return ""
	})

	run("tx: Send single word", func() string {
		drain(s)
		if err := s.Send(0x5AA5); err != nil {
			return "Send: " + err.Error()
		}
		settle()
		if got := xfer16(0); got != 0x5AA5 {
			return "wrong word"
		}
		drain(s)
		return ""
	})

	run("duplex: echo while streaming", func() string {
		drain(s)
		reply := []uint16{0x1234, 0x5678, 0x9ABC}
		if err := s.SendMany(reply); err != nil {
			return "SendMany: " + err.Error()
		}
		settle()
		for i, out := range []uint16{0x0F0F, 0xF0F0, 0x0FF0} {
			if got := xfer16(out); got != reply[i] {
				return "slave reply wrong"
			}
		}
		settle()
		for _, want := range []uint16{0x0F0F, 0xF0F0, 0x0FF0} {
			if got, ok := s.Receive(); !ok || got != want {
				return "slave capture wrong"
			}
		}
		return ""
	})

	run("8-bit: driver over the same block", func() string {
		d := spislave.New[uint8](spislave.PL0, spislave.DefaultConfig)
		if err := d.Enable(); err != nil {
			return "Enable: " + err.Error()
		}
		defer func() { _ = s.Enable() }()

		if err := d.SendMany([]uint8{'s', 'p', 'i'}); err != nil {
			return "SendMany: " + err.Error()
		}
		settle()
		for _, want := range []byte("spi") {
			if got := xfer8(0x42); got != want {
				return "wrong byte"
			}
		}
		settle()
		for i := 0; i < 3; i++ {
			if got, ok := d.Receive(); !ok || got != 0x42 {
				return "capture wrong"
			}
		}
		return ""
	})

	run("lifecycle: Disable releases waiters, Enable resets", func() string {
		drain(s)
		xfer16(0x0BAD)
		settle()

		errc := make(chan error, 1)
		go func() {
			drain(s)
			_, err := s.ReceiveContext(context.Background())
			errc <- err
		}()
		time.Sleep(20 * time.Millisecond)
		s.Disable()
		select {
		case err := <-errc:
			if err != spislave.ErrClosed {
				return "wrong error"
			}
		case <-time.After(300 * time.Millisecond):
			return "waiter not released"
		}

		if err := s.Enable(); err != nil {
			return "Enable: " + err.Error()
		}
		if s.MessagePending() || s.Buffered() != 0 || !s.TransferComplete() {
			return "state not reset"
		}
		xfer16(0x600D)
		settle()
		if got, ok := s.Receive(); !ok || got != 0x600D {
			return "no traffic after re-Enable"
		}
		return ""
	})

	run("throughput: 1024 words master -> slave", func() string {
		drain(s)
		const n = 1024
		start := time.Now()
		got := 0
		for i := 0; i < n; i++ {
			xfer16(uint16(i))
			for {
				w, ok := s.Receive()
				if !ok {
					break
				}
				if w != uint16(got) {
					return "sequence broken"
				}
				got++
			}
		}
		settle()
		for {
			w, ok := s.Receive()
			if !ok {
				break
			}
			if w != uint16(got) {
				return "sequence broken"
			}
			got++
		}
		if got != n {
			println("  received", got, "of", n)
			return "words lost"
		}
		ms := int(time.Since(start) / time.Millisecond)
		if ms <= 0 {
			ms = 1
		}
		kbpsX100 := (n*16*100 + ms/2) / ms
		println("  speed =", formatFixed2(kbpsX100), "kbps")
		return ""
	})

	println("")
	println("All tests completed")
}

// --- tiny helpers (no fmt) ---

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := false
	if n < 0 {
		neg = true
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + (n % 10))
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func formatFixed2(x int) string {
	whole := x / 100
	frac := x % 100
	if frac < 10 {
		return itoa(whole) + ".0" + itoa(frac)
	}
	return itoa(whole) + "." + itoa(frac)
}
