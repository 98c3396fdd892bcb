//go:build (rp2040 || rp2350) && spislavedebug

package main

import (
	"context"
	"time"

	"machine"

	"github.com/jangala-dev/tinygo-spislave/spislave"
	"tinygo.org/x/drivers"
)

// Same wiring as spislave_selftest: SPI1 (GP12-15) masters SPI0 (GP16-19).
var (
	s      = spislave.SPI0
	cs     = machine.GPIO13
	master drivers.SPI
)

func printStats(label string) {
	st := s.DebugStats()
	r := spislave.PL0.DebugRegs()
	println("==", label)
	println("ISR:    count=", st.ISRCount)
	println("RX:     words=", st.RxWords, " drops=", st.RxDrops, " maxUsed=", st.RingMaxUsed)
	println("TX:     words=", st.TxWords, " streams=", st.TxStreams, " busy=", st.BusyRejects)
	println("Waits:  waits=", st.ReadWaits)
	println("Flags:  pending=", s.MessagePending(), " overflow=", s.MessageOverflow(), " complete=", s.TransferComplete())
	println("Regs:   CR0=0x", r.CR0, " CR1=0x", r.CR1, " SR=0x", r.SR, " CPSR=", r.CPSR,
		" IMSC=0x", r.IMSC, " RIS=0x", r.RIS, " MIS=0x", r.MIS)
}

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

func drain() {
	for {
		if _, ok := s.Receive(); !ok {
			return
		}
	}
}

func halt(msg string) {
	println("fatal:", msg)
	for {
		time.Sleep(time.Hour)
	}
}

func main() {
	delay := 10
	for i := 0; i < delay; i++ {
		println("test starting in ", delay-i, " seconds")
		time.Sleep(time.Second)
	}
	println("spislave probe (diagnostic)")

	spi := machine.SPI1
	if err := spi.Configure(machine.SPIConfig{
		Frequency: 1_000_000,
		SCK:       machine.GPIO14,
		SDO:       machine.GPIO15,
		SDI:       machine.GPIO12,
		Mode:      spislave.Mode(spislave.ClockPolarity, spislave.ClockPhase),
	}); err != nil {
		halt(err.Error())
	}
	master = spi
	cs.Configure(machine.PinConfig{Mode: machine.PinOutput})
	cs.High()

	if err := s.Enable(); err != nil {
		halt(err.Error())
	}
	printStats("after Enable")

	// Phase 1: 256 words in, read after each
	println("\n[phase] rx-256")
	s.DebugReset()
	drain()
	bad := 0
	got := 0
	for i := 0; i < 256; i++ {
		xfer16(uint16(i) * 0x0101)
		for {
			w, ok := s.Receive()
			if !ok {
				break
			}
			if w != uint16(got)*0x0101 {
				bad++
			}
			got++
		}
	}
	time.Sleep(2 * time.Millisecond)
	for {
		if _, ok := s.Receive(); !ok {
			break
		}
		got++
	}
	println(" result: received", got, "words, mismatches", bad)
	printStats("after rx-256")

	// Phase 2: burst without reading, forces overflow
	println("\n[phase] overflow-burst")
	s.DebugReset()
	drain()
	for i := 0; i < 4*spislave.RxBufferLen; i++ {
		xfer16(uint16(i))
	}
	time.Sleep(2 * time.Millisecond)
	println(" result: buffered", s.Buffered(), " overflow", s.MessageOverflow())
	printStats("after overflow-burst")
	drain()

	// Phase 3: stream 64 words out
	println("\n[phase] tx-64")
	s.DebugReset()
	words := make([]uint16, 64)
	for i := range words {
		words[i] = 0xA500 | uint16(i)
	}
	if err := s.SendMany(words); err != nil {
		println(" SendMany:", err.Error())
	}
	if err := s.Send(0); err != nil {
		println(" Send while busy:", err.Error())
	}
	time.Sleep(time.Millisecond)
	bad = 0
	for i := range words {
		if xfer16(0) != words[i] {
			bad++
		}
		if i%4 == 3 {
			drain()
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	err := s.WaitTransferComplete(ctx)
	cancel()
	println(" result: mismatches", bad, " complete err", err == nil)
	printStats("after tx-64")

	// Phase 4: notify sanity
	println("\n[phase] notify-1word")
	s.DebugReset()
	drain()
	ready := s.Readable()
	go func() {
		time.Sleep(5 * time.Millisecond)
		xfer16(0xBEEF)
	}()
	select {
	case <-ready:
		w, ok := s.Receive()
		println(" result: got", w, ok)
	case <-time.After(300 * time.Millisecond):
		println(" result: no notification within 300ms")
	}
	printStats("after notify-1word")

	println("\ndone")
}
