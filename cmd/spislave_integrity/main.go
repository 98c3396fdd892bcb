// cmd/spislave_integrity/main.go
// Word-exact integrity test for the SPI slave on RP2040 (Pico), with SPI1 as
// the master on the same board.
// Wiring:
//   GP14 SCK  -> GP18 SCK
//   GP15 MOSI -> GP16 SDI
//   GP12 MISO <- GP19 SDO
//   GP13 CS   -> GP17 CS

package main

import (
	"time"

	"machine"

	"github.com/jangala-dev/tinygo-spislave/spislave"
	"tinygo.org/x/drivers"
)

/*** Tunables ***/
const (
	freq        = 2_000_000 // master SCK
	totalWords  = 4096      // words per direction
	fullDuplex  = true      // true: both directions at once; false: each direction separately
	warmupDelay = 2 * time.Second

	// Diagnostics:
	contextRadius  = 8  // surrounding words shown on mismatch (before/after pivot)
	extraFollowing = 32 // additional words clocked and printed after the first mismatch
)

/*** Patterns (deterministic) ***/
func patternA(i int) uint16 { return uint16((i*0x9E37 + 0x5555) & 0xFFFF) }
func patternB(i int) uint16 { return uint16((i*0x3B1D + 0xA6A6) & 0xFFFF) }

var (
	s      = spislave.SPI0
	cs     = machine.GPIO13
	master drivers.SPI
)

/*** Main ***/
func main() {
	time.Sleep(warmupDelay)
	println("spislave integrity test (RP2040)")
	println("sck =", freq, "  words/dir =", totalWords, "  duplex =", boolToStr(fullDuplex))
	println("master SPI1 = 12/13/14/15  slave SPI0 = 16/17/18/19")

	spi := machine.SPI1
	_ = spi.Configure(machine.SPIConfig{
		Frequency: freq,
		SCK:       machine.GPIO14,
		SDO:       machine.GPIO15,
		SDI:       machine.GPIO12,
		Mode:      spislave.Mode(spislave.ClockPolarity, spislave.ClockPhase),
	})
	master = spi
	cs.Configure(machine.PinConfig{Mode: machine.PinOutput})
	cs.High()

	if err := s.Enable(); err != nil {
		println("slave Enable failed:", err.Error())
	}

	// LED for end-of-test indication.
	machine.LED.Configure(machine.PinConfig{Mode: machine.PinOutput})

	pass, fail := 0, 0
	report := func(name, err string) {
		if err == "" {
			println("[PASS]", name)
			pass++
		} else {
			println("[FAIL]", name, ":", err)
			fail++
		}
	}

	if fullDuplex {
		report("Full-duplex integrity", runFullDuplex(totalWords))
	} else {
		report("master -> slave integrity", runMasterToSlave(patternA, totalWords))
		report("slave -> master integrity", runSlaveToMaster(patternB, totalWords))
	}

	println("")
	println("Summary")
	println("  passed =", pass)
	println("  failed =", fail)
	if fail == 0 {
		blink(machine.LED, 3, 120*time.Millisecond)
	} else {
		for {
			blink(machine.LED, 1, 600*time.Millisecond)
			time.Sleep(800 * time.Millisecond)
		}
	}
}

/*** Test runners ***/

// runMasterToSlave clocks n pattern words into the slave, reading the ring
// after every frame so it never fills.
func runMasterToSlave(gen func(int) uint16, n int) string {
	drain()
	received := 0
	for i := 0; i < n; i++ {
		xfer16(gen(i))
		if err := collect(gen, &received, n); err != "" {
			return err
		}
	}
	time.Sleep(2 * time.Millisecond)
	if err := collect(gen, &received, n); err != "" {
		return err
	}
	if received != n {
		println("received", received, "of", n)
		return "words lost"
	}
	if s.MessageOverflow() {
		return "overflow"
	}
	return ""
}

// runSlaveToMaster streams n pattern words from the slave and checks what the
// master clocks out.
func runSlaveToMaster(gen func(int) uint16, n int) string {
	drain()
	words := makePattern(gen, n)
	if err := s.SendMany(words); err != nil {
		return "SendMany: " + err.Error()
	}
	time.Sleep(time.Millisecond)
	for i := 0; i < n; i++ {
		if got := xfer16(0); got != gen(i) {
			return mismatch(gen, words, i, got)
		}
		if i%4 == 3 {
			drain()
		}
	}
	return waitComplete()
}

func runFullDuplex(n int) string {
	drain()
	words := makePattern(patternB, n)
	if err := s.SendMany(words); err != nil {
		return "SendMany: " + err.Error()
	}
	time.Sleep(time.Millisecond)

	received := 0
	for i := 0; i < n; i++ {
		if got := xfer16(patternA(i)); got != patternB(i) {
			return mismatch(patternB, words, i, got)
		}
		if err := collect(patternA, &received, n); err != "" {
			return err
		}
	}
	time.Sleep(2 * time.Millisecond)
	if err := collect(patternA, &received, n); err != "" {
		return err
	}
	if received != n {
		println("received", received, "of", n)
		return "words lost"
	}
	return waitComplete()
}

/*** Helpers ***/

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

// collect moves everything buffered on the slave into the running check.
func collect(gen func(int) uint16, received *int, n int) string {
	for {
		w, ok := s.Receive()
		if !ok {
			return ""
		}
		if *received >= n {
			return "extra word"
		}
		if w != gen(*received) {
			println("slave capture mismatch at offset", *received, "got", hex16(w), "want", hex16(gen(*received)))
			return "integrity mismatch (slave side)"
		}
		*received++
	}
}

func waitComplete() string {
	deadline := time.Now().Add(200 * time.Millisecond)
	for !s.TransferComplete() {
		if time.Now().After(deadline) {
			return "stream never completed"
		}
		time.Sleep(time.Millisecond)
	}
	drain()
	return ""
}

func makePattern(gen func(int) uint16, n int) []uint16 {
	words := make([]uint16, n)
	for i := range words {
		words[i] = gen(i)
	}
	return words
}

/*** Mismatch dump ***/

// mismatch prints the expected window around off and the next words the
// master clocks out after it.
func mismatch(gen func(int) uint16, words []uint16, off int, got uint16) string {
	println("First mismatch at offset", off, "got", hex16(got), "want", hex16(gen(off)))

	start := off - contextRadius
	if start < 0 {
		start = 0
	}
	end := off + contextRadius + 1
	if end > len(words) {
		end = len(words)
	}
	println("Context (hex): words", start, "to", end-1)
	print(" exp: ")
	for i := start; i < end; i++ {
		if i == off {
			print("[", hex16(words[i]), "]")
		} else {
			print(" ", hex16(words[i]))
		}
	}
	println("")

	println("Following words actually clocked after mismatch (next", extraFollowing, "words):")
	for i := 0; i < extraFollowing && off+1+i < len(words); i += 8 {
		print("  +", off+1+i, ":")
		for j := i; j < i+8 && off+1+j < len(words); j++ {
			print(" ", hex16(xfer16(0)))
		}
		println("")
	}
	return "integrity mismatch"
}

/*** Utilities ***/

func hex16(v uint16) string {
	const hexdigits = "0123456789ABCDEF"
	var s [4]byte
	s[0] = hexdigits[(v>>12)&0xF]
	s[1] = hexdigits[(v>>8)&0xF]
	s[2] = hexdigits[(v>>4)&0xF]
	s[3] = hexdigits[v&0xF]
	return string(s[:])
}

func blink(pin machine.Pin, times int, on time.Duration) {
	for i := 0; i < times; i++ {
		pin.High()
		time.Sleep(on)
		pin.Low()
		time.Sleep(on)
	}
}

func boolToStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
