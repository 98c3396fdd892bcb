// spislave/rp2_spi.go

//go:build rp2040 || rp2350

package spislave

import (
	"device/rp"
	"machine"
	"runtime/interrupt"
	"time"
)

// PL022 drives one RP2040/RP2350 SSP block as an SPI slave.
//
// RX event: RXIM (FIFO half full) and RTIM (receive timeout) so that a lone
// word still raises an interrupt. TX event: TXIM (FIFO half empty or less).
// Both share the block's single IRQ line.
//
// In 16-bit mode the driver writes each word as two bytes, high first. The
// PL022 frame is 16 bits wide, so the bytes are paired back into one frame
// before they reach SSPDR.
type PL022 struct {
	Bus       *rp.SPI0_Type
	Interrupt interrupt.Interrupt

	// Slave pinout: SDI receives from the master (MOSI), SDO drives the
	// master (MISO). CS is the frame select input.
	SCK, SDO, SDI, CS machine.Pin

	width   WordWidth
	hi      uint16
	hiValid bool
	onEvent func()
}

// Configure resets the block, muxes the pins and programs slave mode with
// the given clock settings. The block is left disabled with all interrupt
// sources masked.
func (p *PL022) Configure(pol Polarity, ph Phase, width WordWidth) error {
	if width != Width8 && width != Width16 {
		return ErrUnsupportedMode
	}
	if p.SCK == machine.NoPin || p.SDI == machine.NoPin || p.CS == machine.NoPin {
		return ErrInvalidPins
	}
	p.width = width
	p.hiValid = false

	initSPI(p)

	// 1) Disable the block while configuring.
	p.Bus.SSPCR1.ClearBits(rp.SPI0_SSPCR1_SSE)

	// 2) Pins. SDO may be omitted for receive-only use.
	p.SCK.Configure(machine.PinConfig{Mode: machine.PinSPI})
	p.SDI.Configure(machine.PinConfig{Mode: machine.PinSPI})
	p.CS.Configure(machine.PinConfig{Mode: machine.PinSPI})
	if p.SDO != machine.NoPin {
		p.SDO.Configure(machine.PinConfig{Mode: machine.PinSPI})
	}

	// 3) Frame format: Motorola SPI, DSS = bits-1, CPOL/CPHA.
	cr0 := uint32(width-1) << rp.SPI0_SSPCR0_DSS_Pos
	if pol == IdleHigh {
		cr0 |= rp.SPI0_SSPCR0_SPO
	}
	if ph == CaptureTrailing {
		cr0 |= rp.SPI0_SSPCR0_SPH
	}
	p.Bus.SSPCR0.Set(cr0)
	// Slave mode still needs a valid prescaler; the master's SCK must stay
	// below clk_peri/12.
	p.Bus.SSPCPSR.Set(2)

	// 4) Slave select, output enabled when SDO is wired.
	cr1 := uint32(rp.SPI0_SSPCR1_MS)
	if p.SDO == machine.NoPin {
		cr1 |= rp.SPI0_SSPCR1_SOD
	}
	p.Bus.SSPCR1.Set(cr1)

	// 5) Mask everything and clear latched sources.
	p.Bus.SSPIMSC.Set(0)
	p.Bus.SSPICR.Set(rp.SPI0_SSPICR_RORIC | rp.SPI0_SSPICR_RTIC)

	// 6) NVIC.
	p.Interrupt.SetPriority(0x80)
	p.Interrupt.Enable()
	return nil
}

// SetEnabled starts or stops the block. Stopping waits for BSY to clear so
// a frame being shifted is not truncated.
func (p *PL022) SetEnabled(enabled bool) {
	if enabled {
		// Purge anything latched while disabled.
		for p.Bus.SSPSR.HasBits(rp.SPI0_SSPSR_RNE) {
			_ = p.Bus.SSPDR.Get()
		}
		p.hiValid = false
		p.Bus.SSPCR1.SetBits(rp.SPI0_SSPCR1_SSE)
		return
	}
	for p.Bus.SSPSR.HasBits(rp.SPI0_SSPSR_BSY) {
		time.Sleep(0) // polite yield
	}
	p.Bus.SSPCR1.ClearBits(rp.SPI0_SSPCR1_SSE)
}

func (p *PL022) RxReady() bool {
	return p.Bus.SSPSR.HasBits(rp.SPI0_SSPSR_RNE)
}

func (p *PL022) TxEmpty() bool {
	return p.Bus.SSPSR.HasBits(rp.SPI0_SSPSR_TNF)
}

// ReadWord pops one frame. Once the FIFO is empty the receive timeout is
// cleared, otherwise RTIM would keep the line asserted.
func (p *PL022) ReadWord() uint16 {
	v := uint16(p.Bus.SSPDR.Get() & uint32(p.width.Mask()))
	if !p.Bus.SSPSR.HasBits(rp.SPI0_SSPSR_RNE) {
		p.Bus.SSPICR.Set(rp.SPI0_SSPICR_RTIC)
	}
	return v
}

// WriteWord pushes one frame. In 16-bit mode the first call of each pair
// latches the high byte and the second completes the frame.
func (p *PL022) WriteWord(v uint16) {
	if p.width == Width8 {
		p.Bus.SSPDR.Set(uint32(v & 0x00FF))
		return
	}
	if !p.hiValid {
		p.hi = v & 0x00FF
		p.hiValid = true
		return
	}
	p.hiValid = false
	p.Bus.SSPDR.Set(uint32(p.hi<<8 | v&0x00FF))
}

func (p *PL022) SetRxEventEnabled(enabled bool) {
	const rx = rp.SPI0_SSPIMSC_RXIM | rp.SPI0_SSPIMSC_RTIM
	if enabled {
		p.Bus.SSPIMSC.SetBits(rx)
	} else {
		p.Bus.SSPIMSC.ClearBits(rx)
	}
}

func (p *PL022) SetTxEventEnabled(enabled bool) {
	if enabled {
		p.Bus.SSPIMSC.SetBits(rp.SPI0_SSPIMSC_TXIM)
	} else {
		p.Bus.SSPIMSC.ClearBits(rp.SPI0_SSPIMSC_TXIM)
	}
}

func (p *PL022) OnEvent(fn func()) { p.onEvent = fn }

// handleInterrupt is installed on the block's IRQ. A receive overrun means
// the handler fell behind the master; the lost frame cannot be recovered, so
// the source is only acknowledged.
func (p *PL022) handleInterrupt(interrupt.Interrupt) {
	if p.Bus.SSPMIS.HasBits(rp.SPI0_SSPMIS_RORMIS) {
		p.Bus.SSPICR.Set(rp.SPI0_SSPICR_RORIC)
	}
	if p.onEvent != nil {
		p.onEvent()
	}
}

// initSPI asserts and releases the peripheral reset for the selected block.
func initSPI(p *PL022) {
	var resetVal uint32
	switch {
	case p.Bus == rp.SPI0:
		resetVal = rp.RESETS_RESET_SPI0
	case p.Bus == rp.SPI1:
		resetVal = rp.RESETS_RESET_SPI1
	}

	rp.RESETS.RESET.SetBits(resetVal)
	rp.RESETS.RESET.ClearBits(resetVal)
	for !rp.RESETS.RESET_DONE.HasBits(resetVal) {
	}
}
