// spislave/rp2.go

//go:build rp2040 || rp2350

package spislave

import (
	"device/rp"
	"machine"
	"runtime/interrupt"
)

// SSP blocks on the RP2040/RP2350, with the Pico's default slave pinout.
var (
	PL0  = &_PL0
	_PL0 = PL022{
		Bus: rp.SPI0,
		SDI: machine.GPIO16, // SPI0 RX
		CS:  machine.GPIO17, // SPI0 CSn
		SCK: machine.GPIO18, // SPI0 SCK
		SDO: machine.GPIO19, // SPI0 TX
	}

	PL1  = &_PL1
	_PL1 = PL022{
		Bus: rp.SPI1,
		SDI: machine.GPIO12, // SPI1 RX
		CS:  machine.GPIO13, // SPI1 CSn
		SCK: machine.GPIO14, // SPI1 SCK
		SDO: machine.GPIO15, // SPI1 TX
	}
)

// Slave drivers over the blocks above, using the build-time settings.
var (
	SPI0 = New[DefaultWord](PL0, DefaultConfig)
	SPI1 = New[DefaultWord](PL1, DefaultConfig)
)

func init() {
	PL0.Interrupt = interrupt.New(rp.IRQ_SPI0_IRQ, _PL0.handleInterrupt)
	PL1.Interrupt = interrupt.New(rp.IRQ_SPI1_IRQ, _PL1.handleInterrupt)
}
