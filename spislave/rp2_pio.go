// spislave/rp2_pio.go

//go:build rp2040 || rp2350

package spislave

import (
	"device/rp"
	"machine"
	"runtime/interrupt"
	"time"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"
)

// PIOSlave runs an SPI slave on a PIO state machine, for boards whose SSP
// pins are taken or when more slave ports are needed than there are SSP
// blocks.
//
// The program samples SDI and drives SDO one bit per SCK cycle while CS is
// low. Both shift registers are one word wide, MSB first. When the driver has
// nothing queued the state machine shifts out zeros. RX event: RX FIFO not
// empty. TX event: TX FIFO not full. Both are routed to the block's IRQ0.
type PIOSlave struct {
	PIO   *rp2pio.PIO
	Index uint8 // state machine 0-3

	SCK, SDO, SDI, CS machine.Pin

	sm      rp2pio.StateMachine
	offset  uint8
	width   WordWidth
	hi      uint16
	hiValid bool
	onEvent func()
}

// NewPIOSlave returns a slave on state machine index of block p.
func NewPIOSlave(p *rp2pio.PIO, index uint8, sck, sdo, sdi, cs machine.Pin) *PIOSlave {
	return &PIOSlave{
		PIO:   p,
		Index: index,
		SCK:   sck,
		SDO:   sdo,
		SDI:   sdi,
		CS:    cs,
	}
}

// One slave per PIO block receives that block's IRQ0.
var (
	pioSlaves     [2]*PIOSlave
	pioInterrupts [2]interrupt.Interrupt
)

func init() {
	pioInterrupts[0] = interrupt.New(rp.IRQ_PIO0_IRQ_0, handlePIO0)
	pioInterrupts[1] = interrupt.New(rp.IRQ_PIO1_IRQ_0, handlePIO1)
}

func handlePIO0(interrupt.Interrupt) { dispatchPIO(0) }
func handlePIO1(interrupt.Interrupt) { dispatchPIO(1) }

func dispatchPIO(block int) {
	if s := pioSlaves[block]; s != nil && s.onEvent != nil {
		s.onEvent()
	}
}

// buildSlaveProgram assembles the slave loop for the given clock settings.
// Instruction 0 clears X once; the wrapped loop starts at 1.
func buildSlaveProgram(pol Polarity, ph Phase, sck, cs uint8) []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	lead := pol == IdleLow // SCK level after the leading edge
	idle := !lead

	if ph == CaptureLeading {
		return []uint16{
			asm.Set(rp2pio.SetDestX, 0).Encode(),    // 0: set x, 0
			asm.WaitGPIO(false, cs).Encode(),        // 1: wait 0 gpio cs
			asm.Pull(true, false).Encode(),          // 2: pull ifempty noblock
			asm.Out(rp2pio.OutDestPins, 1).Encode(), // 3: out pins, 1
			asm.WaitGPIO(lead, sck).Encode(),        // 4: wait lead gpio sck
			asm.In(rp2pio.InSrcPins, 1).Encode(),    // 5: in pins, 1
			asm.WaitGPIO(idle, sck).Encode(),        // 6: wait idle gpio sck
		}
	}
	return []uint16{
		asm.Set(rp2pio.SetDestX, 0).Encode(),    // 0: set x, 0
		asm.WaitGPIO(false, cs).Encode(),        // 1: wait 0 gpio cs
		asm.Pull(true, false).Encode(),          // 2: pull ifempty noblock
		asm.WaitGPIO(lead, sck).Encode(),        // 3: wait lead gpio sck
		asm.Out(rp2pio.OutDestPins, 1).Encode(), // 4: out pins, 1
		asm.WaitGPIO(idle, sck).Encode(),        // 5: wait idle gpio sck
		asm.In(rp2pio.InSrcPins, 1).Encode(),    // 6: in pins, 1
	}
}

// Configure loads the program and initialises the state machine. It is left
// disabled with its interrupt sources masked.
func (p *PIOSlave) Configure(pol Polarity, ph Phase, width WordWidth) error {
	if width != Width8 && width != Width16 {
		return ErrUnsupportedMode
	}
	if p.PIO == nil || p.Index > 3 {
		return ErrInvalidPins
	}
	if p.SCK == machine.NoPin || p.SDI == machine.NoPin || p.CS == machine.NoPin || p.SDO == machine.NoPin {
		return ErrInvalidPins
	}
	p.width = width
	p.hiValid = false

	block := 0
	if p.PIO == rp2pio.PIO1 {
		block = 1
	}

	p.sm = p.PIO.StateMachine(p.Index)
	p.sm.TryClaim()
	p.sm.SetEnabled(false)

	program := buildSlaveProgram(pol, ph, uint8(p.SCK), uint8(p.CS))
	offset, err := p.PIO.AddProgram(program, -1)
	if err != nil {
		return err
	}
	p.offset = offset

	p.SDO.Configure(machine.PinConfig{Mode: p.PIO.PinMode()})
	p.SDI.Configure(machine.PinConfig{Mode: p.PIO.PinMode()})
	p.SCK.Configure(machine.PinConfig{Mode: machine.PinInput})
	p.CS.Configure(machine.PinConfig{Mode: machine.PinInputPullup})

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetOutPins(p.SDO, 1)
	cfg.SetInPins(p.SDI, 1)
	// MSB first both ways; ISR autopushes a whole word, OSR is pulled
	// explicitly so an empty FIFO shifts zeros instead of stalling.
	cfg.SetOutShift(false, false, uint16(width))
	cfg.SetInShift(false, true, uint16(width))
	cfg.SetWrap(offset+uint8(len(program))-1, offset+1)
	cfg.SetClkDivIntFrac(1, 0)

	p.sm.Init(offset, cfg)
	p.sm.SetPindirsConsecutive(p.SDO, 1, true)
	p.sm.SetPinsConsecutive(p.SDO, 1, false)

	p.PIO.HW().IRQ_INT[0].E.ClearBits((rp.PIO0_IRQ0_INTE_SM0_RXNEMPTY | rp.PIO0_IRQ0_INTE_SM0_TXNFULL) << p.Index)

	pioSlaves[block] = p
	pioInterrupts[block].SetPriority(0x80)
	pioInterrupts[block].Enable()
	return nil
}

// SetEnabled starts or stops the state machine. Stopping waits for CS to be
// released so a frame in progress completes.
func (p *PIOSlave) SetEnabled(enabled bool) {
	if enabled {
		p.sm.ClearFIFOs()
		p.sm.Restart()
		p.hiValid = false
		p.sm.SetEnabled(true)
		return
	}
	for !p.CS.Get() {
		time.Sleep(0) // polite yield
	}
	p.sm.SetEnabled(false)
}

func (p *PIOSlave) RxReady() bool { return !p.sm.IsRxFIFOEmpty() }

func (p *PIOSlave) TxEmpty() bool { return !p.sm.IsTxFIFOFull() }

func (p *PIOSlave) ReadWord() uint16 {
	return uint16(p.sm.RxGet()) & p.width.Mask()
}

// WriteWord queues one frame, left aligned for the MSB-first shifter. In
// 16-bit mode byte pairs are joined high byte first.
func (p *PIOSlave) WriteWord(v uint16) {
	if p.width == Width16 {
		if !p.hiValid {
			p.hi = v & 0x00FF
			p.hiValid = true
			return
		}
		p.hiValid = false
		v = p.hi<<8 | v&0x00FF
	}
	p.sm.TxPut(uint32(v) << (32 - uint32(p.width)))
}

func (p *PIOSlave) SetRxEventEnabled(enabled bool) {
	p.setInte(rp.PIO0_IRQ0_INTE_SM0_RXNEMPTY, enabled)
}

func (p *PIOSlave) SetTxEventEnabled(enabled bool) {
	p.setInte(rp.PIO0_IRQ0_INTE_SM0_TXNFULL, enabled)
}

func (p *PIOSlave) OnEvent(fn func()) { p.onEvent = fn }

func (p *PIOSlave) setInte(sm0bit uint32, enabled bool) {
	bit := sm0bit << p.Index
	inte := &p.PIO.HW().IRQ_INT[0].E
	if enabled {
		inte.SetBits(bit)
	} else {
		inte.ClearBits(bit)
	}
}
