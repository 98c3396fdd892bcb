//go:build (rp2040 || rp2350) && spislavedebug

package spislave

// Snapshot of useful HW registers for RP2 PL022.
type Regs struct {
	CR0  uint32 // Frame format, DSS, SPO/SPH
	CR1  uint32 // SSE, MS, SOD
	SR   uint32 // Status: TFE/TNF/RNE/RFF/BSY
	CPSR uint32 // Clock prescale
	IMSC uint32 // Interrupt mask set/clear
	RIS  uint32 // Raw interrupt status
	MIS  uint32 // Masked interrupt status
}

func (p *PL022) DebugRegs() Regs {
	return Regs{
		CR0:  p.Bus.SSPCR0.Get(),
		CR1:  p.Bus.SSPCR1.Get(),
		SR:   p.Bus.SSPSR.Get(),
		CPSR: p.Bus.SSPCPSR.Get(),
		IMSC: p.Bus.SSPIMSC.Get(),
		RIS:  p.Bus.SSPRIS.Get(),
		MIS:  p.Bus.SSPMIS.Get(),
	}
}
