//go:build !rp2040 && !rp2350

package spislave

// Host shim: the package-level instances run over SimPeripheral so code
// written against SPI0/SPI1 builds and runs without hardware.

var (
	Sim0 = &SimPeripheral{}
	Sim1 = &SimPeripheral{}

	SPI0 = New[DefaultWord](Sim0, DefaultConfig)
	SPI1 = New[DefaultWord](Sim1, DefaultConfig)
)
