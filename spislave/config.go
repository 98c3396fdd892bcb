// spislave/config.go

package spislave

// Build-time settings. They are not negotiated with the master; change them
// here to match the bus.
const (
	// RxBufferLen is the number of unread words held before overflow.
	// It must fit in a uint8.
	RxBufferLen = 8

	// ClockPolarity and ClockPhase are used by the package-level instances.
	ClockPolarity = IdleLow
	ClockPhase    = CaptureTrailing
)

// DefaultWord is the word type of the package-level SPI0/SPI1 instances.
// uint16 selects 16-bit frames, uint8 selects 8-bit frames.
type DefaultWord = uint16

// Polarity is the idle level of SCK (CPOL).
type Polarity uint8

const (
	// IdleLow: SCK rests low (CPOL=0).
	IdleLow Polarity = iota
	// IdleHigh: SCK rests high (CPOL=1).
	IdleHigh
)

// Phase selects which SCK edge samples data (CPHA).
type Phase uint8

const (
	// CaptureLeading samples on the first edge of each bit; data changes on
	// the trailing edge of the preceding clock (CPHA=0).
	CaptureLeading Phase = iota
	// CaptureTrailing changes data on the leading edge and samples on the
	// following edge (CPHA=1). Frames may be sent back to back without
	// releasing chip select.
	CaptureTrailing
)

// Mode returns the conventional SPI mode number (0-3).
func Mode(pol Polarity, ph Phase) uint8 {
	return uint8(pol)<<1 | uint8(ph)
}

// Config holds the clock settings handed to the peripheral on Enable.
type Config struct {
	Polarity Polarity
	Phase    Phase
}

// DefaultConfig mirrors the build-time constants.
var DefaultConfig = Config{
	Polarity: ClockPolarity,
	Phase:    ClockPhase,
}
