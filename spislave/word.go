// spislave/word.go

package spislave

// Word is the set of supported data word types. The width of the type fixes
// the frame width: 8 or 16 bits.
type Word interface {
	~uint8 | ~uint16
}

// WordWidth is the number of bits in one frame on the wire.
type WordWidth uint8

const (
	Width8  WordWidth = 8
	Width16 WordWidth = 16
)

// Mask returns the bits of a raw register value that belong to one word.
func (w WordWidth) Mask() uint16 {
	if w == Width8 {
		return 0x00FF
	}
	return 0xFFFF
}

// WidthOf reports the frame width selected by W.
func WidthOf[W Word]() WordWidth {
	if uint16(^W(0)) == 0x00FF {
		return Width8
	}
	return Width16
}

// Slave8 and Slave16 are the two driver variants.
type (
	Slave8  = Driver[uint8]
	Slave16 = Driver[uint16]
)
