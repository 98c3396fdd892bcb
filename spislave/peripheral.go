// spislave/peripheral.go

package spislave

import "errors"

var (
	// ErrUnsupportedMode is returned by adapters that cannot run the
	// requested polarity/phase/width combination.
	ErrUnsupportedMode = errors.New("spislave: unsupported mode")
	// ErrInvalidPins is returned when the adapter's pins do not form a
	// usable slave pinout.
	ErrInvalidPins = errors.New("spislave: invalid pins")
)

// Peripheral is the hardware side of the driver. Implementations wrap one
// serial block running in slave mode.
//
// RxReady, TxEmpty, ReadWord and WriteWord are called from the event handler
// and must not block or allocate.
type Peripheral interface {
	// Configure performs one-time setup: pin mux, slave mode, clock
	// polarity/phase and frame width. It leaves the block disabled.
	Configure(pol Polarity, ph Phase, width WordWidth) error
	// SetEnabled starts or stops the block. Stopping waits for a frame that
	// is being shifted to finish.
	SetEnabled(enabled bool)

	// RxReady reports that a received word can be read.
	RxReady() bool
	// TxEmpty reports that the transmit register can take another write.
	TxEmpty() bool
	// ReadWord returns one raw received value.
	ReadWord() uint16
	// WriteWord queues one raw value for transmission.
	WriteWord(v uint16)

	// SetRxEventEnabled arms or disarms the "word received" event.
	SetRxEventEnabled(enabled bool)
	// SetTxEventEnabled arms or disarms the "transmit register empty" event.
	SetTxEventEnabled(enabled bool)
}

// EventSource is implemented by peripherals that own an interrupt line. The
// driver hands over its event handler on Enable; the peripheral calls it
// from the ISR whenever either event fires.
type EventSource interface {
	OnEvent(fn func())
}
