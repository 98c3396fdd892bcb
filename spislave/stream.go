// spislave/stream.go

package spislave

// txStream walks a caller-owned slice, one word per TX event.
//
// Fields are written by start only while no stream is in flight (the TX event
// is disarmed then) and by step only from the event handler.
type txStream[W Word] struct {
	data   []W // borrowed, never copied
	length int
	pos    int
}

func (s *txStream[W]) reset(data []W) {
	s.data = data
	s.length = len(data)
	s.pos = 0
}

func (s *txStream[W]) clear() {
	s.data = nil
	s.length = 0
	s.pos = 0
}

// finished reports whether every word has been handed to the peripheral.
func (s *txStream[W]) finished() bool {
	return s.pos == s.length
}

// next returns the word at the cursor and advances it.
func (s *txStream[W]) next() W {
	w := s.data[s.pos]
	s.pos++
	return w
}

// remaining returns how many words still have to be written.
func (s *txStream[W]) remaining() int {
	return s.length - s.pos
}

// writeWord puts one word on the wire. A 16-bit word goes out as two 8-bit
// writes, high byte first, so the master sees network byte order.
func writeWord[W Word](bus Peripheral, width WordWidth, w W) {
	if width == Width8 {
		bus.WriteWord(uint16(w) & 0x00FF)
		return
	}
	v := uint16(w)
	bus.WriteWord(v >> 8)
	bus.WriteWord(v & 0x00FF)
}
