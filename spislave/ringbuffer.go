// spislave/ringbuffer.go

package spislave

import "sync/atomic"

// RingBuffer is a fixed-capacity FIFO of words shared between the event
// handler (sole producer) and application code (sole consumer).
//
// head is only touched by Put and tail only by Get. count is atomic so the
// consumer can see how much is buffered without masking the producer. The
// slot is written before count is published, and read before count is
// decremented.
type RingBuffer[W Word] struct {
	buf   [RxBufferLen]W
	head  uint8
	tail  uint8
	count atomic.Uint32
}

// Size returns the capacity of the buffer in words.
func (rb *RingBuffer[W]) Size() int {
	return RxBufferLen
}

// Used returns how many words are buffered.
func (rb *RingBuffer[W]) Used() int {
	return int(rb.count.Load())
}

// Full reports whether the next Put would be dropped.
func (rb *RingBuffer[W]) Full() bool {
	return rb.Used() == RxBufferLen
}

// Put stores a word. If the buffer is full the word is discarded, no cursor
// moves, and Put returns false.
func (rb *RingBuffer[W]) Put(w W) bool {
	if rb.Full() {
		return false
	}
	h := rb.head
	rb.buf[h] = w // 1) write data
	h++
	if h == RxBufferLen {
		h = 0
	}
	rb.head = h
	rb.count.Add(1) // 2) publish
	return true
}

// Get removes the oldest word. It returns (0, false) when empty.
func (rb *RingBuffer[W]) Get() (W, bool) {
	if rb.Used() == 0 {
		return 0, false
	}
	t := rb.tail
	w := rb.buf[t] // 1) read current element
	t++
	if t == RxBufferLen {
		t = 0
	}
	rb.tail = t
	rb.count.Add(^uint32(0)) // 2) publish consumption
	return w, true
}

// Clear empties the buffer and puts both cursors back at the origin.
// It must not race with Put.
func (rb *RingBuffer[W]) Clear() {
	rb.head = 0
	rb.tail = 0
	rb.count.Store(0)
}
