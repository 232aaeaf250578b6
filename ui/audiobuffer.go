package ui

import (
	"io"
	"sync"
)

// AudioRingBuffer queues interleaved stereo frames between the emulation
// goroutine and oto's player. The producer side takes int16 samples as the
// core emits them; the consumer side implements io.Reader and yields
// signed 16-bit little-endian PCM. Overflow drops whole frames from the
// oldest end so the channels never swap.
type AudioRingBuffer struct {
	mu   sync.Mutex
	cond *sync.Cond

	frames [][2]int16
	head   int // Oldest queued frame
	count  int // Queued frames

	// A frame split by a short Read is finished on the next one.
	carry  [4]byte
	carryN int

	closed bool
}

// NewAudioRingBuffer creates a ring buffer holding capacity bytes of
// 16-bit stereo PCM.
func NewAudioRingBuffer(capacity int) *AudioRingBuffer {
	n := capacity / 4
	if n < 1 {
		n = 1
	}
	rb := &AudioRingBuffer{frames: make([][2]int16, n)}
	rb.cond = sync.NewCond(&rb.mu)
	return rb
}

// WriteSamples queues interleaved stereo samples. A trailing odd sample
// is ignored. Never blocks.
func (rb *AudioRingBuffer) WriteSamples(samples []int16) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.closed {
		return
	}

	n := len(samples) / 2
	if n == 0 {
		return
	}
	size := len(rb.frames)
	if n > size {
		samples = samples[(n-size)*2:]
		n = size
	}

	if drop := rb.count + n - size; drop > 0 {
		rb.head = (rb.head + drop) % size
		rb.count -= drop
	}

	tail := (rb.head + rb.count) % size
	for i := 0; i < n; i++ {
		rb.frames[tail] = [2]int16{samples[i*2], samples[i*2+1]}
		tail++
		if tail == size {
			tail = 0
		}
	}
	rb.count += n

	rb.cond.Signal()
}

// Read implements io.Reader. Blocks until data is available or the buffer
// is closed. Returns io.EOF when closed and empty.
func (rb *AudioRingBuffer) Read(p []byte) (int, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	for rb.count == 0 && rb.carryN == 0 {
		if rb.closed {
			return 0, io.EOF
		}
		rb.cond.Wait()
	}

	written := 0
	if rb.carryN > 0 {
		c := copy(p, rb.carry[4-rb.carryN:])
		rb.carryN -= c
		written += c
	}

	size := len(rb.frames)
	for rb.count > 0 && written < len(p) {
		f := rb.frames[rb.head]
		b := [4]byte{byte(f[0]), byte(uint16(f[0]) >> 8), byte(f[1]), byte(uint16(f[1]) >> 8)}
		c := copy(p[written:], b[:])
		written += c
		if c < 4 {
			rb.carry = b
			rb.carryN = 4 - c
		}
		rb.head = (rb.head + 1) % size
		rb.count--
	}

	return written, nil
}

// Buffered returns the number of bytes currently queued.
func (rb *AudioRingBuffer) Buffered() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.count*4 + rb.carryN
}

// Clear discards all queued audio.
func (rb *AudioRingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.head = 0
	rb.count = 0
	rb.carryN = 0
}

// Close signals shutdown and unblocks any goroutine waiting in Read.
// Reads drain what is left and then return io.EOF.
func (rb *AudioRingBuffer) Close() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.closed = true
	rb.cond.Broadcast()
}
