// Package stft implements the real-time STFT streaming processor of
// spec.md §4.4: ring-buffered block-size adaptation, Hann-windowed
// overlap-add reconstruction at 75% overlap (H = N/4).
package stft

// RingBuffer is a fixed-capacity FIFO of float32 samples with head/tail
// indices modulo capacity, per spec.md §4.4. It performs no allocation
// after construction and is intended for single-producer/single-consumer
// use from one goroutine at a time (the audio-thread driver owns it
// exclusively, per spec.md §5).
type RingBuffer struct {
	buf        []float32
	head, tail int // write and read cursors, both mod cap
	size       int
}

// NewRingBuffer creates a ring buffer of the given capacity.
func NewRingBuffer(capacity int) *RingBuffer {
	return &RingBuffer{buf: make([]float32, capacity)}
}

// Capacity returns the buffer's fixed capacity.
func (r *RingBuffer) Capacity() int { return len(r.buf) }

// Size returns the number of samples currently queued. Always in
// [0, Capacity()]; Enqueue can fill the buffer completely.
func (r *RingBuffer) Size() int { return r.size }

// Free returns the number of additional samples that can be enqueued.
func (r *RingBuffer) Free() int { return len(r.buf) - r.size }

// Enqueue appends data to the tail. It returns the number of samples
// actually written; if data is longer than Free(), the buffer is filled
// and the excess is silently dropped (there is no real-time-safe way to
// block here, and overruns are the caller's responsibility to avoid by
// sizing the ring generously relative to host block size).
func (r *RingBuffer) Enqueue(data []float32) int {
	n := len(data)
	if n > r.Free() {
		n = r.Free()
	}
	cap := len(r.buf)
	for i := 0; i < n; i++ {
		r.buf[r.head] = data[i]
		r.head = (r.head + 1) % cap
	}
	r.size += n
	return n
}

// PeekInto copies up to len(dst) samples starting at the current read
// position into dst, without consuming them. It returns the number of
// samples copied (less than len(dst) only if the buffer holds fewer).
func (r *RingBuffer) PeekInto(dst []float32) int {
	n := len(dst)
	if n > r.size {
		n = r.size
	}
	cap := len(r.buf)
	idx := r.tail
	for i := 0; i < n; i++ {
		dst[i] = r.buf[idx]
		idx = (idx + 1) % cap
	}
	return n
}

// Advance consumes n samples from the read position without copying them
// anywhere (used to realize the 75%-overlap hop of spec.md §4.4 step 10,
// which advances by H rather than by N).
func (r *RingBuffer) Advance(n int) int {
	if n > r.size {
		n = r.size
	}
	r.tail = (r.tail + n) % len(r.buf)
	r.size -= n
	return n
}

// DequeueInto copies and removes up to len(dst) samples into dst. It
// returns the number of samples actually dequeued; the remainder of dst
// (if any) is left untouched, so callers reading host-sized output blocks
// must zero-fill the tail themselves on underrun, per spec.md §6's "sink
// never back-pressures; underruns manifest as zero-filled output frames".
func (r *RingBuffer) DequeueInto(dst []float32) int {
	n := r.PeekInto(dst)
	r.Advance(n)
	return n
}
