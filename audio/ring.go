// Package audio bridges the render loop to the sound card: two sample
// rings feed a portaudio callback that publishes its demand for the
// renderer to fill.
package audio

import "sync/atomic"

// Ring is a bounded single-producer single-consumer float32 queue.
// Exactly one goroutine may push and one may pop; under that contract
// the atomic indices make it lock-free and allocation-free.
type Ring struct {
	buf  []float32
	mask uint64
	head atomic.Uint64 // next read
	tail atomic.Uint64 // next write
}

// NewRing makes a ring holding at least capacity samples, rounded up to
// a power of two.
func NewRing(capacity int) *Ring {
	size := 1
	for size < capacity {
		size <<= 1
	}
	return &Ring{buf: make([]float32, size), mask: uint64(size - 1)}
}

// Cap is the usable capacity.
func (r *Ring) Cap() int {
	return len(r.buf)
}

// Len is the number of samples currently queued.
func (r *Ring) Len() int {
	return int(r.tail.Load() - r.head.Load())
}

// Push appends as many samples as fit and reports how many it took.
// Producer side only.
func (r *Ring) Push(values []float32) int {
	head := r.head.Load()
	tail := r.tail.Load()
	free := len(r.buf) - int(tail-head)
	n := len(values)
	if n > free {
		n = free
	}
	for i := 0; i < n; i++ {
		r.buf[(tail+uint64(i))&r.mask] = values[i]
	}
	r.tail.Store(tail + uint64(n))
	return n
}

// Pop removes one sample. Consumer side only.
func (r *Ring) Pop() (float32, bool) {
	head := r.head.Load()
	if head == r.tail.Load() {
		return 0, false
	}
	value := r.buf[head&r.mask]
	r.head.Store(head + 1)
	return value, true
}

// Clear drops everything queued. Consumer side only.
func (r *Ring) Clear() {
	r.head.Store(r.tail.Load())
}
