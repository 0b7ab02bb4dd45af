// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package devlink

import "sync/atomic"

// RingBuffer is the ingestion buffer between the transport producer and the
// consumer loop. It is a single-producer/single-consumer lock-free ring:
// the write cursor belongs to the producer, the read cursor to the consumer.
//
// Bytes that do not fit are dropped. After a drop the producer latches an
// overflow mark at its write position and drops everything until the consumer
// has drained up to that mark, so the gap always sits at the end of exactly
// one drained slice.
type RingBuffer struct {
	buf []byte

	head atomic.Uint64 // write cursor, producer owned
	tail atomic.Uint64 // read cursor, consumer owned

	// overflowAt holds write position + 1 while a gap is unacknowledged, 0 otherwise
	overflowAt atomic.Uint64

	received atomic.Uint64
	dropped  atomic.Uint64
}

// NewRingBuffer creates an ingestion buffer with the given capacity.
// A non-positive capacity selects BufferSize.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = BufferSize
	}
	return &RingBuffer{buf: make([]byte, capacity)}
}

// Capacity returns the buffer capacity in bytes
func (r *RingBuffer) Capacity() int {
	return len(r.buf)
}

// Pending returns the number of bytes waiting to be drained. Safe from any
// goroutine; the result is a snapshot between 0 and Capacity.
func (r *RingBuffer) Pending() int {
	// tail first: head only grows, so a later head can never be behind it
	tail := r.tail.Load()
	head := r.head.Load()
	if n := int(head - tail); n < len(r.buf) {
		return n
	}
	return len(r.buf)
}

// Received returns the total number of bytes offered by the producer
func (r *RingBuffer) Received() uint64 {
	return r.received.Load()
}

// Dropped returns the total number of bytes discarded for lack of space
func (r *RingBuffer) Dropped() uint64 {
	return r.dropped.Load()
}

// OnBytesReceived appends as much of chunk as fits and returns the number of
// bytes accepted. It never blocks or allocates. It must only be called from
// one producer goroutine at a time.
func (r *RingBuffer) OnBytesReceived(chunk []byte) int {
	r.received.Add(uint64(len(chunk)))

	// Latched: the consumer has not yet seen the previous gap
	if r.overflowAt.Load() != 0 {
		r.dropped.Add(uint64(len(chunk)))
		return 0
	}

	w := r.head.Load()
	free := uint64(len(r.buf)) - (w - r.tail.Load())

	n := uint64(len(chunk))
	if n > free {
		n = free
	}

	capacity := uint64(len(r.buf))
	start := w % capacity
	first := copy(r.buf[start:], chunk[:n])
	copy(r.buf, chunk[first:n])

	// Publish the bytes before the mark so a drain that sees the mark sees them too
	r.head.Store(w + n)

	if lost := uint64(len(chunk)) - n; lost > 0 {
		r.overflowAt.Store(w + n + 1)
		r.dropped.Add(lost)
	}

	return int(n)
}

// DrainAvailable appends every buffered byte to dst, empties the buffer and
// returns the extended slice. overflowed reports that bytes were lost
// immediately after the returned data.
func (r *RingBuffer) DrainAvailable(dst []byte) (data []byte, overflowed bool) {
	h := r.head.Load()
	t := r.tail.Load()

	capacity := uint64(len(r.buf))
	for pos := t; pos < h; {
		start := pos % capacity
		end := capacity
		if remaining := h - pos; remaining < end-start {
			end = start + remaining
		}
		dst = append(dst, r.buf[start:end]...)
		pos += end - start
	}

	r.tail.Store(h)

	// Acknowledge the gap only once everything before it has been handed out.
	// The latch is released after the tail moves, so bytes the producer drops
	// in between still belong to this gap.
	if mark := r.overflowAt.Load(); mark != 0 && mark-1 == h {
		overflowed = true
		r.overflowAt.Store(0)
	}

	return dst, overflowed
}
