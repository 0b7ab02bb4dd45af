// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package devlink

import (
	"bytes"
	"sync"
	"sync/atomic"
	"testing"
)

// ============================================================
// Ring Buffer Tests
// ============================================================

func TestRingBuffer_DefaultCapacity(t *testing.T) {
	r := NewRingBuffer(0)
	if r.Capacity() != BufferSize {
		t.Errorf("expected capacity %d, got %d", BufferSize, r.Capacity())
	}
}

func TestRingBuffer_DrainReturnsAllAndEmpties(t *testing.T) {
	r := NewRingBuffer(16)

	if n := r.OnBytesReceived([]byte("get_")); n != 4 {
		t.Fatalf("expected 4 accepted, got %d", n)
	}
	r.OnBytesReceived([]byte("status\n"))

	if r.Pending() != 11 {
		t.Errorf("expected 11 pending, got %d", r.Pending())
	}

	data, overflowed := r.DrainAvailable(nil)
	if string(data) != "get_status\n" {
		t.Errorf("unexpected drain %q", data)
	}
	if overflowed {
		t.Error("unexpected overflow")
	}
	if r.Pending() != 0 {
		t.Errorf("buffer not empty after drain: %d", r.Pending())
	}

	data, _ = r.DrainAvailable(nil)
	if len(data) != 0 {
		t.Errorf("second drain should be empty, got %q", data)
	}
}

func TestRingBuffer_Wraparound(t *testing.T) {
	r := NewRingBuffer(8)

	r.OnBytesReceived([]byte("abcdef"))
	data, _ := r.DrainAvailable(nil)
	if string(data) != "abcdef" {
		t.Fatalf("unexpected drain %q", data)
	}

	// Crosses the end of the backing array
	r.OnBytesReceived([]byte("ghijklm"))
	data, overflowed := r.DrainAvailable(nil)
	if string(data) != "ghijklm" {
		t.Errorf("unexpected drain across wrap %q", data)
	}
	if overflowed {
		t.Error("unexpected overflow")
	}
}

func TestRingBuffer_OverflowDropsExcess(t *testing.T) {
	r := NewRingBuffer(8)

	n := r.OnBytesReceived([]byte("0123456789"))
	if n != 8 {
		t.Errorf("expected 8 accepted, got %d", n)
	}
	if r.Dropped() != 2 {
		t.Errorf("expected 2 dropped, got %d", r.Dropped())
	}
	if r.Received() != 10 {
		t.Errorf("expected 10 received, got %d", r.Received())
	}

	data, overflowed := r.DrainAvailable(nil)
	if string(data) != "01234567" {
		t.Errorf("unexpected drain %q", data)
	}
	if !overflowed {
		t.Error("expected overflow to be reported")
	}
}

func TestRingBuffer_LatchHoldsUntilDrained(t *testing.T) {
	r := NewRingBuffer(4)

	r.OnBytesReceived([]byte("abcdef")) // 2 lost, latch set
	if n := r.OnBytesReceived([]byte("x")); n != 0 {
		t.Errorf("latched buffer accepted %d bytes", n)
	}
	if r.Dropped() != 3 {
		t.Errorf("expected 3 dropped, got %d", r.Dropped())
	}

	data, overflowed := r.DrainAvailable(nil)
	if string(data) != "abcd" || !overflowed {
		t.Errorf("drain = %q, %v", data, overflowed)
	}

	// Latch released
	if n := r.OnBytesReceived([]byte("yz")); n != 2 {
		t.Errorf("expected 2 accepted after drain, got %d", n)
	}
	data, overflowed = r.DrainAvailable(nil)
	if string(data) != "yz" || overflowed {
		t.Errorf("drain = %q, %v", data, overflowed)
	}
}

func TestRingBuffer_DrainAppendsToDst(t *testing.T) {
	r := NewRingBuffer(8)
	r.OnBytesReceived([]byte("cd"))

	dst := []byte("ab")
	data, _ := r.DrainAvailable(dst)
	if string(data) != "abcd" {
		t.Errorf("expected appended data, got %q", data)
	}
}

// TestRingBuffer_ConcurrentProducer checks that every accepted byte is drained
// exactly once and in order while a producer goroutine writes concurrently.
// Run with -race.
func TestRingBuffer_ConcurrentProducer(t *testing.T) {
	r := NewRingBuffer(64)

	const total = 20000
	var expected bytes.Buffer
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		chunk := make([]byte, 7)
		seq := byte(0)
		for sent := 0; sent < total; sent += len(chunk) {
			for i := range chunk {
				chunk[i] = seq
				seq++
			}
			n := r.OnBytesReceived(chunk)
			expected.Write(chunk[:n])
		}
	}()

	var got []byte
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	finished := false
	for !finished {
		select {
		case <-done:
			finished = true
		default:
		}
		got, _ = r.DrainAvailable(got)
	}
	got, _ = r.DrainAvailable(got)

	if !bytes.Equal(got, expected.Bytes()) {
		t.Fatalf("drained %d bytes, producer accepted %d", len(got), expected.Len())
	}
	if uint64(len(got))+r.Dropped() != r.Received() {
		t.Errorf("received %d != drained %d + dropped %d", r.Received(), len(got), r.Dropped())
	}
}

// TestRingBuffer_PendingFromObserver reads Pending from a third goroutine
// while bytes flow through the buffer. Every snapshot must lie in
// [0, Capacity].
func TestRingBuffer_PendingFromObserver(t *testing.T) {
	r := NewRingBuffer(32)

	var stop atomic.Bool
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		chunk := []byte("get_status\r\n")
		for !stop.Load() {
			r.OnBytesReceived(chunk)
		}
	}()
	go func() {
		defer wg.Done()
		var scratch []byte
		for !stop.Load() {
			scratch, _ = r.DrainAvailable(scratch[:0])
		}
	}()

	for i := 0; i < 200000; i++ {
		if p := r.Pending(); p < 0 || p > r.Capacity() {
			stop.Store(true)
			wg.Wait()
			t.Fatalf("pending %d outside [0, %d]", p, r.Capacity())
		}
	}
	stop.Store(true)
	wg.Wait()
}
