// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package devlink

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// Device is the hardware capability behind run_app, capture_ram and
// device_dna. The protocol engine does not know whether the operations are
// genuine or simulated.
type Device interface {
	// Run executes the application with the given parameters
	Run(ctx context.Context, params ParameterSet) error

	// CaptureRAM reads size bytes starting at base
	CaptureRAM(ctx context.Context, base, size uint32) (Capture, error)

	// DeviceDNA returns the 96-bit device identifier
	DeviceDNA(ctx context.Context) (DNA, error)
}

// Capture is the result of a RAM capture
type Capture struct {
	Base  uint32
	Size  uint32
	Words []uint32
}

// End returns the last address covered by the capture
func (c Capture) End() uint32 {
	if c.Size == 0 {
		return c.Base
	}
	return c.Base + c.Size - 1
}

// DNA is a 96-bit device identifier
type DNA struct {
	High uint32
	Mid  uint32
	Low  uint32
}

// String formats the identifier as 0x followed by 24 hex digits
func (d DNA) String() string {
	return fmt.Sprintf("0x%08X%08X%08X", d.High, d.Mid, d.Low)
}

// ParseDNA parses the String form, with or without the 0x prefix
func ParseDNA(s string) (DNA, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if len(s) != 24 {
		return DNA{}, fmt.Errorf("device DNA must be 24 hex digits, got %d", len(s))
	}
	var words [3]uint32
	for i := range words {
		v, err := strconv.ParseUint(s[i*8:(i+1)*8], 16, 32)
		if err != nil {
			return DNA{}, fmt.Errorf("invalid device DNA %q: %w", s, err)
		}
		words[i] = uint32(v)
	}
	return DNA{High: words[0], Mid: words[1], Low: words[2]}, nil
}

// Simulated defaults
var (
	DefaultDNA = DNA{High: 0x13579BDF, Mid: 0x9ABCDEF0, Low: 0x12345678}
)

const (
	simPatternBase = 0x12345678
	simPatternStep = 0x11111111

	// MaxCaptureWords bounds the words returned by a simulated capture
	MaxCaptureWords = 8
)

// SimulatedDevice stands in for hardware. Delays are cancellable timers;
// zero delays complete immediately.
type SimulatedDevice struct {
	RunDelay     time.Duration
	CaptureDelay time.Duration
	DNA          DNA

	// Optional failure injection
	RunErr     error
	CaptureErr error
}

// NewSimulatedDevice creates a simulated device with immediate completion
func NewSimulatedDevice() *SimulatedDevice {
	return &SimulatedDevice{DNA: DefaultDNA}
}

// Run waits for RunDelay and succeeds unless RunErr is set
func (d *SimulatedDevice) Run(ctx context.Context, params ParameterSet) error {
	if err := sleepContext(ctx, d.RunDelay); err != nil {
		return err
	}
	return d.RunErr
}

// CaptureRAM waits for CaptureDelay and returns the reference test pattern:
// word i holds 0x12345678 + i*0x11111111, at most MaxCaptureWords words.
func (d *SimulatedDevice) CaptureRAM(ctx context.Context, base, size uint32) (Capture, error) {
	if err := sleepContext(ctx, d.CaptureDelay); err != nil {
		return Capture{}, err
	}
	if d.CaptureErr != nil {
		return Capture{}, d.CaptureErr
	}

	count := size / 4
	if count > MaxCaptureWords {
		count = MaxCaptureWords
	}
	words := make([]uint32, count)
	for i := range words {
		words[i] = simPatternBase + uint32(i)*simPatternStep
	}
	return Capture{Base: base, Size: size, Words: words}, nil
}

// DeviceDNA returns the configured identifier
func (d *SimulatedDevice) DeviceDNA(ctx context.Context) (DNA, error) {
	if err := ctx.Err(); err != nil {
		return DNA{}, err
	}
	return d.DNA, nil
}

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
