// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package devlink

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSimulatedDevice_CapturePattern(t *testing.T) {
	d := NewSimulatedDevice()

	c, err := d.CaptureRAM(context.Background(), 0x43C00000, 0x1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.Words) != MaxCaptureWords {
		t.Fatalf("expected %d words, got %d", MaxCaptureWords, len(c.Words))
	}
	if c.Words[0] != 0x12345678 || c.Words[1] != 0x23456789 {
		t.Errorf("unexpected pattern 0x%08X 0x%08X", c.Words[0], c.Words[1])
	}

	small, _ := d.CaptureRAM(context.Background(), 0, 8)
	if len(small.Words) != 2 {
		t.Errorf("expected 2 words for 8 bytes, got %d", len(small.Words))
	}
}

func TestSimulatedDevice_DelayIsCancellable(t *testing.T) {
	d := NewSimulatedDevice()
	d.RunDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.Run(ctx, DefaultParameters())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestDNA_StringAndParse(t *testing.T) {
	if DefaultDNA.String() != "0x13579BDF9ABCDEF012345678" {
		t.Errorf("unexpected DNA %s", DefaultDNA)
	}

	parsed, err := ParseDNA("0x13579BDF9ABCDEF012345678")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed != DefaultDNA {
		t.Errorf("expected %s, got %s", DefaultDNA, parsed)
	}

	for _, bad := range []string{"", "0x1234", "0xZZ579BDF9ABCDEF012345678"} {
		if _, err := ParseDNA(bad); err == nil {
			t.Errorf("ParseDNA(%q) should fail", bad)
		}
	}
}
