// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package devlink

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Statistics tracks engine counters. Counters are atomic so other
// goroutines may read them while the consumer loop updates them.
type Statistics struct {
	startNanos atomic.Int64

	LinesFramed     atomic.Uint64
	OverlongLines   atomic.Uint64
	TruncatedLines  atomic.Uint64
	Resyncs         atomic.Uint64
	Commands        atomic.Uint64
	UnknownCommands atomic.Uint64
	ParseErrors     atomic.Uint64
	DeviceErrors    atomic.Uint64
	Responses       atomic.Uint64
	EmitErrors      atomic.Uint64
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	s := &Statistics{}
	s.startNanos.Store(time.Now().UnixNano())
	return s
}

// StatsSnapshot is a point-in-time copy of the counters
type StatsSnapshot struct {
	Uptime          time.Duration `json:"uptime_ns"`
	BytesReceived   uint64        `json:"bytes_received"`
	BytesDropped    uint64        `json:"bytes_dropped"`
	LinesFramed     uint64        `json:"lines_framed"`
	OverlongLines   uint64        `json:"overlong_lines"`
	TruncatedLines  uint64        `json:"truncated_lines"`
	Resyncs         uint64        `json:"resyncs"`
	Commands        uint64        `json:"commands"`
	UnknownCommands uint64        `json:"unknown_commands"`
	ParseErrors     uint64        `json:"parse_errors"`
	DeviceErrors    uint64        `json:"device_errors"`
	Responses       uint64        `json:"responses"`
	EmitErrors      uint64        `json:"emit_errors"`
	CommandRate     float64       `json:"command_rate"` // commands/sec
}

// Snapshot copies the counters. Byte counters come from the ingestion
// buffer, which owns them.
func (s *Statistics) Snapshot(buf *RingBuffer) StatsSnapshot {
	snap := StatsSnapshot{
		Uptime:          time.Since(time.Unix(0, s.startNanos.Load())),
		LinesFramed:     s.LinesFramed.Load(),
		OverlongLines:   s.OverlongLines.Load(),
		TruncatedLines:  s.TruncatedLines.Load(),
		Resyncs:         s.Resyncs.Load(),
		Commands:        s.Commands.Load(),
		UnknownCommands: s.UnknownCommands.Load(),
		ParseErrors:     s.ParseErrors.Load(),
		DeviceErrors:    s.DeviceErrors.Load(),
		Responses:       s.Responses.Load(),
		EmitErrors:      s.EmitErrors.Load(),
	}
	if buf != nil {
		snap.BytesReceived = buf.Received()
		snap.BytesDropped = buf.Dropped()
	}
	if elapsed := snap.Uptime.Seconds(); elapsed > 0 {
		snap.CommandRate = float64(snap.Commands) / elapsed
	}
	return snap
}

// String returns a formatted statistics summary
func (s StatsSnapshot) String() string {
	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", s.Uptime.Seconds())
	result += fmt.Sprintf("Bytes Received:  %8d\n", s.BytesReceived)
	if s.BytesDropped > 0 {
		result += fmt.Sprintf("Bytes Dropped:   %8d\n", s.BytesDropped)
	}
	result += fmt.Sprintf("Lines Framed:    %8d\n", s.LinesFramed)
	if s.OverlongLines > 0 {
		result += fmt.Sprintf("Overlong Lines:  %8d\n", s.OverlongLines)
	}
	if s.TruncatedLines > 0 {
		result += fmt.Sprintf("Truncated Lines: %8d\n", s.TruncatedLines)
	}
	if s.Resyncs > 0 {
		result += fmt.Sprintf("Resyncs:         %8d\n", s.Resyncs)
	}
	result += fmt.Sprintf("Commands:        %8d\n", s.Commands)
	if s.UnknownCommands > 0 {
		result += fmt.Sprintf("  Unknown:          %5d\n", s.UnknownCommands)
	}
	if s.ParseErrors > 0 {
		result += fmt.Sprintf("  Parse Errors:     %5d\n", s.ParseErrors)
	}
	if s.DeviceErrors > 0 {
		result += fmt.Sprintf("  Device Errors:    %5d\n", s.DeviceErrors)
	}
	result += fmt.Sprintf("Responses:       %8d\n", s.Responses)
	if s.EmitErrors > 0 {
		result += fmt.Sprintf("Emit Errors:     %8d\n", s.EmitErrors)
	}
	result += fmt.Sprintf("Command Rate:    %8.1f cmds/sec\n", s.CommandRate)
	result += "================================\n"
	return result
}

// Reset zeroes all counters
func (s *Statistics) Reset() {
	s.startNanos.Store(time.Now().UnixNano())
	s.LinesFramed.Store(0)
	s.OverlongLines.Store(0)
	s.TruncatedLines.Store(0)
	s.Resyncs.Store(0)
	s.Commands.Store(0)
	s.UnknownCommands.Store(0)
	s.ParseErrors.Store(0)
	s.DeviceErrors.Store(0)
	s.Responses.Store(0)
	s.EmitErrors.Store(0)
}
