// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package devlink

import (
	"fmt"
	"io"
	"strings"
)

// Emitter writes response lines to the transport
type Emitter struct {
	w      io.Writer
	maxLen int
	line   []byte
}

// NewEmitter creates an emitter writing lines of at most maxLen bytes,
// terminator included. A non-positive maxLen selects MaxResponseLen.
func NewEmitter(w io.Writer, maxLen int) *Emitter {
	if maxLen <= len(ResponseTerminator) {
		maxLen = MaxResponseLen
	}
	return &Emitter{
		w:      w,
		maxLen: maxLen,
		line:   make([]byte, 0, maxLen),
	}
}

// Emit appends CRLF to text and writes it in a single Write call.
// Over-long text is truncated. A short write returns io.ErrShortWrite.
func (e *Emitter) Emit(text string) error {
	limit := e.maxLen - len(ResponseTerminator)
	if len(text) > limit {
		text = text[:limit]
	}

	e.line = append(e.line[:0], text...)
	e.line = append(e.line, ResponseTerminator...)

	n, err := e.w.Write(e.line)
	if err != nil {
		return fmt.Errorf("emit %q: %w", text, err)
	}
	if n < len(e.line) {
		return fmt.Errorf("emit %q: wrote %d of %d bytes: %w", text, n, len(e.line), io.ErrShortWrite)
	}
	return nil
}

// FormatStatus renders the get_status response
func FormatStatus(status Status, p ParameterSet) string {
	return fmt.Sprintf("%s%s, P1: 0x%08X, P2: 0x%08X, P3: 0x%08X",
		PrefixStatus, status, p.Param1, p.Param2, p.Param3)
}

// FormatHelp renders the help response for the given command names
func FormatHelp(names []string) string {
	return PrefixHelp + strings.Join(names, ", ")
}

// FormatDeviceDNA renders the device_dna response
func FormatDeviceDNA(d DNA) string {
	return PrefixDeviceDNA + d.String()
}

// FormatDataSummary renders the output_data report, one line per entry
func FormatDataSummary(status Status, p ParameterSet, c Capture) []string {
	lines := []string{
		fmt.Sprintf("Param1 (Height): 0x%08X (%s)", p.Param1, HeightName(p.Param1)),
		fmt.Sprintf("Param2 (Base):   0x%08X", p.Param2),
		fmt.Sprintf("Param3 (Size):   0x%08X", p.Param3),
		fmt.Sprintf("Application Status: %s", status),
		fmt.Sprintf("Memory Region: 0x%08X - 0x%08X", c.Base, c.End()),
		fmt.Sprintf("Data Size: %d bytes", c.Size),
	}
	for i, w := range c.Words {
		lines = append(lines, fmt.Sprintf("0x%08X: 0x%08X", c.Base+uint32(i)*4, w))
	}
	return lines
}

// ParseStatusLine decodes a get_status response
func ParseStatusLine(line string) (Status, ParameterSet, error) {
	rest, ok := strings.CutPrefix(line, PrefixStatus)
	if !ok {
		return 0, ParameterSet{}, fmt.Errorf("not a status line: %q", line)
	}

	var name string
	var p ParameterSet
	// The status name never contains a comma
	comma := strings.IndexByte(rest, ',')
	if comma < 0 {
		return 0, ParameterSet{}, fmt.Errorf("malformed status line: %q", line)
	}
	name = rest[:comma]
	if _, err := fmt.Sscanf(rest[comma:], ", P1: 0x%X, P2: 0x%X, P3: 0x%X", &p.Param1, &p.Param2, &p.Param3); err != nil {
		return 0, ParameterSet{}, fmt.Errorf("malformed status line %q: %w", line, err)
	}

	status, ok := ParseStatus(name)
	if !ok {
		return 0, ParameterSet{}, fmt.Errorf("unknown status %q", name)
	}
	return status, p, nil
}

func hex32(v uint32) string {
	return fmt.Sprintf("0x%08X", v)
}
