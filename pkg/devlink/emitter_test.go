// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package devlink

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

// ============================================================
// Test Writers
// ============================================================

// failingWriter rejects every write
type failingWriter struct{ err error }

func (w *failingWriter) Write(p []byte) (int, error) {
	return 0, w.err
}

// shortWriter accepts at most limit bytes per write
type shortWriter struct {
	limit int
	buf   bytes.Buffer
}

func (w *shortWriter) Write(p []byte) (int, error) {
	if len(p) > w.limit {
		p = p[:w.limit]
	}
	return w.buf.Write(p)
}

// ============================================================
// Emitter Tests
// ============================================================

func TestEmitter_AppendsCRLF(t *testing.T) {
	var buf bytes.Buffer
	e := NewEmitter(&buf, 0)

	if err := e.Emit(RespReady); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.Emit(RespInitOK); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.String() != "READY\r\nINIT_OK\r\n" {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestEmitter_TruncatesLongResponse(t *testing.T) {
	var buf bytes.Buffer
	e := NewEmitter(&buf, 16)

	if err := e.Emit(strings.Repeat("x", 40)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.Len() != 16 {
		t.Errorf("expected 16 bytes on the wire, got %d", buf.Len())
	}
	if !strings.HasSuffix(buf.String(), "\r\n") {
		t.Errorf("terminator lost in truncation: %q", buf.String())
	}
}

func TestEmitter_WriteError(t *testing.T) {
	cause := errors.New("link down")
	e := NewEmitter(&failingWriter{err: cause}, 0)

	err := e.Emit(RespOK)
	if !errors.Is(err, cause) {
		t.Errorf("expected wrapped cause, got %v", err)
	}
}

func TestEmitter_ShortWrite(t *testing.T) {
	w := &shortWriter{limit: 3}
	e := NewEmitter(w, 0)

	err := e.Emit(RespExitOK)
	if !errors.Is(err, io.ErrShortWrite) {
		t.Errorf("expected io.ErrShortWrite, got %v", err)
	}
}

// ============================================================
// Formatter Tests
// ============================================================

func TestFormatStatus(t *testing.T) {
	got := FormatStatus(StatusIdle, DefaultParameters())
	expected := "STATUS: IDLE, P1: 0x00000001, P2: 0x43C00000, P3: 0x00001000"
	if got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
}

func TestParseStatusLine(t *testing.T) {
	line := "STATUS: COMPLETED, P1: 0x00000003, P2: 0x10000000, P3: 0x00000020"
	status, p, err := ParseStatusLine(line)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusCompleted {
		t.Errorf("expected COMPLETED, got %s", status)
	}
	expected := ParameterSet{Param1: 3, Param2: 0x10000000, Param3: 0x20}
	if p != expected {
		t.Errorf("expected %+v, got %+v", expected, p)
	}

	for _, bad := range []string{"READY", "STATUS: IDLE", "STATUS: NAP, P1: 0x1, P2: 0x2, P3: 0x3"} {
		if _, _, err := ParseStatusLine(bad); err == nil {
			t.Errorf("ParseStatusLine(%q) should fail", bad)
		}
	}
}

func TestFormatHelp(t *testing.T) {
	got := FormatHelp([]string{"init", "help"})
	if got != "HELP: Available commands: init, help" {
		t.Errorf("unexpected help %q", got)
	}
}

func TestFormatDataSummary(t *testing.T) {
	c := Capture{Base: 0x43C00000, Size: 8, Words: []uint32{0x12345678, 0x23456789}}
	lines := FormatDataSummary(StatusCompleted, DefaultParameters(), c)

	checks := []string{
		"Param1 (Height): 0x00000001 (Short)",
		"Application Status: COMPLETED",
		"Memory Region: 0x43C00000 - 0x43C00007",
		"0x43C00004: 0x23456789",
	}
	joined := strings.Join(lines, "\n")
	for _, want := range checks {
		if !strings.Contains(joined, want) {
			t.Errorf("summary missing %q:\n%s", want, joined)
		}
	}
}
