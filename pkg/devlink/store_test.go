// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package devlink

import (
	"encoding/json"
	"testing"
)

// ============================================================
// Store Tests
// ============================================================

func TestStore_InitialState(t *testing.T) {
	s := NewStore(DefaultParameters())

	if s.Status() != StatusIdle {
		t.Errorf("expected IDLE, got %s", s.Status())
	}
	p := s.Params()
	if p.Param1 != 0x1 || p.Param2 != 0x43C00000 || p.Param3 != 0x1000 {
		t.Errorf("unexpected defaults %+v", p)
	}
}

func TestStore_SetKeepsStatus(t *testing.T) {
	s := NewStore(DefaultParameters())
	s.SetStatus(StatusCompleted)

	if !s.Set(Param2, 0x10000000) {
		t.Fatal("Set rejected a valid parameter")
	}
	if s.Params().Param2 != 0x10000000 {
		t.Errorf("param2 not updated: 0x%X", s.Params().Param2)
	}
	if s.Status() != StatusCompleted {
		t.Errorf("Set changed status to %s", s.Status())
	}
	if s.Set(ParamID(9), 1) {
		t.Error("Set accepted an unknown parameter")
	}
}

func TestStore_ResetRestoresConfiguredDefaults(t *testing.T) {
	defaults := ParameterSet{Param1: HeightTall, Param2: 0x80000000, Param3: 0x20}
	s := NewStore(defaults)

	s.Set(Param1, 0x7)
	s.Set(Param3, 0x99)
	s.SetStatus(StatusRunning)
	s.Reset()

	if s.Params() != defaults {
		t.Errorf("expected %+v, got %+v", defaults, s.Params())
	}
	if s.Status() != StatusInitialized {
		t.Errorf("expected INITIALIZED, got %s", s.Status())
	}
}

func TestStore_TransitionObserver(t *testing.T) {
	s := NewStore(DefaultParameters())

	var seen []Transition
	s.OnTransition(func(tr Transition) {
		seen = append(seen, tr)
	})

	s.Reset()
	s.SetStatus(StatusRunning)
	s.SetStatus(StatusCompleted)

	expected := []Transition{
		{From: StatusIdle, To: StatusInitialized},
		{From: StatusInitialized, To: StatusRunning},
		{From: StatusRunning, To: StatusCompleted},
	}
	if len(seen) != len(expected) {
		t.Fatalf("expected %d transitions, got %d", len(expected), len(seen))
	}
	for i := range expected {
		if seen[i] != expected[i] {
			t.Errorf("transition %d: expected %+v, got %+v", i, expected[i], seen[i])
		}
	}
}

func TestStatus_Names(t *testing.T) {
	tests := []struct {
		status Status
		name   string
	}{
		{StatusIdle, "IDLE"},
		{StatusInitialized, "INITIALIZED"},
		{StatusRunning, "RUNNING"},
		{StatusCompleted, "COMPLETED"},
		{StatusExiting, "EXITING"},
	}
	for _, tt := range tests {
		if tt.status.String() != tt.name {
			t.Errorf("expected %s, got %s", tt.name, tt.status)
		}
		parsed, ok := ParseStatus(tt.name)
		if !ok || parsed != tt.status {
			t.Errorf("ParseStatus(%q) = %v, %v", tt.name, parsed, ok)
		}
	}
	if _, ok := ParseStatus("idle"); ok {
		t.Error("status names are case sensitive")
	}
}

func TestStatus_JSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Status Status `json:"status"`
	}{StatusRunning})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `{"status":"RUNNING"}` {
		t.Errorf("unexpected JSON %s", data)
	}

	var decoded struct {
		Status Status `json:"status"`
	}
	if err := json.Unmarshal([]byte(`{"status":"EXITING"}`), &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded.Status != StatusExiting {
		t.Errorf("expected EXITING, got %s", decoded.Status)
	}
}

func TestHeightName(t *testing.T) {
	names := map[uint32]string{1: "Short", 2: "Medium", 3: "Tall", 0: "Unknown", 4: "Unknown"}
	for code, name := range names {
		if HeightName(code) != name {
			t.Errorf("HeightName(%d) = %s, expected %s", code, HeightName(code), name)
		}
	}
}
