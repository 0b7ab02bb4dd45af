// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Thermoquad/devrunner/pkg/devlink"
)

const sampleConfig = `
transport:
  port: /dev/ttyUSB1
  baud: 921600
protocol:
  buffer_size: 2048
  overlong_policy: Truncate
defaults:
  param1: 0x3
  param2: "0x80000000"
  param3: 4096
device:
  run_delay: 250ms
  dna: "0x0123456789ABCDEF01234567"
agent:
  http_listen: "127.0.0.1:6005"
  diagnostics: true
log:
  level: debug
  format: json
`

// ---- load ----

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devrunner.yaml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	Normalize(cfg)

	if cfg.Transport.Port != "/dev/ttyUSB1" || cfg.Transport.Baud != 921600 {
		t.Errorf("unexpected transport %+v", cfg.Transport)
	}
	if cfg.Protocol.BufferSize != 2048 || cfg.Protocol.MaxCommandLen != devlink.MaxCommandLen {
		t.Errorf("unexpected protocol %+v", cfg.Protocol)
	}
	if cfg.OverlongPolicy() != devlink.OverlongTruncate {
		t.Errorf("expected truncate policy, got %s", cfg.OverlongPolicy())
	}

	expected := devlink.ParameterSet{Param1: 3, Param2: 0x80000000, Param3: 0x1000}
	if cfg.ParameterDefaults() != expected {
		t.Errorf("expected %+v, got %+v", expected, cfg.ParameterDefaults())
	}
	if cfg.Device.RunDelay != 250*time.Millisecond {
		t.Errorf("unexpected run delay %v", cfg.Device.RunDelay)
	}
	if cfg.DeviceDNA().String() != "0x0123456789ABCDEF01234567" {
		t.Errorf("unexpected DNA %s", cfg.DeviceDNA())
	}
	if !cfg.Agent.Diagnostics || cfg.Agent.HTTPListen != "127.0.0.1:6005" {
		t.Errorf("unexpected agent %+v", cfg.Agent)
	}
	if cfg.Agent.PollInterval == 0 {
		t.Error("poll interval not normalized")
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("unexpected log %+v", cfg.Log)
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParse_EmptyKeepsDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ParameterDefaults() != devlink.DefaultParameters() {
		t.Errorf("defaults changed: %+v", cfg.ParameterDefaults())
	}
	if cfg.Transport.Baud != 115200 {
		t.Errorf("unexpected baud %d", cfg.Transport.Baud)
	}
}

func TestParse_EmptyOverlongPolicyTruncates(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	Normalize(cfg)
	if cfg.OverlongPolicy() != devlink.OverlongTruncate {
		t.Errorf("expected truncate by default, got %s", cfg.OverlongPolicy())
	}

	cfg.Protocol.OverlongPolicy = ""
	Normalize(cfg)
	if cfg.Protocol.OverlongPolicy != "truncate" {
		t.Errorf("expected empty policy to normalize to truncate, got %q", cfg.Protocol.OverlongPolicy)
	}
}

func TestParse_UnknownKey(t *testing.T) {
	_, err := Parse([]byte("protocol:\n  buffer_sise: 10\n"))
	if err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestParse_BadHex(t *testing.T) {
	_, err := Parse([]byte("defaults:\n  param2: 0xZZ\n"))
	if err == nil || !strings.Contains(err.Error(), "invalid 32-bit value") {
		t.Fatalf("expected hex error, got %v", err)
	}

	_, err = Parse([]byte("defaults:\n  param2: 0x100000000\n"))
	if err == nil {
		t.Fatal("expected error for value wider than 32 bits")
	}
}

func TestDump_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Defaults.Param2 = 0x10000000
	cfg.Device.CaptureDelay = time.Second

	data, err := Dump(cfg)
	if err != nil {
		t.Fatalf("dump failed: %v", err)
	}
	if !strings.Contains(string(data), "param2: \"0x10000000\"") && !strings.Contains(string(data), "param2: 0x10000000") {
		t.Errorf("param2 not written as hex:\n%s", data)
	}

	back, err := Parse(data)
	if err != nil {
		t.Fatalf("parse of dump failed: %v", err)
	}
	if back.Defaults != cfg.Defaults || back.Device.CaptureDelay != time.Second {
		t.Errorf("round trip mismatch: %+v", back)
	}
}
