// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads the devrunner YAML configuration file.
//
// The life cycle is Load, then Validate, then Normalize. Command-line flags
// are applied by the caller afterwards and win over the file.
package config

import (
	"fmt"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Transport TransportConfig `yaml:"transport"`
	Protocol  ProtocolConfig  `yaml:"protocol"`
	Defaults  DefaultsConfig  `yaml:"defaults"`
	Device    DeviceConfig    `yaml:"device"`
	Agent     AgentConfig     `yaml:"agent"`
	Log       LogConfig       `yaml:"log"`
}

// ---- TRANSPORT ----

type TransportConfig struct {
	Port        string `yaml:"port"`
	Baud        int    `yaml:"baud"`
	URL         string `yaml:"url"`
	Username    string `yaml:"username"`
	NoSSLVerify bool   `yaml:"no_ssl_verify"`
}

// ---- PROTOCOL ----

type ProtocolConfig struct {
	BufferSize     int    `yaml:"buffer_size"`
	MaxCommandLen  int    `yaml:"max_command_len"`
	MaxResponseLen int    `yaml:"max_response_len"` // terminator included
	OverlongPolicy string `yaml:"overlong_policy"`  // reject | truncate
}

// ---- PARAMETER DEFAULTS ----

// DefaultsConfig overrides the values restored by init
type DefaultsConfig struct {
	Param1 Hex32 `yaml:"param1"`
	Param2 Hex32 `yaml:"param2"`
	Param3 Hex32 `yaml:"param3"`
}

// ---- SIMULATED DEVICE ----

type DeviceConfig struct {
	RunDelay     time.Duration `yaml:"run_delay"`
	CaptureDelay time.Duration `yaml:"capture_delay"`
	DNA          string        `yaml:"dna"` // 0x + 24 hex digits
}

// ---- AGENT ----

type AgentConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	HTTPListen   string        `yaml:"http_listen"` // empty disables the status endpoint
	Diagnostics  bool          `yaml:"diagnostics"`
}

// ---- LOGGING ----

type LogConfig struct {
	Level  string `yaml:"level"`  // zerolog level name
	Format string `yaml:"format"` // console | json
}

// Hex32 is a uint32 written in YAML as a hex string ("0x43C00000") or a
// plain integer
type Hex32 uint32

// UnmarshalYAML accepts any integer literal strconv understands with base 0
func (h *Hex32) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a scalar for a 32-bit value", value.Line)
	}
	v, err := strconv.ParseUint(value.Value, 0, 32)
	if err != nil {
		return fmt.Errorf("line %d: invalid 32-bit value %q", value.Line, value.Value)
	}
	*h = Hex32(v)
	return nil
}

// MarshalYAML writes the value as 0x%08X
func (h Hex32) MarshalYAML() (interface{}, error) {
	return h.String(), nil
}

func (h Hex32) String() string {
	return fmt.Sprintf("0x%08X", uint32(h))
}
