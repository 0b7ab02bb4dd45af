// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/Thermoquad/devrunner/pkg/devlink"
	"github.com/rs/zerolog"
)

// Protocol limit bounds
const (
	minBufferSize     = 16
	minResponseLen    = 16
	maxProtocolLength = 1 << 20
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	// ------------------------------------------------------------
	// TRANSPORT
	// ------------------------------------------------------------

	if cfg.Transport.Baud < 0 {
		return fmt.Errorf("transport.baud must be positive, got %d", cfg.Transport.Baud)
	}
	if cfg.Transport.URL != "" {
		u, err := url.Parse(cfg.Transport.URL)
		if err != nil {
			return fmt.Errorf("transport.url: %v", err)
		}
		if u.Scheme != "ws" && u.Scheme != "wss" {
			return fmt.Errorf("transport.url: unsupported scheme %q (use ws:// or wss://)", u.Scheme)
		}
	}

	// ------------------------------------------------------------
	// PROTOCOL LIMITS (zero selects the built-in value)
	// ------------------------------------------------------------

	p := cfg.Protocol
	if err := checkLimit("protocol.buffer_size", p.BufferSize, minBufferSize); err != nil {
		return err
	}
	if err := checkLimit("protocol.max_command_len", p.MaxCommandLen, 1); err != nil {
		return err
	}
	if err := checkLimit("protocol.max_response_len", p.MaxResponseLen, minResponseLen); err != nil {
		return err
	}

	// A whole command line plus its terminator must fit in the buffer
	buffer := orDefault(p.BufferSize, devlink.BufferSize)
	command := orDefault(p.MaxCommandLen, devlink.MaxCommandLen)
	if command+2 > buffer {
		return fmt.Errorf(
			"protocol.max_command_len %d does not fit protocol.buffer_size %d",
			command,
			buffer,
		)
	}

	if _, ok := devlink.ParseOverlongPolicy(strings.ToLower(strings.TrimSpace(p.OverlongPolicy))); !ok {
		return fmt.Errorf("protocol.overlong_policy: unknown policy %q (use reject or truncate)", p.OverlongPolicy)
	}

	// ------------------------------------------------------------
	// DEVICE
	// ------------------------------------------------------------

	if cfg.Device.RunDelay < 0 {
		return fmt.Errorf("device.run_delay must not be negative")
	}
	if cfg.Device.CaptureDelay < 0 {
		return fmt.Errorf("device.capture_delay must not be negative")
	}
	if cfg.Device.DNA != "" {
		if _, err := devlink.ParseDNA(strings.TrimSpace(cfg.Device.DNA)); err != nil {
			return fmt.Errorf("device.dna: %v", err)
		}
	}

	// ------------------------------------------------------------
	// AGENT
	// ------------------------------------------------------------

	if cfg.Agent.PollInterval < 0 {
		return fmt.Errorf("agent.poll_interval must not be negative")
	}
	if cfg.Agent.HTTPListen != "" {
		if _, _, err := net.SplitHostPort(cfg.Agent.HTTPListen); err != nil {
			return fmt.Errorf("agent.http_listen: %v", err)
		}
	}

	// ------------------------------------------------------------
	// LOGGING
	// ------------------------------------------------------------

	if level := strings.TrimSpace(cfg.Log.Level); level != "" {
		if _, err := zerolog.ParseLevel(strings.ToLower(level)); err != nil {
			return fmt.Errorf("log.level: %v", err)
		}
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Log.Format)) {
	case "", "console", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q (use console or json)", cfg.Log.Format)
	}

	return nil
}

func checkLimit(name string, v, lo int) error {
	if v == 0 {
		return nil
	}
	if v < lo || v > maxProtocolLength {
		return fmt.Errorf("%s must be between %d and %d, got %d", name, lo, maxProtocolLength, v)
	}
	return nil
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
