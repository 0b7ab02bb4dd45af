// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import "testing"

// ---- tests ----

func TestValidate_Default(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("default config rejected: %v", err)
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative baud", func(c *Config) { c.Transport.Baud = -1 }},
		{"http url", func(c *Config) { c.Transport.URL = "http://host/ws" }},
		{"tiny buffer", func(c *Config) { c.Protocol.BufferSize = 4 }},
		{"command longer than buffer", func(c *Config) {
			c.Protocol.BufferSize = 64
			c.Protocol.MaxCommandLen = 64
		}},
		{"tiny response", func(c *Config) { c.Protocol.MaxResponseLen = 3 }},
		{"unknown policy", func(c *Config) { c.Protocol.OverlongPolicy = "wrap" }},
		{"negative delay", func(c *Config) { c.Device.RunDelay = -1 }},
		{"short dna", func(c *Config) { c.Device.DNA = "0x1234" }},
		{"listen without port", func(c *Config) { c.Agent.HTTPListen = "localhost" }},
		{"unknown level", func(c *Config) { c.Log.Level = "loud" }},
		{"unknown format", func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidate_DoesNotMutate(t *testing.T) {
	cfg := Default()
	cfg.Protocol.OverlongPolicy = " TRUNCATE "
	cfg.Protocol.BufferSize = 0

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Protocol.OverlongPolicy != " TRUNCATE " || cfg.Protocol.BufferSize != 0 {
		t.Errorf("Validate mutated config: %+v", cfg.Protocol)
	}

	Normalize(cfg)
	if cfg.Protocol.OverlongPolicy != "truncate" || cfg.Protocol.BufferSize != 1024 {
		t.Errorf("Normalize did not apply: %+v", cfg.Protocol)
	}
}
