// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"strings"
	"time"

	"github.com/Thermoquad/devrunner/pkg/devlink"
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	// Zero limits select the built-in values
	cfg.Protocol.BufferSize = orDefault(cfg.Protocol.BufferSize, devlink.BufferSize)
	cfg.Protocol.MaxCommandLen = orDefault(cfg.Protocol.MaxCommandLen, devlink.MaxCommandLen)
	cfg.Protocol.MaxResponseLen = orDefault(cfg.Protocol.MaxResponseLen, devlink.MaxResponseLen)

	cfg.Protocol.OverlongPolicy = normalizeName(cfg.Protocol.OverlongPolicy, devlink.OverlongTruncate.String())
	cfg.Log.Level = normalizeName(cfg.Log.Level, "info")
	cfg.Log.Format = normalizeName(cfg.Log.Format, "console")

	if cfg.Transport.Baud == 0 {
		cfg.Transport.Baud = 115200
	}

	cfg.Device.DNA = strings.TrimSpace(cfg.Device.DNA)
	if cfg.Device.DNA == "" {
		cfg.Device.DNA = devlink.DefaultDNA.String()
	}

	// Wakeups drive the loop; the poll is a backstop
	if cfg.Agent.PollInterval == 0 {
		cfg.Agent.PollInterval = 100 * time.Millisecond
	}
}

func normalizeName(v, def string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return def
	}
	return v
}

// ParameterDefaults returns the configured init values
func (c *Config) ParameterDefaults() devlink.ParameterSet {
	return devlink.ParameterSet{
		Param1: uint32(c.Defaults.Param1),
		Param2: uint32(c.Defaults.Param2),
		Param3: uint32(c.Defaults.Param3),
	}
}

// OverlongPolicy returns the parsed overlong policy. Call after Validate.
func (c *Config) OverlongPolicy() devlink.OverlongPolicy {
	policy, _ := devlink.ParseOverlongPolicy(c.Protocol.OverlongPolicy)
	return policy
}

// DeviceDNA returns the parsed device identifier. Call after Validate.
func (c *Config) DeviceDNA() devlink.DNA {
	dna, err := devlink.ParseDNA(c.Device.DNA)
	if err != nil {
		return devlink.DefaultDNA
	}
	return dna
}
