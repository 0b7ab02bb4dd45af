// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package devlink

import (
	"time"

	"github.com/rs/zerolog"
)

// Config holds the engine configuration
type Config struct {
	Logger zerolog.Logger

	// BufferSize is the ingestion buffer capacity in bytes
	BufferSize int

	// MaxCommandLen is the longest accepted command line, terminator excluded
	MaxCommandLen int

	// MaxResponseLen is the longest emitted response, terminator included
	MaxResponseLen int

	OverlongPolicy OverlongPolicy

	// Defaults are the parameter values restored by init
	Defaults ParameterSet

	// Diagnostics registers output_data and device_dna
	Diagnostics bool

	// PollInterval bounds how long Run sleeps without a wakeup.
	// Zero relies on wakeups alone.
	PollInterval time.Duration
}

func defaultConfig() Config {
	return Config{
		Logger:         zerolog.Nop(),
		BufferSize:     BufferSize,
		MaxCommandLen:  MaxCommandLen,
		MaxResponseLen: MaxResponseLen,
		OverlongPolicy: OverlongTruncate,
		Defaults:       DefaultParameters(),
	}
}

// Option is a functional option for configuring the Engine
type Option func(*Config)

// WithLogger sets the logger for engine events. Responses never go to the log.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithBufferSize sets the ingestion buffer capacity
func WithBufferSize(size int) Option {
	return func(c *Config) {
		c.BufferSize = size
	}
}

// WithMaxCommandLen sets the maximum command line length
func WithMaxCommandLen(n int) Option {
	return func(c *Config) {
		c.MaxCommandLen = n
	}
}

// WithMaxResponseLen sets the maximum response length
func WithMaxResponseLen(n int) Option {
	return func(c *Config) {
		c.MaxResponseLen = n
	}
}

// WithOverlongPolicy selects how over-length command lines are handled
func WithOverlongPolicy(p OverlongPolicy) Option {
	return func(c *Config) {
		c.OverlongPolicy = p
	}
}

// WithDefaults overrides the parameter defaults used at startup and by init
func WithDefaults(p ParameterSet) Option {
	return func(c *Config) {
		c.Defaults = p
	}
}

// WithDiagnostics enables the output_data and device_dna commands
func WithDiagnostics(enabled bool) Option {
	return func(c *Config) {
		c.Diagnostics = enabled
	}
}

// WithPollInterval makes Run check the buffer at least this often
func WithPollInterval(d time.Duration) Option {
	return func(c *Config) {
		c.PollInterval = d
	}
}
