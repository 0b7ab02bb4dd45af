// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Thermoquad/devrunner/pkg/devlink"
	"gopkg.in/yaml.v3"
)

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Transport: TransportConfig{
			Baud: 115200,
		},
		Protocol: ProtocolConfig{
			BufferSize:     devlink.BufferSize,
			MaxCommandLen:  devlink.MaxCommandLen,
			MaxResponseLen: devlink.MaxResponseLen,
			OverlongPolicy: devlink.OverlongTruncate.String(),
		},
		Defaults: DefaultsConfig{
			Param1: Hex32(devlink.DefaultParam1),
			Param2: Hex32(devlink.DefaultParam2),
			Param3: Hex32(devlink.DefaultParam3),
		},
		Device: DeviceConfig{
			DNA: devlink.DefaultDNA.String(),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads a YAML file over the defaults. Unknown keys are errors.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Dump renders the configuration as YAML
func Dump(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}
