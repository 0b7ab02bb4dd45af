// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/Thermoquad/devrunner/pkg/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Configuration and logging flags
	configPath string
	logLevel   string
	logFormat  string

	// settings is the merged configuration (file, then flags)
	settings = config.Default()
)

var rootCmd = &cobra.Command{
	Use:   "devrunner",
	Short: "Device runner line protocol agent and host tools",
	Long: `Devrunner - agent and host tools for the device runner line protocol.

The agent side runs the protocol engine on a byte-stream transport: it frames
CR/LF terminated ASCII commands, dispatches them against the parameter and
status model, and answers with one CRLF terminated response per command.

The host side commands talk to an agent: log every response line, wait for
READY, time get_status round trips, or drive the agent from an interactive
console or TUI.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 115200]
  WebSocket: --url ws://host/path [--username user]
  Stdio:     agent --stdio

Settings may also come from a YAML file (--config); flags win over the file.

For WebSocket authentication, the password is read from the DEVRUNNER_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Configuration and logging
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (console or json)")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// loadSettings reads the configuration file, applies flag overrides and
// sets up the global logger
func loadSettings(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
	}

	applyFlagOverrides(cmd, cfg)

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	config.Normalize(cfg)
	settings = cfg

	log.Logger = newLogger(cfg.Log, os.Stderr)
	log.Debug().Str("config", configPath).Msg("settings loaded")
	return nil
}

// applyFlagOverrides copies explicitly set flags over the file values
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Transport.Port = portName
	}
	if flags.Changed("baud") {
		cfg.Transport.Baud = baudRate
	}
	if flags.Changed("url") {
		cfg.Transport.URL = wsURL
	}
	if flags.Changed("username") {
		cfg.Transport.Username = wsUsername
	}
	if flags.Changed("no-ssl-verify") {
		cfg.Transport.NoSSLVerify = wsNoSSLVerify
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = logFormat
	}
}

// newLogger builds the process logger. Logs always go to w (stderr), never
// to the protocol transport.
func newLogger(lc config.LogConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(lc.Level)
	if err != nil || lc.Level == "" {
		level = zerolog.InfoLevel
	}

	out := w
	if lc.Format != "json" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05.000"}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
