// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Thermoquad/devrunner/pkg/devlink"
	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	agentStdio       bool
	agentHTTPListen  string
	agentDiagnostics bool
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the device agent protocol engine",
	Long: `Run the device agent on a serial port, a WebSocket bridge or stdio.

The agent announces READY, then answers every CR/LF terminated command line
with exactly one CRLF terminated response until it receives exit or is
interrupted. Logs are written to stderr and never mix with responses.

Examples:
  devrunner agent --stdio
  devrunner agent --port /dev/ttyUSB0 --http :6005
  devrunner agent --config devrunner.yaml --diagnostics`,
	RunE: runAgent,
}

func init() {
	agentCmd.Flags().BoolVar(&agentStdio, "stdio", false, "Use stdin/stdout as the transport")
	agentCmd.Flags().StringVar(&agentHTTPListen, "http", "", "Serve the read-only status endpoint on this address")
	agentCmd.Flags().BoolVar(&agentDiagnostics, "diagnostics", false, "Register output_data and device_dna")
	rootCmd.AddCommand(agentCmd)
}

func runAgent(cmd *cobra.Command, args []string) error {
	var conn Connection
	var connInfo string
	if agentStdio {
		conn, connInfo = OpenStdioConnection()
		if term.IsTerminal(int(os.Stdin.Fd())) {
			fmt.Fprintln(os.Stderr, "Type commands followed by Enter, exit to quit.")
		}
	} else {
		var err error
		conn, connInfo, err = OpenConnection()
		if err != nil {
			return err
		}
	}
	defer conn.Close()

	if cmd.Flags().Changed("http") {
		settings.Agent.HTTPListen = agentHTTPListen
	}
	if cmd.Flags().Changed("diagnostics") {
		settings.Agent.Diagnostics = agentDiagnostics
	}

	engine := newAgentEngine(conn)
	log.Info().
		Str("transport", connInfo).
		Strs("commands", engine.Commands()).
		Msg("agent starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var status *statusServer
	if settings.Agent.HTTPListen != "" {
		status = newStatusServer(settings.Agent.HTTPListen, engine)
		status.start()
	}

	notifySystemd(daemon.SdNotifyReady)
	err := serveEngine(ctx, conn, engine)
	notifySystemd(daemon.SdNotifyStopping)

	if status != nil {
		status.shutdown()
	}

	snap := engine.Snapshot()
	log.Info().
		Stringer("status", snap.Status).
		Bool("exited", snap.Exited).
		Msg("agent stopped")
	fmt.Fprint(os.Stderr, snap.Stats.String())

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// serveEngine runs the consumer loop over r until exit, cancellation or end
// of input. End of input lets the commands already received finish; only ctx
// cancels a command in flight.
func serveEngine(ctx context.Context, r io.Reader, engine *devlink.Engine) error {
	go func() {
		err := pumpTransport(r, engine)
		if err != nil && !errors.Is(err, io.EOF) {
			log.Warn().Err(err).Msg("transport read failed")
		} else {
			log.Info().Msg("transport closed")
		}
		engine.CloseInput()
	}()

	err := engine.Run(ctx)
	if errors.Is(err, devlink.ErrInputClosed) {
		return nil
	}
	return err
}

// newAgentEngine wires the merged settings into an engine
func newAgentEngine(w io.Writer) *devlink.Engine {
	device := devlink.NewSimulatedDevice()
	device.RunDelay = settings.Device.RunDelay
	device.CaptureDelay = settings.Device.CaptureDelay
	device.DNA = settings.DeviceDNA()

	p := settings.Protocol
	return devlink.NewEngine(w, device,
		devlink.WithLogger(log.Logger.With().Str("component", "engine").Logger()),
		devlink.WithBufferSize(p.BufferSize),
		devlink.WithMaxCommandLen(p.MaxCommandLen),
		devlink.WithMaxResponseLen(p.MaxResponseLen),
		devlink.WithOverlongPolicy(settings.OverlongPolicy()),
		devlink.WithDefaults(settings.ParameterDefaults()),
		devlink.WithDiagnostics(settings.Agent.Diagnostics),
		devlink.WithPollInterval(settings.Agent.PollInterval),
	)
}

// pumpTransport reads until the transport fails. Bytes that do not fit in
// the ingestion buffer are dropped by the engine.
func pumpTransport(r io.Reader, engine *devlink.Engine) error {
	buf := make([]byte, 256)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if accepted := engine.OnBytesReceived(buf[:n]); accepted < n {
				log.Debug().Int("dropped", n-accepted).Msg("ingestion buffer full")
			}
		}
		if err != nil {
			return err
		}
	}
}

// notifySystemd reports state when running under a notify-type unit
func notifySystemd(state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		log.Warn().Err(err).Str("state", state).Msg("sd_notify failed")
		return
	}
	if sent {
		log.Debug().Str("state", state).Msg("sd_notify sent")
	}
}
