// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/devrunner/pkg/devlink"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display every response line received from an agent",
	Long: `Continuously frame and display response lines as they arrive.

Each line is printed with a timestamp. STATUS lines are decoded into the
status name and parameter values; ERROR lines are marked.

Supports both serial and WebSocket connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
}

func runRawLog(cmd *cobra.Command, args []string) error {
	// Open connection (serial or WebSocket)
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Devrunner - Raw Response Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	client := devlink.NewClient(conn)
	defer client.Close()

	for line := range client.Lines() {
		fmt.Print(formatLogLine(time.Now(), line))
	}

	if err := client.Err(); err != nil && !errors.Is(err, devlink.ErrClientClosed) {
		return fmt.Errorf("read failed: %w", err)
	}
	log.Info().Msg("connection closed")
	return nil
}

// formatLogLine renders one response line for the log
func formatLogLine(at time.Time, line string) string {
	ts := at.Format("15:04:05.000")

	if status, params, err := devlink.ParseStatusLine(line); err == nil {
		return fmt.Sprintf("[%s] STATUS %s\n  param1=0x%08X (%s)\n  param2=0x%08X\n  param3=0x%08X\n",
			ts, status, params.Param1, devlink.HeightName(params.Param1), params.Param2, params.Param3)
	}
	if msg, ok := strings.CutPrefix(line, devlink.PrefixError); ok {
		return fmt.Sprintf("[%s] [ERROR] %s\n", ts, msg)
	}
	return fmt.Sprintf("[%s] %s\n", ts, line)
}
