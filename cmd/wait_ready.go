// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Thermoquad/devrunner/pkg/devlink"
	"github.com/spf13/cobra"
)

var (
	waitReadyTimeout int
)

var waitReadyCmd = &cobra.Command{
	Use:   "wait_ready",
	Short: "Test connection by waiting for the agent's READY line",
	Long: `Wait for the agent to announce READY on the connection until timeout.

Any other response lines received before READY are counted and ignored. Use
this right after starting or resetting an agent to check that it came up.

Exit codes:
  0 - READY received before timeout
  1 - Timeout reached without READY
  2 - Connection error`,
	RunE: runWaitReady,
}

func init() {
	rootCmd.AddCommand(waitReadyCmd)
	waitReadyCmd.Flags().IntVar(&waitReadyTimeout, "timeout", 10, "Timeout in seconds to wait for READY")
}

func runWaitReady(cmd *cobra.Command, args []string) error {
	// Open connection (serial or WebSocket)
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}

	fmt.Printf("Devrunner - Wait Ready\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", waitReadyTimeout)
	fmt.Printf("Waiting for %s...\n\n", devlink.RespReady)

	client := devlink.NewClient(conn)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(waitReadyTimeout)*time.Second)
	defer cancel()

	start := time.Now()
	skipped := 0
	for {
		line, err := client.Next(ctx)
		if errors.Is(err, context.DeadlineExceeded) {
			fmt.Fprintf(os.Stderr, "TIMEOUT: no %s within %d seconds\n", devlink.RespReady, waitReadyTimeout)
			client.Close()
			os.Exit(1)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
			client.Close()
			os.Exit(2)
		}

		if line != devlink.RespReady {
			skipped++
			continue
		}

		if skipped > 0 {
			fmt.Printf("(skipped %d lines before %s)\n", skipped, devlink.RespReady)
		}
		fmt.Printf("SUCCESS: agent ready after %v\n", time.Since(start).Round(time.Millisecond))
		return nil
	}
}
