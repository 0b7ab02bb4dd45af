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
	pingTimeout int
	pingCount   int
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Time get_status round trips to an agent",
	Long: `Send get_status to the agent and wait for the STATUS response.

get_status has no side effects, so it is safe to use against an agent that is
in the middle of a session. Each reply is decoded and its round-trip time
reported.

Exit codes:
  0 - All pings successful
  1 - One or more pings failed/timed out
  2 - Connection error`,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().IntVar(&pingTimeout, "timeout", 5, "Timeout in seconds for each ping")
	pingCmd.Flags().IntVar(&pingCount, "count", 3, "Number of pings to send")
}

func runPing(cmd *cobra.Command, args []string) error {
	// Open connection (serial or WebSocket)
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}

	fmt.Printf("Devrunner - Ping\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds per ping\n", pingTimeout)
	fmt.Printf("Count: %d pings\n\n", pingCount)

	client := devlink.NewClient(conn)
	successCount := 0
	failCount := 0
	var totalRTT time.Duration

	for i := 1; i <= pingCount; i++ {
		fmt.Printf("Ping %d/%d: ", i, pingCount)

		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(pingTimeout)*time.Second)
		start := time.Now()
		status, params, err := pingOnce(ctx, client)
		rtt := time.Since(start)
		cancel()

		switch {
		case errors.Is(err, context.DeadlineExceeded):
			fmt.Printf("TIMEOUT (no response in %ds)\n", pingTimeout)
			failCount++
		case err != nil:
			fmt.Printf("FAILED: %v\n", err)
			failCount++
		default:
			fmt.Printf("%s P1=0x%08X P2=0x%08X P3=0x%08X, rtt=%v\n",
				status, params.Param1, params.Param2, params.Param3, rtt.Round(time.Microsecond))
			successCount++
			totalRTT += rtt
		}

		// Small delay between pings
		if i < pingCount {
			time.Sleep(100 * time.Millisecond)
		}
	}
	client.Close()

	// Summary
	fmt.Printf("\n--- Ping statistics ---\n")
	fmt.Printf("%d pings sent, %d responses received, %.0f%% loss\n",
		pingCount, successCount, float64(failCount)/float64(pingCount)*100)
	if successCount > 0 {
		fmt.Printf("average rtt %v\n", (totalRTT / time.Duration(successCount)).Round(time.Microsecond))
	}

	if failCount > 0 {
		os.Exit(1)
	}
	return nil
}

// pingOnce sends get_status, skipping unsolicited READY lines
func pingOnce(ctx context.Context, client *devlink.Client) (devlink.Status, devlink.ParameterSet, error) {
	if err := client.SendLine(devlink.CmdGetStatus); err != nil {
		return 0, devlink.ParameterSet{}, err
	}
	for {
		line, err := client.Next(ctx)
		if err != nil {
			return 0, devlink.ParameterSet{}, err
		}
		if line == devlink.RespReady {
			continue
		}
		return devlink.ParseStatusLine(line)
	}
}
