// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Thermoquad/devrunner/pkg/devlink"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"
)

var (
	consoleLocal   bool
	consoleTimeout int
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive line-edited command console",
	Long: `Type protocol commands and see each response.

By default commands are sent to an agent over the connection. With --local
an in-process engine is used instead, which needs no transport.

Tab completes command and parameter names. History is kept in
~/.devrunner_history. Ctrl-C or Ctrl-D quits; sending exit also quits.`,
	RunE: runConsole,
}

func init() {
	consoleCmd.Flags().BoolVar(&consoleLocal, "local", false, "Use an in-process engine instead of a connection")
	consoleCmd.Flags().IntVar(&consoleTimeout, "timeout", 5, "Timeout in seconds for each response")
	rootCmd.AddCommand(consoleCmd)
}

// commandRunner executes one command line and returns the response line
type commandRunner func(ctx context.Context, line string) (resp string, exit bool, err error)

func runConsole(cmd *cobra.Command, args []string) error {
	var run commandRunner
	var names []string
	var info string

	if consoleLocal {
		engine := newAgentEngine(io.Discard)
		names = engine.Commands()
		info = "local engine"
		run = func(ctx context.Context, line string) (string, bool, error) {
			resp := engine.Execute(ctx, line)
			return resp.Text, resp.Exit, nil
		}
	} else {
		conn, connInfo, err := OpenConnection()
		if err != nil {
			return err
		}
		client := devlink.NewClient(conn)
		defer client.Close()

		info = connInfo
		names = remoteCommands(client)
		run = func(ctx context.Context, line string) (string, bool, error) {
			resp, err := client.Send(ctx, line)
			return resp, resp == devlink.RespExitOK, err
		}
	}

	shell := liner.NewLiner()
	defer shell.Close()

	shell.SetCtrlCAborts(true)
	shell.SetCompleter(newCompleter(names))

	historyFile := consoleHistoryPath()
	if f, err := os.Open(historyFile); err == nil {
		shell.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			shell.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Printf("Devrunner console (%s)\n", info)
	fmt.Println("Type \"help\" for commands, Ctrl-D to quit.")

	for {
		input, err := shell.Prompt("> ")
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			fmt.Println()
			return nil
		}
		if err != nil {
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		shell.AppendHistory(input)

		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(consoleTimeout)*time.Second)
		resp, exit, err := run(ctx, input)
		cancel()
		if err != nil {
			fmt.Printf("! %v\n", err)
			if errors.Is(err, devlink.ErrClientClosed) {
				return nil
			}
			continue
		}

		fmt.Println(resp)
		if exit {
			return nil
		}
	}
}

// remoteCommands asks the agent for its command table. READY lines still
// queued from start-up are skipped.
func remoteCommands(client *devlink.Client) []string {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.SendLine(devlink.CmdHelp); err == nil {
		if line, err := client.WaitFor(ctx, devlink.PrefixHelp); err == nil {
			return strings.Split(strings.TrimPrefix(line, devlink.PrefixHelp), ", ")
		}
	}
	return devlink.NewDispatcher(false).Names()
}

// newCompleter completes command names, then parameter names for set_param.
// Names are case-sensitive on the wire, so matching is too.
func newCompleter(names []string) liner.Completer {
	params := []string{"param1", "param2", "param3"}

	return func(line string) (c []string) {
		if rest, ok := strings.CutPrefix(line, devlink.CmdSetParam+" "); ok {
			for _, p := range params {
				if strings.HasPrefix(p, strings.TrimSpace(rest)) {
					c = append(c, devlink.CmdSetParam+" "+p+" ")
				}
			}
			return
		}
		for _, name := range names {
			if strings.HasPrefix(name, line) {
				c = append(c, name)
			}
		}
		return
	}
}

func consoleHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".devrunner_history"
	}
	return filepath.Join(home, ".devrunner_history")
}
