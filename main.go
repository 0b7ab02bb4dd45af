// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Devrunner - device runner line protocol agent and host tools
//
// Runs the command/response protocol engine of a device agent on a serial,
// WebSocket or stdio transport, and provides host side tools to drive it.

package main

import (
	"os"

	"github.com/Thermoquad/devrunner/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
