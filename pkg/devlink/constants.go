// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package devlink implements the device runner line protocol.
//
// A host sends short ASCII commands terminated by CR or LF. The device agent
// buffers incoming bytes from an asynchronous producer, frames them into
// command lines, dispatches each command against an in-memory parameter and
// status model, and answers with exactly one CRLF-terminated response line.
package devlink

// Protocol size limits
const (
	MaxCommandLen  = 256  // bytes of command text, terminator excluded
	MaxResponseLen = 512  // bytes of response text, terminator included
	BufferSize     = 1024 // ingestion buffer capacity
)

// Line terminators
const (
	CR = '\r'
	LF = '\n'

	ResponseTerminator = "\r\n"
)

// Command names
const (
	CmdInit       = "init"
	CmdRunApp     = "run_app"
	CmdSetParam   = "set_param"
	CmdGetStatus  = "get_status"
	CmdCaptureRAM = "capture_ram"
	CmdExit       = "exit"
	CmdHelp       = "help"

	// Diagnostics, registered only with WithDiagnostics
	CmdOutputData = "output_data"
	CmdDeviceDNA  = "device_dna"
)

// Generic response codes
const (
	RespOK    = "OK"
	RespReady = "READY"
)

// Command-specific response codes
const (
	RespInitOK       = "INIT_OK"
	RespRunOK        = "RUN_OK"
	RespParamSetOK   = "PARAM_SET_OK"
	RespRAMCaptureOK = "RAM_CAPTURE_OK"
	RespExitOK       = "EXIT_OK"
)

// Response prefixes
const (
	PrefixStatus    = "STATUS: "
	PrefixHelp      = "HELP: Available commands: "
	PrefixDeviceDNA = "DEVICE_DNA: "
	PrefixError     = "ERROR: "
)

// Default parameter values
const (
	DefaultParam1 uint32 = 0x00000001 // height code: short
	DefaultParam2 uint32 = 0x43C00000 // base address
	DefaultParam3 uint32 = 0x00001000 // size in bytes
)

// Height codes carried in param1
const (
	HeightShort  uint32 = 1
	HeightMedium uint32 = 2
	HeightTall   uint32 = 3
)
