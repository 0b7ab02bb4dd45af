// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package devlink

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// State is the context object owned by the consumer loop and handed to
// every handler. Nothing in it is shared with the producer.
type State struct {
	Store  *Store
	Device Device
	Log    zerolog.Logger

	exitRequested bool
}

// NewState creates handler state around a store and device
func NewState(store *Store, device Device, log zerolog.Logger) *State {
	return &State{Store: store, Device: device, Log: log}
}

// ExitRequested reports whether exit has been dispatched
func (s *State) ExitRequested() bool {
	return s.exitRequested
}

// Response is the typed result of a dispatched command
type Response struct {
	Text string
	Err  error // cause of an ERROR response, nil on success
	Exit bool  // the consumer loop must stop after emitting Text
}

func okResponse(text string) Response {
	return Response{Text: text}
}

func errorResponse(err *ProtocolError) Response {
	return Response{Text: err.Response(), Err: err}
}

// HandlerFunc executes one command. Handlers always return a Response.
type HandlerFunc func(ctx context.Context, st *State, cmd ParsedCommand) Response

// Dispatcher maps command names to handlers
type Dispatcher struct {
	table map[string]HandlerFunc
	names []string // registration order, used by help
}

// NewDispatcher creates the command table. The diagnostics commands
// (output_data, device_dna) are registered only when diagnostics is true.
func NewDispatcher(diagnostics bool) *Dispatcher {
	d := &Dispatcher{table: make(map[string]HandlerFunc)}

	d.register(CmdInit, handleInit)
	d.register(CmdRunApp, handleRunApp)
	d.register(CmdSetParam, handleSetParam)
	d.register(CmdGetStatus, handleGetStatus)
	d.register(CmdCaptureRAM, handleCaptureRAM)
	if diagnostics {
		d.register(CmdOutputData, handleOutputData)
		d.register(CmdDeviceDNA, handleDeviceDNA)
	}
	d.register(CmdExit, handleExit)
	d.register(CmdHelp, d.handleHelp)

	return d
}

func (d *Dispatcher) register(name string, h HandlerFunc) {
	d.table[name] = h
	d.names = append(d.names, name)
}

// Names returns the registered command names in registration order
func (d *Dispatcher) Names() []string {
	out := make([]string, len(d.names))
	copy(out, d.names)
	return out
}

// Lookup returns the handler registered for an exact name
func (d *Dispatcher) Lookup(name string) (HandlerFunc, bool) {
	h, ok := d.table[name]
	return h, ok
}

// Dispatch runs the handler for cmd. Unknown names produce
// "ERROR: Unknown command" without touching state.
func (d *Dispatcher) Dispatch(ctx context.Context, st *State, cmd ParsedCommand) Response {
	h, ok := d.table[cmd.Name]
	if !ok {
		return errorResponse(newProtocolError(ErrKindUnknownCommand, "%q", cmd.Name))
	}
	return h(ctx, st, cmd)
}

//////////////////////////////////////////////////////////////
// Handlers
//////////////////////////////////////////////////////////////

func handleInit(ctx context.Context, st *State, cmd ParsedCommand) Response {
	st.Store.Reset()
	return okResponse(RespInitOK)
}

func handleRunApp(ctx context.Context, st *State, cmd ParsedCommand) Response {
	prev := st.Store.Status()
	params := st.Store.Params()

	st.Log.Debug().
		Str("p1", hex32(params.Param1)).
		Str("p2", hex32(params.Param2)).
		Str("p3", hex32(params.Param3)).
		Msg("running application")

	st.Store.SetStatus(StatusRunning)
	if err := st.Device.Run(ctx, params); err != nil {
		st.Store.SetStatus(prev)
		return errorResponse(newProtocolError(ErrKindRunFailed, "%v", err))
	}
	st.Store.SetStatus(StatusCompleted)

	return okResponse(RespRunOK)
}

func handleSetParam(ctx context.Context, st *State, cmd ParsedCommand) Response {
	id, value, err := ParseSetParam(cmd)
	if err != nil {
		var perr *ProtocolError
		if !errors.As(err, &perr) {
			perr = newProtocolError(ErrKindInvalidFormat, "%v", err)
		}
		return errorResponse(perr)
	}
	st.Store.Set(id, value)
	st.Log.Debug().Str("param", id.String()).Str("value", hex32(value)).Msg("parameter set")
	return okResponse(RespParamSetOK)
}

func handleGetStatus(ctx context.Context, st *State, cmd ParsedCommand) Response {
	return okResponse(FormatStatus(st.Store.Status(), st.Store.Params()))
}

func handleCaptureRAM(ctx context.Context, st *State, cmd ParsedCommand) Response {
	params := st.Store.Params()
	capture, err := st.Device.CaptureRAM(ctx, params.Param2, params.Param3)
	if err != nil {
		return errorResponse(newProtocolError(ErrKindCaptureFailed, "%v", err))
	}
	st.Log.Debug().
		Str("base", hex32(capture.Base)).
		Str("size", hex32(capture.Size)).
		Int("words", len(capture.Words)).
		Msg("RAM captured")
	return okResponse(RespRAMCaptureOK)
}

func handleOutputData(ctx context.Context, st *State, cmd ParsedCommand) Response {
	params := st.Store.Params()
	capture, err := st.Device.CaptureRAM(ctx, params.Param2, params.Param3)
	if err != nil {
		return errorResponse(newProtocolError(ErrKindCaptureFailed, "%v", err))
	}
	for _, line := range FormatDataSummary(st.Store.Status(), params, capture) {
		st.Log.Info().Msg(line)
	}
	return okResponse(RespOK)
}

func handleDeviceDNA(ctx context.Context, st *State, cmd ParsedCommand) Response {
	dna, err := st.Device.DeviceDNA(ctx)
	if err != nil {
		return errorResponse(newProtocolError(ErrKindDNAFailed, "%v", err))
	}
	return okResponse(FormatDeviceDNA(dna))
}

func handleExit(ctx context.Context, st *State, cmd ParsedCommand) Response {
	st.Store.SetStatus(StatusExiting)
	st.exitRequested = true
	return Response{Text: RespExitOK, Exit: true}
}

func (d *Dispatcher) handleHelp(ctx context.Context, st *State, cmd ParsedCommand) Response {
	return okResponse(FormatHelp(d.names))
}
