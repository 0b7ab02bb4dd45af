// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package devlink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Engine is the device agent protocol engine. It owns every piece of
// protocol state; the only part touched by the producer is the ring buffer.
//
// Typical use:
//
//	engine := devlink.NewEngine(port, devlink.NewSimulatedDevice())
//	go func() {
//	    buf := make([]byte, 256)
//	    for {
//	        n, err := port.Read(buf)
//	        if err != nil {
//	            return
//	        }
//	        engine.OnBytesReceived(buf[:n])
//	    }
//	}()
//	err := engine.Run(ctx)
type Engine struct {
	cfg Config
	log zerolog.Logger

	ring       *RingBuffer
	framer     *Framer
	dispatcher *Dispatcher
	state      *State
	emitter    *Emitter
	stats      *Statistics

	notify      chan struct{}
	exited      atomic.Bool
	inputClosed atomic.Bool
	started bool
	scratch []byte

	published atomic.Pointer[publishedState]
}

type publishedState struct {
	status Status
	params ParameterSet
}

// Snapshot is the engine state as seen from other goroutines
type Snapshot struct {
	Status Status        `json:"status"`
	Params ParameterSet  `json:"params"`
	Exited bool          `json:"exited"`
	Stats  StatsSnapshot `json:"stats"`
}

// NewEngine creates an engine writing responses to w and delegating
// hardware operations to device.
func NewEngine(w io.Writer, device Device, opts ...Option) *Engine {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	e := &Engine{
		cfg:        cfg,
		log:        cfg.Logger,
		ring:       NewRingBuffer(cfg.BufferSize),
		framer:     NewFramer(cfg.MaxCommandLen, cfg.OverlongPolicy),
		dispatcher: NewDispatcher(cfg.Diagnostics),
		emitter:    NewEmitter(w, cfg.MaxResponseLen),
		stats:      NewStatistics(),
		notify:     make(chan struct{}, 1),
	}
	e.scratch = make([]byte, 0, e.ring.Capacity())

	store := NewStore(cfg.Defaults)
	store.OnTransition(e.onTransition)
	e.state = NewState(store, device, cfg.Logger)
	e.publish()

	return e
}

// OnBytesReceived is the producer entry point. It copies what fits into the
// ingestion buffer and wakes the consumer loop without blocking.
func (e *Engine) OnBytesReceived(chunk []byte) int {
	n := e.ring.OnBytesReceived(chunk)
	select {
	case e.notify <- struct{}{}:
	default:
	}
	return n
}

// ErrInputClosed is returned by Run after CloseInput once the remaining
// input has been answered
var ErrInputClosed = errors.New("input closed")

// CloseInput tells the consumer loop that the producer has delivered its
// last byte. Run finishes the commands already buffered and returns
// ErrInputClosed. Commands in flight are not cancelled.
func (e *Engine) CloseInput() {
	e.inputClosed.Store(true)
	select {
	case e.notify <- struct{}{}:
	default:
	}
}

// Start emits READY. Only the first call writes anything.
func (e *Engine) Start() error {
	if e.started {
		return nil
	}
	e.started = true
	return e.emit(RespReady)
}

// Step runs one consumer iteration: drain, frame, dispatch, emit.
// Bytes that follow an exit command in the same drain are ignored.
// The first emission failure is returned after the iteration completes.
func (e *Engine) Step(ctx context.Context) error {
	if e.exited.Load() {
		return nil
	}

	data, overflowed := e.ring.DrainAvailable(e.scratch[:0])
	e.scratch = data[:0]

	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	for _, b := range data {
		if e.exited.Load() {
			break
		}

		line, err := e.framer.PushByte(b)
		if err != nil {
			e.stats.OverlongLines.Add(1)
			e.log.Warn().Err(err).Msg("command line rejected")
			var perr *ProtocolError
			if errors.As(err, &perr) {
				record(e.emit(perr.Response()))
			}
			continue
		}
		if line == nil {
			continue
		}

		e.stats.LinesFramed.Add(1)
		if line.Truncated {
			e.stats.TruncatedLines.Add(1)
			e.log.Warn().Int("max_len", e.cfg.MaxCommandLen).Msg("command line truncated")
		}

		resp := e.Execute(ctx, line.Text)
		record(e.emit(resp.Text))
	}

	if overflowed && !e.exited.Load() {
		e.framer.Resync()
		e.stats.Resyncs.Add(1)
		e.log.Warn().
			Uint64("dropped_total", e.ring.Dropped()).
			Msg("ingestion buffer overflow, resynchronizing at next terminator")
	}

	e.publish()
	return firstErr
}

// Run emits READY and then steps on every wakeup until exit is dispatched,
// the input is closed or ctx is cancelled. Emission failures are logged and
// counted but do not stop the loop. Returns nil after exit, ErrInputClosed
// once everything delivered before CloseInput has been answered, and
// ctx.Err() after cancellation.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.Start(); err != nil {
		e.log.Error().Err(err).Msg("failed to announce readiness")
	}

	var tick <-chan time.Time
	if e.cfg.PollInterval > 0 {
		ticker := time.NewTicker(e.cfg.PollInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		// Loaded before the drain: every byte pushed before CloseInput is
		// then part of this step
		closed := e.inputClosed.Load()

		if err := e.Step(ctx); err != nil {
			e.log.Error().Err(err).Msg("response emission failed")
		}
		if e.exited.Load() {
			e.log.Info().Msg("exit requested, consumer loop stopped")
			return nil
		}
		if closed {
			if partial := e.framer.Partial(); len(partial) > 0 {
				e.log.Warn().Int("bytes", len(partial)).Msg("unterminated command at end of input")
			}
			e.log.Info().Msg("input closed, consumer loop stopped")
			return ErrInputClosed
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.notify:
		case <-tick:
		}
	}
}

// Execute parses and dispatches one command line without touching the
// transport. It is the entry point for a local console. Must be called from
// the consumer goroutine.
func (e *Engine) Execute(ctx context.Context, line string) Response {
	cmd := Parse(line)
	e.stats.Commands.Add(1)

	resp := e.dispatcher.Dispatch(ctx, e.state, cmd)
	if resp.Err != nil {
		e.countError(resp.Err)
		e.log.Debug().Str("command", cmd.Name).Err(resp.Err).Msg("command failed")
	} else {
		e.log.Debug().Str("command", cmd.Name).Str("response", resp.Text).Msg("command handled")
	}

	if resp.Exit {
		e.exited.Store(true)
	}
	e.publish()
	return resp
}

func (e *Engine) countError(err error) {
	var perr *ProtocolError
	if !errors.As(err, &perr) {
		return
	}
	switch perr.Kind {
	case ErrKindUnknownCommand:
		e.stats.UnknownCommands.Add(1)
	case ErrKindMissingArguments, ErrKindUnknownParameter, ErrKindInvalidFormat:
		e.stats.ParseErrors.Add(1)
	case ErrKindRunFailed, ErrKindCaptureFailed, ErrKindDNAFailed:
		e.stats.DeviceErrors.Add(1)
	}
}

func (e *Engine) emit(text string) error {
	if err := e.emitter.Emit(text); err != nil {
		e.stats.EmitErrors.Add(1)
		return fmt.Errorf("response %q: %w", text, err)
	}
	e.stats.Responses.Add(1)
	return nil
}

func (e *Engine) onTransition(t Transition) {
	e.log.Debug().Stringer("from", t.From).Stringer("to", t.To).Msg("status changed")
	e.publish()
}

func (e *Engine) publish() {
	e.published.Store(&publishedState{
		status: e.state.Store.Status(),
		params: e.state.Store.Params(),
	})
}

// Exited reports whether exit has been dispatched
func (e *Engine) Exited() bool {
	return e.exited.Load()
}

// Snapshot returns the most recently published state. Safe from any goroutine.
func (e *Engine) Snapshot() Snapshot {
	p := e.published.Load()
	return Snapshot{
		Status: p.status,
		Params: p.params,
		Exited: e.exited.Load(),
		Stats:  e.stats.Snapshot(e.ring),
	}
}

// Store returns the parameter/status store. Consumer goroutine only.
func (e *Engine) Store() *Store {
	return e.state.Store
}

// Commands returns the registered command names
func (e *Engine) Commands() []string {
	return e.dispatcher.Names()
}

// Statistics returns the live counters
func (e *Engine) Statistics() *Statistics {
	return e.stats
}

// Buffer returns the ingestion buffer
func (e *Engine) Buffer() *RingBuffer {
	return e.ring
}
