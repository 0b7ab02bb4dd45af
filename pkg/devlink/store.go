// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package devlink

import "fmt"

// Status is the device status reported by get_status
type Status int

// Status values
const (
	StatusIdle Status = iota
	StatusInitialized
	StatusRunning
	StatusCompleted
	StatusExiting
)

// String returns the wire name of the status
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "IDLE"
	case StatusInitialized:
		return "INITIALIZED"
	case StatusRunning:
		return "RUNNING"
	case StatusCompleted:
		return "COMPLETED"
	case StatusExiting:
		return "EXITING"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the status as its wire name
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a wire name
func (s *Status) UnmarshalText(text []byte) error {
	v, ok := ParseStatus(string(text))
	if !ok {
		return fmt.Errorf("unknown status %q", text)
	}
	*s = v
	return nil
}

// ParseStatus maps a wire name back to a Status
func ParseStatus(name string) (Status, bool) {
	for s := StatusIdle; s <= StatusExiting; s++ {
		if s.String() == name {
			return s, true
		}
	}
	return StatusIdle, false
}

// ParamID names one field of the ParameterSet
type ParamID int

// Parameter identifiers
const (
	Param1 ParamID = iota + 1
	Param2
	Param3
)

// String returns the wire name of the parameter
func (p ParamID) String() string {
	switch p {
	case Param1:
		return "param1"
	case Param2:
		return "param2"
	case Param3:
		return "param3"
	default:
		return fmt.Sprintf("param(%d)", int(p))
	}
}

// ParseParamID maps an exact, case-sensitive wire name to a ParamID
func ParseParamID(name string) (ParamID, bool) {
	switch name {
	case "param1":
		return Param1, true
	case "param2":
		return Param2, true
	case "param3":
		return Param3, true
	}
	return 0, false
}

// ParameterSet holds the three configurable values
type ParameterSet struct {
	Param1 uint32 `json:"param1" yaml:"param1"` // height code
	Param2 uint32 `json:"param2" yaml:"param2"` // base address
	Param3 uint32 `json:"param3" yaml:"param3"` // size in bytes
}

// DefaultParameters returns the reset values
func DefaultParameters() ParameterSet {
	return ParameterSet{
		Param1: DefaultParam1,
		Param2: DefaultParam2,
		Param3: DefaultParam3,
	}
}

// Get returns one field
func (p ParameterSet) Get(id ParamID) uint32 {
	switch id {
	case Param1:
		return p.Param1
	case Param2:
		return p.Param2
	case Param3:
		return p.Param3
	}
	return 0
}

// HeightName describes the param1 height code
func HeightName(code uint32) string {
	switch code {
	case HeightShort:
		return "Short"
	case HeightMedium:
		return "Medium"
	case HeightTall:
		return "Tall"
	default:
		return "Unknown"
	}
}

// Transition records one status change
type Transition struct {
	From Status
	To   Status
}

// Store holds the parameter set and device status. It belongs to the
// consumer loop and is not safe for concurrent use.
type Store struct {
	defaults ParameterSet
	params   ParameterSet
	status   Status

	onTransition func(Transition)
}

// NewStore creates a store in the Idle state holding defaults
func NewStore(defaults ParameterSet) *Store {
	return &Store{
		defaults: defaults,
		params:   defaults,
		status:   StatusIdle,
	}
}

// Params returns a copy of the current parameters
func (s *Store) Params() ParameterSet {
	return s.params
}

// Status returns the current status
func (s *Store) Status() Status {
	return s.status
}

// Defaults returns the values restored by Reset
func (s *Store) Defaults() ParameterSet {
	return s.defaults
}

// Reset restores the default parameters and moves to Initialized
func (s *Store) Reset() {
	s.params = s.defaults
	s.SetStatus(StatusInitialized)
}

// Set changes one parameter. The status is unchanged.
func (s *Store) Set(id ParamID, value uint32) bool {
	switch id {
	case Param1:
		s.params.Param1 = value
	case Param2:
		s.params.Param2 = value
	case Param3:
		s.params.Param3 = value
	default:
		return false
	}
	return true
}

// SetStatus changes the status and notifies the transition observer
func (s *Store) SetStatus(next Status) {
	prev := s.status
	s.status = next
	if s.onTransition != nil {
		s.onTransition(Transition{From: prev, To: next})
	}
}

// OnTransition installs an observer called after every SetStatus
func (s *Store) OnTransition(fn func(Transition)) {
	s.onTransition = fn
}
