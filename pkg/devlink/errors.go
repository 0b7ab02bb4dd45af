// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package devlink

import (
	"errors"
	"fmt"
)

// ErrorKind classifies protocol errors reported back to the host
type ErrorKind int

const (
	ErrKindMissingArguments ErrorKind = iota
	ErrKindUnknownParameter
	ErrKindInvalidFormat
	ErrKindUnknownCommand
	ErrKindLineTooLong
	ErrKindRunFailed
	ErrKindCaptureFailed
	ErrKindDNAFailed
)

// ProtocolError is a recoverable error surfaced to the host as an
// "ERROR: ..." response line
type ProtocolError struct {
	Kind ErrorKind

	// Detail carries context for logs; it never reaches the wire
	Detail string
}

func (e *ProtocolError) Error() string {
	if e.Detail == "" {
		return e.Kind.message()
	}
	return fmt.Sprintf("%s: %s", e.Kind.message(), e.Detail)
}

// Response returns the wire text for the error
func (e *ProtocolError) Response() string {
	return PrefixError + e.Kind.message()
}

// Is matches any ProtocolError of the same kind
func (e *ProtocolError) Is(target error) bool {
	t, ok := target.(*ProtocolError)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is
var (
	ErrMissingArguments = &ProtocolError{Kind: ErrKindMissingArguments}
	ErrUnknownParameter = &ProtocolError{Kind: ErrKindUnknownParameter}
	ErrInvalidFormat    = &ProtocolError{Kind: ErrKindInvalidFormat}
	ErrUnknownCommand   = &ProtocolError{Kind: ErrKindUnknownCommand}
	ErrLineTooLong      = &ProtocolError{Kind: ErrKindLineTooLong}
)

// IsProtocolError returns true if err is or wraps a ProtocolError
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

func newProtocolError(kind ErrorKind, format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// message returns the host-facing text for an error kind
func (k ErrorKind) message() string {
	switch k {
	case ErrKindMissingArguments:
		return "Missing parameter arguments"
	case ErrKindUnknownParameter:
		return "Unknown parameter name"
	case ErrKindInvalidFormat:
		return "Invalid parameter format"
	case ErrKindUnknownCommand:
		return "Unknown command"
	case ErrKindLineTooLong:
		return "Command too long"
	case ErrKindRunFailed:
		return "Run failed"
	case ErrKindCaptureFailed:
		return "RAM capture failed"
	case ErrKindDNAFailed:
		return "Device DNA read failed"
	default:
		return fmt.Sprintf("Error %d", int(k))
	}
}
