// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package devlink

import (
	"strconv"
	"strings"
)

// ParsedCommand is a framed line split into command name and argument
type ParsedCommand struct {
	Name        string
	Argument    string
	HasArgument bool
}

// Parse splits a line on its first space. Everything after that space is
// the argument, kept verbatim.
func Parse(line string) ParsedCommand {
	idx := strings.IndexByte(line, ' ')
	if idx < 0 {
		return ParsedCommand{Name: line}
	}
	return ParsedCommand{
		Name:        line[:idx],
		Argument:    line[idx+1:],
		HasArgument: true,
	}
}

// ParseSetParam parses the set_param argument "<param-name> 0x<hex-digits>".
// The shape is checked before the name, so "param9 0x1" is an unknown
// parameter while "param1 zz" is an invalid format.
func ParseSetParam(cmd ParsedCommand) (ParamID, uint32, error) {
	if !cmd.HasArgument {
		return 0, 0, newProtocolError(ErrKindMissingArguments, "set_param without arguments")
	}

	fields := strings.Fields(cmd.Argument)
	if len(fields) != 2 {
		return 0, 0, newProtocolError(ErrKindInvalidFormat, "expected 2 fields, got %d", len(fields))
	}

	name, raw := fields[0], fields[1]

	digits, ok := strings.CutPrefix(raw, "0x")
	if !ok || digits == "" {
		return 0, 0, newProtocolError(ErrKindInvalidFormat, "value %q is not 0x<hex>", raw)
	}

	value, err := strconv.ParseUint(digits, 16, 32)
	if err != nil {
		return 0, 0, newProtocolError(ErrKindInvalidFormat, "value %q: %v", raw, err)
	}

	id, ok := ParseParamID(name)
	if !ok {
		return 0, 0, newProtocolError(ErrKindUnknownParameter, "%q", name)
	}

	return id, uint32(value), nil
}
