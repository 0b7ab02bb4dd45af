// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package devlink

// OverlongPolicy selects what the framer does with a line longer than the
// maximum command length
type OverlongPolicy int

const (
	// OverlongReject discards the whole line and skips to the next terminator
	OverlongReject OverlongPolicy = iota
	// OverlongTruncate emits the first maxLen bytes and starts a new line with the rest
	OverlongTruncate
)

// String returns the configuration name of the policy
func (p OverlongPolicy) String() string {
	switch p {
	case OverlongReject:
		return "reject"
	case OverlongTruncate:
		return "truncate"
	default:
		return "unknown"
	}
}

// ParseOverlongPolicy maps a configuration name to a policy
func ParseOverlongPolicy(name string) (OverlongPolicy, bool) {
	switch name {
	case "reject":
		return OverlongReject, true
	case "", "truncate":
		return OverlongTruncate, true
	}
	return OverlongTruncate, false
}

// CommandLine is one framed command with its terminator stripped
type CommandLine struct {
	Text      string
	Truncated bool // cut at the maximum length (OverlongTruncate only)
}

// Framer states (internal)
const (
	frameCollect = iota // accumulating a line
	frameSkip           // discarding bytes up to the next terminator
)

// Framer extracts terminator-delimited command lines from a byte stream.
// The residual partial line survives between calls, so feeding a stream in
// any chunking yields the same lines.
type Framer struct {
	state  int
	buffer []byte
	maxLen int
	policy OverlongPolicy
}

// NewFramer creates a framer for lines of at most maxLen bytes.
// A non-positive maxLen selects MaxCommandLen.
func NewFramer(maxLen int, policy OverlongPolicy) *Framer {
	if maxLen <= 0 {
		maxLen = MaxCommandLen
	}
	return &Framer{
		state:  frameCollect,
		buffer: make([]byte, 0, maxLen),
		maxLen: maxLen,
		policy: policy,
	}
}

// Reset drops the partial line and returns to collecting
func (f *Framer) Reset() {
	f.state = frameCollect
	f.buffer = f.buffer[:0]
}

// Resync drops the partial line and discards input up to the next terminator.
// Used after the ingestion buffer lost bytes.
func (f *Framer) Resync() {
	f.buffer = f.buffer[:0]
	f.state = frameSkip
}

// Partial returns the bytes seen since the last terminator
func (f *Framer) Partial() []byte {
	return f.buffer
}

// PushByte processes a single byte.
// Returns a completed line, or nil if the line is incomplete.
// Returns ErrLineTooLong once per rejected over-length line.
func (f *Framer) PushByte(b byte) (*CommandLine, error) {
	if b == CR || b == LF {
		if f.state == frameSkip {
			f.state = frameCollect
			return nil, nil
		}
		if len(f.buffer) == 0 {
			// Empty line or second half of CRLF
			return nil, nil
		}
		line := &CommandLine{Text: string(f.buffer)}
		f.buffer = f.buffer[:0]
		return line, nil
	}

	switch f.state {
	case frameSkip:
		return nil, nil

	case frameCollect:
		if len(f.buffer) < f.maxLen {
			f.buffer = append(f.buffer, b)
			return nil, nil
		}

		if f.policy == OverlongTruncate {
			line := &CommandLine{Text: string(f.buffer), Truncated: true}
			f.buffer = append(f.buffer[:0], b)
			return line, nil
		}

		f.buffer = f.buffer[:0]
		f.state = frameSkip
		return nil, newProtocolError(ErrKindLineTooLong, "line exceeds %d bytes", f.maxLen)
	}
	return nil, nil
}

// Push frames every byte of data and returns the completed lines.
// Framing errors are returned after all bytes have been consumed, the first
// one winning.
func (f *Framer) Push(data []byte) ([]CommandLine, error) {
	var lines []CommandLine
	var firstErr error
	for _, b := range data {
		line, err := f.PushByte(b)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		if line != nil {
			lines = append(lines, *line)
		}
	}
	return lines, firstErr
}
