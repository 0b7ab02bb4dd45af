// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package devlink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// ErrClientClosed is returned once the client or its transport has closed
var ErrClientClosed = errors.New("client closed")

// Client is the host side of the protocol. A reader goroutine frames
// response lines from the transport; commands are written CRLF-terminated.
type Client struct {
	rw    io.ReadWriter
	lines chan string
	done  chan struct{}

	mu      sync.Mutex // serializes writes
	readErr error      // set before lines is closed

	closeOnce sync.Once
}

// NewClient starts reading responses from rw
func NewClient(rw io.ReadWriter) *Client {
	c := &Client{
		rw:    rw,
		lines: make(chan string, 64),
		done:  make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *Client) readLoop() {
	defer close(c.lines)

	// Responses are never rejected on the host side
	framer := NewFramer(MaxResponseLen, OverlongTruncate)
	buf := make([]byte, 256)

	for {
		n, err := c.rw.Read(buf)
		if n > 0 {
			lines, _ := framer.Push(buf[:n])
			for _, line := range lines {
				select {
				case c.lines <- line.Text:
				case <-c.done:
					return
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = ErrClientClosed
			}
			c.readErr = err
			return
		}
	}
}

// Lines returns the channel of received response lines. It is closed when
// the transport fails or the client is closed.
func (c *Client) Lines() <-chan string {
	return c.lines
}

// Err returns the read error after Lines has been closed
func (c *Client) Err() error {
	return c.readErr
}

// SendLine writes one command followed by CRLF
func (c *Client) SendLine(command string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data := make([]byte, 0, len(command)+len(ResponseTerminator))
	data = append(data, command...)
	data = append(data, ResponseTerminator...)

	n, err := c.rw.Write(data)
	if err != nil {
		return fmt.Errorf("send %q: %w", command, err)
	}
	if n < len(data) {
		return fmt.Errorf("send %q: %w", command, io.ErrShortWrite)
	}
	return nil
}

// Next waits for the next response line
func (c *Client) Next(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-c.lines:
		if !ok {
			if c.readErr != nil {
				return "", c.readErr
			}
			return "", ErrClientClosed
		}
		return line, nil
	}
}

// Send writes a command and returns the next response line
func (c *Client) Send(ctx context.Context, command string) (string, error) {
	if err := c.SendLine(command); err != nil {
		return "", err
	}
	return c.Next(ctx)
}

// WaitFor discards lines until one starts with prefix
func (c *Client) WaitFor(ctx context.Context, prefix string) (string, error) {
	for {
		line, err := c.Next(ctx)
		if err != nil {
			return "", err
		}
		if strings.HasPrefix(line, prefix) {
			return line, nil
		}
	}
}

// Status sends get_status and decodes the reply
func (c *Client) Status(ctx context.Context) (Status, ParameterSet, error) {
	line, err := c.Send(ctx, CmdGetStatus)
	if err != nil {
		return 0, ParameterSet{}, err
	}
	if msg, ok := strings.CutPrefix(line, PrefixError); ok {
		return 0, ParameterSet{}, fmt.Errorf("device error: %s", msg)
	}
	return ParseStatusLine(line)
}

// Close stops the reader and closes the transport if it is an io.Closer
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		if closer, ok := c.rw.(io.Closer); ok {
			err = closer.Close()
		}
	})
	return err
}
