// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package mocks contains in-memory connections of the ws package.
package mocks

import (
	"sync"

	"github.com/absmach/farmgate/ws"
)

var _ ws.Channel = (*Channel)(nil)

// CloseFrame records the close frame a Channel received.
type CloseFrame struct {
	Code   int
	Reason string
}

// Channel records the frames written to it.
type Channel struct {
	mu       sync.Mutex
	messages [][]byte
	closes   chan CloseFrame
	err      error
}

// NewChannel returns an open in-memory channel. Sends fail with err when it
// is not nil.
func NewChannel(err error) *Channel {
	return &Channel{
		closes: make(chan CloseFrame, 1),
		err:    err,
	}
}

func (c *Channel) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.err != nil {
		return c.err
	}
	msg := make([]byte, len(payload))
	copy(msg, payload)
	c.messages = append(c.messages, msg)

	return nil
}

func (c *Channel) Close(code int, reason string) error {
	select {
	case c.closes <- CloseFrame{Code: code, Reason: reason}:
	default:
	}

	return nil
}

// Messages returns the frames sent so far.
func (c *Channel) Messages() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([][]byte(nil), c.messages...)
}

// Closes delivers the first close frame.
func (c *Channel) Closes() <-chan CloseFrame {
	return c.closes
}
