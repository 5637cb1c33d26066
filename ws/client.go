// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package ws

import (
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second

	// Control frames carry at most 125 bytes, two of them hold the code.
	maxReasonSize = 123
)

var _ Channel = (*Client)(nil)

// Client is a Channel over a WebSocket connection.
type Client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// NewClient returns a new Client.
func NewClient(conn *websocket.Conn) *Client {
	return &Client{conn: conn}
}

// Send writes payload as a text message. Writes are serialized since the
// connection supports one concurrent writer.
func (c *Client) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}

	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Close sends the close frame and closes the underlying connection.
func (c *Client) Close(code int, reason string) error {
	reason = truncate(reason, maxReasonSize)
	msg := websocket.FormatCloseMessage(code, reason)
	err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	if err == websocket.ErrCloseSent {
		err = nil
	}
	if cerr := c.conn.Close(); err == nil {
		err = cerr
	}

	return err
}

// truncate cuts s to at most size bytes without splitting a rune.
func truncate(s string, size int) string {
	if len(s) <= size {
		return s
	}
	for size > 0 && !utf8.RuneStart(s[size]) {
		size--
	}
	return s[:size]
}
