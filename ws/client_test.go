// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package ws_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/absmach/farmgate/ws"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*ws.Client, *websocket.Conn) {
	clients := make(chan *ws.Client, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		clients <- ws.NewClient(conn)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	peer, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.Nil(t, err, "unexpected error dialing test server")
	t.Cleanup(func() { peer.Close() })

	return <-clients, peer
}

func TestClientSend(t *testing.T) {
	c, peer := newClient(t)

	err := c.Send([]byte(`{"type":"cmd"}`))
	require.Nil(t, err)

	typ, data, err := peer.ReadMessage()
	require.Nil(t, err)
	assert.Equal(t, websocket.TextMessage, typ)
	assert.Equal(t, `{"type":"cmd"}`, string(data))
}

func TestClientClose(t *testing.T) {
	cases := []struct {
		desc   string
		code   int
		reason string
		want   string
	}{
		{
			desc:   "close superseded connection",
			code:   ws.CloseSuperseded,
			reason: "superseded by a newer connection",
			want:   "superseded by a newer connection",
		},
		{
			desc:   "close with oversized reason",
			code:   ws.CloseHandlingError,
			reason: strings.Repeat("x", 200),
			want:   strings.Repeat("x", 123),
		},
		{
			desc:   "close with oversized multibyte reason",
			code:   ws.CloseHandlingError,
			reason: `unknown message type "` + strings.Repeat("é", 100) + `"`,
			want:   `unknown message type "` + strings.Repeat("é", 50),
		},
	}

	for _, tc := range cases {
		c, peer := newClient(t)

		err := c.Close(tc.code, tc.reason)
		assert.Nil(t, err, tc.desc)

		_, _, err = peer.ReadMessage()
		var ce *websocket.CloseError
		require.ErrorAs(t, err, &ce, tc.desc)
		assert.Equal(t, tc.code, ce.Code, tc.desc)
		assert.Equal(t, tc.want, ce.Text, tc.desc)
		assert.True(t, utf8.ValidString(ce.Text), tc.desc)

		err = c.Send([]byte("late"))
		assert.NotNil(t, err, tc.desc)
	}
}
