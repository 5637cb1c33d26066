// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package ws_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/absmach/farmgate/logger"
	"github.com/absmach/farmgate/pkg/errors"
	svcerr "github.com/absmach/farmgate/pkg/errors/service"
	"github.com/absmach/farmgate/pkg/protocol"
	"github.com/absmach/farmgate/ws"
	"github.com/absmach/farmgate/ws/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const controllerID = "5d2f8a9c-0b1e-4f3a-8c7d-6e5f4a3b2c1d"

func TestBindSupersedes(t *testing.T) {
	reg := ws.NewRegistry(logger.NewMock())
	old, cur := mocks.NewChannel(nil), mocks.NewChannel(nil)

	reg.Bind(controllerID, old)
	reg.Bind(controllerID, cur)

	select {
	case frame := <-old.Closes():
		assert.Equal(t, mocks.CloseFrame{Code: ws.CloseSuperseded, Reason: "superseded by a newer connection"}, frame)
	case <-time.After(time.Second):
		t.Fatal("superseded channel was not closed")
	}

	err := reg.Send(controllerID, []byte("ping"))
	require.Nil(t, err, fmt.Sprintf("unexpected error: %s", err))
	assert.Equal(t, [][]byte{[]byte("ping")}, cur.Messages())
	assert.Empty(t, old.Messages())
}

func TestBindSameChannel(t *testing.T) {
	reg := ws.NewRegistry(logger.NewMock())
	ch := mocks.NewChannel(nil)

	reg.Bind(controllerID, ch)
	reg.Bind(controllerID, ch)

	select {
	case <-ch.Closes():
		t.Fatal("rebinding the live channel must not close it")
	case <-time.After(100 * time.Millisecond):
	}
	assert.True(t, reg.Connected(controllerID))
}

func TestSend(t *testing.T) {
	reg := ws.NewRegistry(logger.NewMock())
	errWrite := errors.New("broken pipe")
	reg.Bind("broken", mocks.NewChannel(errWrite))

	cases := []struct {
		desc         string
		controllerID string
		err          error
	}{
		{desc: "send to unbound controller", controllerID: controllerID, err: svcerr.ErrNotConnected},
		{desc: "send to failing channel", controllerID: "broken", err: errWrite},
	}

	for _, tc := range cases {
		err := reg.Send(tc.controllerID, []byte("ping"))
		assert.True(t, errors.Contains(err, tc.err), fmt.Sprintf("%s: expected %s got %s", tc.desc, tc.err, err))
	}
}

func TestUnbind(t *testing.T) {
	reg := ws.NewRegistry(logger.NewMock())
	old, cur := mocks.NewChannel(nil), mocks.NewChannel(nil)
	reg.Bind(controllerID, old)
	reg.Bind(controllerID, cur)

	assert.False(t, reg.Unbind(controllerID, old), "stale channel must not unbind the live one")
	assert.True(t, reg.Connected(controllerID))

	assert.True(t, reg.Unbind(controllerID, cur))
	assert.False(t, reg.Connected(controllerID))
	assert.False(t, reg.Unbind(controllerID, cur), "unbinding twice must be a no-op")

	err := reg.Send(controllerID, []byte("ping"))
	assert.True(t, errors.Contains(err, svcerr.ErrNotConnected), fmt.Sprintf("expected %s got %s", svcerr.ErrNotConnected, err))
}

func TestConcurrentBind(t *testing.T) {
	reg := ws.NewRegistry(logger.NewMock())
	n := 50
	channels := make([]*mocks.Channel, n)
	for i := range channels {
		channels[i] = mocks.NewChannel(nil)
	}

	var wg sync.WaitGroup
	for _, ch := range channels {
		wg.Add(1)
		go func(ch *mocks.Channel) {
			defer wg.Done()
			reg.Bind(controllerID, ch)
		}(ch)
	}
	wg.Wait()

	closed := 0
	deadline := time.After(2 * time.Second)
	for closed < n-1 {
		progress := false
		for _, ch := range channels {
			select {
			case <-ch.Closes():
				closed++
				progress = true
			default:
			}
		}
		if progress {
			continue
		}
		select {
		case <-deadline:
			t.Fatalf("expected %d superseded channels, got %d", n-1, closed)
		case <-time.After(10 * time.Millisecond):
		}
	}

	require.Nil(t, reg.Send(controllerID, []byte("ping")))
	received := 0
	for _, ch := range channels {
		received += len(ch.Messages())
	}
	assert.Equal(t, 1, received, "exactly one channel must stay bound")
}

func TestDispatch(t *testing.T) {
	reg := ws.NewRegistry(logger.NewMock())
	d := ws.NewDispatcher(reg)

	var empty protocol.Batch
	err := d.Dispatch(context.Background(), controllerID, empty.Command("req"))
	assert.Nil(t, err, "empty commands must not be sent")

	var batch protocol.Batch
	batch.StopTask(protocol.EntityRef{UUID: controllerID})
	cmd := batch.Command("req")

	err = d.Dispatch(context.Background(), controllerID, cmd)
	assert.True(t, errors.Contains(err, svcerr.ErrNotConnected), fmt.Sprintf("expected %s got %s", svcerr.ErrNotConnected, err))

	ch := mocks.NewChannel(nil)
	reg.Bind(controllerID, ch)
	err = d.Dispatch(context.Background(), controllerID, cmd)
	require.Nil(t, err, fmt.Sprintf("unexpected error: %s", err))
	require.Len(t, ch.Messages(), 1)

	var sent map[string]interface{}
	require.Nil(t, json.Unmarshal(ch.Messages()[0], &sent))
	assert.Equal(t, "cmd", sent["type"])
	assert.Equal(t, "req", sent["request_id"])
	assert.NotContains(t, sent, "peripheral")
}
