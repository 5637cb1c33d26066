// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package ws_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/absmach/farmgate/logger"
	"github.com/absmach/farmgate/peripherals"
	pmocks "github.com/absmach/farmgate/peripherals/mocks"
	"github.com/absmach/farmgate/pkg/errors"
	repoerr "github.com/absmach/farmgate/pkg/errors/repository"
	svcerr "github.com/absmach/farmgate/pkg/errors/service"
	msgmocks "github.com/absmach/farmgate/pkg/messaging/mocks"
	pgmocks "github.com/absmach/farmgate/pkg/postgres/mocks"
	"github.com/absmach/farmgate/pkg/protocol"
	"github.com/absmach/farmgate/pkg/uuid"
	"github.com/absmach/farmgate/tasks"
	tmocks "github.com/absmach/farmgate/tasks/mocks"
	"github.com/absmach/farmgate/telemetry"
	telmocks "github.com/absmach/farmgate/telemetry/mocks"
	"github.com/absmach/farmgate/ws"
	"github.com/absmach/farmgate/ws/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const dataPointTypeID = "b6a4c0de-1f2e-4d3c-8b7a-6f5e4d3c2b1a"

type fixture struct {
	svc         ws.Service
	registry    *ws.Registry
	tasks       tasks.Service
	peripherals peripherals.Service
	telemetry   telemetry.Service
	publisher   *msgmocks.Publisher
}

// failingTasks fails every locked update of tasks.
type failingTasks struct {
	tasks.Repository
}

func (failingTasks) Update(context.Context, tasks.Query, tasks.UpdateFunc) error {
	return repoerr.ErrFailedOpDB
}

func newService() fixture {
	return newServiceWith(tmocks.NewRepository())
}

func newServiceWith(trepo tasks.Repository) fixture {
	idp := uuid.NewMock()
	prepo := pmocks.NewRepository()
	pub := new(msgmocks.Publisher)
	registry := ws.NewRegistry(logger.NewMock())
	tsvc := tasks.NewService(trepo, idp)
	psvc := peripherals.NewService(prepo, idp)
	tel := telemetry.NewService(telmocks.NewRepository(), prepo, pub)

	return fixture{
		svc:         ws.New(registry, tsvc, psvc, tel, pgmocks.NewTransactor(), logger.NewMock()),
		registry:    registry,
		tasks:       tsvc,
		peripherals: psvc,
		telemetry:   tel,
		publisher:   pub,
	}
}

func (f fixture) addSensor(t *testing.T) peripherals.Peripheral {
	p, err := f.peripherals.Create(context.Background(), peripherals.Peripheral{
		ControllerID:   controllerID,
		Type:           peripherals.SHT31,
		DataPointTypes: []peripherals.Binding{{Key: "temperature", DataPointTypeID: dataPointTypeID}},
	})
	require.Nil(t, err, fmt.Sprintf("unexpected error creating peripheral: %s", err))
	return p
}

func (f fixture) startTask(t *testing.T, peripheralID string) tasks.Task {
	task, err := f.tasks.Create(context.Background(), tasks.Task{
		ControllerID: controllerID,
		Type:         tasks.ReadSensor,
		Params:       map[string]interface{}{"peripheral": peripheralID},
	})
	require.Nil(t, err, fmt.Sprintf("unexpected error creating task: %s", err))
	return task
}

func TestHandleRegister(t *testing.T) {
	f := newService()
	ch := mocks.NewChannel(nil)
	f.svc.Connect(context.Background(), controllerID, ch)

	p := f.addSensor(t)
	task := f.startTask(t, p.ID)

	reg := `{"type":"reg","request_id":"req-1","peripherals":[],"tasks":[]}`
	err := f.svc.Handle(context.Background(), controllerID, []byte(reg))
	require.Nil(t, err, fmt.Sprintf("unexpected error: %s", err))
	require.Len(t, ch.Messages(), 1, "registration must be answered with one command")

	var cmd struct {
		Type       string `json:"type"`
		RequestID  string `json:"request_id"`
		Peripheral struct {
			Add []map[string]interface{} `json:"add"`
		} `json:"peripheral"`
		Task struct {
			Start []map[string]interface{} `json:"start"`
		} `json:"task"`
	}
	require.Nil(t, json.Unmarshal(ch.Messages()[0], &cmd))
	assert.Equal(t, "cmd", cmd.Type)
	assert.Equal(t, "req-1", cmd.RequestID)
	require.Len(t, cmd.Peripheral.Add, 1)
	assert.Equal(t, p.ID, cmd.Peripheral.Add[0]["uuid"])
	require.Len(t, cmd.Task.Start, 1)
	assert.Equal(t, task.ID, cmd.Task.Start[0]["uuid"])

	reg = fmt.Sprintf(`{"type":"reg","peripherals":[%q],"tasks":[%q]}`, p.ID, task.ID)
	err = f.svc.Handle(context.Background(), controllerID, []byte(reg))
	require.Nil(t, err, fmt.Sprintf("unexpected error: %s", err))
	assert.Len(t, ch.Messages(), 1, "nothing must be sent when the controller has everything")
}

func TestHandleRegisterDisconnected(t *testing.T) {
	f := newService()
	f.addSensor(t)

	err := f.svc.Handle(context.Background(), controllerID, []byte(`{"type":"reg"}`))
	assert.True(t, errors.Contains(err, svcerr.ErrNotConnected), fmt.Sprintf("expected %s got %s", svcerr.ErrNotConnected, err))
}

func TestHandleResult(t *testing.T) {
	f := newService()
	p := f.addSensor(t)
	task := f.startTask(t, p.ID)

	cases := []struct {
		desc    string
		payload string
		err     error
	}{
		{
			desc:    "apply peripheral and task results",
			payload: fmt.Sprintf(`{"type":"result","peripheral":{"add":[{"uuid":%q,"status":"success"}]},"task":{"start":[{"uuid":%q,"status":"success"}]}}`, p.ID, task.ID),
		},
		{
			desc:    "apply result of unknown task",
			payload: fmt.Sprintf(`{"type":"result","task":{"stop":[{"uuid":%q,"status":"success"}]}}`, dataPointTypeID),
			err:     svcerr.ErrNotFound,
		},
		{
			desc:    "apply result without status",
			payload: fmt.Sprintf(`{"type":"result","task":{"stop":[{"uuid":%q}]}}`, task.ID),
			err:     svcerr.ErrMissingStatus,
		},
		{
			desc:    "apply result with wrong shape",
			payload: `{"type":"result","task":[]}`,
			err:     protocol.ErrInvalidData,
		},
	}

	for _, tc := range cases {
		err := f.svc.Handle(context.Background(), controllerID, []byte(tc.payload))
		assert.True(t, errors.Contains(err, tc.err), fmt.Sprintf("%s: expected %s got %s", tc.desc, tc.err, err))
	}

	added, err := f.peripherals.View(context.Background(), p.ID)
	require.Nil(t, err)
	assert.Equal(t, peripherals.Added, added.State)
	running, err := f.tasks.View(context.Background(), task.ID)
	require.Nil(t, err)
	assert.Equal(t, tasks.Running, running.State)
}

func TestHandleResultIsAtomic(t *testing.T) {
	f := newService()
	p := f.addSensor(t)
	task := f.startTask(t, p.ID)

	cases := []struct {
		desc    string
		payload string
		err     error
	}{
		{
			desc:    "peripheral result with task result without status",
			payload: fmt.Sprintf(`{"type":"result","peripheral":{"add":[{"uuid":%q,"status":"success"}]},"task":{"start":[{"uuid":%q}]}}`, p.ID, task.ID),
			err:     svcerr.ErrMissingStatus,
		},
		{
			desc:    "peripheral result with result of unknown task",
			payload: fmt.Sprintf(`{"type":"result","peripheral":{"add":[{"uuid":%q,"status":"success"}]},"task":{"start":[{"uuid":%q,"status":"success"},{"uuid":%q,"status":"success"}]}}`, p.ID, task.ID, dataPointTypeID),
			err:     svcerr.ErrNotFound,
		},
	}

	for _, tc := range cases {
		err := f.svc.Handle(context.Background(), controllerID, []byte(tc.payload))
		assert.True(t, errors.Contains(err, tc.err), fmt.Sprintf("%s: expected %s got %s", tc.desc, tc.err, err))

		got, err := f.peripherals.View(context.Background(), p.ID)
		require.Nil(t, err)
		assert.Equal(t, peripherals.Adding, got.State, tc.desc)
		gotTask, err := f.tasks.View(context.Background(), task.ID)
		require.Nil(t, err)
		assert.Equal(t, tasks.Starting, gotTask.State, tc.desc)
	}
}

func TestHandleRegisterIsAtomic(t *testing.T) {
	f := newServiceWith(failingTasks{Repository: tmocks.NewRepository()})
	ch := mocks.NewChannel(nil)
	f.svc.Connect(context.Background(), controllerID, ch)

	p := f.addSensor(t)
	res := fmt.Sprintf(`{"type":"result","peripheral":{"add":[{"uuid":%q,"status":"success"}]}}`, p.ID)
	require.Nil(t, f.svc.Handle(context.Background(), controllerID, []byte(res)))

	err := f.svc.Handle(context.Background(), controllerID, []byte(`{"type":"reg","peripherals":[],"tasks":[]}`))
	assert.True(t, errors.Contains(err, repoerr.ErrFailedOpDB), fmt.Sprintf("expected %s got %s", repoerr.ErrFailedOpDB, err))

	got, err := f.peripherals.View(context.Background(), p.ID)
	require.Nil(t, err)
	assert.Equal(t, peripherals.Added, got.State, "peripheral must not be re-added when tasks fail to reconcile")
	assert.Empty(t, ch.Messages(), "nothing must be sent when reconciliation fails")
}

func TestHandleTelemetry(t *testing.T) {
	f := newService()
	p := f.addSensor(t)
	f.publisher.On("Publish", mock.Anything, controllerID, mock.Anything).Return(nil).Once()
	f.publisher.On("Publish", mock.Anything, controllerID, mock.Anything).Return(errors.New("broker down"))

	tel := fmt.Sprintf(`{"type":"tel","peripheral":%q,"time":"2024-05-01T10:00:00+02:00","data_points":[{"value":21.5,"data_point_type":%q}]}`, p.ID, dataPointTypeID)
	err := f.svc.Handle(context.Background(), controllerID, []byte(tel))
	require.Nil(t, err, fmt.Sprintf("unexpected error: %s", err))

	err = f.svc.Handle(context.Background(), controllerID, []byte(tel))
	assert.Nil(t, err, "publish failures must not close the connection")

	page, err := f.telemetry.List(context.Background(), telemetry.PageMetadata{PeripheralID: p.ID, Limit: 10})
	require.Nil(t, err)
	assert.Equal(t, uint64(2), page.Total)

	naive := fmt.Sprintf(`{"type":"tel","peripheral":%q,"time":"2024-05-01T10:00:00","data_points":[{"value":1,"data_point_type":%q}]}`, p.ID, dataPointTypeID)
	err = f.svc.Handle(context.Background(), controllerID, []byte(naive))
	assert.True(t, errors.Contains(err, protocol.ErrInvalidTimestamp), fmt.Sprintf("expected %s got %s", protocol.ErrInvalidTimestamp, err))

	foreign := fmt.Sprintf(`{"type":"tel","peripheral":%q,"data_points":[{"value":1,"data_point_type":%q}]}`, p.ID, dataPointTypeID)
	err = f.svc.Handle(context.Background(), dataPointTypeID, []byte(foreign))
	assert.True(t, errors.Contains(err, svcerr.ErrAuthorization), fmt.Sprintf("expected %s got %s", svcerr.ErrAuthorization, err))
}

func TestHandleOther(t *testing.T) {
	f := newService()

	cases := []struct {
		desc    string
		payload string
		err     error
	}{
		{desc: "handle controller error", payload: `{"type":"err","error":"sensor offline"}`},
		{desc: "handle system message", payload: `{"type":"sys","uptime":12}`},
		{desc: "handle command sent by controller", payload: `{"type":"cmd","task":{"stop":[]}}`, err: protocol.ErrInvalidData},
		{desc: "handle unknown type", payload: `{"type":"hello"}`, err: protocol.ErrInvalidData},
		{desc: "handle malformed json", payload: `{"type":`, err: protocol.ErrMalformedPayload},
		{desc: "handle missing type", payload: `{"tasks":[]}`, err: protocol.ErrMalformedPayload},
	}

	for _, tc := range cases {
		err := f.svc.Handle(context.Background(), controllerID, []byte(tc.payload))
		assert.True(t, errors.Contains(err, tc.err), fmt.Sprintf("%s: expected %s got %s", tc.desc, tc.err, err))
	}
}

func TestDisconnect(t *testing.T) {
	f := newService()
	old, cur := mocks.NewChannel(nil), mocks.NewChannel(nil)

	f.svc.Connect(context.Background(), controllerID, old)
	f.svc.Connect(context.Background(), controllerID, cur)

	assert.False(t, f.svc.Disconnect(context.Background(), controllerID, old))
	assert.True(t, f.registry.Connected(controllerID))
	assert.True(t, f.svc.Disconnect(context.Background(), controllerID, cur))
	assert.False(t, f.registry.Connected(controllerID))
}
