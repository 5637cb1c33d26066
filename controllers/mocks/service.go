// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package mocks

import (
	"context"

	"github.com/absmach/farmgate/controllers"
	"github.com/absmach/farmgate/peripherals"
	"github.com/absmach/farmgate/pkg/authn"
	"github.com/absmach/farmgate/tasks"
	"github.com/absmach/farmgate/telemetry"
	"github.com/stretchr/testify/mock"
)

var _ controllers.Service = (*Service)(nil)

// Service is a testify mock of controllers.Service.
type Service struct {
	mock.Mock
}

func (m *Service) CreateController(ctx context.Context, session authn.Session, c controllers.Controller) (controllers.Controller, error) {
	ret := m.Called(ctx, session, c)
	return ret.Get(0).(controllers.Controller), ret.Error(1)
}

func (m *Service) ViewController(ctx context.Context, session authn.Session, id string) (controllers.Controller, error) {
	ret := m.Called(ctx, session, id)
	return ret.Get(0).(controllers.Controller), ret.Error(1)
}

func (m *Service) ListControllers(ctx context.Context, session authn.Session, pm controllers.PageMetadata) (controllers.Page, error) {
	ret := m.Called(ctx, session, pm)
	return ret.Get(0).(controllers.Page), ret.Error(1)
}

func (m *Service) RotateKey(ctx context.Context, session authn.Session, id string) (controllers.Controller, error) {
	ret := m.Called(ctx, session, id)
	return ret.Get(0).(controllers.Controller), ret.Error(1)
}

func (m *Service) Identify(ctx context.Context, key string) (string, error) {
	ret := m.Called(ctx, key)
	return ret.String(0), ret.Error(1)
}

func (m *Service) StartTask(ctx context.Context, session authn.Session, t tasks.Task) (tasks.Task, error) {
	ret := m.Called(ctx, session, t)
	return ret.Get(0).(tasks.Task), ret.Error(1)
}

func (m *Service) StopTask(ctx context.Context, session authn.Session, id string) (tasks.Task, error) {
	ret := m.Called(ctx, session, id)
	return ret.Get(0).(tasks.Task), ret.Error(1)
}

func (m *Service) AddPeripheral(ctx context.Context, session authn.Session, p peripherals.Peripheral) (peripherals.Peripheral, error) {
	ret := m.Called(ctx, session, p)
	return ret.Get(0).(peripherals.Peripheral), ret.Error(1)
}

func (m *Service) RemovePeripheral(ctx context.Context, session authn.Session, id string) (peripherals.Peripheral, error) {
	ret := m.Called(ctx, session, id)
	return ret.Get(0).(peripherals.Peripheral), ret.Error(1)
}

func (m *Service) ListTasks(ctx context.Context, session authn.Session, pm tasks.PageMetadata) (tasks.Page, error) {
	ret := m.Called(ctx, session, pm)
	return ret.Get(0).(tasks.Page), ret.Error(1)
}

func (m *Service) ListPeripherals(ctx context.Context, session authn.Session, pm peripherals.PageMetadata) (peripherals.Page, error) {
	ret := m.Called(ctx, session, pm)
	return ret.Get(0).(peripherals.Page), ret.Error(1)
}

func (m *Service) ListDataPoints(ctx context.Context, session authn.Session, pm telemetry.PageMetadata) (telemetry.Page, error) {
	ret := m.Called(ctx, session, pm)
	return ret.Get(0).(telemetry.Page), ret.Error(1)
}
