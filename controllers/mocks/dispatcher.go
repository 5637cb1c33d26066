// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package mocks

import (
	"context"

	"github.com/absmach/farmgate/controllers"
	"github.com/absmach/farmgate/pkg/protocol"
	"github.com/stretchr/testify/mock"
)

var _ controllers.Dispatcher = (*Dispatcher)(nil)

// Dispatcher is a testify mock of controllers.Dispatcher.
type Dispatcher struct {
	mock.Mock
}

func (m *Dispatcher) Dispatch(ctx context.Context, controllerID string, cmd protocol.Command) error {
	ret := m.Called(ctx, controllerID, cmd)
	return ret.Error(0)
}
