// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package ws

import (
	"context"
	"encoding/json"

	"github.com/absmach/farmgate/controllers"
	"github.com/absmach/farmgate/pkg/errors"
	"github.com/absmach/farmgate/pkg/protocol"
)

var errEncodeCommand = errors.New("failed to encode command")

var _ controllers.Dispatcher = (*dispatcher)(nil)

type dispatcher struct {
	registry *Registry
}

// NewDispatcher returns a dispatcher sending commands through the registry.
func NewDispatcher(registry *Registry) controllers.Dispatcher {
	return &dispatcher{registry: registry}
}

func (d *dispatcher) Dispatch(_ context.Context, controllerID string, cmd protocol.Command) error {
	if cmd.Empty() {
		return nil
	}
	payload, err := json.Marshal(cmd)
	if err != nil {
		return errors.Wrap(errEncodeCommand, err)
	}

	return d.registry.Send(controllerID, payload)
}
