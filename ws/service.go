// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/absmach/farmgate"
	"github.com/absmach/farmgate/peripherals"
	"github.com/absmach/farmgate/pkg/errors"
	"github.com/absmach/farmgate/pkg/protocol"
	"github.com/absmach/farmgate/tasks"
	"github.com/absmach/farmgate/telemetry"
)

var errReply = errors.New("failed to reply to registration")

var _ Service = (*service)(nil)

type service struct {
	registry    *Registry
	tasks       tasks.Service
	peripherals peripherals.Service
	telemetry   telemetry.Service
	tx          farmgate.Transactor
	logger      *slog.Logger
}

// New instantiates the controller message router. Registrations and results
// touching peripherals and tasks run as one unit of work of tx.
func New(registry *Registry, tsvc tasks.Service, psvc peripherals.Service, tel telemetry.Service, tx farmgate.Transactor, logger *slog.Logger) Service {
	return &service{
		registry:    registry,
		tasks:       tsvc,
		peripherals: psvc,
		telemetry:   tel,
		tx:          tx,
		logger:      logger,
	}
}

func (svc *service) Connect(_ context.Context, controllerID string, ch Channel) {
	svc.registry.Bind(controllerID, ch)
}

func (svc *service) Disconnect(_ context.Context, controllerID string, ch Channel) bool {
	return svc.registry.Unbind(controllerID, ch)
}

func (svc *service) Handle(ctx context.Context, controllerID string, payload []byte) error {
	msg, err := protocol.Decode(payload)
	if err != nil {
		return err
	}

	switch m := msg.(type) {
	case protocol.Telemetry:
		return svc.saveTelemetry(ctx, controllerID, m)
	case protocol.Register:
		return svc.register(ctx, controllerID, m)
	case protocol.Result:
		return svc.applyResults(ctx, controllerID, m)
	case protocol.Error:
		svc.logger.Warn("Controller reported an error",
			slog.String("controller_id", controllerID),
			slog.String("request_id", m.RequestID),
			slog.String("payload", string(m.Payload)),
		)
		return nil
	case protocol.System:
		return nil
	case protocol.Command:
		return errors.Wrap(protocol.ErrInvalidData, errors.New("commands are sent by the server only"))
	default:
		return errors.Wrap(protocol.ErrInvalidData, fmt.Errorf("unknown message type %q", msg.Header().Type))
	}
}

func (svc *service) saveTelemetry(ctx context.Context, controllerID string, msg protocol.Telemetry) error {
	_, err := svc.telemetry.Save(ctx, controllerID, msg)
	if errors.Contains(err, telemetry.ErrPublish) {
		svc.logger.Warn("Failed to publish telemetry",
			slog.String("controller_id", controllerID),
			slog.String("peripheral_id", msg.Peripheral),
			slog.Any("error", err),
		)
		return nil
	}

	return err
}

// register restarts what the controller lost and replies with a single
// command carrying the request id of the registration. The reply is sent
// once both reconciliations are committed.
func (svc *service) register(ctx context.Context, controllerID string, msg protocol.Register) error {
	var adds, starts []protocol.EntityCommand
	err := svc.tx.Transact(ctx, func(ctx context.Context) error {
		var err error
		if adds, err = svc.peripherals.Reconcile(ctx, controllerID, msg.Peripherals); err != nil {
			return err
		}
		starts, err = svc.tasks.Reconcile(ctx, controllerID, msg.Tasks)
		return err
	})
	if err != nil {
		return err
	}

	var batch protocol.Batch
	for _, cmd := range adds {
		batch.AddPeripheral(cmd)
	}
	for _, cmd := range starts {
		batch.StartTask(cmd)
	}
	cmd := batch.Command(msg.RequestID)
	if cmd.Empty() {
		return nil
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return errors.Wrap(errReply, err)
	}
	if err := svc.registry.Send(controllerID, data); err != nil {
		return errors.Wrap(errReply, err)
	}

	return nil
}

func (svc *service) applyResults(ctx context.Context, controllerID string, msg protocol.Result) error {
	return svc.tx.Transact(ctx, func(ctx context.Context) error {
		if err := svc.peripherals.ApplyResults(ctx, controllerID, msg.Peripheral); err != nil {
			return err
		}
		return svc.tasks.ApplyResults(ctx, controllerID, msg.Task)
	})
}
