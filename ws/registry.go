// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package ws

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/absmach/farmgate/pkg/errors"
	svcerr "github.com/absmach/farmgate/pkg/errors/service"
)

// Registry maps controller ids to their live connection. A controller has
// at most one bound channel at any instant.
type Registry struct {
	mu       sync.Mutex
	channels map[string]Channel
	logger   *slog.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		channels: make(map[string]Channel),
		logger:   logger,
	}
}

// Bind makes ch the channel of the controller. The previously bound channel
// is closed asynchronously with CloseSuperseded.
func (r *Registry) Bind(controllerID string, ch Channel) {
	r.mu.Lock()
	prev, ok := r.channels[controllerID]
	r.channels[controllerID] = ch
	r.mu.Unlock()

	if !ok || prev == ch {
		return
	}
	go func() {
		if err := prev.Close(CloseSuperseded, supersededReason); err != nil {
			r.logger.Debug("Failed to close superseded connection",
				slog.String("controller_id", controllerID),
				slog.Any("error", err),
			)
		}
	}()
}

// Unbind removes ch if it is still the channel of the controller and
// reports whether it was.
func (r *Registry) Unbind(controllerID string, ch Channel) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.channels[controllerID]
	if !ok || cur != ch {
		return false
	}
	delete(r.channels, controllerID)

	return true
}

// Send writes payload to the channel of the controller.
func (r *Registry) Send(controllerID string, payload []byte) error {
	r.mu.Lock()
	ch, ok := r.channels[controllerID]
	r.mu.Unlock()

	if !ok {
		return errors.Wrap(svcerr.ErrNotConnected, fmt.Errorf("controller %s", controllerID))
	}

	return ch.Send(payload)
}

// Connected reports whether the controller has a bound channel.
func (r *Registry) Connected(controllerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.channels[controllerID]
	return ok
}
