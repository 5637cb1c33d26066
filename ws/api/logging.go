// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/absmach/farmgate/ws"
)

var _ ws.Service = (*loggingMiddleware)(nil)

type loggingMiddleware struct {
	logger *slog.Logger
	svc    ws.Service
}

// LoggingMiddleware adds logging facilities to the websocket service.
func LoggingMiddleware(svc ws.Service, logger *slog.Logger) ws.Service {
	return &loggingMiddleware{logger, svc}
}

func (lm *loggingMiddleware) Connect(ctx context.Context, controllerID string, ch ws.Channel) {
	defer func(begin time.Time) {
		lm.logger.Info("Controller connected",
			slog.String("duration", time.Since(begin).String()),
			slog.String("controller_id", controllerID),
		)
	}(time.Now())

	lm.svc.Connect(ctx, controllerID, ch)
}

func (lm *loggingMiddleware) Disconnect(ctx context.Context, controllerID string, ch ws.Channel) (current bool) {
	defer func(begin time.Time) {
		lm.logger.Info("Controller disconnected",
			slog.String("duration", time.Since(begin).String()),
			slog.String("controller_id", controllerID),
			slog.Bool("superseded", !current),
		)
	}(time.Now())

	return lm.svc.Disconnect(ctx, controllerID, ch)
}

func (lm *loggingMiddleware) Handle(ctx context.Context, controllerID string, payload []byte) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("controller_id", controllerID),
			slog.Int("payload_size", len(payload)),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Handle controller message failed", args...)
			return
		}
		lm.logger.Debug("Handle controller message completed successfully", args...)
	}(time.Now())

	return lm.svc.Handle(ctx, controllerID, payload)
}
