// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package middleware provides logging, metrics and tracing decorators of
// the controllers service.
package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/absmach/farmgate/controllers"
	"github.com/absmach/farmgate/peripherals"
	"github.com/absmach/farmgate/pkg/authn"
	"github.com/absmach/farmgate/tasks"
	"github.com/absmach/farmgate/telemetry"
	"github.com/go-chi/chi/v5/middleware"
)

type loggingMiddleware struct {
	logger  *slog.Logger
	service controllers.Service
}

var _ controllers.Service = (*loggingMiddleware)(nil)

// NewLoggingMiddleware adds logging facilities to the controllers service.
func NewLoggingMiddleware(logger *slog.Logger, service controllers.Service) controllers.Service {
	return &loggingMiddleware{
		logger:  logger,
		service: service,
	}
}

func (lm *loggingMiddleware) CreateController(ctx context.Context, session authn.Session, c controllers.Controller) (saved controllers.Controller, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("request_id", middleware.GetReqID(ctx)),
			slog.Group("controller",
				slog.String("id", saved.ID),
				slog.String("name", c.Name),
				slog.String("owner_id", session.UserID),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Create controller failed", args...)
			return
		}
		lm.logger.Info("Create controller completed successfully", args...)
	}(time.Now())

	return lm.service.CreateController(ctx, session, c)
}

func (lm *loggingMiddleware) ViewController(ctx context.Context, session authn.Session, id string) (c controllers.Controller, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("request_id", middleware.GetReqID(ctx)),
			slog.String("controller_id", id),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("View controller failed", args...)
			return
		}
		lm.logger.Info("View controller completed successfully", args...)
	}(time.Now())

	return lm.service.ViewController(ctx, session, id)
}

func (lm *loggingMiddleware) ListControllers(ctx context.Context, session authn.Session, pm controllers.PageMetadata) (page controllers.Page, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("request_id", middleware.GetReqID(ctx)),
			slog.Group("page",
				slog.String("owner_id", session.UserID),
				slog.Uint64("offset", pm.Offset),
				slog.Uint64("limit", pm.Limit),
				slog.Uint64("total", page.Total),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List controllers failed", args...)
			return
		}
		lm.logger.Info("List controllers completed successfully", args...)
	}(time.Now())

	return lm.service.ListControllers(ctx, session, pm)
}

func (lm *loggingMiddleware) RotateKey(ctx context.Context, session authn.Session, id string) (c controllers.Controller, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("request_id", middleware.GetReqID(ctx)),
			slog.String("controller_id", id),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Rotate controller key failed", args...)
			return
		}
		lm.logger.Info("Rotate controller key completed successfully", args...)
	}(time.Now())

	return lm.service.RotateKey(ctx, session, id)
}

func (lm *loggingMiddleware) Identify(ctx context.Context, key string) (id string, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Identify controller failed", args...)
			return
		}
		args = append(args, slog.String("controller_id", id))
		lm.logger.Debug("Identify controller completed successfully", args...)
	}(time.Now())

	return lm.service.Identify(ctx, key)
}

func (lm *loggingMiddleware) StartTask(ctx context.Context, session authn.Session, t tasks.Task) (started tasks.Task, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("request_id", middleware.GetReqID(ctx)),
			slog.Group("task",
				slog.String("id", started.ID),
				slog.String("controller_id", t.ControllerID),
				slog.String("type", string(t.Type)),
				slog.String("state", string(started.State)),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Start task failed", args...)
			return
		}
		lm.logger.Info("Start task completed successfully", args...)
	}(time.Now())

	return lm.service.StartTask(ctx, session, t)
}

func (lm *loggingMiddleware) StopTask(ctx context.Context, session authn.Session, id string) (t tasks.Task, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("request_id", middleware.GetReqID(ctx)),
			slog.Group("task",
				slog.String("id", id),
				slog.String("controller_id", t.ControllerID),
				slog.String("state", string(t.State)),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Stop task failed", args...)
			return
		}
		lm.logger.Info("Stop task completed successfully", args...)
	}(time.Now())

	return lm.service.StopTask(ctx, session, id)
}

func (lm *loggingMiddleware) AddPeripheral(ctx context.Context, session authn.Session, p peripherals.Peripheral) (added peripherals.Peripheral, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("request_id", middleware.GetReqID(ctx)),
			slog.Group("peripheral",
				slog.String("id", added.ID),
				slog.String("controller_id", p.ControllerID),
				slog.String("type", string(p.Type)),
				slog.Int("data_point_types", len(p.DataPointTypes)),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Add peripheral failed", args...)
			return
		}
		lm.logger.Info("Add peripheral completed successfully", args...)
	}(time.Now())

	return lm.service.AddPeripheral(ctx, session, p)
}

func (lm *loggingMiddleware) RemovePeripheral(ctx context.Context, session authn.Session, id string) (p peripherals.Peripheral, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("request_id", middleware.GetReqID(ctx)),
			slog.Group("peripheral",
				slog.String("id", id),
				slog.String("controller_id", p.ControllerID),
				slog.String("state", string(p.State)),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Remove peripheral failed", args...)
			return
		}
		lm.logger.Info("Remove peripheral completed successfully", args...)
	}(time.Now())

	return lm.service.RemovePeripheral(ctx, session, id)
}

func (lm *loggingMiddleware) ListTasks(ctx context.Context, session authn.Session, pm tasks.PageMetadata) (page tasks.Page, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("request_id", middleware.GetReqID(ctx)),
			slog.Group("page",
				slog.String("controller_id", pm.ControllerID),
				slog.String("state", string(pm.State)),
				slog.Uint64("offset", pm.Offset),
				slog.Uint64("limit", pm.Limit),
				slog.Uint64("total", page.Total),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List tasks failed", args...)
			return
		}
		lm.logger.Info("List tasks completed successfully", args...)
	}(time.Now())

	return lm.service.ListTasks(ctx, session, pm)
}

func (lm *loggingMiddleware) ListPeripherals(ctx context.Context, session authn.Session, pm peripherals.PageMetadata) (page peripherals.Page, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("request_id", middleware.GetReqID(ctx)),
			slog.Group("page",
				slog.String("controller_id", pm.ControllerID),
				slog.String("state", string(pm.State)),
				slog.Uint64("offset", pm.Offset),
				slog.Uint64("limit", pm.Limit),
				slog.Uint64("total", page.Total),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List peripherals failed", args...)
			return
		}
		lm.logger.Info("List peripherals completed successfully", args...)
	}(time.Now())

	return lm.service.ListPeripherals(ctx, session, pm)
}

func (lm *loggingMiddleware) ListDataPoints(ctx context.Context, session authn.Session, pm telemetry.PageMetadata) (page telemetry.Page, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("request_id", middleware.GetReqID(ctx)),
			slog.Group("page",
				slog.String("peripheral_id", pm.PeripheralID),
				slog.Uint64("offset", pm.Offset),
				slog.Uint64("limit", pm.Limit),
				slog.Uint64("total", page.Total),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List data points failed", args...)
			return
		}
		lm.logger.Info("List data points completed successfully", args...)
	}(time.Now())

	return lm.service.ListDataPoints(ctx, session, pm)
}
