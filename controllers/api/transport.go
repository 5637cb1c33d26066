// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package api contains the HTTP API of the controllers service.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/absmach/farmgate"
	"github.com/absmach/farmgate/controllers"
	"github.com/absmach/farmgate/internal/api"
	"github.com/absmach/farmgate/peripherals"
	"github.com/absmach/farmgate/pkg/apiutil"
	"github.com/absmach/farmgate/pkg/authn"
	"github.com/absmach/farmgate/pkg/errors"
	"github.com/absmach/farmgate/tasks"
	"github.com/absmach/farmgate/telemetry"
	"github.com/go-chi/chi/v5"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const idKey = "id"

// MakeHandler returns a HTTP handler for the controllers API endpoints.
func MakeHandler(svc controllers.Service, auth authn.Authentication, idp farmgate.IDProvider, logger *slog.Logger, svcName, instanceID string) http.Handler {
	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(apiutil.LoggingErrorEncoder(logger, api.EncodeError)),
	}

	mux := chi.NewRouter()
	mux.Group(func(r chi.Router) {
		r.Use(api.RequestIDMiddleware(idp))
		r.Use(api.AuthenticateMiddleware(auth))

		r.Route("/controllers", func(r chi.Router) {
			r.Post("/", otelhttp.NewHandler(kithttp.NewServer(
				createControllerEndpoint(svc),
				decodeCreateController,
				api.EncodeResponse,
				opts...,
			), "create_controller").ServeHTTP)

			r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
				listControllersEndpoint(svc),
				decodeListControllers,
				api.EncodeResponse,
				opts...,
			), "list_controllers").ServeHTTP)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
					viewControllerEndpoint(svc),
					decodeEntity,
					api.EncodeResponse,
					opts...,
				), "view_controller").ServeHTTP)

				r.Patch("/key", otelhttp.NewHandler(kithttp.NewServer(
					rotateKeyEndpoint(svc),
					decodeEntity,
					api.EncodeResponse,
					opts...,
				), "rotate_key").ServeHTTP)

				r.Post("/tasks", otelhttp.NewHandler(kithttp.NewServer(
					startTaskEndpoint(svc),
					decodeStartTask,
					api.EncodeResponse,
					opts...,
				), "start_task").ServeHTTP)

				r.Get("/tasks", otelhttp.NewHandler(kithttp.NewServer(
					listTasksEndpoint(svc),
					decodeListTasks,
					api.EncodeResponse,
					opts...,
				), "list_tasks").ServeHTTP)

				r.Post("/peripherals", otelhttp.NewHandler(kithttp.NewServer(
					addPeripheralEndpoint(svc),
					decodeAddPeripheral,
					api.EncodeResponse,
					opts...,
				), "add_peripheral").ServeHTTP)

				r.Get("/peripherals", otelhttp.NewHandler(kithttp.NewServer(
					listPeripheralsEndpoint(svc),
					decodeListPeripherals,
					api.EncodeResponse,
					opts...,
				), "list_peripherals").ServeHTTP)
			})
		})

		r.Post("/tasks/{id}/stop", otelhttp.NewHandler(kithttp.NewServer(
			stopTaskEndpoint(svc),
			decodeEntity,
			api.EncodeResponse,
			opts...,
		), "stop_task").ServeHTTP)

		r.Route("/peripherals/{id}", func(r chi.Router) {
			r.Post("/remove", otelhttp.NewHandler(kithttp.NewServer(
				removePeripheralEndpoint(svc),
				decodeEntity,
				api.EncodeResponse,
				opts...,
			), "remove_peripheral").ServeHTTP)

			r.Get("/data_points", otelhttp.NewHandler(kithttp.NewServer(
				listDataPointsEndpoint(svc),
				decodeListDataPoints,
				api.EncodeResponse,
				opts...,
			), "list_data_points").ServeHTTP)
		})
	})

	mux.Get("/health", farmgate.Health(svcName, instanceID))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func decodeCreateController(_ context.Context, r *http.Request) (interface{}, error) {
	if !strings.Contains(r.Header.Get("Content-Type"), api.ContentType) {
		return nil, errors.Wrap(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	var req createControllerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.Wrap(apiutil.ErrValidation, errors.Wrap(errors.ErrMalformedEntity, err))
	}

	return req, nil
}

func decodeEntity(_ context.Context, r *http.Request) (interface{}, error) {
	return entityReq{id: chi.URLParam(r, idKey)}, nil
}

func decodeListControllers(_ context.Context, r *http.Request) (interface{}, error) {
	offset, limit, err := decodePage(r)
	if err != nil {
		return nil, err
	}
	name, err := apiutil.ReadStringQuery(r, api.NameKey, "")
	if err != nil {
		return nil, errors.Wrap(apiutil.ErrValidation, err)
	}

	return listControllersReq{
		pm: controllers.PageMetadata{
			Name:   name,
			Offset: offset,
			Limit:  limit,
		},
	}, nil
}

func decodeStartTask(_ context.Context, r *http.Request) (interface{}, error) {
	if !strings.Contains(r.Header.Get("Content-Type"), api.ContentType) {
		return nil, errors.Wrap(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	req := startTaskReq{controllerID: chi.URLParam(r, idKey)}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.Wrap(apiutil.ErrValidation, errors.Wrap(errors.ErrMalformedEntity, err))
	}

	return req, nil
}

func decodeAddPeripheral(_ context.Context, r *http.Request) (interface{}, error) {
	if !strings.Contains(r.Header.Get("Content-Type"), api.ContentType) {
		return nil, errors.Wrap(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	req := addPeripheralReq{controllerID: chi.URLParam(r, idKey)}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.Wrap(apiutil.ErrValidation, errors.Wrap(errors.ErrMalformedEntity, err))
	}

	return req, nil
}

func decodeListTasks(_ context.Context, r *http.Request) (interface{}, error) {
	offset, limit, err := decodePage(r)
	if err != nil {
		return nil, err
	}
	state, err := apiutil.ReadStringQuery(r, api.StateKey, "")
	if err != nil {
		return nil, errors.Wrap(apiutil.ErrValidation, err)
	}

	return listTasksReq{
		pm: tasks.PageMetadata{
			ControllerID: chi.URLParam(r, idKey),
			State:        tasks.State(state),
			Offset:       offset,
			Limit:        limit,
		},
	}, nil
}

func decodeListPeripherals(_ context.Context, r *http.Request) (interface{}, error) {
	offset, limit, err := decodePage(r)
	if err != nil {
		return nil, err
	}
	state, err := apiutil.ReadStringQuery(r, api.StateKey, "")
	if err != nil {
		return nil, errors.Wrap(apiutil.ErrValidation, err)
	}

	return listPeripheralsReq{
		pm: peripherals.PageMetadata{
			ControllerID: chi.URLParam(r, idKey),
			State:        peripherals.State(state),
			Offset:       offset,
			Limit:        limit,
		},
	}, nil
}

func decodeListDataPoints(_ context.Context, r *http.Request) (interface{}, error) {
	offset, limit, err := decodePage(r)
	if err != nil {
		return nil, err
	}
	dataPointType, err := apiutil.ReadStringQuery(r, api.DataPointTypeKey, "")
	if err != nil {
		return nil, errors.Wrap(apiutil.ErrValidation, err)
	}
	from, err := readTimeQuery(r, api.FromKey)
	if err != nil {
		return nil, err
	}
	to, err := readTimeQuery(r, api.ToKey)
	if err != nil {
		return nil, err
	}

	return listDataPointsReq{
		pm: telemetry.PageMetadata{
			PeripheralID:    chi.URLParam(r, idKey),
			DataPointTypeID: dataPointType,
			From:            from,
			To:              to,
			Offset:          offset,
			Limit:           limit,
		},
	}, nil
}

func decodePage(r *http.Request) (uint64, uint64, error) {
	offset, err := apiutil.ReadNumQuery[uint64](r, api.OffsetKey, api.DefOffset)
	if err != nil {
		return 0, 0, errors.Wrap(apiutil.ErrValidation, err)
	}
	limit, err := apiutil.ReadNumQuery[uint64](r, api.LimitKey, api.DefLimit)
	if err != nil {
		return 0, 0, errors.Wrap(apiutil.ErrValidation, err)
	}

	return offset, limit, nil
}

func readTimeQuery(r *http.Request, key string) (time.Time, error) {
	val, err := apiutil.ReadStringQuery(r, key, "")
	if err != nil {
		return time.Time{}, errors.Wrap(apiutil.ErrValidation, err)
	}
	if val == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return time.Time{}, errors.Wrap(apiutil.ErrValidation, apiutil.ErrInvalidTimeFormat)
	}

	return t.UTC(), nil
}
