// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"

	"github.com/absmach/farmgate/controllers"
	"github.com/absmach/farmgate/internal/api"
	"github.com/absmach/farmgate/peripherals"
	"github.com/absmach/farmgate/pkg/apiutil"
	"github.com/absmach/farmgate/pkg/authn"
	"github.com/absmach/farmgate/pkg/errors"
	svcerr "github.com/absmach/farmgate/pkg/errors/service"
	"github.com/absmach/farmgate/tasks"
	"github.com/go-kit/kit/endpoint"
)

func session(ctx context.Context) (authn.Session, error) {
	s, ok := api.Session(ctx)
	if !ok {
		return authn.Session{}, svcerr.ErrAuthentication
	}

	return s, nil
}

func createControllerEndpoint(svc controllers.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(createControllerReq)
		if err := req.validate(); err != nil {
			return nil, errors.Wrap(apiutil.ErrValidation, err)
		}
		s, err := session(ctx)
		if err != nil {
			return nil, err
		}

		c, err := svc.CreateController(ctx, s, controllers.Controller{
			ID:       req.ID,
			Name:     req.Name,
			Metadata: req.Metadata,
		})
		if err != nil {
			return nil, err
		}

		return controllerRes{Controller: c, created: true}, nil
	}
}

func viewControllerEndpoint(svc controllers.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(entityReq)
		if err := req.validate(); err != nil {
			return nil, errors.Wrap(apiutil.ErrValidation, err)
		}
		s, err := session(ctx)
		if err != nil {
			return nil, err
		}

		c, err := svc.ViewController(ctx, s, req.id)
		if err != nil {
			return nil, err
		}

		return controllerRes{Controller: c}, nil
	}
}

func listControllersEndpoint(svc controllers.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(listControllersReq)
		if err := req.validate(); err != nil {
			return nil, errors.Wrap(apiutil.ErrValidation, err)
		}
		s, err := session(ctx)
		if err != nil {
			return nil, err
		}

		page, err := svc.ListControllers(ctx, s, req.pm)
		if err != nil {
			return nil, err
		}

		return controllersPageRes{Page: page}, nil
	}
}

func rotateKeyEndpoint(svc controllers.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(entityReq)
		if err := req.validate(); err != nil {
			return nil, errors.Wrap(apiutil.ErrValidation, err)
		}
		s, err := session(ctx)
		if err != nil {
			return nil, err
		}

		c, err := svc.RotateKey(ctx, s, req.id)
		if err != nil {
			return nil, err
		}

		return controllerRes{Controller: c}, nil
	}
}

func startTaskEndpoint(svc controllers.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(startTaskReq)
		if err := req.validate(); err != nil {
			return nil, errors.Wrap(apiutil.ErrValidation, err)
		}
		s, err := session(ctx)
		if err != nil {
			return nil, err
		}

		t, err := svc.StartTask(ctx, s, tasks.Task{
			ID:           req.ID,
			ControllerID: req.controllerID,
			Type:         req.Type,
			Params:       req.Params,
			RunUntil:     req.RunUntil,
		})
		if err != nil {
			return nil, err
		}

		return taskRes{Task: t, created: true}, nil
	}
}

func stopTaskEndpoint(svc controllers.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(entityReq)
		if err := req.validate(); err != nil {
			return nil, errors.Wrap(apiutil.ErrValidation, err)
		}
		s, err := session(ctx)
		if err != nil {
			return nil, err
		}

		t, err := svc.StopTask(ctx, s, req.id)
		if err != nil {
			return nil, err
		}

		return taskRes{Task: t}, nil
	}
}

func listTasksEndpoint(svc controllers.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(listTasksReq)
		if err := req.validate(); err != nil {
			return nil, errors.Wrap(apiutil.ErrValidation, err)
		}
		s, err := session(ctx)
		if err != nil {
			return nil, err
		}

		page, err := svc.ListTasks(ctx, s, req.pm)
		if err != nil {
			return nil, err
		}

		return tasksPageRes{Page: page}, nil
	}
}

func addPeripheralEndpoint(svc controllers.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(addPeripheralReq)
		if err := req.validate(); err != nil {
			return nil, errors.Wrap(apiutil.ErrValidation, err)
		}
		s, err := session(ctx)
		if err != nil {
			return nil, err
		}

		p, err := svc.AddPeripheral(ctx, s, peripherals.Peripheral{
			ID:             req.ID,
			ControllerID:   req.controllerID,
			Type:           req.Type,
			DataPointTypes: req.DataPointTypes,
			Extras:         req.Extras,
		})
		if err != nil {
			return nil, err
		}

		return peripheralRes{Peripheral: p, created: true}, nil
	}
}

func removePeripheralEndpoint(svc controllers.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(entityReq)
		if err := req.validate(); err != nil {
			return nil, errors.Wrap(apiutil.ErrValidation, err)
		}
		s, err := session(ctx)
		if err != nil {
			return nil, err
		}

		p, err := svc.RemovePeripheral(ctx, s, req.id)
		if err != nil {
			return nil, err
		}

		return peripheralRes{Peripheral: p}, nil
	}
}

func listPeripheralsEndpoint(svc controllers.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(listPeripheralsReq)
		if err := req.validate(); err != nil {
			return nil, errors.Wrap(apiutil.ErrValidation, err)
		}
		s, err := session(ctx)
		if err != nil {
			return nil, err
		}

		page, err := svc.ListPeripherals(ctx, s, req.pm)
		if err != nil {
			return nil, err
		}

		return peripheralsPageRes{Page: page}, nil
	}
}

func listDataPointsEndpoint(svc controllers.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(listDataPointsReq)
		if err := req.validate(); err != nil {
			return nil, errors.Wrap(apiutil.ErrValidation, err)
		}
		s, err := session(ctx)
		if err != nil {
			return nil, err
		}

		page, err := svc.ListDataPoints(ctx, s, req.pm)
		if err != nil {
			return nil, err
		}

		return dataPointsPageRes{Page: page}, nil
	}
}
