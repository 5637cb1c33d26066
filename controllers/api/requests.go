// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"time"

	"github.com/absmach/farmgate/controllers"
	"github.com/absmach/farmgate/internal/api"
	"github.com/absmach/farmgate/peripherals"
	"github.com/absmach/farmgate/pkg/apiutil"
	"github.com/absmach/farmgate/tasks"
	"github.com/absmach/farmgate/telemetry"
)

type createControllerReq struct {
	ID       string               `json:"id,omitempty"`
	Name     string               `json:"name,omitempty"`
	Metadata controllers.Metadata `json:"metadata,omitempty"`
}

func (req createControllerReq) validate() error {
	if len(req.Name) > api.MaxNameSize {
		return apiutil.ErrNameSize
	}
	if req.ID != "" {
		return api.ValidateUUID(req.ID)
	}

	return nil
}

type entityReq struct {
	id string
}

func (req entityReq) validate() error {
	if req.id == "" {
		return apiutil.ErrMissingID
	}

	return nil
}

type listControllersReq struct {
	pm controllers.PageMetadata
}

func (req listControllersReq) validate() error {
	if req.pm.Limit > api.MaxLimitSize {
		return apiutil.ErrLimitSize
	}
	if len(req.pm.Name) > api.MaxNameSize {
		return apiutil.ErrNameSize
	}

	return nil
}

type startTaskReq struct {
	controllerID string
	ID           string                 `json:"id,omitempty"`
	Type         tasks.Type             `json:"type"`
	Params       map[string]interface{} `json:"params,omitempty"`
	RunUntil     *time.Time             `json:"run_until,omitempty"`
}

func (req startTaskReq) validate() error {
	if req.controllerID == "" {
		return apiutil.ErrMissingID
	}
	if req.Type == "" {
		return apiutil.ErrMissingType
	}
	if req.ID != "" {
		return api.ValidateUUID(req.ID)
	}

	return nil
}

type addPeripheralReq struct {
	controllerID   string
	ID             string                 `json:"id,omitempty"`
	Type           peripherals.Type       `json:"type"`
	DataPointTypes []peripherals.Binding  `json:"data_point_types,omitempty"`
	Extras         map[string]interface{} `json:"extras,omitempty"`
}

func (req addPeripheralReq) validate() error {
	if req.controllerID == "" {
		return apiutil.ErrMissingID
	}
	if req.Type == "" {
		return apiutil.ErrMissingType
	}
	if req.ID != "" {
		return api.ValidateUUID(req.ID)
	}

	return nil
}

type listTasksReq struct {
	pm tasks.PageMetadata
}

func (req listTasksReq) validate() error {
	if req.pm.ControllerID == "" {
		return apiutil.ErrMissingID
	}
	if req.pm.Limit > api.MaxLimitSize {
		return apiutil.ErrLimitSize
	}
	if req.pm.State != "" && !req.pm.State.Valid() {
		return apiutil.ErrInvalidQueryParams
	}

	return nil
}

type listPeripheralsReq struct {
	pm peripherals.PageMetadata
}

func (req listPeripheralsReq) validate() error {
	if req.pm.ControllerID == "" {
		return apiutil.ErrMissingID
	}
	if req.pm.Limit > api.MaxLimitSize {
		return apiutil.ErrLimitSize
	}
	if req.pm.State != "" && !req.pm.State.Valid() {
		return apiutil.ErrInvalidQueryParams
	}

	return nil
}

type listDataPointsReq struct {
	pm telemetry.PageMetadata
}

func (req listDataPointsReq) validate() error {
	if req.pm.PeripheralID == "" {
		return apiutil.ErrMissingID
	}
	if req.pm.Limit > api.MaxLimitSize {
		return apiutil.ErrLimitSize
	}
	if !req.pm.From.IsZero() && !req.pm.To.IsZero() && req.pm.To.Before(req.pm.From) {
		return apiutil.ErrInvalidQueryParams
	}

	return nil
}
