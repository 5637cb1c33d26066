// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"fmt"
	"net/http"

	"github.com/absmach/farmgate"
	"github.com/absmach/farmgate/controllers"
	"github.com/absmach/farmgate/peripherals"
	"github.com/absmach/farmgate/tasks"
	"github.com/absmach/farmgate/telemetry"
)

var (
	_ farmgate.Response = (*controllerRes)(nil)
	_ farmgate.Response = (*controllersPageRes)(nil)
	_ farmgate.Response = (*taskRes)(nil)
	_ farmgate.Response = (*tasksPageRes)(nil)
	_ farmgate.Response = (*peripheralRes)(nil)
	_ farmgate.Response = (*peripheralsPageRes)(nil)
	_ farmgate.Response = (*dataPointsPageRes)(nil)
)

type controllerRes struct {
	controllers.Controller `json:",inline"`
	created                bool
}

func (res controllerRes) Code() int {
	if res.created {
		return http.StatusCreated
	}

	return http.StatusOK
}

func (res controllerRes) Headers() map[string]string {
	if res.created {
		return map[string]string{
			"Location": fmt.Sprintf("/controllers/%s", res.ID),
		}
	}

	return map[string]string{}
}

func (res controllerRes) Empty() bool {
	return false
}

type controllersPageRes struct {
	controllers.Page `json:",inline"`
}

func (res controllersPageRes) Code() int {
	return http.StatusOK
}

func (res controllersPageRes) Headers() map[string]string {
	return map[string]string{}
}

func (res controllersPageRes) Empty() bool {
	return false
}

type taskRes struct {
	tasks.Task `json:",inline"`
	created    bool
}

func (res taskRes) Code() int {
	if res.created {
		return http.StatusCreated
	}

	return http.StatusAccepted
}

func (res taskRes) Headers() map[string]string {
	return map[string]string{}
}

func (res taskRes) Empty() bool {
	return false
}

type tasksPageRes struct {
	tasks.Page `json:",inline"`
}

func (res tasksPageRes) Code() int {
	return http.StatusOK
}

func (res tasksPageRes) Headers() map[string]string {
	return map[string]string{}
}

func (res tasksPageRes) Empty() bool {
	return false
}

type peripheralRes struct {
	peripherals.Peripheral `json:",inline"`
	created                bool
}

func (res peripheralRes) Code() int {
	if res.created {
		return http.StatusCreated
	}

	return http.StatusAccepted
}

func (res peripheralRes) Headers() map[string]string {
	return map[string]string{}
}

func (res peripheralRes) Empty() bool {
	return false
}

type peripheralsPageRes struct {
	peripherals.Page `json:",inline"`
}

func (res peripheralsPageRes) Code() int {
	return http.StatusOK
}

func (res peripheralsPageRes) Headers() map[string]string {
	return map[string]string{}
}

func (res peripheralsPageRes) Empty() bool {
	return false
}

type dataPointsPageRes struct {
	telemetry.Page `json:",inline"`
}

func (res dataPointsPageRes) Code() int {
	return http.StatusOK
}

func (res dataPointsPageRes) Headers() map[string]string {
	return map[string]string{}
}

func (res dataPointsPageRes) Empty() bool {
	return false
}
