// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package controllers

import (
	"context"
	"fmt"
	"time"

	"github.com/absmach/farmgate"
	"github.com/absmach/farmgate/peripherals"
	"github.com/absmach/farmgate/pkg/authn"
	"github.com/absmach/farmgate/pkg/errors"
	svcerr "github.com/absmach/farmgate/pkg/errors/service"
	"github.com/absmach/farmgate/pkg/protocol"
	"github.com/absmach/farmgate/tasks"
	"github.com/absmach/farmgate/telemetry"
	"github.com/go-chi/chi/v5/middleware"
)

type service struct {
	repo        Repository
	cache       Cache
	tasks       tasks.Service
	peripherals peripherals.Service
	telemetry   telemetry.Service
	dispatcher  Dispatcher
	idp         farmgate.IDProvider
	clock       func() time.Time
}

var _ Service = (*service)(nil)

// NewService returns a new controller Service.
func NewService(repo Repository, cache Cache, tsvc tasks.Service, psvc peripherals.Service, tel telemetry.Service, dispatcher Dispatcher, idp farmgate.IDProvider) Service {
	return &service{
		repo:        repo,
		cache:       cache,
		tasks:       tsvc,
		peripherals: psvc,
		telemetry:   tel,
		dispatcher:  dispatcher,
		idp:         idp,
		clock:       func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

func (svc *service) CreateController(ctx context.Context, session authn.Session, c Controller) (Controller, error) {
	if c.ID == "" {
		id, err := svc.idp.ID()
		if err != nil {
			return Controller{}, errors.Wrap(svcerr.ErrUniqueID, err)
		}
		c.ID = id
	}
	key, err := svc.idp.ID()
	if err != nil {
		return Controller{}, errors.Wrap(svcerr.ErrUniqueID, err)
	}

	now := svc.clock()
	c.OwnerID = session.UserID
	c.Key = key
	c.CreatedAt = now
	c.UpdatedAt = now

	saved, err := svc.repo.Save(ctx, c)
	if err != nil {
		return Controller{}, errors.Wrap(svcerr.ErrCreateEntity, err)
	}

	return saved, nil
}

func (svc *service) ViewController(ctx context.Context, session authn.Session, id string) (Controller, error) {
	return svc.authorize(ctx, session, id)
}

func (svc *service) ListControllers(ctx context.Context, session authn.Session, pm PageMetadata) (Page, error) {
	pm.OwnerID = session.UserID
	page, err := svc.repo.RetrieveAll(ctx, pm)
	if err != nil {
		return Page{}, errors.Wrap(svcerr.ErrViewEntity, err)
	}

	return page, nil
}

func (svc *service) RotateKey(ctx context.Context, session authn.Session, id string) (Controller, error) {
	c, err := svc.authorize(ctx, session, id)
	if err != nil {
		return Controller{}, err
	}
	key, err := svc.idp.ID()
	if err != nil {
		return Controller{}, errors.Wrap(svcerr.ErrUniqueID, err)
	}
	c.Key = key
	c.UpdatedAt = svc.clock()

	updated, err := svc.repo.UpdateKey(ctx, c)
	if err != nil {
		return Controller{}, errors.Wrap(svcerr.ErrUpdateEntity, err)
	}
	if err := svc.cache.Remove(ctx, id); err != nil {
		return updated, errors.Wrap(svcerr.ErrUpdateEntity, err)
	}

	return updated, nil
}

func (svc *service) Identify(ctx context.Context, key string) (string, error) {
	if id, err := svc.cache.ID(ctx, key); err == nil {
		return id, nil
	}

	c, err := svc.repo.RetrieveByKey(ctx, key)
	if err != nil {
		return "", errors.Wrap(svcerr.ErrAuthentication, err)
	}
	if err := svc.cache.Save(ctx, key, c.ID); err != nil {
		return "", errors.Wrap(svcerr.ErrAuthentication, err)
	}

	return c.ID, nil
}

func (svc *service) StartTask(ctx context.Context, session authn.Session, t tasks.Task) (tasks.Task, error) {
	if _, err := svc.authorize(ctx, session, t.ControllerID); err != nil {
		return tasks.Task{}, err
	}
	if err := svc.checkPeripheral(ctx, t); err != nil {
		return tasks.Task{}, err
	}
	created, err := svc.tasks.Create(ctx, t)
	if err != nil {
		return tasks.Task{}, err
	}

	var batch protocol.Batch
	if cmd, ok := created.StartCommand(svc.clock()); ok {
		batch.StartTask(cmd)
	}

	return created, svc.dispatch(ctx, created.ControllerID, batch)
}

// checkPeripheral rejects a task whose peripheral is not attached to the
// task's controller.
func (svc *service) checkPeripheral(ctx context.Context, t tasks.Task) error {
	id := tasks.Peripheral(t.Params)
	if id == "" {
		return nil
	}
	p, err := svc.peripherals.View(ctx, id)
	switch {
	case errors.Contains(err, svcerr.ErrNotFound):
	case err != nil:
		return err
	case p.ControllerID == t.ControllerID:
		return nil
	}
	return errors.Wrap(svcerr.ErrMalformedEntity, errors.Wrap(tasks.ErrInvalidParams, fmt.Errorf("peripheral %s is not attached to controller %s", id, t.ControllerID)))
}

func (svc *service) StopTask(ctx context.Context, session authn.Session, id string) (tasks.Task, error) {
	t, err := svc.tasks.View(ctx, id)
	if err != nil {
		return tasks.Task{}, err
	}
	if _, err := svc.authorize(ctx, session, t.ControllerID); err != nil {
		return tasks.Task{}, err
	}
	stopping, ref, err := svc.tasks.RequestStop(ctx, id)
	if err != nil {
		return tasks.Task{}, err
	}

	var batch protocol.Batch
	batch.StopTask(ref)

	return stopping, svc.dispatch(ctx, stopping.ControllerID, batch)
}

func (svc *service) AddPeripheral(ctx context.Context, session authn.Session, p peripherals.Peripheral) (peripherals.Peripheral, error) {
	if _, err := svc.authorize(ctx, session, p.ControllerID); err != nil {
		return peripherals.Peripheral{}, err
	}
	created, err := svc.peripherals.Create(ctx, p)
	if err != nil {
		return peripherals.Peripheral{}, err
	}

	var batch protocol.Batch
	if cmd, ok := created.AddCommand(); ok {
		batch.AddPeripheral(cmd)
	}

	return created, svc.dispatch(ctx, created.ControllerID, batch)
}

func (svc *service) RemovePeripheral(ctx context.Context, session authn.Session, id string) (peripherals.Peripheral, error) {
	p, err := svc.peripherals.View(ctx, id)
	if err != nil {
		return peripherals.Peripheral{}, err
	}
	if _, err := svc.authorize(ctx, session, p.ControllerID); err != nil {
		return peripherals.Peripheral{}, err
	}
	removing, ref, err := svc.peripherals.RequestRemove(ctx, id)
	if err != nil {
		return peripherals.Peripheral{}, err
	}

	var batch protocol.Batch
	batch.RemovePeripheral(ref)

	return removing, svc.dispatch(ctx, removing.ControllerID, batch)
}

func (svc *service) ListTasks(ctx context.Context, session authn.Session, pm tasks.PageMetadata) (tasks.Page, error) {
	if _, err := svc.authorize(ctx, session, pm.ControllerID); err != nil {
		return tasks.Page{}, err
	}

	return svc.tasks.List(ctx, pm)
}

func (svc *service) ListPeripherals(ctx context.Context, session authn.Session, pm peripherals.PageMetadata) (peripherals.Page, error) {
	if _, err := svc.authorize(ctx, session, pm.ControllerID); err != nil {
		return peripherals.Page{}, err
	}

	return svc.peripherals.List(ctx, pm)
}

func (svc *service) ListDataPoints(ctx context.Context, session authn.Session, pm telemetry.PageMetadata) (telemetry.Page, error) {
	p, err := svc.peripherals.View(ctx, pm.PeripheralID)
	if err != nil {
		return telemetry.Page{}, err
	}
	if _, err := svc.authorize(ctx, session, p.ControllerID); err != nil {
		return telemetry.Page{}, err
	}

	return svc.telemetry.List(ctx, pm)
}

// authorize retrieves the controller and checks the session user owns it.
func (svc *service) authorize(ctx context.Context, session authn.Session, id string) (Controller, error) {
	c, err := svc.repo.RetrieveByID(ctx, id)
	if err != nil {
		return Controller{}, errors.Wrap(svcerr.ErrViewEntity, err)
	}
	if c.OwnerID != session.UserID {
		return Controller{}, errors.Wrap(svcerr.ErrAuthorization, fmt.Errorf("controller %s", id))
	}

	return c, nil
}

func (svc *service) dispatch(ctx context.Context, controllerID string, batch protocol.Batch) error {
	cmd := batch.Command(middleware.GetReqID(ctx))
	if cmd.Empty() {
		return nil
	}

	return svc.dispatcher.Dispatch(ctx, controllerID, cmd)
}
