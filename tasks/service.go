// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/absmach/farmgate"
	"github.com/absmach/farmgate/pkg/errors"
	svcerr "github.com/absmach/farmgate/pkg/errors/service"
	"github.com/absmach/farmgate/pkg/fsm"
	"github.com/absmach/farmgate/pkg/protocol"
	"github.com/absmach/farmgate/pkg/uuid"
)

var errMissingController = errors.New("missing controller id")

type service struct {
	repo  Repository
	idp   farmgate.IDProvider
	clock func() time.Time
}

var _ Service = (*service)(nil)

// NewService returns a new task Service.
func NewService(repo Repository, idp farmgate.IDProvider) Service {
	return &service{
		repo:  repo,
		idp:   idp,
		clock: func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

func (svc *service) Create(ctx context.Context, t Task) (Task, error) {
	if t.ControllerID == "" {
		return Task{}, errors.Wrap(svcerr.ErrMalformedEntity, errMissingController)
	}
	if err := t.Type.Validate(t.Params); err != nil {
		return Task{}, errors.Wrap(svcerr.ErrMalformedEntity, err)
	}
	now := svc.clock()
	if t.Expired(now) {
		return Task{}, errors.Wrap(svcerr.ErrMalformedEntity, ErrExpired)
	}

	switch {
	case t.ID == "":
		id, err := svc.idp.ID()
		if err != nil {
			return Task{}, errors.Wrap(svcerr.ErrUniqueID, err)
		}
		t.ID = id
	case !uuid.Valid(t.ID):
		return Task{}, errors.Wrap(svcerr.ErrMalformedEntity, fmt.Errorf("task id %q is not a uuid", t.ID))
	}

	t.State = Starting
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.RunUntil != nil {
		ru := t.RunUntil.UTC()
		t.RunUntil = &ru
	}

	saved, err := svc.repo.Save(ctx, t)
	if err != nil {
		return Task{}, errors.Wrap(svcerr.ErrCreateEntity, err)
	}

	return saved, nil
}

func (svc *service) View(ctx context.Context, id string) (Task, error) {
	t, err := svc.repo.RetrieveByID(ctx, id)
	if err != nil {
		return Task{}, errors.Wrap(svcerr.ErrViewEntity, err)
	}

	return t, nil
}

func (svc *service) List(ctx context.Context, pm PageMetadata) (Page, error) {
	if pm.State != "" && !pm.State.Valid() {
		return Page{}, errors.Wrap(svcerr.ErrMalformedEntity, fmt.Errorf("unknown state %q", pm.State))
	}
	page, err := svc.repo.RetrieveAll(ctx, pm)
	if err != nil {
		return Page{}, errors.Wrap(svcerr.ErrViewEntity, err)
	}

	return page, nil
}

func (svc *service) RequestStop(ctx context.Context, id string) (Task, protocol.EntityRef, error) {
	var stopped Task
	err := svc.repo.Update(ctx, Query{IDs: []string{id}}, func(locked []Task) ([]Task, error) {
		if len(locked) == 0 {
			return nil, errors.Wrap(svcerr.ErrNotFound, fmt.Errorf("task %s", id))
		}
		t := locked[0]
		if err := t.Fire(StopRequested, svc.clock()); err != nil {
			return nil, err
		}
		stopped = t
		return []Task{t}, nil
	})
	if err != nil {
		return Task{}, protocol.EntityRef{}, errors.Wrap(svcerr.ErrUpdateEntity, err)
	}

	ref, _ := stopped.StopCommand()
	return stopped, ref, nil
}

var batch = fsm.Batch[Task, Event]{
	Kind: "task",
	ID:   func(t Task) string { return t.ID },
	Fire: (*Task).Fire,
}

func (svc *service) ApplyResults(ctx context.Context, controllerID string, res protocol.TaskResults) error {
	var outcomes []fsm.Outcome[Event]
	for _, r := range res.Start {
		o, err := batch.Outcome(r, StartSucceeded, StartFailed)
		if err != nil {
			return err
		}
		outcomes = append(outcomes, o)
	}
	for _, r := range res.Stop {
		o, err := batch.Outcome(r, StopSucceeded, StopFailed)
		if err != nil {
			return err
		}
		outcomes = append(outcomes, o)
	}
	if len(outcomes) == 0 {
		return nil
	}

	err := svc.repo.Update(ctx, Query{ControllerID: controllerID, IDs: fsm.IDs(outcomes)}, func(locked []Task) ([]Task, error) {
		return batch.Apply(locked, outcomes, svc.clock())
	})
	if err != nil {
		return errors.Wrap(svcerr.ErrUpdateEntity, err)
	}

	return nil
}

func (svc *service) Reconcile(ctx context.Context, controllerID string, reported []string) ([]protocol.EntityCommand, error) {
	var cmds []protocol.EntityCommand
	err := svc.repo.Update(ctx, Query{ControllerID: controllerID, States: RestartStates}, func(locked []Task) ([]Task, error) {
		now := svc.clock()
		changed, err := batch.Replay(locked, reported, Restart, now)
		if err != nil {
			return nil, err
		}
		cmds = nil
		for i := range changed {
			if cmd, ok := changed[i].StartCommand(now); ok {
				cmds = append(cmds, cmd)
			}
		}
		return changed, nil
	})
	if err != nil {
		return nil, errors.Wrap(svcerr.ErrUpdateEntity, err)
	}

	return cmds, nil
}
