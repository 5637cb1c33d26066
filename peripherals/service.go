// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package peripherals

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

// NewService returns a new peripheral Service.
func NewService(repo Repository, idp farmgate.IDProvider) Service {
	return &service{
		repo:  repo,
		idp:   idp,
		clock: func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

func (svc *service) Create(ctx context.Context, p Peripheral) (Peripheral, error) {
	if p.ControllerID == "" {
		return Peripheral{}, errors.Wrap(svcerr.ErrMalformedEntity, errMissingController)
	}
	if err := p.Validate(); err != nil {
		return Peripheral{}, errors.Wrap(svcerr.ErrMalformedEntity, err)
	}

	switch {
	case p.ID == "":
		id, err := svc.idp.ID()
		if err != nil {
			return Peripheral{}, errors.Wrap(svcerr.ErrUniqueID, err)
		}
		p.ID = id
	case !uuid.Valid(p.ID):
		return Peripheral{}, errors.Wrap(svcerr.ErrMalformedEntity, fmt.Errorf("peripheral id %q is not a uuid", p.ID))
	}

	now := svc.clock()
	p.State = Adding
	p.CreatedAt = now
	p.UpdatedAt = now

	saved, err := svc.repo.Save(ctx, p)
	if err != nil {
		return Peripheral{}, errors.Wrap(svcerr.ErrCreateEntity, err)
	}

	return saved, nil
}

func (svc *service) View(ctx context.Context, id string) (Peripheral, error) {
	p, err := svc.repo.RetrieveByID(ctx, id)
	if err != nil {
		return Peripheral{}, errors.Wrap(svcerr.ErrViewEntity, err)
	}

	return p, nil
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

func (svc *service) RequestRemove(ctx context.Context, id string) (Peripheral, protocol.EntityRef, error) {
	var removing Peripheral
	err := svc.repo.Update(ctx, Query{IDs: []string{id}}, func(locked []Peripheral) ([]Peripheral, error) {
		if len(locked) == 0 {
			return nil, errors.Wrap(svcerr.ErrNotFound, fmt.Errorf("peripheral %s", id))
		}
		p := locked[0]
		if err := p.Fire(RemoveRequested, svc.clock()); err != nil {
			return nil, err
		}
		removing = p
		return []Peripheral{p}, nil
	})
	if err != nil {
		return Peripheral{}, protocol.EntityRef{}, errors.Wrap(svcerr.ErrUpdateEntity, err)
	}

	ref, _ := removing.RemoveCommand()
	return removing, ref, nil
}

var batch = fsm.Batch[Peripheral, Event]{
	Kind: "peripheral",
	ID:   func(p Peripheral) string { return p.ID },
	Fire: (*Peripheral).Fire,
}

func (svc *service) ApplyResults(ctx context.Context, controllerID string, res protocol.PeripheralResults) error {
	var outcomes []fsm.Outcome[Event]
	for _, r := range res.Add {
		o, err := batch.Outcome(r, AddSucceeded, AddFailed)
		if err != nil {
			return err
		}
		outcomes = append(outcomes, o)
	}
	for _, r := range res.Remove {
		o, err := batch.Outcome(r, RemoveSucceeded, RemoveFailed)
		if err != nil {
			return err
		}
		outcomes = append(outcomes, o)
	}
	if len(outcomes) == 0 {
		return nil
	}

	err := svc.repo.Update(ctx, Query{ControllerID: controllerID, IDs: fsm.IDs(outcomes)}, func(locked []Peripheral) ([]Peripheral, error) {
		return batch.Apply(locked, outcomes, svc.clock())
	})
	if err != nil {
		return errors.Wrap(svcerr.ErrUpdateEntity, err)
	}

	return nil
}

func (svc *service) Reconcile(ctx context.Context, controllerID string, reported []string) ([]protocol.EntityCommand, error) {
	var cmds []protocol.EntityCommand
	err := svc.repo.Update(ctx, Query{ControllerID: controllerID, States: ReaddStates}, func(locked []Peripheral) ([]Peripheral, error) {
		now := svc.clock()
		changed, err := batch.Replay(locked, reported, Readd, now)
		if err != nil {
			return nil, err
		}
		cmds = nil
		for i := range changed {
			if cmd, ok := changed[i].AddCommand(); ok {
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
