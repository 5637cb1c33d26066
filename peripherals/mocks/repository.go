// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/absmach/farmgate/peripherals"
	repoerr "github.com/absmach/farmgate/pkg/errors/repository"
	pgmocks "github.com/absmach/farmgate/pkg/postgres/mocks"
)

var _ peripherals.Repository = (*peripheralRepositoryMock)(nil)

type peripheralRepositoryMock struct {
	mu          sync.Mutex
	peripherals map[string]peripherals.Peripheral
}

// NewRepository creates in-memory peripheral repository. Update holds the
// repository lock for the whole call and joins the in-memory unit of
// work carried by the context.
func NewRepository() peripherals.Repository {
	return &peripheralRepositoryMock{
		peripherals: make(map[string]peripherals.Peripheral),
	}
}

func (prm *peripheralRepositoryMock) Save(_ context.Context, p peripherals.Peripheral) (peripherals.Peripheral, error) {
	prm.mu.Lock()
	defer prm.mu.Unlock()

	if _, ok := prm.peripherals[p.ID]; ok {
		return peripherals.Peripheral{}, repoerr.ErrConflict
	}
	prm.peripherals[p.ID] = p

	return p, nil
}

func (prm *peripheralRepositoryMock) RetrieveByID(_ context.Context, id string) (peripherals.Peripheral, error) {
	prm.mu.Lock()
	defer prm.mu.Unlock()

	p, ok := prm.peripherals[id]
	if !ok {
		return peripherals.Peripheral{}, repoerr.ErrNotFound
	}

	return p, nil
}

func (prm *peripheralRepositoryMock) RetrieveAll(_ context.Context, pm peripherals.PageMetadata) (peripherals.Page, error) {
	prm.mu.Lock()
	defer prm.mu.Unlock()

	var all []peripherals.Peripheral
	for _, p := range prm.peripherals {
		if pm.ControllerID != "" && p.ControllerID != pm.ControllerID {
			continue
		}
		if pm.State != "" && p.State != pm.State {
			continue
		}
		all = append(all, p)
	}
	sortByCreation(all)

	page := peripherals.Page{
		Total:       uint64(len(all)),
		Offset:      pm.Offset,
		Limit:       pm.Limit,
		Peripherals: []peripherals.Peripheral{},
	}
	if pm.Offset >= uint64(len(all)) {
		return page, nil
	}
	end := pm.Offset + pm.Limit
	if pm.Limit == 0 || end > uint64(len(all)) {
		end = uint64(len(all))
	}
	page.Peripherals = append(page.Peripherals, all[pm.Offset:end]...)

	return page, nil
}

func (prm *peripheralRepositoryMock) Update(ctx context.Context, q peripherals.Query, fn peripherals.UpdateFunc) error {
	prm.mu.Lock()
	defer prm.mu.Unlock()

	ids := make(map[string]bool, len(q.IDs))
	for _, id := range q.IDs {
		ids[id] = true
	}
	states := make(map[peripherals.State]bool, len(q.States))
	for _, s := range q.States {
		states[s] = true
	}

	var locked []peripherals.Peripheral
	for _, p := range prm.peripherals {
		if q.ControllerID != "" && p.ControllerID != q.ControllerID {
			continue
		}
		if len(ids) > 0 && !ids[p.ID] {
			continue
		}
		if len(states) > 0 && !states[p.State] {
			continue
		}
		locked = append(locked, p)
	}
	sortByCreation(locked)

	changed, err := fn(locked)
	if err != nil {
		return err
	}
	for _, p := range changed {
		if _, ok := prm.peripherals[p.ID]; !ok {
			return repoerr.ErrNotFound
		}
	}
	prev := make(map[string]peripherals.Peripheral, len(changed))
	for _, p := range changed {
		if _, ok := prev[p.ID]; !ok {
			prev[p.ID] = prm.peripherals[p.ID]
		}
	}
	pgmocks.OnRollback(ctx, func() {
		prm.mu.Lock()
		defer prm.mu.Unlock()
		for id, old := range prev {
			prm.peripherals[id] = old
		}
	})
	for _, p := range changed {
		cur := prm.peripherals[p.ID]
		cur.State = p.State
		cur.UpdatedAt = p.UpdatedAt
		prm.peripherals[p.ID] = cur
	}

	return nil
}

func sortByCreation(ps []peripherals.Peripheral) {
	sort.SliceStable(ps, func(i, j int) bool {
		if ps[i].CreatedAt.Equal(ps[j].CreatedAt) {
			return ps[i].ID < ps[j].ID
		}
		return ps[i].CreatedAt.Before(ps[j].CreatedAt)
	})
}
