// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package mocks

import (
	"context"
	"sort"
	"sync"

	repoerr "github.com/absmach/farmgate/pkg/errors/repository"
	pgmocks "github.com/absmach/farmgate/pkg/postgres/mocks"
	"github.com/absmach/farmgate/tasks"
)

var _ tasks.Repository = (*taskRepositoryMock)(nil)

type taskRepositoryMock struct {
	mu    sync.Mutex
	tasks map[string]tasks.Task
}

// NewRepository creates in-memory task repository. Update holds the
// repository lock for the whole call and joins the in-memory unit of
// work carried by the context.
func NewRepository() tasks.Repository {
	return &taskRepositoryMock{
		tasks: make(map[string]tasks.Task),
	}
}

func (trm *taskRepositoryMock) Save(_ context.Context, t tasks.Task) (tasks.Task, error) {
	trm.mu.Lock()
	defer trm.mu.Unlock()

	if _, ok := trm.tasks[t.ID]; ok {
		return tasks.Task{}, repoerr.ErrConflict
	}
	trm.tasks[t.ID] = t

	return t, nil
}

func (trm *taskRepositoryMock) RetrieveByID(_ context.Context, id string) (tasks.Task, error) {
	trm.mu.Lock()
	defer trm.mu.Unlock()

	t, ok := trm.tasks[id]
	if !ok {
		return tasks.Task{}, repoerr.ErrNotFound
	}

	return t, nil
}

func (trm *taskRepositoryMock) RetrieveAll(_ context.Context, pm tasks.PageMetadata) (tasks.Page, error) {
	trm.mu.Lock()
	defer trm.mu.Unlock()

	var all []tasks.Task
	for _, t := range trm.tasks {
		if pm.ControllerID != "" && t.ControllerID != pm.ControllerID {
			continue
		}
		if pm.State != "" && t.State != pm.State {
			continue
		}
		all = append(all, t)
	}
	sortByCreation(all)

	page := tasks.Page{
		Total:  uint64(len(all)),
		Offset: pm.Offset,
		Limit:  pm.Limit,
		Tasks:  []tasks.Task{},
	}
	if pm.Offset >= uint64(len(all)) {
		return page, nil
	}
	end := pm.Offset + pm.Limit
	if pm.Limit == 0 || end > uint64(len(all)) {
		end = uint64(len(all))
	}
	page.Tasks = append(page.Tasks, all[pm.Offset:end]...)

	return page, nil
}

func (trm *taskRepositoryMock) Update(ctx context.Context, q tasks.Query, fn tasks.UpdateFunc) error {
	trm.mu.Lock()
	defer trm.mu.Unlock()

	ids := make(map[string]bool, len(q.IDs))
	for _, id := range q.IDs {
		ids[id] = true
	}
	states := make(map[tasks.State]bool, len(q.States))
	for _, s := range q.States {
		states[s] = true
	}

	var locked []tasks.Task
	for _, t := range trm.tasks {
		if q.ControllerID != "" && t.ControllerID != q.ControllerID {
			continue
		}
		if len(ids) > 0 && !ids[t.ID] {
			continue
		}
		if len(states) > 0 && !states[t.State] {
			continue
		}
		locked = append(locked, t)
	}
	sortByCreation(locked)

	changed, err := fn(locked)
	if err != nil {
		return err
	}
	for _, t := range changed {
		if _, ok := trm.tasks[t.ID]; !ok {
			return repoerr.ErrNotFound
		}
	}
	prev := make(map[string]tasks.Task, len(changed))
	for _, t := range changed {
		if _, ok := prev[t.ID]; !ok {
			prev[t.ID] = trm.tasks[t.ID]
		}
	}
	pgmocks.OnRollback(ctx, func() {
		trm.mu.Lock()
		defer trm.mu.Unlock()
		for id, old := range prev {
			trm.tasks[id] = old
		}
	})
	for _, t := range changed {
		cur := trm.tasks[t.ID]
		cur.State = t.State
		cur.UpdatedAt = t.UpdatedAt
		trm.tasks[t.ID] = cur
	}

	return nil
}

func sortByCreation(ts []tasks.Task) {
	sort.SliceStable(ts, func(i, j int) bool {
		if ts[i].CreatedAt.Equal(ts[j].CreatedAt) {
			return ts[i].ID < ts[j].ID
		}
		return ts[i].CreatedAt.Before(ts[j].CreatedAt)
	})
}
