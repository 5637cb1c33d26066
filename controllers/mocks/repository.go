// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/absmach/farmgate/controllers"
	repoerr "github.com/absmach/farmgate/pkg/errors/repository"
)

var _ controllers.Repository = (*controllerRepositoryMock)(nil)

type controllerRepositoryMock struct {
	mu          sync.Mutex
	controllers map[string]controllers.Controller
}

// NewRepository creates in-memory controller repository.
func NewRepository() controllers.Repository {
	return &controllerRepositoryMock{
		controllers: make(map[string]controllers.Controller),
	}
}

func (crm *controllerRepositoryMock) Save(_ context.Context, c controllers.Controller) (controllers.Controller, error) {
	crm.mu.Lock()
	defer crm.mu.Unlock()

	if _, ok := crm.controllers[c.ID]; ok {
		return controllers.Controller{}, repoerr.ErrConflict
	}
	for _, cur := range crm.controllers {
		if cur.Key == c.Key {
			return controllers.Controller{}, repoerr.ErrConflict
		}
	}
	crm.controllers[c.ID] = c

	return c, nil
}

func (crm *controllerRepositoryMock) RetrieveByID(_ context.Context, id string) (controllers.Controller, error) {
	crm.mu.Lock()
	defer crm.mu.Unlock()

	c, ok := crm.controllers[id]
	if !ok {
		return controllers.Controller{}, repoerr.ErrNotFound
	}

	return c, nil
}

func (crm *controllerRepositoryMock) RetrieveByKey(_ context.Context, key string) (controllers.Controller, error) {
	crm.mu.Lock()
	defer crm.mu.Unlock()

	for _, c := range crm.controllers {
		if c.Key == key {
			return c, nil
		}
	}

	return controllers.Controller{}, repoerr.ErrNotFound
}

func (crm *controllerRepositoryMock) RetrieveAll(_ context.Context, pm controllers.PageMetadata) (controllers.Page, error) {
	crm.mu.Lock()
	defer crm.mu.Unlock()

	var all []controllers.Controller
	for _, c := range crm.controllers {
		if pm.OwnerID != "" && c.OwnerID != pm.OwnerID {
			continue
		}
		if pm.Name != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(pm.Name)) {
			continue
		}
		all = append(all, c)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	page := controllers.Page{
		Total:       uint64(len(all)),
		Offset:      pm.Offset,
		Limit:       pm.Limit,
		Controllers: []controllers.Controller{},
	}
	if pm.Offset >= uint64(len(all)) {
		return page, nil
	}
	end := pm.Offset + pm.Limit
	if pm.Limit == 0 || end > uint64(len(all)) {
		end = uint64(len(all))
	}
	page.Controllers = append(page.Controllers, all[pm.Offset:end]...)

	return page, nil
}

func (crm *controllerRepositoryMock) UpdateKey(_ context.Context, c controllers.Controller) (controllers.Controller, error) {
	crm.mu.Lock()
	defer crm.mu.Unlock()

	cur, ok := crm.controllers[c.ID]
	if !ok {
		return controllers.Controller{}, repoerr.ErrNotFound
	}
	cur.Key = c.Key
	cur.UpdatedAt = c.UpdatedAt
	crm.controllers[c.ID] = cur

	return cur, nil
}
