// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package mocks

import (
	"context"
	"sync"

	"github.com/absmach/farmgate/controllers"
	repoerr "github.com/absmach/farmgate/pkg/errors/repository"
)

var _ controllers.Cache = (*cacheMock)(nil)

type cacheMock struct {
	mu   sync.Mutex
	keys map[string]string
}

// NewCache returns in-memory controller key cache.
func NewCache() controllers.Cache {
	return &cacheMock{keys: make(map[string]string)}
}

func (cm *cacheMock) Save(_ context.Context, key, id string) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.keys[key] = id
	return nil
}

func (cm *cacheMock) ID(_ context.Context, key string) (string, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	id, ok := cm.keys[key]
	if !ok {
		return "", repoerr.ErrNotFound
	}
	return id, nil
}

func (cm *cacheMock) Remove(_ context.Context, id string) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	for k, v := range cm.keys {
		if v == id {
			delete(cm.keys, k)
		}
	}
	return nil
}
