// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package cache contains the Redis cache of controller keys.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/absmach/farmgate/controllers"
	"github.com/absmach/farmgate/pkg/errors"
	repoerr "github.com/absmach/farmgate/pkg/errors/repository"
	"github.com/go-redis/redis/v8"
)

const (
	keyPrefix = "controller_key"
	idPrefix  = "controller_id"
)

var _ controllers.Cache = (*controllerCache)(nil)

type controllerCache struct {
	client      *redis.Client
	keyDuration time.Duration
}

// NewCache returns redis controller cache implementation.
func NewCache(client *redis.Client, duration time.Duration) controllers.Cache {
	return &controllerCache{
		client:      client,
		keyDuration: duration,
	}
}

func (cc *controllerCache) Save(ctx context.Context, key, id string) error {
	if key == "" || id == "" {
		return repoerr.ErrMalformedEntity
	}
	ckey := fmt.Sprintf("%s:%s", keyPrefix, key)
	cid := fmt.Sprintf("%s:%s", idPrefix, id)
	if _, err := cc.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, ckey, id, cc.keyDuration)
		pipe.Set(ctx, cid, key, cc.keyDuration)
		return nil
	}); err != nil {
		return errors.Wrap(repoerr.ErrCreateEntity, err)
	}

	return nil
}

func (cc *controllerCache) ID(ctx context.Context, key string) (string, error) {
	ckey := fmt.Sprintf("%s:%s", keyPrefix, key)
	id, err := cc.client.Get(ctx, ckey).Result()
	if err != nil {
		return "", errors.Wrap(repoerr.ErrNotFound, err)
	}
	if id == "" {
		return "", repoerr.ErrNotFound
	}

	return id, nil
}

func (cc *controllerCache) Remove(ctx context.Context, id string) error {
	cid := fmt.Sprintf("%s:%s", idPrefix, id)
	key, err := cc.client.Get(ctx, cid).Result()
	// Redis returns Nil Reply when key does not exist.
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return errors.Wrap(repoerr.ErrRemoveEntity, err)
	}

	ckey := fmt.Sprintf("%s:%s", keyPrefix, key)
	if err := cc.client.Del(ctx, ckey, cid).Err(); err != nil {
		return errors.Wrap(repoerr.ErrRemoveEntity, err)
	}

	return nil
}
