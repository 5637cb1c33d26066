// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package redis connects the controller key cache to Redis.
package redis

import (
	"context"

	"github.com/absmach/farmgate/pkg/errors"
	"github.com/go-redis/redis/v8"
)

var errConnect = errors.New("failed to connect to redis server")

// Connect parses url, connects to the server and checks it answers.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(errConnect, err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(errConnect, err)
	}

	return client, nil
}
