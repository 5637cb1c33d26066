// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package nats publishes broker messages over core NATS subjects.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/absmach/farmgate/pkg/errors"
	"github.com/absmach/farmgate/pkg/messaging"
	"github.com/cenkalti/backoff/v4"
	broker "github.com/nats-io/nats.go"
)

const (
	// A maximum number of reconnect attempts before NATS connection closes permanently.
	// Value -1 represents an unlimited number of reconnect retries, i.e. the client
	// will never give up on retrying to re-establish connection to NATS server.
	maxReconnects = -1

	defaultPrefix = "telemetry"

	maxConnectWait = time.Minute
)

var (
	// ErrEmptyTopic indicates the absence of topic.
	ErrEmptyTopic = errors.New("empty topic")

	// ErrInvalidOption indicates an option applied to the wrong type.
	ErrInvalidOption = errors.New("invalid option")

	errConnect = errors.New("failed to connect to nats")
)

var _ messaging.Publisher = (*publisher)(nil)

type publisher struct {
	conn   *broker.Conn
	prefix string
}

// Prefix sets the subject prefix, "telemetry" by default.
func Prefix(prefix string) messaging.Option {
	return func(val interface{}) error {
		p, ok := val.(*publisher)
		if !ok {
			return ErrInvalidOption
		}
		p.prefix = prefix
		return nil
	}
}

// NewPublisher returns NATS message Publisher. The initial connection is
// retried with exponential backoff until ctx is done.
func NewPublisher(ctx context.Context, url string, logger *slog.Logger, opts ...messaging.Option) (messaging.Publisher, error) {
	var conn *broker.Conn
	connect := func() error {
		c, err := broker.Connect(url, broker.MaxReconnects(maxReconnects))
		if err != nil {
			return err
		}
		conn = c
		return nil
	}
	notify := func(err error, next time.Duration) {
		logger.Warn(fmt.Sprintf("Broker not ready: %s, next try in %s", err, next))
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = maxConnectWait
	if err := backoff.RetryNotify(connect, backoff.WithContext(bo, ctx), notify); err != nil {
		return nil, errors.Wrap(errConnect, err)
	}

	ret := &publisher{
		conn:   conn,
		prefix: defaultPrefix,
	}
	for _, opt := range opts {
		if err := opt(ret); err != nil {
			conn.Close()
			return nil, err
		}
	}

	return ret, nil
}

func (pub *publisher) Publish(_ context.Context, topic string, msg *messaging.Message) error {
	if topic == "" {
		return ErrEmptyTopic
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("%s.%s", pub.prefix, topic)
	if msg.Subtopic != "" {
		subject = fmt.Sprintf("%s.%s", subject, msg.Subtopic)
	}

	return pub.conn.Publish(subject, data)
}

func (pub *publisher) Close() error {
	return pub.conn.Drain()
}
