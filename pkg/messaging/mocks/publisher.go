// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package mocks

import (
	"context"

	"github.com/absmach/farmgate/pkg/messaging"
	"github.com/stretchr/testify/mock"
)

var _ messaging.Publisher = (*Publisher)(nil)

// Publisher is a testify mock of messaging.Publisher.
type Publisher struct {
	mock.Mock
}

func (m *Publisher) Publish(ctx context.Context, topic string, msg *messaging.Message) error {
	ret := m.Called(ctx, topic, msg)
	return ret.Error(0)
}

func (m *Publisher) Close() error {
	ret := m.Called()
	return ret.Error(0)
}
