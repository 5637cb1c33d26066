// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package mocks

import (
	"context"

	"github.com/absmach/farmgate/pkg/authn"
	"github.com/stretchr/testify/mock"
)

var _ authn.Authentication = (*Authentication)(nil)

// Authentication is a testify mock of authn.Authentication.
type Authentication struct {
	mock.Mock
}

func (m *Authentication) Authenticate(ctx context.Context, token string) (authn.Session, error) {
	ret := m.Called(ctx, token)
	return ret.Get(0).(authn.Session), ret.Error(1)
}
