// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package authn authenticates the users operating controllers.
package authn

import (
	"context"

	"github.com/absmach/farmgate/pkg/errors"
)

// ErrExpiry indicates an expired token.
var ErrExpiry = errors.New("token is expired")

// Session is the identity of an authenticated user.
type Session struct {
	UserID string
}

// Authentication resolves bearer tokens to sessions.
type Authentication interface {
	Authenticate(ctx context.Context, token string) (Session, error)
}
