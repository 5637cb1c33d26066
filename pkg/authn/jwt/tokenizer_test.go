// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package jwt_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/absmach/farmgate/pkg/authn"
	authjwt "github.com/absmach/farmgate/pkg/authn/jwt"
	"github.com/absmach/farmgate/pkg/errors"
	svcerr "github.com/absmach/farmgate/pkg/errors/service"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	secret = "test"
	userID = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
)

func newToken(t *testing.T, issuer, subject string, expires time.Time, key []byte) string {
	tkn, err := jwt.NewBuilder().
		Issuer(issuer).
		Subject(subject).
		IssuedAt(expires.Add(-time.Hour)).
		Expiration(expires).
		Build()
	require.Nil(t, err)
	signed, err := jwt.Sign(tkn, jwt.WithKey(jwa.HS256, key))
	require.Nil(t, err)
	return string(signed)
}

func TestIssue(t *testing.T) {
	tokenizer := authjwt.New([]byte(secret))

	token, err := tokenizer.Issue(userID, time.Hour)
	require.Nil(t, err, fmt.Sprintf("issuing token expected to succeed: %s", err))

	session, err := tokenizer.Authenticate(context.Background(), token)
	require.Nil(t, err, fmt.Sprintf("authenticating issued token expected to succeed: %s", err))
	assert.Equal(t, authn.Session{UserID: userID}, session)
}

func TestAuthenticate(t *testing.T) {
	tokenizer := authjwt.New([]byte(secret))
	future := time.Now().Add(time.Hour)

	cases := []struct {
		desc    string
		token   string
		session authn.Session
		err     error
	}{
		{
			desc:    "authenticate valid token",
			token:   newToken(t, authjwt.IssuerName, userID, future, []byte(secret)),
			session: authn.Session{UserID: userID},
		},
		{
			desc:  "authenticate expired token",
			token: newToken(t, authjwt.IssuerName, userID, time.Now().Add(-time.Minute), []byte(secret)),
			err:   authn.ErrExpiry,
		},
		{
			desc:  "authenticate token with foreign issuer",
			token: newToken(t, "other.auth", userID, future, []byte(secret)),
			err:   svcerr.ErrAuthentication,
		},
		{
			desc:  "authenticate token without subject",
			token: newToken(t, authjwt.IssuerName, "", future, []byte(secret)),
			err:   svcerr.ErrAuthentication,
		},
		{
			desc:  "authenticate token signed with another secret",
			token: newToken(t, authjwt.IssuerName, userID, future, []byte("other")),
			err:   svcerr.ErrAuthentication,
		},
		{
			desc:  "authenticate garbage",
			token: "invalid",
			err:   svcerr.ErrAuthentication,
		},
	}

	for _, tc := range cases {
		session, err := tokenizer.Authenticate(context.Background(), tc.token)
		assert.True(t, errors.Contains(err, tc.err), fmt.Sprintf("%s: expected %s got %s", tc.desc, tc.err, err))
		assert.Equal(t, tc.session, session, tc.desc)
	}
}
