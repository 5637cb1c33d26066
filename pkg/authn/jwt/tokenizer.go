// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package jwt issues and verifies HMAC signed user tokens.
package jwt

import (
	"context"
	"time"

	"github.com/absmach/farmgate/pkg/authn"
	"github.com/absmach/farmgate/pkg/errors"
	svcerr "github.com/absmach/farmgate/pkg/errors/service"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// IssuerName is the issuer of the tokens accepted by the gateway.
const IssuerName = "farmgate.auth"

var (
	errInvalidIssuer = errors.New("invalid token issuer value")
	errMissingUser   = errors.New("token without subject")
	// errJWTExpiryKey is used to check if the token is expired.
	errJWTExpiryKey = errors.New(`"exp" not satisfied`)

	// ErrSignJWT indicates an error in signing jwt token.
	ErrSignJWT = errors.New("failed to sign jwt token")
)

// Tokenizer issues tokens and authenticates them.
type Tokenizer interface {
	authn.Authentication

	// Issue returns a token of the user valid for ttl.
	Issue(userID string, ttl time.Duration) (string, error)
}

type tokenizer struct {
	secret []byte
}

var _ Tokenizer = (*tokenizer)(nil)

// New instantiates a Tokenizer signing with secret.
func New(secret []byte) Tokenizer {
	return &tokenizer{secret: secret}
}

func (tok *tokenizer) Issue(userID string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	tkn, err := jwt.NewBuilder().
		Issuer(IssuerName).
		Subject(userID).
		IssuedAt(now).
		Expiration(now.Add(ttl)).
		Build()
	if err != nil {
		return "", errors.Wrap(svcerr.ErrAuthentication, err)
	}
	signed, err := jwt.Sign(tkn, jwt.WithKey(jwa.HS256, tok.secret))
	if err != nil {
		return "", errors.Wrap(ErrSignJWT, err)
	}

	return string(signed), nil
}

func (tok *tokenizer) Authenticate(_ context.Context, token string) (authn.Session, error) {
	tkn, err := jwt.Parse([]byte(token), jwt.WithValidate(true), jwt.WithKey(jwa.HS256, tok.secret))
	if err != nil {
		if errors.Contains(err, errJWTExpiryKey) {
			return authn.Session{}, errors.Wrap(svcerr.ErrAuthentication, authn.ErrExpiry)
		}
		return authn.Session{}, errors.Wrap(svcerr.ErrAuthentication, err)
	}
	if tkn.Issuer() != IssuerName {
		return authn.Session{}, errors.Wrap(svcerr.ErrAuthentication, errInvalidIssuer)
	}
	if tkn.Subject() == "" {
		return authn.Session{}, errors.Wrap(svcerr.ErrAuthentication, errMissingUser)
	}

	return authn.Session{UserID: tkn.Subject()}, nil
}
