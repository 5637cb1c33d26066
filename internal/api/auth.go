// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"net/http"

	"github.com/absmach/farmgate/pkg/apiutil"
	"github.com/absmach/farmgate/pkg/authn"
)

type sessionKeyType string

// SessionKey holds the authn.Session of the request user in the request context.
const SessionKey = sessionKeyType("session")

// AuthenticateMiddleware rejects requests without a valid user bearer token.
func AuthenticateMiddleware(auth authn.Authentication) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := apiutil.ExtractBearerToken(r)
			if token == "" {
				EncodeError(r.Context(), apiutil.ErrBearerToken, w)
				return
			}

			session, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				EncodeError(r.Context(), err, w)
				return
			}

			ctx := context.WithValue(r.Context(), SessionKey, session)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Session returns the session stored by AuthenticateMiddleware.
func Session(ctx context.Context) (authn.Session, bool) {
	session, ok := ctx.Value(SessionKey).(authn.Session)
	return session, ok
}
