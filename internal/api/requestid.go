// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"net/http"

	"github.com/absmach/farmgate"
	"github.com/go-chi/chi/v5/middleware"
)

// RequestIDMiddleware tags every request with an id read by
// middleware.GetReqID. An X-Request-ID header sent by the caller is kept.
func RequestIDMiddleware(idp farmgate.IDProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(middleware.RequestIDHeader)
			if reqID == "" {
				id, err := idp.ID()
				if err != nil {
					EncodeError(r.Context(), err, w)
					return
				}
				reqID = id
			}
			w.Header().Set(middleware.RequestIDHeader, reqID)
			ctx := context.WithValue(r.Context(), middleware.RequestIDKey, reqID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
