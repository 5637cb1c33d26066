// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package apiutil

import (
	"net/http"
	"strings"
)

// BearerPrefix represents the token prefix for Bearer authentication scheme.
const BearerPrefix = "Bearer "

// ControllerPrefix represents the key prefix for Controller authentication scheme.
const ControllerPrefix = "Controller "

// ExtractBearerToken returns value of the bearer token. If there is no bearer token - an empty value is returned.
func ExtractBearerToken(r *http.Request) string {
	token := r.Header.Get("Authorization")

	if !strings.HasPrefix(token, BearerPrefix) {
		return ""
	}

	return strings.TrimPrefix(token, BearerPrefix)
}

// ExtractControllerKey returns the controller key sent with either the
// Controller or the Bearer scheme. If it's not present - an empty value is returned.
func ExtractControllerKey(r *http.Request) string {
	token := r.Header.Get("Authorization")

	switch {
	case strings.HasPrefix(token, ControllerPrefix):
		return strings.TrimPrefix(token, ControllerPrefix)
	case strings.HasPrefix(token, BearerPrefix):
		return strings.TrimPrefix(token, BearerPrefix)
	default:
		return ""
	}
}
