// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package apiutil_test

import (
	"net/http"
	"testing"

	"github.com/absmach/farmgate/pkg/apiutil"
	"github.com/stretchr/testify/assert"
)

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		desc   string
		header string
		token  string
	}{
		{desc: "valid bearer token", header: "Bearer 123", token: "123"},
		{desc: "invalid bearer token", header: "123", token: ""},
		{desc: "empty bearer token", header: "", token: ""},
		{desc: "controller scheme", header: "Controller 123", token: ""},
	}

	for _, tc := range cases {
		r := &http.Request{Header: http.Header{"Authorization": {tc.header}}}
		assert.Equal(t, tc.token, apiutil.ExtractBearerToken(r), tc.desc)
	}
}

func TestExtractControllerKey(t *testing.T) {
	cases := []struct {
		desc   string
		header string
		key    string
	}{
		{desc: "controller scheme", header: "Controller abc", key: "abc"},
		{desc: "bearer scheme", header: "Bearer abc", key: "abc"},
		{desc: "unknown scheme", header: "Basic abc", key: ""},
		{desc: "empty header", header: "", key: ""},
	}

	for _, tc := range cases {
		r := &http.Request{Header: http.Header{"Authorization": {tc.header}}}
		assert.Equal(t, tc.key, apiutil.ExtractControllerKey(r), tc.desc)
	}
}
