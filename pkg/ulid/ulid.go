// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package ulid provides a ULID identity provider used for request ids.
package ulid

import (
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/absmach/farmgate"
	"github.com/absmach/farmgate/pkg/errors"
	"github.com/oklog/ulid/v2"
)

// ErrGeneratingID indicates error in generating ULID.
var ErrGeneratingID = errors.New("generating id failed")

var _ farmgate.IDProvider = (*ulidProvider)(nil)

type ulidProvider struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// New instantiates a ULID provider.
func New() farmgate.IDProvider {
	source := mathrand.NewSource(time.Now().UnixNano())
	return &ulidProvider{
		entropy: ulid.Monotonic(mathrand.New(source), 0),
	}
}

func (up *ulidProvider) ID() (string, error) {
	up.mu.Lock()
	defer up.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(time.Now()), up.entropy)
	if err != nil {
		return "", errors.Wrap(ErrGeneratingID, err)
	}

	return id.String(), nil
}
