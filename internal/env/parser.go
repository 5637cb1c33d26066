// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package env loads service configuration from environment variables.
package env

import "github.com/caarlos0/env/v7"

// Options tune how a configuration struct is populated.
type Options struct {
	// Environment keys and values that will be accessible for the service.
	// When nil the process environment is used.
	Environment map[string]string

	// RequiredIfNoDef automatically sets all env as required if they do not declare 'envDefault'.
	RequiredIfNoDef bool

	// Prefix define a prefix for each key.
	Prefix string
}

// Parse fills v from the environment. Multiple options are applied in order,
// so a later prefix overrides values read under an earlier one.
func Parse(v interface{}, opts ...Options) error {
	if len(opts) == 0 {
		return env.Parse(v)
	}

	for _, opt := range opts {
		if err := env.Parse(v, env.Options{
			Environment:     opt.Environment,
			RequiredIfNoDef: opt.RequiredIfNoDef,
			Prefix:          opt.Prefix,
		}); err != nil {
			return err
		}
	}

	return nil
}
