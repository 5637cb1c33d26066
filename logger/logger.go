// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package logger builds the structured loggers used by every component.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ErrInvalidLogLevel is returned for a level name that slog does not know.
var ErrInvalidLogLevel = fmt.Errorf("unrecognized log level")

// New returns a JSON slog logger writing to w and filtering below levelText.
func New(w io.Writer, levelText string) (*slog.Logger, error) {
	level, err := parseLevel(levelText)
	if err != nil {
		return nil, err
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})

	return slog.New(handler), nil
}

func parseLevel(text string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(text))); err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidLogLevel, text)
	}

	return level, nil
}
