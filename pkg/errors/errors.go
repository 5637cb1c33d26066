// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package errors contains the error type used across the gateway. Errors
// form a chain of messages so that a service error can carry the repository
// or transport error that caused it without losing either message.
package errors

import "encoding/json"

// Error specifies an API that must be fullfiled by error type.
type Error interface {
	// Error implements the error interface.
	Error() string

	// Msg returns error message.
	Msg() string

	// Err returns wrapped error.
	Err() Error

	// MarshalJSON returns a marshaled error.
	MarshalJSON() ([]byte, error)
}

var _ Error = (*customError)(nil)

type customError struct {
	msg string
	err Error
}

// New returns an Error that formats as the given text.
func New(text string) Error {
	return &customError{msg: text}
}

func (ce *customError) Error() string {
	if ce == nil {
		return ""
	}
	if ce.err == nil {
		return ce.msg
	}
	return ce.msg + " : " + ce.err.Error()
}

func (ce *customError) Msg() string {
	return ce.msg
}

func (ce *customError) Err() Error {
	return ce.err
}

// Unwrap makes the chain visible to the standard library errors package.
func (ce *customError) Unwrap() error {
	if ce.err == nil {
		return nil
	}
	return ce.err
}

func (ce *customError) MarshalJSON() ([]byte, error) {
	var val string
	if e := ce.Err(); e != nil {
		val = e.Msg()
	}
	return json.Marshal(&struct {
		Err string `json:"error"`
		Msg string `json:"message"`
	}{
		Err: val,
		Msg: ce.Msg(),
	})
}

// Contains inspects if e2 error is contained in any layer of e1 error.
func Contains(e1, e2 error) bool {
	if e1 == nil || e2 == nil {
		return e2 == e1
	}
	ce, ok := e1.(Error)
	if !ok {
		return e1.Error() == e2.Error()
	}
	if ce.Msg() == e2.Error() {
		return true
	}
	if ce.Err() == nil {
		return false
	}
	return Contains(ce.Err(), e2)
}

// Wrap returns an Error that wrap err with wrapper.
func Wrap(wrapper, err error) error {
	if wrapper == nil || err == nil {
		return wrapper
	}
	msg := wrapper.Error()
	if w, ok := wrapper.(Error); ok {
		msg = w.Msg()
	}
	return &customError{
		msg: msg,
		err: cast(err),
	}
}

// Unwrap returns the wrapper and the error by separating the Wrapper from the error.
func Unwrap(err error) (error, error) {
	ce, ok := err.(Error)
	if !ok {
		return nil, err
	}
	if ce.Err() == nil {
		return nil, New(ce.Msg())
	}
	return New(ce.Msg()), ce.Err()
}

func cast(err error) Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(Error); ok {
		return e
	}
	return &customError{msg: err.Error()}
}
