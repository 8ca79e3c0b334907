// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package guard

import "errors"

var (
	// ErrMissingRoute is returned by New when the config has no route descriptor.
	ErrMissingRoute = errors.New("guard: config missing route descriptor")
	// ErrMissingLookup is returned by New when the config has no identity lookup.
	ErrMissingLookup = errors.New("guard: config missing identity lookup")
)

// ErrorKind distinguishes authentication failures the lookup may report.
type ErrorKind int

const (
	KindAuthFailed ErrorKind = iota
	KindInvalidProfile
)

// AuthError is an authentication failure raised by an identity lookup. The
// guard recovers it into a 401 response carrying Message; it never escapes
// the middleware.
type AuthError struct {
	Kind    ErrorKind
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

// InvalidProfile tags a lookup failure as a profile problem rather than a
// plain credential mismatch.
func InvalidProfile(message string) *AuthError {
	return &AuthError{Kind: KindInvalidProfile, Message: message}
}
