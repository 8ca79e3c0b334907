// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

// Package auth supplies the identity-lookup collaborators the access guard
// consumes, plus the password and rate-limiting pieces the reference login
// flow needs. The guard only knows the guard.LookupFunc contract; everything
// here is one possible implementation of it.
package auth

import (
	"context"

	guardctx "github.com/foundriesio/route-guard/context"
	"github.com/foundriesio/route-guard/guard"
	"github.com/foundriesio/route-guard/storage/users"
)

// TokenLookup builds an identity lookup backed by the user store. The auth
// token is tried as a personal access token first; when it is absent or
// unknown, the refresh token is tried as a session id. Storage faults are
// reported to the client as a generic failure so internals stay private.
func TokenLookup(store *users.Storage) guard.LookupFunc {
	return func(ctx context.Context, creds guard.Credentials) (any, error) {
		if creds.AuthToken != "" {
			u, err := store.GetByToken(creds.AuthToken)
			if err != nil {
				guardctx.CtxGetLog(ctx).Error("token lookup failed", "error", err)
				return nil, &guard.AuthError{Message: "unable to verify credentials"}
			}
			if u != nil {
				return u, nil
			}
		}
		if creds.RefreshToken != "" {
			u, err := store.GetBySession(creds.RefreshToken)
			if err != nil {
				guardctx.CtxGetLog(ctx).Error("session lookup failed", "error", err)
				return nil, &guard.AuthError{Message: "unable to verify credentials"}
			}
			if u != nil {
				return u, nil
			}
		}
		return nil, &guard.AuthError{Message: "invalid credentials"}
	}
}
