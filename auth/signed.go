// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	jose "gopkg.in/go-jose/go-jose.v2"

	"github.com/foundriesio/route-guard/guard"
)

// Claims is the identity carried inside a signed bearer token.
type Claims struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
	Expires  int64  `json:"exp,omitempty"`
}

// SignClaims serializes and signs claims into a compact token. It is the
// issuing half of SignedLookup, which does the verification.
func SignClaims(key []byte, claims Claims) (string, error) {
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.HS256, Key: key}, nil)
	if err != nil {
		return "", fmt.Errorf("unable to create token signer: %w", err)
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("unable to marshal claims: %w", err)
	}
	jws, err := signer.Sign(payload)
	if err != nil {
		return "", fmt.Errorf("unable to sign claims: %w", err)
	}
	return jws.CompactSerialize()
}

// SignedLookup builds a stateless identity lookup that verifies the auth
// token as a signed claims payload. No store round-trip happens; the token
// itself carries the identity.
func SignedLookup(key []byte) guard.LookupFunc {
	return func(ctx context.Context, creds guard.Credentials) (any, error) {
		if creds.AuthToken == "" {
			return nil, &guard.AuthError{Message: "missing auth token"}
		}
		jws, err := jose.ParseSigned(creds.AuthToken)
		if err != nil {
			return nil, &guard.AuthError{Message: "malformed token"}
		}
		payload, err := jws.Verify(key)
		if err != nil {
			return nil, &guard.AuthError{Message: "invalid token signature"}
		}

		var claims Claims
		if err := json.Unmarshal(payload, &claims); err != nil || claims.Username == "" {
			return nil, guard.InvalidProfile("token carries no usable profile")
		}
		if claims.Expires > 0 && time.Unix(claims.Expires, 0).Before(time.Now()) {
			return nil, &guard.AuthError{Message: "token expired"}
		}
		return &claims, nil
	}
}
