// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

// Package guard decides, per request and per route access requirement,
// whether a request passes through unauthenticated, must be resolved to an
// identity first, or gets rejected with a 401. It consumes tokens already
// present on the request and a caller-supplied identity lookup; it never
// implements identity resolution, token issuance, or session persistence
// itself.
package guard

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	// UserKey is the echo context key the resolved identity is stored under.
	// It doubles as the session key the identity is mirrored into when the
	// request carries a session.
	UserKey = "user"
	// SessionKey is the echo context key an upstream middleware stores the
	// request session under. The guard only augments a session that already
	// exists; it never creates one.
	SessionKey = "session"
)

// LookupFunc resolves the credentials extracted from a request to an opaque
// identity. The guard blocks the request goroutine until it returns and does
// not impose a timeout; a lookup that honors ctx cancellation is the
// caller's responsibility.
type LookupFunc func(ctx context.Context, creds Credentials) (any, error)

// Config wires a guard to one route. Both fields are required.
type Config struct {
	Route   *Route
	GetUser LookupFunc
}

// sessionWriter is the part of a request session the guard augments.
type sessionWriter interface {
	Set(key string, value any)
}

// New builds the access-guard middleware for one route. Misconfiguration is
// reported here, at construction time, so callers fail at startup instead of
// at first traffic.
//
// Per request the middleware short-circuits to the next handler when an
// identity is already attached or the route is unrestricted. Otherwise it
// extracts the credential pair, runs the lookup, and either attaches the
// identity (to the context, and to the session when one exists) before
// continuing the chain, or terminates the chain with a 401 carrying the
// lookup error's message. The identity writes happen before next is called,
// so downstream handlers always observe a fully populated identity.
func New(cfg Config) (echo.MiddlewareFunc, error) {
	if cfg.Route == nil {
		return nil, ErrMissingRoute
	}
	if cfg.GetUser == nil {
		return nil, ErrMissingLookup
	}

	route := *cfg.Route
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Get(UserKey) != nil {
				return next(c)
			}
			if !route.Restricted() {
				return next(c)
			}

			creds := ExtractCredentials(c.Request())
			user, err := cfg.GetUser(c.Request().Context(), creds)
			if err != nil {
				return reject(c, err)
			}

			c.Set(UserKey, user)
			if sess, ok := c.Get(SessionKey).(sessionWriter); ok {
				sess.Set(UserKey, user)
			}
			return next(c)
		}
	}, nil
}

type errorResponse struct {
	Error string `json:"error,omitempty"`
}

func reject(c echo.Context, err error) error {
	msg := err.Error()
	var authErr *AuthError
	if errors.As(err, &authErr) {
		msg = authErr.Message
	}
	return c.JSON(http.StatusUnauthorized, errorResponse{Error: msg})
}
