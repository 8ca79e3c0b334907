// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

// Package session attaches a request-scoped session to the echo context.
// The session is loaded from a cookie-identified store before the handler
// chain runs and written back afterwards when it was mutated. Downstream
// middleware (notably the access guard) treats it as a pre-existing value
// bag it may augment.
package session

import (
	"context"
	"fmt"

	"github.com/labstack/echo/v4"

	guardctx "github.com/foundriesio/route-guard/context"
)

const (
	// CookieName identifies the session on the wire.
	CookieName = "sid"
	// ContextKey is the echo context key the session is stored under.
	ContextKey = "session"
)

// Store persists session value bags keyed by session id. A Get miss is
// (nil, nil), not an error.
type Store interface {
	Get(ctx context.Context, id string) (map[string]any, error)
	Save(ctx context.Context, id string, values map[string]any) error
}

// Session is one request's view of its server-side session.
type Session struct {
	ID string

	values map[string]any
	dirty  bool
}

func New(id string, values map[string]any) *Session {
	if values == nil {
		values = map[string]any{}
	}
	return &Session{ID: id, values: values}
}

func (s *Session) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

func (s *Session) Set(key string, value any) {
	s.values[key] = value
	s.dirty = true
}

// Middleware loads the session named by the request's sid cookie and exposes
// it on the echo context. Requests without a cookie, or with an id the store
// does not know, proceed without a session. Mutations made during the chain
// are saved once the chain unwinds; a failed save is logged but does not fail
// the request, which already ran against the in-memory view.
func Middleware(store Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(CookieName)
			if err != nil || cookie.Value == "" {
				return next(c)
			}

			ctx := c.Request().Context()
			values, err := store.Get(ctx, cookie.Value)
			if err != nil {
				return fmt.Errorf("unable to load session: %w", err)
			} else if values == nil {
				return next(c)
			}

			sess := New(cookie.Value, values)
			c.Set(ContextKey, sess)

			err = next(c)
			if sess.dirty {
				if serr := store.Save(ctx, sess.ID, sess.values); serr != nil {
					guardctx.CtxGetLog(ctx).Error("unable to save session", "sid", sess.ID, "error", serr)
				}
			}
			return err
		}
	}
}
