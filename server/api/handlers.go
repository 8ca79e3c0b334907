// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

// Package api is the reference HTTP surface of the module: a small set of
// routes with differing access levels, each protected by its own access
// guard. It doubles as the integration-test bed for the guard, the session
// middleware, and the token lookups working together.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/foundriesio/route-guard/auth"
	"github.com/foundriesio/route-guard/guard"
	"github.com/foundriesio/route-guard/session"
	"github.com/foundriesio/route-guard/storage/users"
)

const DefaultSessionTTL = 12 * time.Hour

type Config struct {
	Users      *users.Storage
	SessionTTL time.Duration

	// LoginAttemptsPerSecond throttles POST /login. Zero picks a safe default.
	LoginAttemptsPerSecond float64
}

type handlers struct {
	users      *users.Storage
	sessionTTL time.Duration
}

// RegisterHandlers wires the API routes. Each route declares its access
// level through its own guard; guard misconfiguration surfaces here, before
// the server starts taking traffic.
func RegisterHandlers(e *echo.Echo, cfg Config) error {
	if cfg.Users == nil {
		return fmt.Errorf("api: user storage is required")
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	h := handlers{users: cfg.Users, sessionTTL: cfg.SessionTTL}

	lookup := auth.TokenLookup(cfg.Users)
	guards := map[string]echo.MiddlewareFunc{}
	for _, level := range []string{guard.AccessPublic, users.RoleUser, users.RoleAdmin} {
		mw, err := guard.New(guard.Config{
			Route:   &guard.Route{AccessLevel: level},
			GetUser: lookup,
		})
		if err != nil {
			return fmt.Errorf("api: unable to build %s guard: %w", level, err)
		}
		guards[level] = mw
	}

	e.Use(session.Middleware(cfg.Users.Sessions()))

	e.GET("/status", h.status) // no access level declared
	e.GET("/motd", h.motd, guards[guard.AccessPublic])
	e.POST("/login", h.login, auth.NewLoginRateLimiter(cfg.LoginAttemptsPerSecond))
	e.POST("/logout", h.logout, guards[users.RoleUser])
	e.GET("/profile", h.profile, guards[users.RoleUser])
	e.GET("/users", h.userList, guards[users.RoleAdmin], requireRole(users.RoleAdmin))
	return nil
}

func (handlers) status(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (handlers) motd(c echo.Context) error {
	return c.String(http.StatusOK, "authentication optional here\n")
}

func (handlers) profile(c echo.Context) error {
	user := c.Get(guard.UserKey).(*users.User)
	return c.JSON(http.StatusOK, user)
}

func (h handlers) userList(c echo.Context) error {
	list, err := h.users.List()
	if err != nil {
		return fmt.Errorf("unable to list users: %w", err)
	}
	return c.JSON(http.StatusOK, list)
}
