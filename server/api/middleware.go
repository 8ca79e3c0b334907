// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/foundriesio/route-guard/guard"
	"github.com/foundriesio/route-guard/storage/users"
)

// requireRole enforces a role on an already-authenticated request. It runs
// downstream of the access guard, which only decides authenticated vs not;
// the role itself is this surface's business.
func requireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := c.Get(guard.UserKey).(*users.User)
			if !ok {
				return c.String(http.StatusForbidden, "no user on request")
			}
			if err := user.HasRole(role); err != nil {
				return c.String(http.StatusForbidden, err.Error())
			}

			req := c.Request()
			ctx := req.Context()
			log := CtxGetLog(ctx).With("user", user.Username)
			c.SetRequest(req.WithContext(CtxWithLog(ctx, log)))
			return next(c)
		}
	}
}
