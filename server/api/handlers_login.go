// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

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

// dummyHash is checked against when the username is unknown, so both paths
// cost one bcrypt comparison.
var dummyHash, _ = auth.PasswordHash("not-a-real-password")

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Session string `json:"session"`
	Expires int64  `json:"expires"`
}

// login exchanges a username/password for a server-side session. The session
// id is returned in the body and also set as both the session cookie and the
// refresh-token cookie so browser clients authenticate on the next request
// without further work.
func (h handlers) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.String(http.StatusBadRequest, "invalid login request")
	}

	u, err := h.users.Get(req.Username)
	if err != nil {
		return fmt.Errorf("unable to look up user: %w", err)
	}
	if u == nil {
		// Burn the same time a real check would so usernames can't be probed.
		_ = auth.PasswordCheck(dummyHash, req.Password)
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": auth.ErrInvalidCredentials.Error()})
	}
	if err := auth.PasswordCheck(u.Password, req.Password); err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": err.Error()})
	}

	expires := time.Now().Add(h.sessionTTL).Unix()
	sid, err := u.CreateSession(c.RealIP(), expires)
	if err != nil {
		return fmt.Errorf("unable to create session: %w", err)
	}

	for _, name := range []string{session.CookieName, guard.CookieRefreshToken} {
		c.SetCookie(&http.Cookie{
			Name:     name,
			Value:    sid,
			Path:     "/",
			Expires:  time.Unix(expires, 0),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return c.JSON(http.StatusOK, loginResponse{Session: sid, Expires: expires})
}

// logout removes the server-side session. The guard authenticated the
// request, so a missing session cookie just means there is nothing to do.
func (h handlers) logout(c echo.Context) error {
	user, ok := c.Get(guard.UserKey).(*users.User)
	if !ok {
		return c.NoContent(http.StatusNoContent)
	}
	if cookie, err := c.Cookie(session.CookieName); err == nil && cookie.Value != "" {
		if err := user.DeleteSession(cookie.Value); err != nil {
			return fmt.Errorf("unable to delete session: %w", err)
		}
	}
	return c.NoContent(http.StatusNoContent)
}
