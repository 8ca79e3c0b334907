// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package guard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

type lookupRecorder struct {
	calls int
	creds Credentials

	user any
	err  error
}

func (l *lookupRecorder) lookup(ctx context.Context, creds Credentials) (any, error) {
	l.calls++
	l.creds = creds
	return l.user, l.err
}

type fakeSession struct {
	values map[string]any
}

func (s *fakeSession) Set(key string, value any) {
	if s.values == nil {
		s.values = map[string]any{}
	}
	s.values[key] = value
}

// run sends req through the guard with a 200 handler behind it and reports
// whether the handler was reached.
func run(t *testing.T, cfg Config, req *http.Request, setup func(echo.Context)) (*httptest.ResponseRecorder, bool) {
	t.Helper()

	mw, err := New(cfg)
	require.Nil(t, err)

	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	if setup != nil {
		setup(c)
	}

	reached := false
	h := mw(func(c echo.Context) error {
		reached = true
		return c.String(http.StatusOK, "OK")
	})
	require.Nil(t, h(c))
	return rec, reached
}

func TestNewRejectsMissingConfig(t *testing.T) {
	lookup := func(context.Context, Credentials) (any, error) { return nil, nil }

	for name, tc := range map[string]struct {
		cfg Config
		err error
	}{
		"no route":  {Config{GetUser: lookup}, ErrMissingRoute},
		"no lookup": {Config{Route: &Route{AccessLevel: "admin"}}, ErrMissingLookup},
		"neither":   {Config{}, ErrMissingRoute},
	} {
		t.Run(name, func(t *testing.T) {
			mw, err := New(tc.cfg)
			require.Nil(t, mw)
			require.ErrorIs(t, err, tc.err)
		})
	}

	mw, err := New(Config{Route: &Route{}, GetUser: lookup})
	require.Nil(t, err)
	require.NotNil(t, mw)
}

func TestExistingIdentitySkipsLookup(t *testing.T) {
	rec := lookupRecorder{user: "someone-else"}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderAuthToken, "t1")

	res, reached := run(t,
		Config{Route: &Route{AccessLevel: "admin"}, GetUser: rec.lookup},
		req,
		func(c echo.Context) { c.Set(UserKey, "existing") },
	)

	require.Zero(t, rec.calls)
	require.True(t, reached)
	require.Equal(t, http.StatusOK, res.Code)
}

func TestUnrestrictedRoutesPassThrough(t *testing.T) {
	for _, level := range []string{"", AccessPublic} {
		t.Run("level="+level, func(t *testing.T) {
			rec := lookupRecorder{}
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			// A credential on an unrestricted route must not trigger a lookup.
			req.Header.Set(HeaderAuthToken, "t1")

			res, reached := run(t, Config{Route: &Route{AccessLevel: level}, GetUser: rec.lookup}, req, nil)

			require.Zero(t, rec.calls)
			require.True(t, reached)
			require.Equal(t, http.StatusOK, res.Code)
		})
	}
}

func TestLookupReceivesHeaderCredentials(t *testing.T) {
	rec := lookupRecorder{user: "u"}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderAuthToken, "T1")
	req.Header.Set(HeaderRefreshToken, "T2")

	_, _ = run(t, Config{Route: &Route{AccessLevel: "admin"}, GetUser: rec.lookup}, req, nil)

	require.Equal(t, 1, rec.calls)
	require.Equal(t, Credentials{AuthToken: "T1", RefreshToken: "T2"}, rec.creds)
}

func TestLookupReceivesCookieFallback(t *testing.T) {
	rec := lookupRecorder{user: "u"}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieAuthToken, Value: "T1"})

	_, _ = run(t, Config{Route: &Route{AccessLevel: "admin"}, GetUser: rec.lookup}, req, nil)

	require.Equal(t, 1, rec.calls)
	require.Equal(t, Credentials{AuthToken: "T1", RefreshToken: ""}, rec.creds)
}

func TestLookupSuccessAttachesIdentity(t *testing.T) {
	identity := map[string]string{"username": "jane"}
	rec := lookupRecorder{user: identity}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderAuthToken, "T1")

	sess := &fakeSession{}
	var seenDownstream any

	mw, err := New(Config{Route: &Route{AccessLevel: "admin"}, GetUser: rec.lookup})
	require.Nil(t, err)

	res := httptest.NewRecorder()
	c := echo.New().NewContext(req, res)
	c.Set(SessionKey, sess)

	h := mw(func(c echo.Context) error {
		// Identity writes happen before the chain continues.
		seenDownstream = c.Get(UserKey)
		return c.String(http.StatusOK, "OK")
	})
	require.Nil(t, h(c))

	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, identity, seenDownstream)
	require.Equal(t, identity, c.Get(UserKey))
	require.Equal(t, identity, sess.values[UserKey])
}

func TestLookupSuccessWithoutSession(t *testing.T) {
	rec := lookupRecorder{user: "jane"}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderAuthToken, "T1")

	mw, err := New(Config{Route: &Route{AccessLevel: "admin"}, GetUser: rec.lookup})
	require.Nil(t, err)

	res := httptest.NewRecorder()
	c := echo.New().NewContext(req, res)
	h := mw(func(c echo.Context) error { return c.String(http.StatusOK, "OK") })
	require.Nil(t, h(c))

	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, "jane", c.Get(UserKey))
}

func TestLookupFailureRejects(t *testing.T) {
	for name, tc := range map[string]struct {
		err  error
		body string
	}{
		"invalid profile": {InvalidProfile("invalid response"), `{"error":"invalid response"}`},
		"plain error":     {errors.New("token expired"), `{"error":"token expired"}`},
		"empty message":   {&AuthError{}, `{}`},
	} {
		t.Run(name, func(t *testing.T) {
			rec := lookupRecorder{err: tc.err}
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(HeaderAuthToken, "T1")

			res, reached := run(t, Config{Route: &Route{AccessLevel: "admin"}, GetUser: rec.lookup}, req, nil)

			require.False(t, reached)
			require.Equal(t, http.StatusUnauthorized, res.Code)
			require.JSONEq(t, tc.body, res.Body.String())
		})
	}
}

func TestSecondInvocationShortCircuits(t *testing.T) {
	rec := lookupRecorder{user: "jane"}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderAuthToken, "T1")

	mw, err := New(Config{Route: &Route{AccessLevel: "admin"}, GetUser: rec.lookup})
	require.Nil(t, err)

	res := httptest.NewRecorder()
	c := echo.New().NewContext(req, res)
	h := mw(func(c echo.Context) error { return c.String(http.StatusOK, "OK") })

	require.Nil(t, h(c))
	require.Nil(t, h(c))
	require.Equal(t, 1, rec.calls)
}

func TestNoCredentialsStillInvokesLookup(t *testing.T) {
	// Scenario: restricted route, nothing supplied. The lookup sees the empty
	// pair and decides; here it declines and the request is rejected.
	rec := lookupRecorder{err: errors.New("unauthorized")}
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	res, reached := run(t, Config{Route: &Route{AccessLevel: "admin"}, GetUser: rec.lookup}, req, nil)

	require.Equal(t, 1, rec.calls)
	require.Equal(t, Credentials{}, rec.creds)
	require.False(t, reached)
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestUndeclaredLevelIgnoresCredentialHeaders(t *testing.T) {
	rec := lookupRecorder{}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderAuthToken, "looks-restricted")

	res, reached := run(t, Config{Route: &Route{}, GetUser: rec.lookup}, req, nil)

	require.Zero(t, rec.calls)
	require.True(t, reached)
	require.Equal(t, http.StatusOK, res.Code)
}
