// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	data   map[string]map[string]any
	saves  int
	getErr error
}

func (s *fakeStore) Get(ctx context.Context, id string) (map[string]any, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.data[id], nil
}

func (s *fakeStore) Save(ctx context.Context, id string, values map[string]any) error {
	s.saves++
	s.data[id] = values
	return nil
}

func invoke(t *testing.T, store Store, cookie string, handler echo.HandlerFunc) error {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: CookieName, Value: cookie})
	}
	c := echo.New().NewContext(req, httptest.NewRecorder())
	return Middleware(store)(handler)(c)
}

func TestNoCookieNoSession(t *testing.T) {
	store := &fakeStore{data: map[string]map[string]any{}}
	err := invoke(t, store, "", func(c echo.Context) error {
		require.Nil(t, c.Get(ContextKey))
		return nil
	})
	require.Nil(t, err)
	require.Zero(t, store.saves)
}

func TestUnknownSessionId(t *testing.T) {
	store := &fakeStore{data: map[string]map[string]any{}}
	err := invoke(t, store, "nope", func(c echo.Context) error {
		require.Nil(t, c.Get(ContextKey))
		return nil
	})
	require.Nil(t, err)
}

func TestSessionLoadedAndSaved(t *testing.T) {
	store := &fakeStore{data: map[string]map[string]any{
		"s1": {"greeting": "hello"},
	}}

	err := invoke(t, store, "s1", func(c echo.Context) error {
		sess := c.Get(ContextKey).(*Session)
		require.Equal(t, "s1", sess.ID)

		v, ok := sess.Get("greeting")
		require.True(t, ok)
		require.Equal(t, "hello", v)

		sess.Set("user", "jane")
		return nil
	})
	require.Nil(t, err)
	require.Equal(t, 1, store.saves)
	require.Equal(t, "jane", store.data["s1"]["user"])
	require.Equal(t, "hello", store.data["s1"]["greeting"])
}

func TestUntouchedSessionNotSaved(t *testing.T) {
	store := &fakeStore{data: map[string]map[string]any{"s1": {}}}

	err := invoke(t, store, "s1", func(c echo.Context) error {
		require.NotNil(t, c.Get(ContextKey))
		return nil
	})
	require.Nil(t, err)
	require.Zero(t, store.saves)
}

func TestStoreFailurePropagates(t *testing.T) {
	store := &fakeStore{getErr: errors.New("db down")}
	err := invoke(t, store, "s1", func(c echo.Context) error {
		t.Fatal("handler must not run")
		return nil
	})
	require.ErrorContains(t, err, "db down")
}
