// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package users

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	cache "github.com/go-pkgz/expirable-cache/v3"
)

// Session rows get re-read on every request carrying a sid cookie, so hits
// are served from a short-lived cache. The TTL bounds how stale a row can be
// observed after an out-of-band change; deletes and data writes invalidate
// eagerly.
const sessionCacheTTL = 30 * time.Second

type sessionStore struct {
	storage *Storage
	cache   cache.Cache[string, *session]
}

func newSessionStore(s *Storage) *sessionStore {
	return &sessionStore{
		storage: s,
		cache:   cache.NewCache[string, *session]().WithTTL(sessionCacheTTL).WithMaxKeys(16384),
	}
}

func (c *sessionStore) get(id string) (*session, error) {
	if sess, ok := c.cache.Get(id); ok {
		return sess, nil
	}
	sess, err := c.storage.stmtSessionGet.run(id)
	if err != nil || sess == nil {
		return nil, err
	}
	c.cache.Set(id, sess, 0)
	return sess, nil
}

func (c *sessionStore) invalidate(id string) {
	c.cache.Invalidate(id)
}

// Sessions exposes the session rows as the value-bag store the session
// middleware consumes. Expired rows behave like misses.
type Sessions struct {
	s *Storage
}

func (s *Storage) Sessions() Sessions {
	return Sessions{s: s}
}

func (ss Sessions) Get(ctx context.Context, id string) (map[string]any, error) {
	sess, err := ss.s.sessions.get(id)
	if err != nil || sess == nil {
		return nil, err
	}
	if sess.Expires.ToTime().Before(time.Now()) {
		return nil, nil
	}
	var values map[string]any
	if err := json.Unmarshal([]byte(sess.Data), &values); err != nil {
		return nil, fmt.Errorf("unable to parse session data: %w", err)
	}
	if values == nil {
		values = map[string]any{}
	}
	return values, nil
}

func (ss Sessions) Save(ctx context.Context, id string, values map[string]any) error {
	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("unable to marshal session data: %w", err)
	}
	if err := ss.s.stmtSessionSetData.run(id, string(data)); err != nil {
		return fmt.Errorf("unable to save session data: %w", err)
	}
	ss.s.sessions.invalidate(id)
	return nil
}
