// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package users

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/foundriesio/route-guard/storage"
)

func testStorage(t *testing.T) (*Storage, *storage.FsHandle) {
	t.Helper()
	tmpdir := t.TempDir()
	fs, err := storage.NewFs(tmpdir)
	require.Nil(t, err)
	require.Nil(t, fs.Secrets.InitHmacSecret())

	db, err := storage.NewDb(fs.DbFile())
	require.Nil(t, err)

	users, err := NewStorage(db, fs)
	require.Nil(t, err)
	require.NotNil(t, users)
	return users, fs
}

func TestNewStorage(t *testing.T) {
	users, _ := testStorage(t)

	u := User{
		Username: "testuser",
		Password: "passwordhash",
		Email:    "testuser@example.com",
		Role:     RoleUser,
	}
	now := time.Now().Unix()
	err := users.Create(&u)
	require.Nil(t, err)
	require.NotZero(t, u.id)
	require.InDelta(t, now, int64(u.Created), 5)

	u2, err := users.Get("testuser")
	require.Nil(t, err)
	require.NotNil(t, u2)
	require.Equal(t, u.id, u2.id)
	require.Equal(t, u.Username, u2.Username)
	require.Equal(t, u.Password, u2.Password)
	require.Equal(t, u.Email, u2.Email)
	require.Equal(t, u.Role, u2.Role)

	require.Nil(t, u2.HasRole(RoleUser))
	require.NotNil(t, u2.HasRole(RoleAdmin))

	require.NotNil(t, users.Create(u2), "duplicate username should fail")

	u3, err := users.Get("nonexistent")
	require.Nil(t, err)
	require.Nil(t, u3)

	ul, err := users.List()
	require.Nil(t, err)
	require.Len(t, ul, 1)
	require.Equal(t, u.Username, ul[0].Username)

	u.Username = "seconduser"
	err = users.Create(&u)
	require.Nil(t, err)

	ul, err = users.List()
	require.Nil(t, err)
	require.Len(t, ul, 2)

	require.Nil(t, u.Delete())
	ul, err = users.List()
	require.Nil(t, err)
	require.Len(t, ul, 1)
	require.Equal(t, "testuser", ul[0].Username)

	ul[0].Role = RoleAdmin
	require.Nil(t, ul[0].Update("promoted to admin"))

	u4, err := users.Get("testuser")
	require.Nil(t, err)
	require.NotNil(t, u4)
	require.Equal(t, RoleAdmin, u4.Role)
	require.Nil(t, u4.HasRole(RoleUser), "admins satisfy every role")
}

func TestTokens(t *testing.T) {
	users, fs := testStorage(t)

	u := User{
		Username: "testuser",
		Password: "passwordhash",
		Email:    "testuser@example.com",
	}
	err := users.Create(&u)
	require.Nil(t, err)

	expires := time.Now().Add(1 * time.Hour).Unix()
	t1, err := u.GenerateToken("desc", expires)
	require.Nil(t, err)
	require.Contains(t, t1.Value, "pat_")

	expired := time.Now().Add(-1 * time.Hour).Unix()
	t2, err := u.GenerateToken("desc2", expired)
	require.Nil(t, err)
	require.NotEqual(t, t1.Value, t2.Value)

	u2, err := users.GetByToken(t1.Value)
	require.Nil(t, err)
	require.NotNil(t, u2)
	require.Equal(t, u.id, u2.id)

	u2, err = users.GetByToken(t2.Value)
	require.Nil(t, err)
	require.Nil(t, u2, "expired token must not resolve")

	u2, err = users.GetByToken("pat_bogus")
	require.Nil(t, err)
	require.Nil(t, u2)

	tokens, err := u.ListTokens()
	require.Nil(t, err)
	require.Len(t, tokens, 2)
	require.Empty(t, tokens[0].Value, "cleartext is never stored")

	require.Nil(t, u.DeleteToken(t2.PublicID))

	tokens, err = u.ListTokens()
	require.Nil(t, err)
	require.Len(t, tokens, 1)
	require.Equal(t, t1.PublicID, tokens[0].PublicID)

	require.Nil(t, u.Delete())
	tokens, err = u.ListTokens()
	require.Nil(t, err)
	require.Len(t, tokens, 0)

	events, err := fs.Audit.ReadEvents(u.id)
	require.Nil(t, err)
	require.Contains(t, events, "User created")
	require.Contains(t, events, "Token created")
	require.Contains(t, events, "Token deleted id=")
	require.Contains(t, events, "User deleted")
}

func TestSessions(t *testing.T) {
	users, _ := testStorage(t)
	ctx := context.Background()

	u := User{
		Username: "testuser",
		Password: "passwordhash",
		Email:    "testuser@example.com",
	}
	err := users.Create(&u)
	require.Nil(t, err)

	expires := time.Now().Add(1 * time.Hour).Unix()
	id, err := u.CreateSession("127.0.0.1", expires)
	require.Nil(t, err)
	require.NotEmpty(t, id)

	u2, err := users.GetBySession(id)
	require.Nil(t, err)
	require.NotNil(t, u2)
	require.Equal(t, u.id, u2.id)

	u3, err := users.GetBySession("unknown")
	require.Nil(t, err)
	require.Nil(t, u3)

	store := users.Sessions()
	values, err := store.Get(ctx, id)
	require.Nil(t, err)
	require.Empty(t, values)

	err = store.Save(ctx, id, map[string]any{"user": "testuser"})
	require.Nil(t, err)

	values, err = store.Get(ctx, id)
	require.Nil(t, err)
	require.Equal(t, "testuser", values["user"])

	values, err = store.Get(ctx, "unknown")
	require.Nil(t, err)
	require.Nil(t, values)

	require.Nil(t, u.DeleteSession(id))
	u4, err := users.GetBySession(id)
	require.Nil(t, err)
	require.Nil(t, u4)
}

func TestGc(t *testing.T) {
	users, _ := testStorage(t)

	u := User{
		Username: "testuser",
		Password: "passwordhash",
		Email:    "testuser@example.com",
	}
	err := users.Create(&u)
	require.Nil(t, err)

	expires := time.Now().Add(-time.Hour).Unix()
	_, err = u.GenerateToken("desc", expires)
	require.Nil(t, err)

	session, err := u.CreateSession("127.0.0.1", expires)
	require.Nil(t, err)
	require.NotEmpty(t, session)

	users.RunGc()

	tokens, err := u.ListTokens()
	require.Nil(t, err)
	require.Len(t, tokens, 0)

	u2, err := users.GetBySession(session)
	require.Nil(t, err)
	require.Nil(t, u2)
}
