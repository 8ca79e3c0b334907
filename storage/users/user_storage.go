// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

// Package users is the sqlite-backed reference identity store: users with
// bcrypt password hashes and a role, HMAC-hashed personal access tokens, and
// server-side sessions. It exists so the repository ships a runnable
// identity-lookup collaborator; the access guard itself never depends on it.
package users

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/foundriesio/route-guard/storage"
)

const (
	// RoleAdmin users pass every role check.
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type Token struct {
	PublicID    uint32
	Created     storage.Timestamp
	Expires     storage.Timestamp
	Description string
	Value       string
}

type session struct {
	UserID  int64
	Expires storage.Timestamp
	Data    string
}

type User struct {
	h  Storage
	id int64

	Username string `json:"username"`
	Password string `json:"-"`
	Email    string `json:"email"`
	Role     string `json:"role"`

	Created storage.Timestamp `json:"created"`
	Deleted bool              `json:"-"`
}

// HasRole reports whether the user satisfies the given role requirement.
// Admins satisfy every role.
func (u User) HasRole(role string) error {
	if u.Role == role || u.Role == RoleAdmin {
		return nil
	}
	return fmt.Errorf("user missing required role: %s", role)
}

func (u User) Delete() error {
	u.Deleted = true
	if err := u.h.stmtTokenDeleteAll.run(u); err != nil {
		return fmt.Errorf("unable to delete user while deleting tokens: %w", err)
	}
	return u.Update("User deleted")
}

func (u User) Update(reason string) error {
	if err := u.h.stmtUserUpdate.run(u); err != nil {
		return err
	}
	u.h.fs.Audit.AppendEvent(u.id, reason)
	return nil
}

// GenerateToken issues a personal access token. Only the HMAC of the token
// value is stored; the cleartext is returned once and cannot be recovered.
func (u User) GenerateToken(description string, expires int64) (*Token, error) {
	value := "pat_" + rand.Text()

	hashed, err := u.h.hashToken(value)
	if err != nil {
		return nil, err
	}

	var pid [4]byte
	if _, err := rand.Read(pid[:]); err != nil {
		return nil, fmt.Errorf("unable to generate token id: %w", err)
	}

	t := Token{
		PublicID:    binary.BigEndian.Uint32(pid[:]),
		Created:     storage.Timestamp(time.Now().Unix()),
		Expires:     storage.Timestamp(expires),
		Description: description,
		Value:       hashed,
	}

	if err := u.h.stmtTokenCreate.run(u, &t); err != nil {
		return nil, err
	}
	msg := fmt.Sprintf("Token created (id=%d, expires=%d)", t.PublicID, expires)
	u.h.fs.Audit.AppendEvent(u.id, msg)
	t.Value = value
	return &t, nil
}

func (u User) DeleteToken(id uint32) error {
	if err := u.h.stmtTokenDelete.run(u, id); err != nil {
		return err
	}
	u.h.fs.Audit.AppendEvent(u.id, fmt.Sprintf("Token deleted id=%d", id))
	return nil
}

func (u User) ListTokens() ([]Token, error) {
	return u.h.stmtTokenList.run(u)
}

// CreateSession creates a server-side session row and returns its id.
func (u User) CreateSession(remoteIP string, expires int64) (string, error) {
	id := uuid.NewString()
	if err := u.h.stmtSessionCreate.run(u, id, remoteIP, time.Now().Unix(), expires); err != nil {
		return "", fmt.Errorf("unable to create session: %w", err)
	}
	msg := fmt.Sprintf("Session created (ip=%s, expires=%d)", remoteIP, expires)
	u.h.fs.Audit.AppendEvent(u.id, msg)
	return id, nil
}

func (u User) DeleteSession(id string) error {
	if err := u.h.stmtSessionDelete.run(id); err != nil {
		return fmt.Errorf("unable to delete session: %w", err)
	}
	u.h.sessions.invalidate(id)
	u.h.fs.Audit.AppendEvent(u.id, fmt.Sprintf("Session deleted id=%s", id))
	return nil
}

type Storage struct {
	db *storage.DbHandle
	fs *storage.FsHandle

	hmacSecret []byte
	sessions   *sessionStore

	stmtUserCreate           stmtUserCreate
	stmtUserGetById          stmtUserGetById
	stmtUserGetByName        stmtUserGetByName
	stmtUserList             stmtUserList
	stmtUserUpdate           stmtUserUpdate
	stmtSessionCreate        stmtSessionCreate
	stmtSessionDelete        stmtSessionDelete
	stmtSessionDeleteExpired stmtSessionDeleteExpired
	stmtSessionGet           stmtSessionGet
	stmtSessionSetData       stmtSessionSetData
	stmtTokenCreate          stmtTokenCreate
	stmtTokenDelete          stmtTokenDelete
	stmtTokenDeleteAll       stmtTokenDeleteAll
	stmtTokenDeleteExpired   stmtTokenDeleteExpired
	stmtTokenList            stmtTokenList
	stmtTokenLookup          stmtTokenLookup

	done chan struct{}
}

func NewStorage(db *storage.DbHandle, fs *storage.FsHandle) (*Storage, error) {
	hmacSecret, err := fs.Secrets.ReadFile(storage.HmacSecretFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read HMAC secret for API tokens: %w", err)
	}
	handle := Storage{
		db:         db,
		fs:         fs,
		hmacSecret: hmacSecret,
	}

	if err := createSchema(db); err != nil {
		return nil, err
	}

	if err := db.InitStmt(
		&handle.stmtUserCreate,
		&handle.stmtUserGetById,
		&handle.stmtUserGetByName,
		&handle.stmtUserList,
		&handle.stmtUserUpdate,
		&handle.stmtSessionCreate,
		&handle.stmtSessionDelete,
		&handle.stmtSessionDeleteExpired,
		&handle.stmtSessionGet,
		&handle.stmtSessionSetData,
		&handle.stmtTokenCreate,
		&handle.stmtTokenDelete,
		&handle.stmtTokenDeleteAll,
		&handle.stmtTokenDeleteExpired,
		&handle.stmtTokenList,
		&handle.stmtTokenLookup,
	); err != nil {
		return nil, err
	}

	handle.sessions = newSessionStore(&handle)
	return &handle, nil
}

func createSchema(db *storage.DbHandle) error {
	return db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			email TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT 'user',
			created INTEGER NOT NULL,
			deleted INTEGER NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS tokens (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			public_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL REFERENCES users(id),
			created INTEGER NOT NULL,
			expires INTEGER NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			value TEXT NOT NULL UNIQUE
		);
		CREATE TABLE IF NOT EXISTS session (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users(id),
			remote_ip TEXT NOT NULL DEFAULT '',
			created INTEGER NOT NULL,
			expires INTEGER NOT NULL,
			data TEXT NOT NULL DEFAULT '{}'
		);`,
	)
}

func (s Storage) hashToken(value string) (string, error) {
	hasher := hmac.New(sha256.New, s.hmacSecret)
	if _, err := hasher.Write([]byte(value)); err != nil {
		return "", fmt.Errorf("unable to hash token value: %w", err)
	}
	return fmt.Sprintf("%x", hasher.Sum(nil)), nil
}

func (s *Storage) StartGc() {
	s.done = make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.RunGc()
			case <-s.done:
				slog.Info("Stopping user GC")
				return
			}
		}
	}()
}

func (s *Storage) StopGc() {
	close(s.done)
}

// RunGc drops expired tokens and sessions. Nothing depends on when it runs;
// lookups check expiry themselves.
func (s Storage) RunGc() {
	now := time.Now().Unix()
	slog.Info("Running user token GC")
	if err := s.stmtTokenDeleteExpired.run(now); err != nil {
		slog.Error("Unable to run user token GC", "error", err)
	}

	slog.Info("Running user session GC")
	if err := s.stmtSessionDeleteExpired.run(now); err != nil {
		slog.Error("Unable to run user session GC", "error", err)
	}
}

func (s Storage) Create(u *User) error {
	err := s.stmtUserCreate.run(u)
	if storage.IsConstraintUnique(err) {
		return fmt.Errorf("user %q already exists", u.Username)
	}
	if err == nil {
		u.h = s
		s.fs.Audit.AppendEvent(u.id, "User created")
	}
	return err
}

func (s Storage) Get(username string) (*User, error) {
	u, err := s.stmtUserGetByName.run(username)
	switch err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		u.h = s
	}
	return u, err
}

// GetByToken resolves a personal access token to its user. Unknown and
// expired tokens both come back as (nil, nil).
func (s Storage) GetByToken(token string) (*User, error) {
	hashed, err := s.hashToken(token)
	if err != nil {
		return nil, err
	}
	t, userID, err := s.stmtTokenLookup.run(hashed)
	if err != nil {
		return nil, err
	} else if t == nil {
		return nil, nil
	}

	if t.Expires.ToTime().Before(time.Now()) {
		return nil, nil
	}
	u, err := s.stmtUserGetById.run(userID)
	switch err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		u.h = s
	}
	return u, err
}

// GetBySession resolves a session id to its user with the same miss
// semantics as GetByToken.
func (s Storage) GetBySession(id string) (*User, error) {
	sess, err := s.sessions.get(id)
	if err != nil {
		return nil, err
	} else if sess == nil {
		return nil, nil
	}
	if sess.Expires.ToTime().Before(time.Now()) {
		return nil, nil
	}
	u, err := s.stmtUserGetById.run(sess.UserID)
	switch err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		u.h = s
	}
	return u, err
}

func (s Storage) List() ([]User, error) {
	users, err := s.stmtUserList.run()
	if err == nil {
		for i := range users {
			users[i].h = s
		}
	}
	return users, err
}

type stmtUserCreate storage.DbStmt

func (s *stmtUserCreate) Init(db storage.DbHandle) (err error) {
	s.Stmt, err = db.Prepare("userCreate", `
		INSERT INTO users (username, password, email, role, created, deleted)
		VALUES (?, ?, ?, ?, ?, ?)`,
	)
	return
}

func (s *stmtUserCreate) run(u *User) error {
	if u.Created == 0 {
		u.Created = storage.Timestamp(time.Now().Unix())
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	result, err := s.Stmt.Exec(
		u.Username,
		u.Password,
		u.Email,
		u.Role,
		u.Created,
		u.Deleted,
	)
	if err != nil {
		return err
	} else if id, err := result.LastInsertId(); err != nil {
		return err
	} else {
		u.id = id
	}
	return nil
}

type stmtUserGetById storage.DbStmt

func (s *stmtUserGetById) Init(db storage.DbHandle) (err error) {
	s.Stmt, err = db.Prepare("userGetId", `
		SELECT id, username, password, email, role, created
		FROM users
		WHERE id = ? AND deleted = false`,
	)
	return
}

func (s *stmtUserGetById) run(id int64) (*User, error) {
	u := User{}
	err := s.Stmt.QueryRow(id).Scan(
		&u.id,
		&u.Username,
		&u.Password,
		&u.Email,
		&u.Role,
		&u.Created,
	)
	return &u, err
}

type stmtUserGetByName storage.DbStmt

func (s *stmtUserGetByName) Init(db storage.DbHandle) (err error) {
	s.Stmt, err = db.Prepare("userGet", `
		SELECT id, username, password, email, role, created
		FROM users
		WHERE username = ? AND deleted = false`,
	)
	return
}

func (s *stmtUserGetByName) run(username string) (*User, error) {
	u := User{}
	err := s.Stmt.QueryRow(username).Scan(
		&u.id,
		&u.Username,
		&u.Password,
		&u.Email,
		&u.Role,
		&u.Created,
	)
	return &u, err
}

type stmtUserList storage.DbStmt

func (s *stmtUserList) Init(db storage.DbHandle) (err error) {
	s.Stmt, err = db.Prepare("userList", `
		SELECT id, username, password, email, role, created, deleted
		FROM users
		WHERE deleted = false`,
	)
	return
}

func (s *stmtUserList) run() ([]User, error) {
	var users []User
	rows, err := s.Stmt.Query()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("stmtUserList: failed to close rows", "error", err)
		}
	}()

	for rows.Next() {
		var u User
		err := rows.Scan(
			&u.id,
			&u.Username,
			&u.Password,
			&u.Email,
			&u.Role,
			&u.Created,
			&u.Deleted,
		)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

type stmtUserUpdate storage.DbStmt

func (s *stmtUserUpdate) Init(db storage.DbHandle) (err error) {
	s.Stmt, err = db.Prepare("userUpdate", `
		UPDATE users
		SET username = ?, password = ?, email = ?, role = ?, deleted = ?
		WHERE id = ?`,
	)
	return
}

func (s *stmtUserUpdate) run(u User) error {
	_, err := s.Stmt.Exec(u.Username, u.Password, u.Email, u.Role, u.Deleted, u.id)
	return err
}

type stmtSessionCreate storage.DbStmt

func (s *stmtSessionCreate) Init(db storage.DbHandle) (err error) {
	s.Stmt, err = db.Prepare("sessionCreate", `
		INSERT INTO session (id, user_id, remote_ip, created, expires)
		VALUES (?, ?, ?, ?, ?)`,
	)
	return
}

func (s *stmtSessionCreate) run(u User, id, remoteIP string, created, expires int64) error {
	_, err := s.Stmt.Exec(id, u.id, remoteIP, created, expires)
	return err
}

type stmtSessionDelete storage.DbStmt

func (s *stmtSessionDelete) Init(db storage.DbHandle) (err error) {
	s.Stmt, err = db.Prepare("sessionDelete", `
		DELETE FROM session
		WHERE id = ?`,
	)
	return
}

func (s *stmtSessionDelete) run(id string) error {
	_, err := s.Stmt.Exec(id)
	return err
}

type stmtSessionDeleteExpired storage.DbStmt

func (s *stmtSessionDeleteExpired) Init(db storage.DbHandle) (err error) {
	s.Stmt, err = db.Prepare("sessionDeleteExpired", `
		DELETE FROM session
		WHERE expires < ?`,
	)
	return
}

func (s *stmtSessionDeleteExpired) run(before int64) error {
	_, err := s.Stmt.Exec(before)
	return err
}

type stmtSessionGet storage.DbStmt

func (s *stmtSessionGet) Init(db storage.DbHandle) (err error) {
	s.Stmt, err = db.Prepare("sessionGet", `
		SELECT user_id, expires, data
		FROM session
		WHERE id = ?`,
	)
	return
}

func (s *stmtSessionGet) run(id string) (*session, error) {
	var sess session
	err := s.Stmt.QueryRow(id).Scan(
		&sess.UserID,
		&sess.Expires,
		&sess.Data,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return &sess, nil
}

type stmtSessionSetData storage.DbStmt

func (s *stmtSessionSetData) Init(db storage.DbHandle) (err error) {
	s.Stmt, err = db.Prepare("sessionSetData", `
		UPDATE session
		SET data = ?
		WHERE id = ?`,
	)
	return
}

func (s *stmtSessionSetData) run(id, data string) error {
	_, err := s.Stmt.Exec(data, id)
	return err
}

type stmtTokenCreate storage.DbStmt

func (s *stmtTokenCreate) Init(db storage.DbHandle) (err error) {
	s.Stmt, err = db.Prepare("tokenCreate", `
		INSERT INTO tokens (user_id, public_id, created, expires, description, value)
		VALUES (?, ?, ?, ?, ?, ?)`,
	)
	return
}

func (s *stmtTokenCreate) run(u User, t *Token) error {
	_, err := s.Stmt.Exec(u.id, t.PublicID, t.Created, t.Expires, t.Description, t.Value)
	return err
}

type stmtTokenDelete storage.DbStmt

func (s *stmtTokenDelete) Init(db storage.DbHandle) (err error) {
	s.Stmt, err = db.Prepare("tokenDelete", `
		DELETE FROM tokens
		WHERE user_id = ? AND public_id = ?`,
	)
	return
}

func (s *stmtTokenDelete) run(u User, publicID uint32) error {
	_, err := s.Stmt.Exec(u.id, publicID)
	return err
}

type stmtTokenDeleteAll storage.DbStmt

func (s *stmtTokenDeleteAll) Init(db storage.DbHandle) (err error) {
	s.Stmt, err = db.Prepare("tokenDeleteAll", `
		DELETE FROM tokens
		WHERE user_id = ?`,
	)
	return
}

func (s *stmtTokenDeleteAll) run(u User) error {
	_, err := s.Stmt.Exec(u.id)
	return err
}

type stmtTokenDeleteExpired storage.DbStmt

func (s *stmtTokenDeleteExpired) Init(db storage.DbHandle) (err error) {
	s.Stmt, err = db.Prepare("tokenDeleteExpired", `
		DELETE FROM tokens
		WHERE expires < ?`,
	)
	return
}

func (s *stmtTokenDeleteExpired) run(before int64) error {
	_, err := s.Stmt.Exec(before)
	return err
}

type stmtTokenList storage.DbStmt

func (s *stmtTokenList) Init(db storage.DbHandle) (err error) {
	s.Stmt, err = db.Prepare("tokenList", `
		SELECT public_id, created, expires, description
		FROM tokens
		WHERE user_id = ?`,
	)
	return
}

func (s *stmtTokenList) run(u User) ([]Token, error) {
	var tokens []Token
	rows, err := s.Stmt.Query(u.id)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("stmtTokenList: failed to close rows", "error", err)
		}
	}()

	for rows.Next() {
		var t Token
		if err := rows.Scan(&t.PublicID, &t.Created, &t.Expires, &t.Description); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

type stmtTokenLookup storage.DbStmt

func (s *stmtTokenLookup) Init(db storage.DbHandle) (err error) {
	s.Stmt, err = db.Prepare("tokenLookup", `
		SELECT user_id, public_id, created, expires, description
		FROM tokens
		WHERE value = ?`,
	)
	return
}

func (s *stmtTokenLookup) run(hashed string) (*Token, int64, error) {
	var (
		t      Token
		userID int64
	)
	err := s.Stmt.QueryRow(hashed).Scan(
		&userID,
		&t.PublicID,
		&t.Created,
		&t.Expires,
		&t.Description,
	)
	if err == sql.ErrNoRows {
		return nil, 0, nil
	} else if err != nil {
		return nil, 0, err
	}
	return &t, userID, nil
}
