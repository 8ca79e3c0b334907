// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

//go:build !nodb

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
)

var ErrDbConstraintUnique = errors.New("sqlite.ErrConstraintUnique")

// Timestamp is a unix-seconds value as stored in the database.
type Timestamp int64

func (t Timestamp) ToTime() time.Time {
	return time.Unix(int64(t), 0)
}

type DbHandle struct {
	db *sql.DB
}

func NewDb(dbfile string) (*DbHandle, error) {
	db, err := sql.Open("sqlite3", dbfile+"?_journal_mode=WAL&_busy_timeout=5000&_fk=1")
	if err != nil {
		return nil, fmt.Errorf("unable to open database %s: %w", dbfile, err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("unable to connect to database %s: %w", dbfile, err)
	}
	return &DbHandle{db: db}, nil
}

func (d DbHandle) Close() error {
	return d.db.Close()
}

// Exec runs schema and maintenance statements that don't warrant preparation.
func (d DbHandle) Exec(query string, args ...any) error {
	if _, err := d.db.Exec(query, args...); err != nil {
		return fmt.Errorf("unable to execute statement: %w", err)
	}
	return nil
}

func (d DbHandle) Prepare(name, query string) (*sql.Stmt, error) {
	stmt, err := d.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("unable to prepare statement %s: %w", name, err)
	}
	return stmt, nil
}

func (d DbHandle) InitStmt(stmt ...DbStmtInit) error {
	for _, s := range stmt {
		if err := s.Init(d); err != nil {
			return err
		}
	}
	return nil
}

// IsConstraintUnique reports whether err is a sqlite unique-constraint
// violation.
func IsConstraintUnique(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return errors.Is(err, ErrDbConstraintUnique)
}

type DbStmt struct {
	Stmt *sql.Stmt
}

type DbStmtInit interface {
	Init(db DbHandle) error
}
