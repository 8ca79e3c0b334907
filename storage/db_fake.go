// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

//go:build nodb

package storage

import (
	"database/sql"
	"errors"
	"time"
)

var ErrDbConstraintUnique = errors.New("sqlite.ErrConstraintUnique")

type Timestamp int64

func (t Timestamp) ToTime() time.Time {
	return time.Unix(int64(t), 0)
}

func IsConstraintUnique(err error) bool {
	return errors.Is(err, ErrDbConstraintUnique)
}

type DbHandle struct {
}

func NewDb(dbfile string) (*DbHandle, error) {
	return nil, nil
}

func (d DbHandle) Close() error {
	return nil
}

func (d DbHandle) Exec(query string, args ...any) error {
	return nil
}

func (d DbHandle) Prepare(name, query string) (stmt *sql.Stmt, err error) {
	return nil, nil
}

func (d DbHandle) InitStmt(stmt ...DbStmtInit) error {
	return nil
}

type DbStmt struct {
	Stmt *sql.Stmt
}

type DbStmtInit interface {
	Init(db DbHandle) error
}
