// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package storage

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	HmacSecretFile = "hmac.secret"
	auditLogFile   = "audit.log"
	dbFile         = "route-guard.db"
)

// FsHandle is the on-disk layout of a data directory: the sqlite database
// file, secrets, and the user audit log.
type FsHandle struct {
	root string

	Secrets SecretsHandle
	Audit   AuditHandle
}

func NewFs(root string) (*FsHandle, error) {
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("unable to initialize file storage: %w", err)
	}
	secrets := filepath.Join(root, "secrets")
	if err := os.MkdirAll(secrets, 0o700); err != nil {
		return nil, fmt.Errorf("unable to initialize secrets storage: %w", err)
	}
	return &FsHandle{
		root:    root,
		Secrets: SecretsHandle{root: secrets},
		Audit:   AuditHandle{path: filepath.Join(root, auditLogFile)},
	}, nil
}

func (s FsHandle) DbFile() string {
	return filepath.Join(s.root, dbFile)
}

type SecretsHandle struct {
	root string
}

func (h SecretsHandle) ReadFile(name string) ([]byte, error) {
	content, err := os.ReadFile(filepath.Join(h.root, name))
	if err != nil {
		return nil, fmt.Errorf("unable to read secret %s: %w", name, err)
	}
	return content, nil
}

// InitHmacSecret creates the token-hashing secret if it does not exist yet.
// An existing secret is left alone so previously issued tokens stay valid.
func (h SecretsHandle) InitHmacSecret() error {
	path := filepath.Join(h.root, HmacSecretFile)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("unable to check HMAC secret: %w", err)
	}
	secret := []byte(rand.Text() + rand.Text())
	if err := os.WriteFile(path, secret, 0o600); err != nil {
		return fmt.Errorf("unable to write HMAC secret: %w", err)
	}
	return nil
}

// AuditHandle appends user-management events to a plain-text log. Auditing
// never fails the operation being audited; write errors are logged.
type AuditHandle struct {
	path string
}

func (h AuditHandle) AppendEvent(userID int64, msg string) {
	line := fmt.Sprintf("%s user=%d %s\n", time.Now().UTC().Format(time.RFC3339), userID, msg)
	fd, err := os.OpenFile(h.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err == nil {
		_, err = fd.WriteString(line)
		if cerr := fd.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		slog.Error("unable to append audit event", "user", userID, "error", err)
	}
}

// ReadEvents returns the audit lines recorded for one user.
func (h AuditHandle) ReadEvents(userID int64) (string, error) {
	content, err := os.ReadFile(h.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	} else if err != nil {
		return "", fmt.Errorf("unable to read audit log: %w", err)
	}

	var events strings.Builder
	marker := fmt.Sprintf(" user=%d ", userID)
	for _, line := range strings.Split(string(content), "\n") {
		if strings.Contains(line, marker) {
			events.WriteString(line)
			events.WriteByte('\n')
		}
	}
	return events.String(), nil
}
