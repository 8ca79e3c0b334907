// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package main

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/foundriesio/route-guard/auth"
	"github.com/foundriesio/route-guard/storage/users"
)

type UserAddCmd struct {
	Username string `arg:"required" help:"Username for the new user"`
	Email    string `help:"Email address for the new user"`
	Role     string `default:"user" help:"Role to assign: user or admin"`
}

func (c UserAddCmd) Run(args CommonArgs) error {
	if c.Role != users.RoleUser && c.Role != users.RoleAdmin {
		return fmt.Errorf("invalid role %q; must be %q or %q", c.Role, users.RoleUser, users.RoleAdmin)
	}

	userStorage, _, err := args.openStorage()
	if err != nil {
		return err
	}

	if u, err := userStorage.Get(c.Username); err != nil {
		return err
	} else if u != nil {
		return fmt.Errorf("user %q already exists", c.Username)
	}

	password, err := promptPassword()
	if err != nil {
		return err
	}
	hashed, err := auth.PasswordHash(password)
	if err != nil {
		return err
	}

	u := &users.User{
		Username: c.Username,
		Password: hashed,
		Email:    c.Email,
		Role:     c.Role,
	}
	return userStorage.Create(u)
}

func promptPassword() (string, error) {
	fmt.Print("Password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("unable to read password: %w", err)
	}
	if len(password) == 0 {
		return "", fmt.Errorf("password must not be empty")
	}

	fmt.Print("Confirm password: ")
	confirm, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("unable to read password: %w", err)
	}
	if string(password) != string(confirm) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(password), nil
}
