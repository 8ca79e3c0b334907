// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package main

import (
	"fmt"
	"time"
)

type TokenAddCmd struct {
	Username      string `arg:"required" help:"User the token belongs to"`
	Description   string `default:"cli" help:"Free-form description for the token"`
	ExpiresInDays int    `arg:"--expires-in-days" default:"90" help:"Number of days until the token expires"`
}

func (c TokenAddCmd) Run(args CommonArgs) error {
	userStorage, _, err := args.openStorage()
	if err != nil {
		return err
	}

	u, err := userStorage.Get(c.Username)
	if err != nil {
		return err
	} else if u == nil {
		return fmt.Errorf("user %q does not exist", c.Username)
	}

	expires := time.Now().Add(time.Duration(c.ExpiresInDays) * 24 * time.Hour).Unix()
	token, err := u.GenerateToken(c.Description, expires)
	if err != nil {
		return err
	}

	// The cleartext value is shown once; only its HMAC is stored.
	fmt.Printf("Token id: %d\n", token.PublicID)
	fmt.Printf("Token:    %s\n", token.Value)
	return nil
}
