// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package users

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foundriesio/route-guard/cli/api"
)

var WhoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the user the configured token belongs to",
	RunE: func(cmd *cobra.Command, args []string) error {
		api := api.CtxGetApi(cmd.Context())
		return whoami(api.Users())
	},
}

func whoami(uapi api.UsersApi) error {
	user, err := uapi.Whoami()
	cobra.CheckErr(err)

	fmt.Printf("Username: %s\n", user.Username)
	if user.Email != "" {
		fmt.Printf("Email:    %s\n", user.Email)
	}
	fmt.Printf("Role:     %s\n", user.Role)
	return nil
}
