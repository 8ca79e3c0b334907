// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package users

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/foundriesio/route-guard/cli/api"
	"github.com/foundriesio/route-guard/cli/subcommands"
)

var ListCmd = &cobra.Command{
	Use:   "users",
	Short: "List all users",
	Long:  `List all active users on the server. Requires an admin token.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		api := api.CtxGetApi(cmd.Context())
		return listUsers(api.Users())
	},
}

func listUsers(uapi api.UsersApi) error {
	users, err := uapi.List()
	cobra.CheckErr(err)

	table := subcommands.NewTableWriter([]string{"USERNAME", "EMAIL", "ROLE", "CREATED"})
	for _, u := range users {
		created := time.Unix(u.Created, 0).Format(time.DateOnly)
		table.AddRow(u.Username, u.Email, u.Role, created)
	}
	table.Render()
	return nil
}
