// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/foundriesio/route-guard/cli/api"
	"github.com/foundriesio/route-guard/cli/config"
	"github.com/foundriesio/route-guard/cli/subcommands/login"
	"github.com/foundriesio/route-guard/cli/subcommands/users"
)

var rootCmd = &cobra.Command{
	Use:   "rgcli",
	Short: "A command line interface to the route-guard server",
	Long: `rgcli is a command-line interface for inspecting users and
verifying credentials against a route-guard server.

Configuration is stored in $HOME/.config/rgcli.yaml`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		contextName, err := cmd.Flags().GetString("context")
		if err != nil {
			return fmt.Errorf("failed to get context flag: %w", err)
		}

		appctx, err := cfg.GetContext(contextName)
		if err != nil {
			return fmt.Errorf("failed to get current context: %w", err)
		}

		client := api.NewClient(*appctx)

		ctx := context.WithValue(cmd.Context(), api.ContextKey, client)
		cmd.SetContext(ctx)

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("context", "c", "", "Specify the context to use from the configuration file")
	rootCmd.AddCommand(login.LoginCmd)
	rootCmd.AddCommand(users.WhoamiCmd)
	rootCmd.AddCommand(users.ListCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
}
