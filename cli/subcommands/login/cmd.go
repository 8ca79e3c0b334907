// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package login

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/foundriesio/route-guard/cli/config"
)

var LoginCmd = &cobra.Command{
	Use:   "login <context-name> <server-url>",
	Short: "Configure authentication for a server",
	Long: `Login to a route-guard server by configuring a context with an API token.

Tokens are issued server-side with "route-guard token-add". The configuration
is saved to ~/.config/rgcli.yaml.`,
	Args: cobra.ExactArgs(2),
	// Runs before a config file exists, so skip the root's config loading.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		contextName := args[0]
		serverURL := args[1]

		token, _ := cmd.Flags().GetString("token")
		setDefault, _ := cmd.Flags().GetBool("set-default")
		if token == "" {
			return fmt.Errorf("a token is required; create one on the server with: route-guard token-add")
		}

		return saveToken(contextName, serverURL, token, setDefault)
	},
}

func init() {
	LoginCmd.Flags().String("token", "", "API token for authentication")
	LoginCmd.Flags().Bool("set-default", true, "Set this context as the default")
}

func saveToken(contextName, serverURL, token string, setDefault bool) error {
	// Load existing config or create new one
	cfg, err := config.LoadConfig()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg = &config.Config{
				Contexts: make(map[string]config.Context),
			}
		} else {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}

	if cfg.Contexts == nil {
		cfg.Contexts = make(map[string]config.Context)
	}
	cfg.Contexts[contextName] = config.Context{
		URL:   serverURL,
		Token: token,
	}

	if setDefault {
		cfg.ActiveContext = contextName
	}

	if err := config.SaveConfig(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("Successfully configured context '%s'\n", contextName)
	fmt.Printf("  Server URL: %s\n", serverURL)
	if setDefault {
		fmt.Printf("  Set as default context\n")
	}

	return nil
}
