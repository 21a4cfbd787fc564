// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package contexts

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foundriesio/dg-shadow/cli/config"
)

var ContextCmd = &cobra.Command{
	Use:   "context",
	Short: "Manage server contexts",
	Long:  `Manage the servers dgctl talks to. Contexts are stored in ~/.config/dgctl.yaml.`,
}

var addCmd = &cobra.Command{
	Use:   "add <context-name> <server-url>",
	Short: "Add or replace a context",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		token, _ := cmd.Flags().GetString("token")
		setDefault, _ := cmd.Flags().GetBool("set-default")
		configPath, _ := cmd.Flags().GetString("config")
		return addContext(args[0], args[1], token, configPath, setDefault)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		for _, name := range cfg.Names() {
			marker := " "
			if name == cfg.ActiveContext {
				marker = "*"
			}
			fmt.Printf("%s %s\t%s\n", marker, name, cfg.Contexts[name].URL)
		}
		return nil
	},
}

func init() {
	addCmd.Flags().String("token", "", "Bearer token for servers behind an authenticating proxy")
	addCmd.Flags().Bool("set-default", true, "Set this context as the default")

	ContextCmd.AddCommand(addCmd)
	ContextCmd.AddCommand(listCmd)
}

func addContext(contextName, serverURL, token, configPath string, setDefault bool) error {
	cfg, err := config.LoadOrNew(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err = cfg.SetContext(contextName, config.Context{URL: serverURL, Token: token}, setDefault); err != nil {
		return err
	}
	if err = cfg.Save(configPath); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("Successfully configured context '%s'\n", contextName)
	fmt.Printf("  Server URL: %s\n", serverURL)
	if setDefault {
		fmt.Printf("  Set as default context\n")
	}

	return nil
}
