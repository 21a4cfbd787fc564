// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/foundriesio/dg-shadow/cli/api"
	"github.com/foundriesio/dg-shadow/cli/config"
	"github.com/foundriesio/dg-shadow/cli/subcommands/commands"
	"github.com/foundriesio/dg-shadow/cli/subcommands/contexts"
	"github.com/foundriesio/dg-shadow/cli/subcommands/devices"
	"github.com/foundriesio/dg-shadow/cli/subcommands/privacy"
	"github.com/foundriesio/dg-shadow/cli/subcommands/tail"
)

var rootCmd = &cobra.Command{
	Use:   "dgctl",
	Short: "A command line interface to the device shadow server",
	Long: `dgctl is a command-line interface for inspecting devices, sending them
commands and controlling telemetry egress on a dg-shadow server.

Configuration is stored in $HOME/.config/dgctl.yaml`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Context management works on the config file itself.
		for c := cmd; c != nil; c = c.Parent() {
			if c == contexts.ContextCmd {
				return nil
			}
		}

		configPath, err := cmd.Flags().GetString("config")
		if err != nil {
			return fmt.Errorf("failed to get config flag: %w", err)
		}
		cfg, err := config.LoadConfig(configPath)
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

		ctx := api.CtxWithApi(cmd.Context(), client)
		cmd.SetContext(ctx)

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("context", "c", "", "Specify the context to use from the configuration file")
	rootCmd.PersistentFlags().StringP("config", "f", "", "Specify the configuration file to use")

	rootCmd.AddCommand(contexts.ContextCmd)
	rootCmd.AddCommand(devices.DevicesCmd)
	rootCmd.AddCommand(commands.CommandsCmd)
	rootCmd.AddCommand(privacy.PrivacyCmd)
	rootCmd.AddCommand(tail.TailCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
