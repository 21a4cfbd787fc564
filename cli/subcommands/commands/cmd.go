// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/foundriesio/dg-shadow/cli/api"
)

var CommandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "Send commands to devices",
	Long:  `Commands for queueing device commands and following their delivery`,
}

var submitCmd = &cobra.Command{
	Use:   "submit <uuid> <capability>",
	Short: "Queue a command for a device",
	Long: `Queue a command for a device.

The idempotency key defaults to a fresh random value; pass the same key again
to make a retried submission safe.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, _ := cmd.Flags().GetString("params")
		priority, _ := cmd.Flags().GetString("priority")
		key, _ := cmd.Flags().GetString("idempotency-key")
		within, _ := cmd.Flags().GetDuration("deadline")

		sub := api.Submission{Capability: args[1], Priority: priority, IdempotencyKey: key}
		if sub.IdempotencyKey == "" {
			sub.IdempotencyKey = uuid.NewString()
		}
		if params != "" {
			if !json.Valid([]byte(params)) {
				return fmt.Errorf("--params must be a JSON document")
			}
			sub.Params = json.RawMessage(params)
		}
		if within > 0 {
			deadline := time.Now().Add(within).UTC()
			sub.Deadline = &deadline
		}

		id, err := api.CtxGetApi(cmd.Context()).CommandSubmit(args[0], sub)
		cobra.CheckErr(err)
		fmt.Printf("Queued command %s (idempotency key %s)\n", id, sub.IdempotencyKey)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list <uuid>",
	Short: "List the commands of a device, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")
		records, err := api.CtxGetApi(cmd.Context()).CommandsList(args[0], status)
		cobra.CheckErr(err)

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCAPABILITY\tPRIORITY\tSTATUS\tENQUEUED\tERROR")
		for _, r := range records {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				r.Id, r.Capability, r.Priority, r.Status, r.EnqueuedAt.Format(time.RFC3339), r.Error)
		}
		return w.Flush()
	},
}

var showCmd = &cobra.Command{
	Use:   "show <command-id>",
	Short: "Show a command with its delivery status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := api.CtxGetApi(cmd.Context()).CommandGet(args[0])
		cobra.CheckErr(err)
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

func init() {
	submitCmd.Flags().String("params", "", "Command parameters as a JSON document")
	submitCmd.Flags().String("priority", "routine", "emergency, routine or background")
	submitCmd.Flags().String("idempotency-key", "", "Key that makes retried submissions safe")
	submitCmd.Flags().Duration("deadline", 0, "Drop the command when not delivered within this duration")
	listCmd.Flags().String("status", "", "Only list commands in this status")

	CommandsCmd.AddCommand(submitCmd)
	CommandsCmd.AddCommand(listCmd)
	CommandsCmd.AddCommand(showCmd)
}
