// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package tail

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/foundriesio/dg-shadow/cli/api"
	"github.com/foundriesio/dg-shadow/events"
)

var TailCmd = &cobra.Command{
	Use:   "tail [prefix...]",
	Short: "Follow server events",
	Long: `Follow events as the server publishes them, one JSON document per line.

Optional prefixes limit the stream, e.g. "conn.command." or "sec.".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		fmt.Fprintln(os.Stderr, "Press Ctrl+C to stop...")
		enc := json.NewEncoder(os.Stdout)
		return api.CtxGetApi(ctx).Events(ctx, args, func(evt events.Event) error {
			return enc.Encode(evt)
		})
	},
}
