// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package devices

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/foundriesio/dg-shadow/cli/api"
	models "github.com/foundriesio/dg-shadow/storage/api"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all devices",
	Long:  `List all devices known to the server`,
	RunE: func(cmd *cobra.Command, args []string) error {
		api := api.CtxGetApi(cmd.Context())
		orderBy, _ := cmd.Flags().GetString("order-by")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")
		return listDevices(api, models.DeviceListOpts{OrderBy: models.OrderBy(orderBy), Limit: limit, Offset: offset})
	},
}

func init() {
	DevicesCmd.AddCommand(listCmd)
	listCmd.Flags().String("order-by", string(models.OrderByDeviceLastSeenDsc), "Sort order, e.g. last-seen-desc, created-at-asc, uuid-asc")
	listCmd.Flags().Int("limit", 0, "Maximum devices to list (server default when 0)")
	listCmd.Flags().Int("offset", 0, "Devices to skip")
}

func listDevices(api *api.Api, opts models.DeviceListOpts) error {
	devices, err := api.DevicesList(opts)
	cobra.CheckErr(err)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "UUID\tCREATED\tLAST SEEN")
	for _, d := range devices {
		fmt.Fprintf(w, "%s\t%s\t%s\n", d.Uuid, unixTime(d.CreatedAt), unixTime(d.LastSeen))
	}
	return w.Flush()
}

func unixTime(sec int64) string {
	return time.Unix(sec, 0).UTC().Format(time.RFC3339)
}
