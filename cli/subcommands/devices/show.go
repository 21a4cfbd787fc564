// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package devices

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/foundriesio/dg-shadow/cli/api"
)

var showCmd = &cobra.Command{
	Use:   "show <uuid>",
	Short: "Show a device and its last reported state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return showDevice(api.CtxGetApi(cmd.Context()), args[0])
	},
}

var auditCmd = &cobra.Command{
	Use:   "audit <uuid> <privacy|security>",
	Short: "Print the audit records of a device",
	Long:  `Print the recorded privacy or security events of a device, oldest first, one JSON document per line`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if args[1] != "privacy" && args[1] != "security" {
			return fmt.Errorf("second argument must be 'privacy' or 'security', got '%s'", args[1])
		}
		records, err := api.CtxGetApi(cmd.Context()).Audit(args[0], args[1])
		cobra.CheckErr(err)
		for _, r := range records {
			fmt.Println(string(r))
		}
		return nil
	},
}

func init() {
	DevicesCmd.AddCommand(showCmd)
	DevicesCmd.AddCommand(auditCmd)
}

func showDevice(a *api.Api, uuid string) error {
	device, err := a.DeviceGet(uuid)
	cobra.CheckErr(err)

	fmt.Printf("Device: %s\n", device.Uuid)
	fmt.Printf("Created: %s\n", unixTime(device.CreatedAt))
	fmt.Printf("Last seen: %s\n\n", unixTime(device.LastSeen))

	shadow, err := a.ShadowGet(uuid)
	var herr *api.HttpError
	if errors.As(err, &herr) && herr.Status == http.StatusNotFound {
		fmt.Println("The device has not reported any state.")
		return nil
	}
	cobra.CheckErr(err)

	fmt.Printf("Shadow version %d, updated %s:\n", shadow.Version, shadow.UpdatedAt.Format(time.RFC3339))
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(shadow.Reported)
}
