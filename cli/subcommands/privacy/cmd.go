// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package privacy

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/foundriesio/dg-shadow/cli/api"
)

var PrivacyCmd = &cobra.Command{
	Use:   "privacy",
	Short: "Control telemetry egress",
	Long:  `Commands for the local-only switch and per-device consent decisions`,
}

var localOnlyCmd = &cobra.Command{
	Use:   "local-only [on|off]",
	Short: "Show or switch local-only mode",
	Long:  `Local-only mode blocks every telemetry event from leaving the gateway, regardless of consent`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := api.CtxGetApi(cmd.Context())
		if len(args) == 1 {
			switch args[0] {
			case "on":
				cobra.CheckErr(a.SetLocalOnly(true))
			case "off":
				cobra.CheckErr(a.SetLocalOnly(false))
			default:
				return fmt.Errorf("argument must be 'on' or 'off', got '%s'", args[0])
			}
		}
		enabled, err := a.LocalOnly()
		cobra.CheckErr(err)
		if enabled {
			fmt.Println("Local-only mode is on: all telemetry egress is blocked")
		} else {
			fmt.Println("Local-only mode is off")
		}
		return nil
	},
}

var consentCmd = &cobra.Command{
	Use:   "consent <uuid> <allow|deny|clear>",
	Short: "Seed or drop the cached consent decision of a device",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := api.CtxGetApi(cmd.Context())
		uuid := args[0]
		if args[1] == "clear" {
			cobra.CheckErr(a.ConsentClear(uuid))
			fmt.Printf("Consent decision of %s dropped\n", uuid)
			return nil
		} else if args[1] != "allow" && args[1] != "deny" {
			return fmt.Errorf("second argument must be 'allow', 'deny' or 'clear', got '%s'", args[1])
		}

		version, _ := cmd.Flags().GetString("policy-version")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		if ttl < time.Second {
			return fmt.Errorf("--ttl must be at least one second")
		}
		decision := api.ConsentDecision{
			Allowed:       args[1] == "allow",
			PolicyVersion: version,
			TtlSeconds:    int(ttl / time.Second),
		}
		cobra.CheckErr(a.ConsentSet(uuid, decision))
		fmt.Printf("Consent of %s set to %s for %s\n", uuid, args[1], ttl)
		return nil
	},
}

func init() {
	consentCmd.Flags().String("policy-version", "", "Policy version recorded with the decision")
	consentCmd.Flags().Duration("ttl", 5*time.Minute, "How long the decision is cached")

	PrivacyCmd.AddCommand(localOnlyCmd)
	PrivacyCmd.AddCommand(consentCmd)
}
