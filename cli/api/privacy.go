// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package api

import (
	"net/url"

	"github.com/foundriesio/dg-shadow/privacy"
)

type ConsentDecision = privacy.ConsentDecision

type localOnly struct {
	Enabled bool `json:"enabled"`
}

func (a Api) LocalOnly() (bool, error) {
	var mode localOnly
	return mode.Enabled, a.Get("/v1/privacy/local-only", &mode)
}

func (a Api) SetLocalOnly(enabled bool) error {
	return a.Put("/v1/privacy/local-only", localOnly{Enabled: enabled}, nil)
}

func (a Api) ConsentSet(uuid string, decision ConsentDecision) error {
	return a.Put("/v1/devices/"+url.PathEscape(uuid)+"/consent", decision, nil)
}

func (a Api) ConsentClear(uuid string) error {
	return a.Delete("/v1/devices/" + url.PathEscape(uuid) + "/consent")
}
