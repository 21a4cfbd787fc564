// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package api

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/foundriesio/dg-shadow/shadow"
	models "github.com/foundriesio/dg-shadow/storage/api"
)

type (
	Device         = models.DeviceListItem
	DeviceListOpts = models.DeviceListOpts
	Shadow         = shadow.Entry
)

func (a Api) DevicesList(opts DeviceListOpts) ([]Device, error) {
	q := url.Values{}
	if opts.OrderBy != "" {
		q.Set("order-by", string(opts.OrderBy))
	}
	if opts.Limit > 0 {
		q.Set("limit", fmt.Sprint(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", fmt.Sprint(opts.Offset))
	}
	resource := "/v1/devices"
	if len(q) > 0 {
		resource += "?" + q.Encode()
	}
	var devices []Device
	return devices, a.Get(resource, &devices)
}

func (a Api) DeviceGet(uuid string) (Device, error) {
	var d Device
	return d, a.Get("/v1/devices/"+url.PathEscape(uuid), &d)
}

func (a Api) ShadowGet(uuid string) (Shadow, error) {
	var s Shadow
	return s, a.Get("/v1/devices/"+url.PathEscape(uuid)+"/shadow", &s)
}

// Audit returns the raw audit records of kind ("privacy" or "security").
func (a Api) Audit(uuid, kind string) ([]json.RawMessage, error) {
	var records []json.RawMessage
	return records, a.Get("/v1/devices/"+url.PathEscape(uuid)+"/audit/"+url.PathEscape(kind), &records)
}
