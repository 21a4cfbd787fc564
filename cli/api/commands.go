// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package api

import (
	"net/url"

	"github.com/foundriesio/dg-shadow/commands"
	models "github.com/foundriesio/dg-shadow/storage/api"
)

type (
	Submission    = commands.Submission
	CommandRecord = models.CommandRecord
)

func (a Api) CommandSubmit(uuid string, sub Submission) (string, error) {
	var accepted struct {
		Id string `json:"id"`
	}
	err := a.Post("/v1/devices/"+url.PathEscape(uuid)+"/commands", sub, &accepted)
	return accepted.Id, err
}

func (a Api) CommandsList(uuid, status string) ([]CommandRecord, error) {
	resource := "/v1/devices/" + url.PathEscape(uuid) + "/commands"
	if status != "" {
		resource += "?status=" + url.QueryEscape(status)
	}
	var records []CommandRecord
	return records, a.Get(resource, &records)
}

func (a Api) CommandGet(id string) (CommandRecord, error) {
	var rec CommandRecord
	return rec, a.Get("/v1/commands/"+url.PathEscape(id), &rec)
}
