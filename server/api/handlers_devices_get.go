// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package api

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/foundriesio/dg-shadow/server"
	"github.com/foundriesio/dg-shadow/storage/api"
)

type Device = api.Device

// @Summary Get a device by its UUID
// @Produce json
// @Success 200 Device
// @Router  /v1/devices/:uuid [get]
func (h *handlers) deviceGet(c echo.Context) error {
	return c.JSON(http.StatusOK, CtxGetDevice(c.Request().Context()))
}

var auditKinds = map[string]string{
	"privacy":  api.AuditPrivacyPrefix,
	"security": api.AuditSecurityPrefix,
}

// @Summary List audit records of a device, oldest first
// @Param   kind path string true "privacy or security"
// @Produce json
// @Success 200 {array} events.Event
// @Router  /v1/devices/:uuid/audit/:kind [get]
func (h *handlers) auditList(c echo.Context) error {
	prefix, ok := auditKinds[c.Param("kind")]
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Unknown audit kind")
	}
	device := CtxGetDevice(c.Request().Context())
	records, err := device.Audit(prefix)
	if err != nil {
		return server.EchoError(c, err, http.StatusInternalServerError, "Failed to read audit records")
	}
	if records == nil {
		records = []json.RawMessage{}
	}
	return c.JSON(http.StatusOK, records)
}
