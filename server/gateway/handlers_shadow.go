// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package gateway

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/foundriesio/dg-shadow/server"
	"github.com/foundriesio/dg-shadow/shadow"
)

type ShadowReport struct {
	Version  *int64         `json:"version"`
	Reported map[string]any `json:"reported"`
}

type ShadowReportResult struct {
	Applied bool         `json:"applied"`
	Shadow  shadow.Entry `json:"shadow"`
}

// @Summary Report device state into its shadow
// @Accept  json
// @Param   report body ShadowReport true "Versioned partial state"
// @Produce json
// @Success 200 {object} ShadowReportResult
// @Router  /v1/devices/:uuid/shadow [patch]
func (h handlers) shadowReport(c echo.Context) error {
	ctx := c.Request().Context()
	d := CtxGetDevice(ctx)

	var report ShadowReport
	if err := server.ReadJsonBody(c, &report); err != nil {
		return err
	}
	if report.Version == nil {
		return server.EchoError(c, errors.New("missing version"), http.StatusBadRequest, "Version is required")
	}
	// A stale version is not an error: the current shadow comes back unchanged.
	entry, applied, err := h.engine.Shadows.ApplyUpdate(ctx, d.Uuid, *report.Version, report.Reported)
	if err != nil {
		return server.EchoError(c, err, http.StatusInternalServerError, "Failed to update shadow")
	}
	return c.JSON(http.StatusOK, ShadowReportResult{Applied: applied, Shadow: entry})
}
