// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/foundriesio/dg-shadow/server"
)

// @Summary Get the last reported state of a device
// @Produce json
// @Success 200 {object} shadow.Entry
// @Router  /v1/devices/:uuid/shadow [get]
func (h *handlers) shadowGet(c echo.Context) error {
	ctx := c.Request().Context()
	device := CtxGetDevice(ctx)
	entry, err := h.engine.Shadows.Get(ctx, device.Uuid)
	if err != nil {
		return server.EchoError(c, err, http.StatusInternalServerError, "Failed to read shadow")
	} else if entry == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Device has not reported any state")
	}
	return c.JSON(http.StatusOK, entry)
}
