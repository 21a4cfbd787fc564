// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package gateway

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/foundriesio/dg-shadow/context"
	"github.com/foundriesio/dg-shadow/server"
	"github.com/foundriesio/dg-shadow/storage"
)

// registerDevice loads the device named in the path, creating it on first
// contact, and bumps its last seen time.
func (h handlers) registerDevice(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		uuid := c.Param("uuid")
		if !storage.ValidDeviceId(uuid) {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid device id")
		}
		ctx := context.CtxWithDeviceLog(req.Context(), uuid)
		c.SetRequest(req.WithContext(ctx))

		device, err := h.storage.DeviceRegister(uuid)
		if err != nil {
			return server.EchoError(c, err, http.StatusInternalServerError, "Unable to register device")
		}
		if err = device.CheckIn(); err != nil {
			context.CtxGetLog(ctx).Warn("Unable to update device last seen", "error", err)
		}

		ctx = CtxWithDevice(ctx, device)
		c.SetRequest(req.WithContext(ctx))
		return next(c)
	}
}
