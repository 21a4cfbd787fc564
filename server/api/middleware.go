// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/foundriesio/dg-shadow/context"
	"github.com/foundriesio/dg-shadow/server"
	"github.com/foundriesio/dg-shadow/storage"
)

// requireDevice loads the device named in the path and answers 404 for
// devices that never connected.
func (h *handlers) requireDevice(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		uuid := c.Param("uuid")
		if !storage.ValidDeviceId(uuid) {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid device id")
		}
		device, err := h.storage.DeviceGet(uuid)
		if err != nil {
			return server.EchoError(c, err, http.StatusInternalServerError, "Failed to lookup device")
		} else if device == nil {
			return echo.NewHTTPError(http.StatusNotFound, "Not found")
		}

		req := c.Request()
		ctx := req.Context()
		ctx = context.CtxWithDeviceLog(ctx, uuid)
		ctx = CtxWithDevice(ctx, device)
		c.SetRequest(req.WithContext(ctx))
		return next(c)
	}
}

// registerDevice creates the device named in the path when it is not known
// yet. Operators may address a device before its first connection.
func (h *handlers) registerDevice(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		uuid := c.Param("uuid")
		if !storage.ValidDeviceId(uuid) {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid device id")
		}
		if _, err := h.registrar.DeviceRegister(uuid); err != nil {
			return server.EchoError(c, err, http.StatusInternalServerError, "Unable to register device")
		}

		req := c.Request()
		ctx := req.Context()
		ctx = context.CtxWithDeviceLog(ctx, uuid)
		c.SetRequest(req.WithContext(ctx))
		return next(c)
	}
}
