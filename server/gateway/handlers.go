// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package gateway

import (
	"github.com/labstack/echo/v4"

	"github.com/foundriesio/dg-shadow/engine"
	storage "github.com/foundriesio/dg-shadow/storage/gateway"
)

type handlers struct {
	storage *storage.Storage
	engine  *engine.Engine
}

func RegisterHandlers(e *echo.Echo, storage *storage.Storage, engine *engine.Engine) {
	h := handlers{storage: storage, engine: engine}
	g := e.Group("/v1/devices/:uuid", h.registerDevice)
	g.POST("/telemetry", h.telemetryIngest)
	g.POST("/heartbeats", h.heartbeatRecord)
	g.PATCH("/shadow", h.shadowReport)
}
