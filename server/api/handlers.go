// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package api

import (
	"github.com/labstack/echo/v4"

	"github.com/foundriesio/dg-shadow/engine"
	"github.com/foundriesio/dg-shadow/storage/api"
	"github.com/foundriesio/dg-shadow/storage/gateway"
)

type handlers struct {
	storage   *api.Storage
	registrar *gateway.Storage
	engine    *engine.Engine
}

func RegisterHandlers(e *echo.Echo, storage *api.Storage, registrar *gateway.Storage, engine *engine.Engine) {
	h := handlers{storage: storage, registrar: registrar, engine: engine}

	g := e.Group("/v1")
	g.GET("/devices", h.deviceList)
	g.GET("/devices/:uuid", h.deviceGet, h.requireDevice)
	g.GET("/devices/:uuid/shadow", h.shadowGet, h.requireDevice)
	g.GET("/devices/:uuid/audit/:kind", h.auditList, h.requireDevice)
	g.GET("/devices/:uuid/commands", h.commandList, h.requireDevice)
	g.POST("/devices/:uuid/commands", h.commandSubmit, h.registerDevice)
	g.GET("/commands/:id", h.commandGet)
	g.PUT("/devices/:uuid/consent", h.consentPut, h.registerDevice)
	g.DELETE("/devices/:uuid/consent", h.consentDelete)
	g.GET("/privacy/local-only", h.localOnlyGet)
	g.PUT("/privacy/local-only", h.localOnlyPut)
	g.GET("/events", h.eventsStream)
}
