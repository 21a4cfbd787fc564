// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/foundriesio/dg-shadow/privacy"
	"github.com/foundriesio/dg-shadow/server"
)

type LocalOnly struct {
	Enabled *bool `json:"enabled"`
}

// @Summary Seed the consent decision of a device
// @Accept  json
// @Param   decision body privacy.ConsentDecision true "Decision and its lifetime"
// @Success 204
// @Router  /v1/devices/:uuid/consent [put]
func (h *handlers) consentPut(c echo.Context) error {
	var decision privacy.ConsentDecision
	if err := server.ReadJsonBody(c, &decision); err != nil {
		return err
	}
	if decision.TtlSeconds <= 0 {
		return server.EchoError(c, errors.New("non-positive ttl"), http.StatusBadRequest, "ttlSeconds must be positive")
	}
	if len(decision.PolicyVersion) == 0 {
		decision.PolicyVersion = privacy.PolicyVersionNone
	}
	h.engine.Consent.Put(c.Param("uuid"), decision)
	CtxGetLog(c.Request().Context()).Info("consent decision seeded",
		"allowed", decision.Allowed, "policy-version", decision.PolicyVersion, "ttl", decision.TtlSeconds)
	return c.NoContent(http.StatusNoContent)
}

// @Summary Drop the cached consent decision of a device
// @Success 204
// @Router  /v1/devices/:uuid/consent [delete]
func (h *handlers) consentDelete(c echo.Context) error {
	h.engine.Consent.Invalidate(c.Param("uuid"))
	return c.NoContent(http.StatusNoContent)
}

// @Summary Report whether local-only mode blocks all egress
// @Produce json
// @Success 200 {object} LocalOnly
// @Router  /v1/privacy/local-only [get]
func (h *handlers) localOnlyGet(c echo.Context) error {
	enabled := h.engine.LocalOnly.Enabled()
	return c.JSON(http.StatusOK, LocalOnly{Enabled: &enabled})
}

// @Summary Switch local-only mode
// @Accept  json
// @Param   mode body LocalOnly true "Desired mode"
// @Produce json
// @Success 200 {object} LocalOnly
// @Router  /v1/privacy/local-only [put]
func (h *handlers) localOnlyPut(c echo.Context) error {
	var mode LocalOnly
	if err := server.ReadJsonBody(c, &mode); err != nil {
		return err
	}
	if mode.Enabled == nil {
		return server.EchoError(c, errors.New("missing enabled"), http.StatusBadRequest, "enabled is required")
	}
	h.engine.LocalOnly.Set(*mode.Enabled)
	CtxGetLog(c.Request().Context()).Info("local-only mode changed", "enabled", *mode.Enabled)
	return c.JSON(http.StatusOK, mode)
}
