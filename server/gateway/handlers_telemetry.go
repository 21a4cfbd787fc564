// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package gateway

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/foundriesio/dg-shadow/privacy"
	"github.com/foundriesio/dg-shadow/server"
)

type TelemetryReport struct {
	Capability string     `json:"capability"`
	Value      any        `json:"value"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
}

// @Summary Submit one telemetry value for egress evaluation
// @Accept  json
// @Param   report body TelemetryReport true "Telemetry value"
// @Produce json
// @Success 200 {object} privacy.GuardResult
// @Router  /v1/devices/:uuid/telemetry [post]
func (h handlers) telemetryIngest(c echo.Context) error {
	ctx := c.Request().Context()
	d := CtxGetDevice(ctx)

	var report TelemetryReport
	if err := server.ReadJsonBody(c, &report); err != nil {
		return err
	}
	if len(report.Capability) == 0 {
		return server.EchoError(c, errors.New("missing capability"), http.StatusBadRequest, "Capability is required")
	}
	ts := time.Now()
	if report.Timestamp != nil {
		ts = *report.Timestamp
	}

	// A blocked result is still a successful evaluation.
	res := h.engine.Guard.Evaluate(ctx, privacy.IngestEvent{
		DeviceId:   d.Uuid,
		Capability: report.Capability,
		Value:      report.Value,
		Timestamp:  ts,
	})
	return c.JSON(http.StatusOK, res)
}
