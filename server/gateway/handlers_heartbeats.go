// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package gateway

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/foundriesio/dg-shadow/health"
	"github.com/foundriesio/dg-shadow/server"
)

type Heartbeat struct {
	Timestamp     *time.Time `json:"timestamp,omitempty"`
	RoundTripMs   *float64   `json:"roundTripMs,omitempty"`
	PacketLossPct *float64   `json:"packetLossPct,omitempty"`
}

type HeartbeatResult struct {
	Breakdown bool `json:"breakdown"`
}

// @Summary Record a device heartbeat
// @Accept  json
// @Param   heartbeat body Heartbeat true "Heartbeat sample"
// @Produce json
// @Success 200 {object} HeartbeatResult
// @Router  /v1/devices/:uuid/heartbeats [post]
func (h handlers) heartbeatRecord(c echo.Context) error {
	ctx := c.Request().Context()
	d := CtxGetDevice(ctx)

	var hb Heartbeat
	if err := server.ReadJsonBody(c, &hb); err != nil {
		return err
	}
	sample := health.Sample{
		DeviceId:      d.Uuid,
		Timestamp:     time.Now().UTC(),
		RoundTripMs:   hb.RoundTripMs,
		PacketLossPct: hb.PacketLossPct,
	}
	if hb.Timestamp != nil {
		sample.Timestamp = *hb.Timestamp
	}
	fired, err := h.engine.Monitor.RecordHeartbeat(ctx, sample)
	if err != nil {
		return server.EchoError(c, err, http.StatusBadRequest, "Invalid heartbeat")
	}
	return c.JSON(http.StatusOK, HeartbeatResult{Breakdown: fired})
}
