// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package api

import (
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/labstack/echo/v4"

	"github.com/foundriesio/dg-shadow/context"
	"github.com/foundriesio/dg-shadow/events"
)

const eventsWriteTimeout = 5 * time.Second

// @Summary Stream bus events over a websocket
// @Param   prefix query []string false "Event type prefixes to subscribe to"
// @Router  /v1/events [get]
func (h *handlers) eventsStream(c echo.Context) error {
	log := CtxGetLog(c.Request().Context())
	conn, err := websocket.Accept(c.Response().Writer, c.Request(), nil)
	if err != nil {
		// Accept has already written the error response.
		log.Warn("websocket upgrade failed", "error", err)
		return nil
	}
	defer func() { _ = conn.CloseNow() }()

	sub := h.engine.Bus.Subscribe(events.DefaultBuffer, c.QueryParams()["prefix"]...)
	defer sub.Close()

	// Clients only listen; CloseRead handles their control frames and cancels
	// ctx once they go away.
	ctx := conn.CloseRead(c.Request().Context())
	log.Info("event stream opened")
	for {
		select {
		case <-ctx.Done():
			log.Info("event stream closed", "dropped", sub.Dropped())
			return nil
		case evt, ok := <-sub.C:
			if !ok {
				return conn.Close(websocket.StatusGoingAway, "bus closed")
			}
			writeCtx, cancel := context.WithTimeout(ctx, eventsWriteTimeout)
			err := wsjson.Write(writeCtx, conn, evt)
			cancel()
			if err != nil {
				log.Warn("event stream write failed", "error", err)
				return nil
			}
		}
	}
}
