// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/foundriesio/dg-shadow/commands"
	"github.com/foundriesio/dg-shadow/server"
	storage "github.com/foundriesio/dg-shadow/storage/api"
)

type (
	CommandListOpts = storage.CommandListOpts
	CommandRecord   = storage.CommandRecord
)

type CommandAccepted struct {
	Id string `json:"id"`
}

// @Summary Queue a command for a device
// @Accept  json
// @Param   command body commands.Submission true "Command to deliver"
// @Produce json
// @Success 202 {object} CommandAccepted
// @Failure 400 Invalid submission
// @Failure 409 Duplicate idempotency key
// @Router  /v1/devices/:uuid/commands [post]
func (h *handlers) commandSubmit(c echo.Context) error {
	ctx := c.Request().Context()
	var sub commands.Submission
	if err := server.ReadJsonBody(c, &sub); err != nil {
		return err
	}

	cmd, err := h.engine.Commands.Submit(ctx, c.Param("uuid"), sub)
	switch {
	case errors.Is(err, commands.ErrInvalidSubmission):
		return server.EchoError(c, err, http.StatusBadRequest, err.Error())
	case errors.Is(err, commands.ErrDuplicateCommand):
		return server.EchoError(c, err, http.StatusConflict, "A command with this idempotency key was already submitted")
	case err != nil:
		return server.EchoError(c, err, http.StatusInternalServerError, "Failed to queue command")
	}
	return c.JSON(http.StatusAccepted, CommandAccepted{Id: cmd.Id})
}

// @Summary List commands of a device, newest first
// @Param _ query CommandListOpts false "Filter options"
// @Produce json
// @Success 200 {array} CommandRecord
// @Router  /v1/devices/:uuid/commands [get]
func (h *handlers) commandList(c echo.Context) error {
	device := CtxGetDevice(c.Request().Context())
	opts := CommandListOpts{Limit: 100}
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &opts); err != nil {
		return server.EchoError(c, err, http.StatusBadRequest, "Failed to parse list options")
	}
	if opts.Status != "" && !validStatus(opts.Status) {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid status filter")
	}
	records, err := h.storage.CommandsList(device.Uuid, opts)
	if err != nil {
		return server.EchoError(c, err, http.StatusInternalServerError, "Unexpected error listing commands")
	}
	return c.JSON(http.StatusOK, records)
}

// @Summary Get a command with its delivery status
// @Produce json
// @Success 200 {object} CommandRecord
// @Router  /v1/commands/:id [get]
func (h *handlers) commandGet(c echo.Context) error {
	rec, err := h.storage.CommandGet(c.Param("id"))
	if err != nil {
		return server.EchoError(c, err, http.StatusInternalServerError, "Failed to lookup command")
	} else if rec == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Not found")
	}
	return c.JSON(http.StatusOK, rec)
}

func validStatus(s string) bool {
	switch commands.Status(s) {
	case commands.StatusQueued, commands.StatusDelivering, commands.StatusApplied, commands.StatusFailed, commands.StatusExpired:
		return true
	}
	return false
}
