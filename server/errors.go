// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/foundriesio/dg-shadow/context"
)

const maxJsonBody = 1 << 20

// EchoError logs the internal error and answers with a sanitized message.
func EchoError(c echo.Context, err error, status int, msg string) error {
	log := context.CtxGetLog(c.Request().Context())
	if status >= http.StatusInternalServerError {
		log.Error(msg, "error", err, "status", status)
	} else {
		log.Warn(msg, "error", err, "status", status)
	}
	return echo.NewHTTPError(status, msg)
}

// ReadJsonBody decodes a JSON request body into dst, rejecting unknown fields.
func ReadJsonBody(c echo.Context, dst any) error {
	body := http.MaxBytesReader(c.Response().Writer, c.Request().Body, maxJsonBody)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return EchoError(c, err, http.StatusBadRequest, fmt.Sprintf("Invalid JSON body: %s", err))
	}
	return nil
}
