// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/random"

	"github.com/foundriesio/dg-shadow/context"
)

// NewEchoServer returns an echo instance whose requests carry a request-scoped
// logger and are logged once they complete.
func NewEchoServer() *echo.Echo {
	server := echo.New()
	server.HideBanner = true
	server.HidePort = true
	server.Use(contextLogger())
	server.Use(middlewareLogger())
	server.Use(recoverPanic())
	return server
}

func middlewareLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		HandleError:      true, // forwards error to the global error handler, so it can decide appropriate status code
		LogContentLength: true,
		LogError:         true,
		LogLatency:       true,
		LogMethod:        true,
		LogStatus:        true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log := context.CtxGetLog(c.Request().Context())
			args := []any{
				"method", v.Method, "content-length", v.ContentLength, "status", v.Status,
				"latency-ms", v.Latency.Milliseconds(),
			}
			switch {
			case v.Error != nil && v.Status >= http.StatusInternalServerError:
				log.Error("response", append(args, "err", v.Error.Error())...)
			case v.Error != nil:
				// Client mistakes are already logged by EchoError.
				log.Info("response", append(args, "err", v.Error.Error())...)
			default:
				log.Info("response", args...)
			}
			return nil
		},
	})
}

// recoverPanic turns a handler panic into a 500 so one bad request cannot
// take the whole server down.
func recoverPanic() echo.MiddlewareFunc {
	return middleware.RecoverWithConfig(middleware.RecoverConfig{
		DisablePrintStack: true,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			context.CtxGetLog(c.Request().Context()).Error("handler panic", "error", err, "stack", string(stack))
			return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
		},
	})
}

func contextLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			ctx := req.Context()
			log := context.CtxGetLog(ctx)

			rid := req.Header.Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = random.String(12) // No need for uuid, save some space
			}
			res.Header().Set(echo.HeaderXRequestID, rid)
			log = log.With("req_id", rid, "uri", req.RequestURI)
			ctx = context.CtxWithLog(ctx, log)
			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	}
}
