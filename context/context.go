// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package context

import (
	"context"
	"log/slog"
)

type (
	Context    = context.Context
	CancelFunc = context.CancelFunc
	ctxKey     int
)

var (
	Background       = context.Background
	WithCancel       = context.WithCancel
	WithTimeout      = context.WithTimeout
	WithValue        = context.WithValue
	WithoutCancel    = context.WithoutCancel
	Canceled         = context.Canceled
	DeadlineExceeded = context.DeadlineExceeded
)

const (
	ctxKeyLogger ctxKey = iota
)

// CtxGetLog returns the logger attached to ctx, or the process default logger
// when none was attached (background daemons started before a request exists).
func CtxGetLog(ctx context.Context) *slog.Logger {
	if log, ok := ctx.Value(ctxKeyLogger).(*slog.Logger); ok {
		return log
	}
	return slog.Default()
}

func CtxWithLog(ctx Context, log *slog.Logger) Context {
	return WithValue(ctx, ctxKeyLogger, log)
}

// CtxWithDeviceLog attaches a logger scoped to a single device.
func CtxWithDeviceLog(ctx Context, deviceId string) Context {
	return CtxWithLog(ctx, CtxGetLog(ctx).With("device", deviceId))
}
