// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package api

import (
	"github.com/foundriesio/dg-shadow/context"
	storage "github.com/foundriesio/dg-shadow/storage/api"
)

type (
	Context = context.Context
	ctxKey  int
)

var (
	CtxGetLog  = context.CtxGetLog
	CtxWithLog = context.CtxWithLog
)

const (
	ctxKeyDevice ctxKey = iota
)

func CtxGetDevice(ctx Context) *storage.Device {
	return ctx.Value(ctxKeyDevice).(*storage.Device)
}

func CtxWithDevice(ctx Context, device *storage.Device) Context {
	return context.WithValue(ctx, ctxKeyDevice, device)
}
