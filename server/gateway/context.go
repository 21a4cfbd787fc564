// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package gateway

import (
	"github.com/foundriesio/dg-shadow/context"
	storage "github.com/foundriesio/dg-shadow/storage/gateway"
)

type ctxKey int

const (
	ctxKeyDevice ctxKey = iota
)

// CtxGetDevice returns the device registered by the registerDevice middleware.
func CtxGetDevice(ctx context.Context) *storage.Device {
	return ctx.Value(ctxKeyDevice).(*storage.Device)
}

func CtxWithDevice(ctx context.Context, device *storage.Device) context.Context {
	return context.WithValue(ctx, ctxKeyDevice, device)
}
