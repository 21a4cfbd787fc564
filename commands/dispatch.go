// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package commands

import (
	"encoding/json"
	"time"

	"github.com/foundriesio/dg-shadow/context"
)

// Dispatcher sends one command to a device over whatever transport adapter
// is configured. A returned error fails only that delivery.
type Dispatcher interface {
	Send(ctx context.Context, deviceId, capability string, params json.RawMessage) error
}

type DispatcherFunc func(ctx context.Context, deviceId, capability string, params json.RawMessage) error

func (f DispatcherFunc) Send(ctx context.Context, deviceId, capability string, params json.RawMessage) error {
	return f(ctx, deviceId, capability, params)
}

// SimulatedDispatcher acknowledges every command after Latency.
type SimulatedDispatcher struct {
	Latency time.Duration
}

func (d SimulatedDispatcher) Send(ctx context.Context, deviceId, capability string, params json.RawMessage) error {
	if d.Latency > 0 {
		time.Sleep(d.Latency)
	}
	context.CtxGetLog(ctx).Debug("simulated command send", "device", deviceId, "capability", capability, "params", string(params))
	return nil
}
