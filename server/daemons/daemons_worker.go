// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package daemons

import (
	"github.com/foundriesio/dg-shadow/context"
)

func (d *daemons) commandWorker() daemonFunc {
	return func(stop chan bool) {
		log := context.CtxGetLog(d.context).With("daemon", "command-worker")
		d.runUntilStop(stop, func(ctx context.Context) {
			d.engine.Worker.Run(context.CtxWithLog(ctx, log))
		})
	}
}
