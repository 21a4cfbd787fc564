// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package daemons

import (
	"github.com/foundriesio/dg-shadow/context"
)

func (d *daemons) kafkaExporter() daemonFunc {
	sub := d.engine.Bus.Subscribe(d.auditBuffer)
	return func(stop chan bool) {
		log := context.CtxGetLog(d.context)
		defer func() {
			sub.Close()
			if err := d.exporter.Close(); err != nil {
				log.Error("failed to close kafka writer", "error", err)
			}
			if n := sub.Dropped(); n > 0 {
				log.Warn("kafka exporter fell behind the event bus", "dropped", n)
			}
		}()
		d.runUntilStop(stop, func(ctx context.Context) {
			d.exporter.Run(ctx, sub)
		})
	}
}
