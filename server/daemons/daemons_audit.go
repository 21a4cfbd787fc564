// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package daemons

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/foundriesio/dg-shadow/context"
	"github.com/foundriesio/dg-shadow/events"
	storage "github.com/foundriesio/dg-shadow/storage/gateway"
)

// auditRecorder appends privacy and security events to the per-device audit
// files that operators read back through the REST API.
func (d *daemons) auditRecorder() daemonFunc {
	sub := d.engine.Bus.Subscribe(d.auditBuffer, events.PrefixPrivacy, events.PrefixSecurity)
	return func(stop chan bool) {
		log := context.CtxGetLog(d.context).With("daemon", "audit-recorder")
		defer sub.Close()
		for {
			select {
			case <-stop:
				// Flush whatever was already published before stopping.
				for {
					select {
					case evt := <-sub.C:
						d.recordAudit(log, evt)
					default:
						if n := sub.Dropped(); n > 0 {
							log.Warn("audit recorder fell behind the event bus", "dropped", n)
						}
						return
					}
				}
			case evt := <-sub.C:
				d.recordAudit(log, evt)
			}
		}
	}
}

func (d *daemons) recordAudit(log *slog.Logger, evt events.Event) {
	if err := d.appendAudit(evt); err != nil {
		log.Error("failed to record audit event", "type", evt.Type, "device", evt.DeviceId, "error", err)
	}
}

func (d *daemons) appendAudit(evt events.Event) error {
	var prefix string
	switch {
	case strings.HasPrefix(string(evt.Type), events.PrefixPrivacy):
		prefix = storage.AuditPrivacyPrefix
	case strings.HasPrefix(string(evt.Type), events.PrefixSecurity):
		prefix = storage.AuditSecurityPrefix
	default:
		return fmt.Errorf("event type %s is not audited", evt.Type)
	}
	if len(evt.DeviceId) == 0 {
		return fmt.Errorf("%s event has no device", evt.Type)
	}

	record, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("unable to marshal event: %w", err)
	}
	device, err := d.storage.DeviceRegister(evt.DeviceId)
	if err != nil {
		return fmt.Errorf("unable to register device: %w", err)
	}
	return device.AppendAudit(prefix, evt.Time, record)
}
