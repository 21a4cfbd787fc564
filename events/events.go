// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package events

import (
	"encoding/json"
	"fmt"
	"time"
)

type Type string

const (
	PrivacyAllowed    Type = "conn.privacy.allowed"
	PrivacyBlocked    Type = "conn.privacy.blocked"
	ShadowUpdated     Type = "conn.shadow.updated"
	CommandDelivering Type = "conn.command.delivering"
	CommandApplied    Type = "conn.command.applied"
	CommandFailed     Type = "conn.command.failed"
	CommandExpired    Type = "conn.command.expired"
	SignalBreakdown   Type = "sec.signal.breakdown"
)

// Prefixes used by subscribers interested in a whole family of events.
const (
	PrefixPrivacy  = "conn.privacy."
	PrefixShadow   = "conn.shadow."
	PrefixCommand  = "conn.command."
	PrefixSecurity = "sec."
)

// Event is a domain event. On the wire it is a flat JSON object:
// {"type": ..., "deviceId": ..., "time": ..., <payload fields>}.
type Event struct {
	Type     Type
	DeviceId string
	Time     time.Time
	Payload  map[string]any
}

func New(t Type, deviceId string, payload map[string]any) Event {
	return Event{Type: t, DeviceId: deviceId, Payload: payload}
}

var reservedKeys = []string{"type", "deviceId", "time"}

func (e Event) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(e.Payload)+len(reservedKeys))
	for k, v := range e.Payload {
		flat[k] = v
	}
	// Envelope fields always win over payload fields of the same name.
	flat["type"] = e.Type
	flat["deviceId"] = e.DeviceId
	flat["time"] = e.Time.UTC().Format(time.RFC3339Nano)
	return json.Marshal(flat)
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	t, _ := flat["type"].(string)
	if len(t) == 0 {
		return fmt.Errorf("event has no type: %s", string(data))
	}
	e.Type = Type(t)
	e.DeviceId, _ = flat["deviceId"].(string)
	if ts, ok := flat["time"].(string); ok {
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return fmt.Errorf("invalid event time %q: %w", ts, err)
		}
		e.Time = parsed
	}
	for _, k := range reservedKeys {
		delete(flat, k)
	}
	e.Payload = flat
	return nil
}
