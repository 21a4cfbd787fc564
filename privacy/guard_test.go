// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package privacy

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foundriesio/dg-shadow/context"
	"github.com/foundriesio/dg-shadow/events"
)

type guardFixture struct {
	guard     *Guard
	consent   *ConsentCache
	localOnly *LocalOnlyMode
	sub       *events.Subscription
}

func newGuardFixture(t *testing.T, source PolicySource) guardFixture {
	bus := events.NewBus()
	sub := bus.Subscribe(16)
	t.Cleanup(sub.Close)
	consent := NewConsentCache(source, 0)
	localOnly := &LocalOnlyMode{}
	return guardFixture{
		guard:     NewGuard(consent, localOnly, bus),
		consent:   consent,
		localOnly: localOnly,
		sub:       sub,
	}
}

// oneEvent asserts exactly one event was published and returns it.
func (f guardFixture) oneEvent(t *testing.T) events.Event {
	var evt events.Event
	select {
	case evt = <-f.sub.C:
	default:
		require.Fail(t, "no event published")
	}
	select {
	case extra := <-f.sub.C:
		require.Fail(t, "more than one event published", extra.Type)
	default:
	}
	return evt
}

func ingest(deviceId, capability string, raw string) IngestEvent {
	var v any
	_ = json.Unmarshal([]byte(raw), &v)
	return IngestEvent{
		DeviceId:   deviceId,
		Capability: capability,
		Value:      v,
		Timestamp:  time.Date(2026, 5, 5, 12, 0, 0, 600*int(time.Millisecond), time.UTC),
	}
}

func TestGuardDefaultDeny(t *testing.T) {
	f := newGuardFixture(t, nil)
	res := f.guard.Evaluate(context.Background(), ingest("dev-1", "temperature", `{"c": 21.26}`))
	assert.False(t, res.Allowed)
	assert.Equal(t, ReasonNoPolicy, res.Reason)
	assert.Equal(t, PolicyVersionNone, res.PolicyVersion)

	// The minimized event is returned even though egress was denied.
	assert.Equal(t, "temperature", res.MinimizedEvent.Capability)
	assert.Equal(t, ClassTelemetry, res.MinimizedEvent.DataClass)
	assert.Equal(t, map[string]any{"c": 21.5}, res.MinimizedEvent.Value)
	assert.True(t, time.Date(2026, 5, 5, 12, 0, 1, 0, time.UTC).Equal(res.MinimizedEvent.Timestamp))

	evt := f.oneEvent(t)
	assert.Equal(t, events.PrivacyBlocked, evt.Type)
	assert.Equal(t, "dev-1", evt.DeviceId)
	assert.Equal(t, ReasonNoPolicy, evt.Payload["reason"])
	assert.Equal(t, PolicyVersionNone, evt.Payload["policyVersion"])
}

func TestGuardAllowed(t *testing.T) {
	f := newGuardFixture(t, nil)
	f.consent.Put("dev-1", ConsentDecision{Allowed: true, PolicyVersion: "v3", TtlSeconds: 60})

	res := f.guard.Evaluate(context.Background(), ingest("dev-1", "wifi_mac", `{"mac": "aa:bb", "rssi": -40.2}`))
	assert.True(t, res.Allowed)
	assert.Empty(t, res.Reason)
	assert.Equal(t, "v3", res.PolicyVersion)
	// Identifiers are stripped, and numbers outside telemetry are not bucketed.
	assert.Equal(t, map[string]any{"rssi": -40.2}, res.MinimizedEvent.Value)

	evt := f.oneEvent(t)
	assert.Equal(t, events.PrivacyAllowed, evt.Type)
	assert.NotContains(t, evt.Payload, "reason")
}

func TestGuardDeniedWithoutReason(t *testing.T) {
	f := newGuardFixture(t, nil)
	f.consent.Put("dev-1", ConsentDecision{Allowed: false, PolicyVersion: "v3", TtlSeconds: 60})

	res := f.guard.Evaluate(context.Background(), ingest("dev-1", "switch_state", `"on"`))
	assert.False(t, res.Allowed)
	assert.Equal(t, ReasonDenied, res.Reason)
	assert.Equal(t, "on", res.MinimizedEvent.Value)
	assert.Equal(t, events.PrivacyBlocked, f.oneEvent(t).Type)
}

func TestGuardLocalOnlyWins(t *testing.T) {
	src := &fakeSource{decision: ConsentDecision{Allowed: true, PolicyVersion: "v9", TtlSeconds: 60}}
	f := newGuardFixture(t, src)
	f.localOnly.Set(true)

	// Cached allow is overridden.
	f.consent.Put("dev-1", ConsentDecision{Allowed: true, PolicyVersion: "v3", TtlSeconds: 60})
	res := f.guard.Evaluate(context.Background(), ingest("dev-1", "temperature", `1`))
	assert.False(t, res.Allowed)
	assert.Equal(t, ReasonLocalOnly, res.Reason)
	assert.Equal(t, "v3", res.PolicyVersion)
	evt := f.oneEvent(t)
	assert.Equal(t, ReasonLocalOnly, evt.Payload["reason"])

	// A refresh still happens and its policy version is reported.
	res = f.guard.Evaluate(context.Background(), ingest("dev-2", "temperature", `1`))
	assert.False(t, res.Allowed)
	assert.Equal(t, ReasonLocalOnly, res.Reason)
	assert.Equal(t, "v9", res.PolicyVersion)
	assert.Equal(t, 1, src.calls)
	f.oneEvent(t)

	f.localOnly.Set(false)
	res = f.guard.Evaluate(context.Background(), ingest("dev-2", "temperature", `1`))
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, src.calls, "the cached decision must be reused")
	f.oneEvent(t)
}

func TestGuardTruncatesLargePayloads(t *testing.T) {
	f := newGuardFixture(t, nil)
	big := make(map[string]any)
	for i := range 300 {
		big[string(rune('a'+i%26))+string(rune('a'+i/26))] = "0123456789"
	}
	res := f.guard.Evaluate(context.Background(), IngestEvent{DeviceId: "d", Capability: "diag_dump", Value: big})
	assert.Equal(t, TruncatedSentinel, res.MinimizedEvent.Value)
	assert.Equal(t, ClassDiagnostic, res.MinimizedEvent.DataClass)
	assert.Equal(t, PurposeTroubleshooting, res.MinimizedEvent.Purpose)
	f.oneEvent(t)
}
