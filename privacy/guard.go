// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package privacy

import (
	"sync/atomic"
	"time"

	"github.com/foundriesio/dg-shadow/context"
	"github.com/foundriesio/dg-shadow/events"
)

const (
	egressTimestampStep = time.Second
	egressPayloadBytes  = 2048
	telemetryBucket     = 0.5
)

type IngestEvent struct {
	DeviceId   string    `json:"deviceId"`
	Capability string    `json:"capability"`
	Value      any       `json:"value"`
	Timestamp  time.Time `json:"timestamp"`
}

// MinimizedEvent is what would leave the boundary if egress were allowed.
type MinimizedEvent struct {
	DeviceId   string    `json:"deviceId"`
	Capability string    `json:"capability"`
	DataClass  DataClass `json:"dataClass"`
	Purpose    Purpose   `json:"purpose"`
	Value      any       `json:"value"`
	Timestamp  time.Time `json:"timestamp"`
}

type GuardResult struct {
	Allowed        bool           `json:"allowed"`
	PolicyVersion  string         `json:"policyVersion"`
	Reason         string         `json:"reason,omitempty"`
	MinimizedEvent MinimizedEvent `json:"minimizedEvent"`
}

// LocalOnlyMode forces every egress decision to deny while enabled.
type LocalOnlyMode struct {
	enabled atomic.Bool
}

func (m *LocalOnlyMode) Set(enabled bool) {
	m.enabled.Store(enabled)
}

func (m *LocalOnlyMode) Enabled() bool {
	return m.enabled.Load()
}

type Guard struct {
	consent   *ConsentCache
	localOnly *LocalOnlyMode
	bus       events.Publisher
}

func NewGuard(consent *ConsentCache, localOnly *LocalOnlyMode, bus events.Publisher) *Guard {
	if localOnly == nil {
		localOnly = &LocalOnlyMode{}
	}
	return &Guard{consent: consent, localOnly: localOnly, bus: bus}
}

// OptionsFor returns the minimization applied to a data class on egress.
func OptionsFor(class DataClass) MinimizeOptions {
	opts := MinimizeOptions{TruncatePayloadBytes: egressPayloadBytes}
	switch class {
	case ClassTelemetry:
		opts.NumericBucket = telemetryBucket
	case ClassIdentifier, ClassLocation:
		opts.StripIdentifiers = true
	}
	return opts
}

// Evaluate decides whether an ingested value may leave the device boundary.
// A deny is a normal result, not an error. Exactly one privacy event is
// published per call.
func (g *Guard) Evaluate(ctx context.Context, evt IngestEvent) GuardResult {
	classified := Classify(evt.Capability, evt.Value)
	minimized := MinimizedEvent{
		DeviceId:   evt.DeviceId,
		Capability: classified.Capability,
		DataClass:  classified.DataClass,
		Purpose:    classified.Purpose,
		Value:      Minimize(classified.Value, OptionsFor(classified.DataClass)),
		Timestamp:  RoundTimestamp(evt.Timestamp, egressTimestampStep),
	}

	decision, ok := g.consent.Get(evt.DeviceId)
	if !ok {
		decision = g.consent.FetchAndCache(ctx, evt.DeviceId)
	}

	res := GuardResult{PolicyVersion: decision.PolicyVersion, MinimizedEvent: minimized}
	if g.localOnly.Enabled() {
		res.Reason = ReasonLocalOnly
	} else if !decision.Allowed {
		res.Reason = decision.Reason
		if res.Reason == "" {
			res.Reason = ReasonDenied
		}
	} else {
		res.Allowed = true
	}

	payload := map[string]any{
		"capability":    minimized.Capability,
		"dataClass":     minimized.DataClass,
		"policyVersion": res.PolicyVersion,
	}
	evtType := events.PrivacyAllowed
	if !res.Allowed {
		evtType = events.PrivacyBlocked
		payload["reason"] = res.Reason
	}
	g.bus.Publish(ctx, events.New(evtType, evt.DeviceId, payload))
	return res
}
