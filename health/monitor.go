// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package health

import (
	"errors"
	"sync"
	"time"

	"github.com/foundriesio/dg-shadow/context"
	"github.com/foundriesio/dg-shadow/events"
)

const (
	DefaultMaxGap        = 2 * time.Minute
	DefaultMaxPacketLoss = 50.0
)

type Sample struct {
	DeviceId      string    `json:"deviceId"`
	Timestamp     time.Time `json:"timestamp"`
	RoundTripMs   *float64  `json:"roundTripMs,omitempty"`
	PacketLossPct *float64  `json:"packetLossPct,omitempty"`
}

type Thresholds struct {
	MaxGap        time.Duration
	MaxPacketLoss float64
}

// Monitor keeps the latest heartbeat of each device and flags a signal
// breakdown when a new beat arrives too late or reports heavy packet loss.
// Only one previous beat is compared, so it detects step changes, not drift.
type Monitor struct {
	mu         sync.Mutex
	last       map[string]Sample
	thresholds Thresholds
	bus        events.Publisher
}

func NewMonitor(bus events.Publisher, thresholds Thresholds) *Monitor {
	if thresholds.MaxGap <= 0 {
		thresholds.MaxGap = DefaultMaxGap
	}
	if thresholds.MaxPacketLoss <= 0 {
		thresholds.MaxPacketLoss = DefaultMaxPacketLoss
	}
	return &Monitor{last: map[string]Sample{}, thresholds: thresholds, bus: bus}
}

// RecordHeartbeat stores sample as the device's latest beat and reports
// whether a breakdown signal was emitted. The signal carries the gap to the
// previous beat in milliseconds and the sample itself.
func (m *Monitor) RecordHeartbeat(ctx context.Context, sample Sample) (bool, error) {
	if sample.DeviceId == "" {
		return false, errors.New("heartbeat is missing a device id")
	}
	m.mu.Lock()
	prev, hadPrev := m.last[sample.DeviceId]
	m.last[sample.DeviceId] = sample
	m.mu.Unlock()

	var gap time.Duration
	if hadPrev {
		gap = sample.Timestamp.Sub(prev.Timestamp)
	}
	lossy := sample.PacketLossPct != nil && *sample.PacketLossPct > m.thresholds.MaxPacketLoss
	if gap <= m.thresholds.MaxGap && !lossy {
		return false, nil
	}

	context.CtxGetLog(ctx).Warn("device signal breakdown",
		"device", sample.DeviceId, "gap", gap, "packetLossPct", sample.PacketLossPct)
	m.bus.Publish(ctx, events.New(events.SignalBreakdown, sample.DeviceId, map[string]any{
		"gap":    gap.Milliseconds(),
		"sample": sample,
	}))
	return true, nil
}

// Last returns the latest beat recorded for a device.
func (m *Monitor) Last(deviceId string) (Sample, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.last[deviceId]
	return s, ok
}
