// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

// Package shadow keeps the last reported state of every device. Updates carry a
// version and are merged only when the version moves forward, so replayed or
// reordered updates can never roll a shadow back.
package shadow

import (
	"maps"
	"time"

	"github.com/foundriesio/dg-shadow/context"
)

type Entry struct {
	DeviceId  string         `json:"deviceId"`
	Version   int64          `json:"version"`
	Reported  map[string]any `json:"reported"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Store is implemented by every shadow backend. Get returns nil without an
// error when the device has no shadow yet. ApplyUpdate reports whether the
// update was applied; a stale version is not an error.
type Store interface {
	Get(ctx context.Context, deviceId string) (*Entry, error)
	ApplyUpdate(ctx context.Context, deviceId string, version int64, patch map[string]any) (Entry, bool, error)
}

// Merge shallow-merges patch over current when version is newer. Nested
// objects in the patch replace the stored field wholesale. UpdatedAt is kept
// in UTC at millisecond precision, the resolution durable stores persist.
func Merge(current Entry, version int64, patch map[string]any, now time.Time) (Entry, bool) {
	if version <= current.Version {
		return current, false
	}
	reported := make(map[string]any, len(current.Reported)+len(patch))
	maps.Copy(reported, current.Reported)
	maps.Copy(reported, patch)
	return Entry{
		DeviceId:  current.DeviceId,
		Version:   version,
		Reported:  reported,
		UpdatedAt: now.UTC().Truncate(time.Millisecond),
	}, true
}

// Empty is the implicit shadow of a device that never reported anything.
func Empty(deviceId string) Entry {
	return Entry{DeviceId: deviceId, Reported: map[string]any{}}
}

func (e Entry) clone() Entry {
	e.Reported = maps.Clone(e.Reported)
	if e.Reported == nil {
		e.Reported = map[string]any{}
	}
	return e
}
