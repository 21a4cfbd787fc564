// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package shadow

import (
	"fmt"
	"time"

	"github.com/foundriesio/dg-shadow/context"
	"github.com/foundriesio/dg-shadow/events"
)

type Service struct {
	store Store
	bus   events.Publisher
}

func NewService(store Store, bus events.Publisher) *Service {
	return &Service{store: store, bus: bus}
}

func (s *Service) Get(ctx context.Context, deviceId string) (*Entry, error) {
	e, err := s.store.Get(ctx, deviceId)
	if err != nil {
		return nil, fmt.Errorf("unable to read shadow of device %s: %w", deviceId, err)
	}
	return e, nil
}

// ApplyUpdate merges a reported-state patch. Stale versions return the current
// shadow unchanged, report false and publish nothing.
func (s *Service) ApplyUpdate(ctx context.Context, deviceId string, version int64, patch map[string]any) (Entry, bool, error) {
	entry, applied, err := s.store.ApplyUpdate(ctx, deviceId, version, patch)
	if err != nil {
		return Entry{}, false, fmt.Errorf("unable to update shadow of device %s: %w", deviceId, err)
	}
	log := context.CtxGetLog(ctx)
	if !applied {
		log.Debug("stale shadow update ignored", "device", deviceId, "version", version, "current", entry.Version)
		return entry, false, nil
	}
	s.bus.Publish(ctx, events.New(events.ShadowUpdated, deviceId, map[string]any{
		"version":   entry.Version,
		"reported":  entry.Reported,
		"updatedAt": entry.UpdatedAt.Format(time.RFC3339Nano),
	}))
	return entry, true, nil
}
