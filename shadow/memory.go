// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package shadow

import (
	"sync"
	"time"

	"github.com/foundriesio/dg-shadow/context"
)

// MemoryStore is the non-durable backend, used for tests and for running
// without a data directory.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry), now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, deviceId string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[deviceId]
	if !ok {
		return nil, nil
	}
	e = e.clone()
	return &e, nil
}

func (s *MemoryStore) ApplyUpdate(_ context.Context, deviceId string, version int64, patch map[string]any) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.entries[deviceId]
	if !ok {
		current = Empty(deviceId)
	}
	next, applied := Merge(current, version, patch, s.now().UTC())
	if applied {
		s.entries[deviceId] = next
	}
	return next.clone(), applied, nil
}
