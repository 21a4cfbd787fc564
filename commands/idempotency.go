// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package commands

import (
	"sync"
	"time"

	cache "github.com/go-pkgz/expirable-cache/v3"
)

const (
	DefaultIdempotencyTtl  = 24 * time.Hour
	DefaultIdempotencyKeys = 100_000
)

// Tracker remembers (device, idempotency key) pairs. Entries are forgotten
// after ttl, or earlier when more than maxKeys pairs are tracked (least
// recently seen first).
type Tracker struct {
	mu   sync.Mutex
	seen cache.Cache[string, struct{}]
	ttl  time.Duration
}

func NewTracker(ttl time.Duration, maxKeys int) *Tracker {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTtl
	}
	if maxKeys <= 0 {
		maxKeys = DefaultIdempotencyKeys
	}
	seen := cache.NewCache[string, struct{}]().WithTTL(ttl).WithMaxKeys(maxKeys).WithLRU()
	return &Tracker{seen: seen, ttl: ttl}
}

func trackerKey(deviceId, key string) string {
	return deviceId + "\x00" + key
}

// CheckAndRecord returns true the first time a pair is seen and false for
// every repeat while the pair is remembered.
func (t *Tracker) CheckAndRecord(deviceId, key string) bool {
	k := trackerKey(deviceId, key)
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.seen.Get(k); ok {
		return false
	}
	t.seen.Set(k, struct{}{}, t.ttl)
	return true
}

// Forget releases a pair whose command was never accepted.
func (t *Tracker) Forget(deviceId, key string) {
	t.seen.Invalidate(trackerKey(deviceId, key))
}

func (t *Tracker) Len() int {
	return t.seen.Len()
}
