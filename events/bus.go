// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package events

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/foundriesio/dg-shadow/context"
)

const DefaultBuffer = 64

// Publisher is the only bus capability the domain components need.
type Publisher interface {
	Publish(ctx context.Context, evt Event)
}

// Bus is a process-wide fan-out of domain events. Publish never blocks: every
// subscriber owns a buffered channel, and an event that does not fit is dropped
// for that subscriber only.
type Bus struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
	now  func() time.Time
}

type Subscription struct {
	C <-chan Event

	ch       chan Event
	prefixes []string
	dropped  atomic.Int64
	bus      *Bus
	once     sync.Once
}

func NewBus() *Bus {
	return &Bus{subs: make(map[*Subscription]struct{}), now: time.Now}
}

// Subscribe registers a listener for events whose type starts with any of the
// prefixes; no prefixes means all events.
func (b *Bus) Subscribe(buffer int, prefixes ...string) *Subscription {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	ch := make(chan Event, buffer)
	s := &Subscription{C: ch, ch: ch, prefixes: prefixes, bus: b}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

func (b *Bus) Publish(ctx context.Context, evt Event) {
	if evt.Time.IsZero() {
		evt.Time = b.now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for s := range b.subs {
		if !s.matches(evt.Type) {
			continue
		}
		select {
		case s.ch <- evt:
		default:
			s.dropped.Add(1)
			context.CtxGetLog(ctx).Warn("event subscriber is full - dropping event",
				"type", evt.Type, "device", evt.DeviceId)
		}
	}
}

// Subscribers returns the number of currently registered listeners.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close unregisters the subscription and closes its channel. Safe to call twice.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s)
		close(s.ch)
		s.bus.mu.Unlock()
	})
}

// Dropped is the number of events this subscriber missed because it was full.
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

func (s *Subscription) matches(t Type) bool {
	if len(s.prefixes) == 0 {
		return true
	}
	for _, p := range s.prefixes {
		if strings.HasPrefix(string(t), p) {
			return true
		}
	}
	return false
}
