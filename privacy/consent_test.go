// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package privacy

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foundriesio/dg-shadow/context"
)

type fakeSource struct {
	decision ConsentDecision
	err      error
	calls    int
}

func (s *fakeSource) Fetch(ctx context.Context, deviceId string) (ConsentDecision, error) {
	s.calls++
	return s.decision, s.err
}

func TestConsentDefaultDeny(t *testing.T) {
	c := NewConsentCache(nil, 0)
	_, ok := c.Get("dev-1")
	require.False(t, ok)

	d := c.FetchAndCache(context.Background(), "dev-1")
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonNoPolicy, d.Reason)
	assert.Equal(t, 60, d.TtlSeconds)

	cached, ok := c.Get("dev-1")
	require.True(t, ok)
	assert.Equal(t, d, cached)
}

func TestConsentSourceFailure(t *testing.T) {
	src := &fakeSource{err: errors.New("connection refused")}
	c := NewConsentCache(src, 0)

	d := c.FetchAndCache(context.Background(), "dev-1")
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonUnavailable, d.Reason)
	assert.Equal(t, 30, d.TtlSeconds)
	assert.Equal(t, 1, src.calls)

	src.err = nil
	src.decision = ConsentDecision{Allowed: true, PolicyVersion: "v7", TtlSeconds: 120}
	d = c.FetchAndCache(context.Background(), "dev-2")
	assert.True(t, d.Allowed)
	cached, ok := c.Get("dev-2")
	require.True(t, ok)
	assert.Equal(t, "v7", cached.PolicyVersion)
}

func TestConsentExpiry(t *testing.T) {
	c := NewConsentCache(nil, 0)
	c.Put("dev-1", ConsentDecision{Allowed: true, PolicyVersion: "v1", TtlSeconds: 1})
	d, ok := c.Get("dev-1")
	require.True(t, ok)
	require.True(t, d.Allowed)

	time.Sleep(1100 * time.Millisecond)
	_, ok = c.Get("dev-1")
	require.False(t, ok, "an expired decision must never be reused")

	// Zero TTL decisions are expired on arrival.
	c.Put("dev-2", ConsentDecision{Allowed: true, TtlSeconds: 0})
	_, ok = c.Get("dev-2")
	require.False(t, ok)

	c.Put("dev-3", ConsentDecision{Allowed: true, TtlSeconds: 60})
	c.Invalidate("dev-3")
	_, ok = c.Get("dev-3")
	require.False(t, ok)
}

func TestRedisSourceUnavailable(t *testing.T) {
	src := NewRedisPolicySource(RedisOptions{Addr: "127.0.0.1:1", Timeout: 200 * time.Millisecond})
	t.Cleanup(func() { _ = src.Close() })

	_, err := src.Fetch(context.Background(), "dev-1")
	require.NotNil(t, err)
	require.Contains(t, err.Error(), "dev-1")

	c := NewConsentCache(src, 10)
	d := c.FetchAndCache(context.Background(), "dev-1")
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonUnavailable, d.Reason)
}
