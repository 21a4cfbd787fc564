// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

// Package shadowtest holds the behaviour every shadow.Store backend must share.
package shadowtest

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foundriesio/dg-shadow/context"
	"github.com/foundriesio/dg-shadow/shadow"
)

// RunContract runs the store contract against fresh stores created by newStore.
func RunContract(t *testing.T, newStore func(t *testing.T) shadow.Store) {
	t.Run("missing", func(t *testing.T) {
		s := newStore(t)
		e, err := s.Get(context.Background(), "nope")
		require.Nil(t, err)
		require.Nil(t, e)
	})

	t.Run("shallow merge", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		e, applied, err := s.ApplyUpdate(ctx, "dev-1", 1, map[string]any{
			"power": "on",
			"color": map[string]any{"r": 1.0, "g": 2.0},
		})
		require.Nil(t, err)
		require.True(t, applied)
		assert.Equal(t, int64(1), e.Version)
		assert.False(t, e.UpdatedAt.IsZero())

		e, applied, err = s.ApplyUpdate(ctx, "dev-1", 2, map[string]any{
			"color": map[string]any{"b": 3.0},
		})
		require.Nil(t, err)
		require.True(t, applied)
		// Unpatched fields persist; nested objects are replaced, not deep-merged.
		assert.Equal(t, map[string]any{"power": "on", "color": map[string]any{"b": 3.0}}, e.Reported)

		got, err := s.Get(ctx, "dev-1")
		require.Nil(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "dev-1", got.DeviceId)
		assert.Equal(t, int64(2), got.Version)
		assert.Equal(t, e.Reported, got.Reported)
		assert.True(t, e.UpdatedAt.Equal(got.UpdatedAt), "%s != %s", e.UpdatedAt, got.UpdatedAt)
		assert.Equal(t, time.UTC, got.UpdatedAt.Location())
		assert.Equal(t, e.UpdatedAt.Truncate(time.Millisecond), e.UpdatedAt)
	})

	t.Run("stale versions are ignored", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		first, _, err := s.ApplyUpdate(ctx, "dev-1", 2, map[string]any{"mode": "eco"})
		require.Nil(t, err)

		for _, v := range []int64{2, 1, 0, -5} {
			e, applied, err := s.ApplyUpdate(ctx, "dev-1", v, map[string]any{"mode": "boost", "x": 1.0})
			require.Nil(t, err)
			require.False(t, applied)
			assert.Equal(t, int64(2), e.Version)
			assert.Equal(t, map[string]any{"mode": "eco"}, e.Reported)
		}

		got, err := s.Get(ctx, "dev-1")
		require.Nil(t, err)
		assert.Equal(t, map[string]any{"mode": "eco"}, got.Reported)
		assert.True(t, first.UpdatedAt.Equal(got.UpdatedAt))
	})

	t.Run("version zero on a new device", func(t *testing.T) {
		s := newStore(t)
		e, applied, err := s.ApplyUpdate(context.Background(), "dev-new", 0, map[string]any{"a": 1.0})
		require.Nil(t, err)
		require.False(t, applied)
		assert.Equal(t, int64(0), e.Version)
		assert.Empty(t, e.Reported)
	})

	t.Run("devices are independent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_, _, err := s.ApplyUpdate(ctx, "dev-a", 5, map[string]any{"v": "a"})
		require.Nil(t, err)
		e, applied, err := s.ApplyUpdate(ctx, "dev-b", 1, map[string]any{"v": "b"})
		require.Nil(t, err)
		require.True(t, applied)
		assert.Equal(t, int64(1), e.Version)
	})

	t.Run("concurrent updates never regress", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		var wg sync.WaitGroup
		for v := int64(1); v <= 20; v++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _, err := s.ApplyUpdate(ctx, "dev-c", v, map[string]any{"last": float64(v)})
				assert.Nil(t, err)
			}()
		}
		wg.Wait()
		got, err := s.Get(ctx, "dev-c")
		require.Nil(t, err)
		require.NotNil(t, got)
		assert.Equal(t, int64(20), got.Version)
		assert.Equal(t, 20.0, got.Reported["last"])
	})
}
