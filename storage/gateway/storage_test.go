// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package gateway

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foundriesio/dg-shadow/shadow"
	"github.com/foundriesio/dg-shadow/shadow/shadowtest"
	"github.com/foundriesio/dg-shadow/storage"
)

func newTestDb(t testing.TB) (*storage.DbHandle, *storage.FsHandle) {
	tmpdir := t.TempDir()
	dbFile := filepath.Join(tmpdir, "sql.db")
	db, err := storage.NewDb(dbFile)
	require.Nil(t, err)
	t.Cleanup(func() {
		require.Nil(t, db.Close())
	})
	fs, err := storage.NewFs(tmpdir)
	require.Nil(t, err)
	return db, fs
}

func TestStorage(t *testing.T) {
	db, fs := newTestDb(t)
	s, err := NewStorage(db, fs)
	require.Nil(t, err)

	d, err := s.DeviceGet("does not exist")
	require.Nil(t, err)
	require.Nil(t, d)

	uuid := "1234-567-890"
	d, err = s.DeviceCreate(uuid)
	require.Nil(t, err)

	_, err = s.DeviceCreate(uuid)
	require.True(t, storage.IsDbError(err, storage.ErrDbConstraintUnique))

	d2, err := s.DeviceGet(uuid)
	require.Nil(t, err)
	require.Equal(t, d.CreatedAt, d2.CreatedAt)

	// A recent checkin is not written again.
	require.Nil(t, d2.CheckIn())
	require.Equal(t, d.LastSeen, d2.LastSeen)

	d2.LastSeen -= 120
	require.Nil(t, d2.CheckIn())
	d3, err := s.DeviceGet(uuid)
	require.Nil(t, err)
	require.Equal(t, d2.LastSeen, d3.LastSeen)
	require.GreaterOrEqual(t, d3.LastSeen, d.LastSeen)
}

func TestDeviceRegister(t *testing.T) {
	db, fs := newTestDb(t)
	s, err := NewStorage(db, fs)
	require.Nil(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := s.DeviceRegister("racer")
			assert.Nil(t, err)
			assert.NotNil(t, d)
		}()
	}
	wg.Wait()

	d, err := s.DeviceRegister("racer")
	require.Nil(t, err)
	require.Equal(t, "racer", d.Uuid)
}

func TestDeviceIdContainment(t *testing.T) {
	db, fs := newTestDb(t)
	s, err := NewStorage(db, fs)
	require.Nil(t, err)

	for _, id := range []string{"..", ".", "../../../escaped", "a/b", ""} {
		_, err := s.DeviceRegister(id)
		require.ErrorIs(t, err, storage.ErrInvalidDeviceId, id)
		require.ErrorIs(t, fs.Devices.AppendAudit(id, AuditSecurityPrefix, time.Now(), []byte(`{}`), 3), storage.ErrInvalidDeviceId)
		for _, err := range fs.Devices.ReadAudit(id, AuditSecurityPrefix) {
			require.ErrorIs(t, err, storage.ErrInvalidDeviceId)
		}
	}

	entries, err := os.ReadDir(fs.Config.RootDir())
	require.Nil(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), AuditSecurityPrefix)
	}
	_, err = os.Stat(filepath.Join(fs.Config.DevicesDir(), "../../../escaped"))
	assert.True(t, os.IsNotExist(err))
}

func TestAudit(t *testing.T) {
	db, fs := newTestDb(t)
	s, err := NewStorage(db, fs)
	require.Nil(t, err)
	s.maxAuditDays = 3

	d, err := s.DeviceCreate(uuid.New().String())
	require.Nil(t, err)

	day := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	for i := range 5 {
		at := day.AddDate(0, 0, i)
		for j := range 2 {
			rec := fmt.Sprintf(`{"day":%d,"n":%d}`, i, j)
			require.Nil(t, d.AppendAudit(AuditPrivacyPrefix, at, []byte(rec)))
		}
	}
	require.Nil(t, d.AppendAudit(AuditSecurityPrefix, day, []byte(`{"sec":true}`)))

	files, err := fs.Devices.ListFiles(d.Uuid, AuditPrivacyPrefix, false)
	require.Nil(t, err)
	assert.Equal(t, []string{"privacy-2024-05-03", "privacy-2024-05-04", "privacy-2024-05-05"}, files)

	var lines []string
	for line, err := range fs.Devices.ReadAudit(d.Uuid, AuditPrivacyPrefix) {
		require.Nil(t, err)
		lines = append(lines, line)
	}
	require.Len(t, lines, 6)
	assert.Equal(t, `{"day":2,"n":0}`, lines[0])
	assert.Equal(t, `{"day":4,"n":1}`, lines[5])

	lines = nil
	for line, err := range fs.Devices.ReadAudit(d.Uuid, AuditSecurityPrefix) {
		require.Nil(t, err)
		lines = append(lines, line)
	}
	assert.Equal(t, []string{`{"sec":true}`}, lines)
}

func TestShadowStore(t *testing.T) {
	shadowtest.RunContract(t, func(t *testing.T) shadow.Store {
		db, _ := newTestDb(t)
		s, err := NewShadowStore(db)
		require.Nil(t, err)
		return s
	})
}

// Benchmark_CheckIn simulates 100 random device checking in 100_000 times
func Benchmark_CheckIn(b *testing.B) {
	db, fs := newTestDb(b)
	s, err := NewStorage(db, fs)
	require.Nil(b, err)

	// Create fake devices
	var devices []*Device
	for range 100 {
		d, err := s.DeviceCreate(uuid.New().String())
		require.Nil(b, err)
		devices = append(devices, d)
	}

	b.StartTimer()
	for range 100000 {
		deviceIdx := rand.Intn(len(devices) - 1)
		devices[deviceIdx].LastSeen = 0
		require.Nil(b, devices[deviceIdx].CheckIn())
	}
	b.StopTimer()
}
