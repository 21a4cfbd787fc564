// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package daemons

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foundriesio/dg-shadow/commands"
	"github.com/foundriesio/dg-shadow/context"
	"github.com/foundriesio/dg-shadow/engine"
	"github.com/foundriesio/dg-shadow/events"
	apiStorage "github.com/foundriesio/dg-shadow/storage/api"
	storage "github.com/foundriesio/dg-shadow/storage/gateway"
)

func newTestDaemons(t *testing.T) (*daemons, *apiStorage.Storage) {
	fs, err := storage.NewFs(t.TempDir())
	require.Nil(t, err)
	db, err := storage.NewDb(fs.Config.DbFile())
	require.Nil(t, err)
	t.Cleanup(func() { require.Nil(t, db.Close()) })
	gw, err := storage.NewStorage(db, fs)
	require.Nil(t, err)
	api, err := apiStorage.NewStorage(db, fs)
	require.Nil(t, err)

	eng := engine.New(engine.Options{CommandLog: api.CommandLog(), WorkerIdle: 10 * time.Millisecond})
	log, err := context.InitLogger("debug")
	require.Nil(t, err)
	ctx := context.CtxWithLog(context.Background(), log)
	return New(ctx, eng, gw, WithAuditBuffer(16)), api
}

func TestCommandWorker(t *testing.T) {
	d, api := newTestDaemons(t)
	sub := d.engine.Bus.Subscribe(8, events.PrefixCommand)
	defer sub.Close()

	d.Start()
	cmd, err := d.engine.Commands.Submit(context.Background(), "dev-1", commands.Submission{
		Capability:     "reboot",
		IdempotencyKey: "k1",
	})
	require.Nil(t, err)

	var seen []events.Type
	for len(seen) < 2 {
		select {
		case evt := <-sub.C:
			assert.Equal(t, cmd.Id, evt.Payload["commandId"])
			seen = append(seen, evt.Type)
		case <-time.After(2 * time.Second):
			require.Fail(t, "command was not delivered")
		}
	}
	d.Shutdown()
	assert.Equal(t, []events.Type{events.CommandDelivering, events.CommandApplied}, seen)

	rec, err := api.CommandGet(cmd.Id)
	require.Nil(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, commands.StatusApplied, rec.Status)
}

func TestAuditRecorder(t *testing.T) {
	d, api := newTestDaemons(t)
	d.Start()

	ctx := context.Background()
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	d.engine.Bus.Publish(ctx, events.Event{
		Type: events.PrivacyBlocked, DeviceId: "dev-1", Time: at,
		Payload: map[string]any{"reason": "local_only_mode"},
	})
	d.engine.Bus.Publish(ctx, events.Event{
		Type: events.SignalBreakdown, DeviceId: "dev-1", Time: at.Add(time.Minute),
		Payload: map[string]any{"gap": 180000},
	})
	// Not audited.
	d.engine.Bus.Publish(ctx, events.New(events.ShadowUpdated, "dev-1", nil))
	d.Shutdown()

	device, err := api.DeviceGet("dev-1")
	require.Nil(t, err)
	require.NotNil(t, device, "recording an audit event registers the device")

	records, err := device.Audit(apiStorage.AuditPrivacyPrefix)
	require.Nil(t, err)
	require.Len(t, records, 1)
	var evt events.Event
	require.Nil(t, json.Unmarshal(records[0], &evt))
	assert.Equal(t, events.PrivacyBlocked, evt.Type)
	assert.Equal(t, "local_only_mode", evt.Payload["reason"])
	assert.True(t, at.Equal(evt.Time))

	records, err = device.Audit(apiStorage.AuditSecurityPrefix)
	require.Nil(t, err)
	require.Len(t, records, 1)
	require.Nil(t, json.Unmarshal(records[0], &evt))
	assert.Equal(t, events.SignalBreakdown, evt.Type)
}

func TestAppendAuditRejects(t *testing.T) {
	d, _ := newTestDaemons(t)
	assert.NotNil(t, d.appendAudit(events.New(events.ShadowUpdated, "dev-1", nil)))
	assert.NotNil(t, d.appendAudit(events.New(events.PrivacyAllowed, "", nil)))

	err := d.appendAudit(events.New(events.SignalBreakdown, "../../../escaped", nil))
	assert.ErrorIs(t, err, storage.ErrInvalidDeviceId)
}
