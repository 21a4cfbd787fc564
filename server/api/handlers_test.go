// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foundriesio/dg-shadow/commands"
	"github.com/foundriesio/dg-shadow/context"
	"github.com/foundriesio/dg-shadow/engine"
	"github.com/foundriesio/dg-shadow/events"
	"github.com/foundriesio/dg-shadow/privacy"
	"github.com/foundriesio/dg-shadow/server"
	apiStorage "github.com/foundriesio/dg-shadow/storage/api"
	gatewayStorage "github.com/foundriesio/dg-shadow/storage/gateway"
)

type testClient struct {
	t   *testing.T
	ctx Context
	api *apiStorage.Storage
	gw  *gatewayStorage.Storage
	eng *engine.Engine
	e   *echo.Echo
}

func (c testClient) Do(req *http.Request) *httptest.ResponseRecorder {
	req = req.WithContext(c.ctx)
	rec := httptest.NewRecorder()
	c.e.ServeHTTP(rec, req)
	return rec
}

func (c testClient) GET(resource string, status int) []byte {
	req := httptest.NewRequest(http.MethodGet, resource, nil)
	rec := c.Do(req)
	require.Equal(c.t, status, rec.Code, rec.Body.String())
	return rec.Body.Bytes()
}

func (c testClient) send(method, resource string, status int, data any) []byte {
	req := httptest.NewRequest(method, resource, c.marshalBody(data))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := c.Do(req)
	require.Equal(c.t, status, rec.Code, rec.Body.String())
	return rec.Body.Bytes()
}

func (c testClient) POST(resource string, status int, data any) []byte {
	return c.send(http.MethodPost, resource, status, data)
}

func (c testClient) PUT(resource string, status int, data any) []byte {
	return c.send(http.MethodPut, resource, status, data)
}

func (c testClient) DELETE(resource string, status int) []byte {
	return c.send(http.MethodDelete, resource, status, nil)
}

func (c testClient) marshalBody(data any) io.Reader {
	if data == nil {
		return http.NoBody
	} else if s, ok := data.(string); ok {
		return strings.NewReader(s)
	} else if b, ok := data.([]byte); ok {
		return bytes.NewReader(b)
	} else {
		b, err := json.Marshal(data)
		require.Nil(c.t, err)
		return bytes.NewReader(b)
	}
}

func NewTestClient(t *testing.T) *testClient {
	ctx := context.Background()
	tmpDir := t.TempDir()
	fsS, err := apiStorage.NewFs(tmpDir)
	require.Nil(t, err)
	db, err := apiStorage.NewDb(filepath.Join(tmpDir, apiStorage.DbFile))
	require.Nil(t, err)
	t.Cleanup(func() { require.Nil(t, db.Close()) })
	apiS, err := apiStorage.NewStorage(db, fsS)
	require.Nil(t, err)
	gwS, err := gatewayStorage.NewStorage(db, fsS)
	require.Nil(t, err)

	log, err := context.InitLogger("debug")
	require.Nil(t, err)
	ctx = CtxWithLog(ctx, log)

	eng := engine.New(engine.Options{CommandLog: apiS.CommandLog()})
	e := server.NewEchoServer()
	RegisterHandlers(e, apiS, gwS, eng)

	return &testClient{t: t, ctx: ctx, api: apiS, gw: gwS, eng: eng, e: e}
}

func TestApiDeviceList(t *testing.T) {
	tc := NewTestClient(t)

	// No devices
	data := tc.GET("/v1/devices", 200)
	require.Equal(t, "[]\n", string(data))

	// two devices with different last seen times
	_, err := tc.gw.DeviceCreate("test-device-1")
	require.Nil(t, err)
	time.Sleep(1 * time.Second)
	_, err = tc.gw.DeviceCreate("test-device-2")
	require.Nil(t, err)

	data = tc.GET("/v1/devices", 200)
	var devices []apiStorage.DeviceListItem
	require.Nil(t, json.Unmarshal(data, &devices))
	require.Len(t, devices, 2)
	assert.Equal(t, "test-device-2", devices[0].Uuid)
	assert.Equal(t, "test-device-1", devices[1].Uuid)

	// test sorting
	data = tc.GET("/v1/devices?order-by=last-seen-asc", 200)
	require.Nil(t, json.Unmarshal(data, &devices))
	assert.Equal(t, "test-device-1", devices[0].Uuid)
	assert.Equal(t, "test-device-2", devices[1].Uuid)

	data = tc.GET("/v1/devices?limit=1&offset=1&order-by=uuid-asc", 200)
	require.Nil(t, json.Unmarshal(data, &devices))
	require.Len(t, devices, 1)
	assert.Equal(t, "test-device-2", devices[0].Uuid)

	tc.GET("/v1/devices?order-by=bogus", 400)
	tc.GET("/v1/devices?limit=many", 400)
}

func TestApiDeviceGet(t *testing.T) {
	tc := NewTestClient(t)

	_ = tc.GET("/v1/devices/does-not-exist", 404)

	d1, err := tc.gw.DeviceCreate("test-device-1")
	require.Nil(t, err)

	data := tc.GET("/v1/devices/test-device-1", 200)
	var device apiStorage.DeviceListItem
	require.Nil(t, json.Unmarshal(data, &device))
	assert.Equal(t, "test-device-1", device.Uuid)
	assert.Equal(t, d1.CreatedAt, device.CreatedAt)
}

func TestApiShadowGet(t *testing.T) {
	tc := NewTestClient(t)
	tc.GET("/v1/devices/dev-1/shadow", 404)

	_, err := tc.gw.DeviceCreate("dev-1")
	require.Nil(t, err)
	tc.GET("/v1/devices/dev-1/shadow", 404)

	_, _, err = tc.eng.Shadows.ApplyUpdate(tc.ctx, "dev-1", 3, map[string]any{"fw": "1.2"})
	require.Nil(t, err)
	data := tc.GET("/v1/devices/dev-1/shadow", 200)
	var entry struct {
		DeviceId string         `json:"deviceId"`
		Version  int64          `json:"version"`
		Reported map[string]any `json:"reported"`
	}
	require.Nil(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "dev-1", entry.DeviceId)
	assert.Equal(t, int64(3), entry.Version)
	assert.Equal(t, map[string]any{"fw": "1.2"}, entry.Reported)
}

func TestApiAudit(t *testing.T) {
	tc := NewTestClient(t)
	tc.GET("/v1/devices/dev-1/audit/privacy", 404)

	d, err := tc.gw.DeviceCreate("dev-1")
	require.Nil(t, err)
	require.Equal(t, "[]\n", string(tc.GET("/v1/devices/dev-1/audit/privacy", 200)))
	tc.GET("/v1/devices/dev-1/audit/bogus", 404)
	tc.GET("/v1/devices/../audit/privacy", 400)
	tc.GET("/v1/devices/./audit/security", 400)
	tc.PUT("/v1/devices/../consent", 400, privacy.ConsentDecision{Allowed: true, TtlSeconds: 5})

	evt := events.Event{
		Type: events.SignalBreakdown, DeviceId: "dev-1", Time: time.Now(),
		Payload: map[string]any{"gap": 180000},
	}
	record, err := json.Marshal(evt)
	require.Nil(t, err)
	require.Nil(t, d.AppendAudit(gatewayStorage.AuditSecurityPrefix, evt.Time, record))

	data := tc.GET("/v1/devices/dev-1/audit/security", 200)
	var records []events.Event
	require.Nil(t, json.Unmarshal(data, &records))
	require.Len(t, records, 1)
	assert.Equal(t, events.SignalBreakdown, records[0].Type)
	assert.Equal(t, float64(180000), records[0].Payload["gap"])
}

func TestApiCommands(t *testing.T) {
	tc := NewTestClient(t)

	// Commands may be addressed to a device before it ever connected.
	var accepted CommandAccepted
	data := tc.POST("/v1/devices/dev-1/commands", 202, map[string]any{
		"capability":     "set_temp",
		"params":         map[string]any{"target": 21},
		"priority":       "emergency",
		"idempotencyKey": "k1",
	})
	require.Nil(t, json.Unmarshal(data, &accepted))
	require.NotEmpty(t, accepted.Id)
	tc.GET("/v1/devices/dev-1", 200)

	tc.POST("/v1/devices/dev-1/commands", 409, map[string]any{
		"capability": "set_temp", "idempotencyKey": "k1",
	})
	// The same key on another device is a different command.
	tc.POST("/v1/devices/dev-2/commands", 202, map[string]any{
		"capability": "set_temp", "idempotencyKey": "k1",
	})
	tc.POST("/v1/devices/dev-1/commands", 400, map[string]any{
		"capability": "set_temp", "idempotencyKey": "k2", "priority": "asap",
	})
	tc.POST("/v1/devices/dev-1/commands", 400, map[string]any{"idempotencyKey": "k3"})
	tc.POST("/v1/devices/dev-1/commands", 400, map[string]any{"capability": "reboot"})

	var rec CommandRecord
	data = tc.GET("/v1/commands/"+accepted.Id, 200)
	require.Nil(t, json.Unmarshal(data, &rec))
	assert.Equal(t, commands.StatusQueued, rec.Status)
	assert.Equal(t, commands.PriorityEmergency, rec.Priority)
	assert.JSONEq(t, `{"target":21}`, string(rec.Params))
	tc.GET("/v1/commands/missing", 404)

	cmd, ok := tc.eng.Queue.Dequeue()
	require.True(t, ok)
	require.Equal(t, accepted.Id, cmd.Id)
	assert.Equal(t, commands.StatusApplied, tc.eng.Worker.Deliver(tc.ctx, cmd))

	data = tc.GET("/v1/devices/dev-1/commands", 200)
	var list []CommandRecord
	require.Nil(t, json.Unmarshal(data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, commands.StatusApplied, list[0].Status)

	data = tc.GET("/v1/devices/dev-1/commands?status=queued", 200)
	require.Nil(t, json.Unmarshal(data, &list))
	assert.Empty(t, list)
	tc.GET("/v1/devices/dev-1/commands?status=bogus", 400)
	tc.GET("/v1/devices/nobody/commands", 404)
}

func TestApiConsent(t *testing.T) {
	tc := NewTestClient(t)

	tc.PUT("/v1/devices/dev-1/consent", 204, privacy.ConsentDecision{Allowed: true, PolicyVersion: "v3", TtlSeconds: 60})
	decision, ok := tc.eng.Consent.Get("dev-1")
	require.True(t, ok)
	assert.True(t, decision.Allowed)
	assert.Equal(t, "v3", decision.PolicyVersion)

	tc.PUT("/v1/devices/dev-1/consent", 400, privacy.ConsentDecision{Allowed: true, TtlSeconds: 0})
	tc.PUT("/v1/devices/dev-1/consent", 400, `{"allowed": true, "ttlSeconds": 5, "extra": 1}`)

	tc.DELETE("/v1/devices/dev-1/consent", 204)
	_, ok = tc.eng.Consent.Get("dev-1")
	assert.False(t, ok)
}

func TestApiLocalOnly(t *testing.T) {
	tc := NewTestClient(t)

	var mode LocalOnly
	require.Nil(t, json.Unmarshal(tc.GET("/v1/privacy/local-only", 200), &mode))
	require.NotNil(t, mode.Enabled)
	assert.False(t, *mode.Enabled)

	tc.PUT("/v1/privacy/local-only", 200, map[string]any{"enabled": true})
	assert.True(t, tc.eng.LocalOnly.Enabled())
	require.Nil(t, json.Unmarshal(tc.GET("/v1/privacy/local-only", 200), &mode))
	assert.True(t, *mode.Enabled)

	tc.PUT("/v1/privacy/local-only", 400, map[string]any{})
	assert.True(t, tc.eng.LocalOnly.Enabled())
}

func TestApiEventsStream(t *testing.T) {
	tc := NewTestClient(t)
	srv := httptest.NewServer(tc.e)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(tc.ctx, 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/events?prefix=" + events.PrefixShadow
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.Nil(t, err)
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	require.Eventually(t, func() bool { return tc.eng.Bus.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	// Filtered out by the prefix.
	tc.eng.Bus.Publish(ctx, events.New(events.PrivacyAllowed, "dev-1", nil))
	_, _, err = tc.eng.Shadows.ApplyUpdate(ctx, "dev-1", 1, map[string]any{"on": true})
	require.Nil(t, err)

	var evt events.Event
	require.Nil(t, wsjson.Read(ctx, conn, &evt))
	assert.Equal(t, events.ShadowUpdated, evt.Type)
	assert.Equal(t, "dev-1", evt.DeviceId)

	require.Nil(t, conn.Close(websocket.StatusNormalClosure, ""))
	require.Eventually(t, func() bool { return tc.eng.Bus.Subscribers() == 0 }, time.Second, 5*time.Millisecond)
}
