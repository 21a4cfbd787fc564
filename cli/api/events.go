// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/foundriesio/dg-shadow/events"
)

// Events streams bus events matching the prefixes to fn until ctx is done,
// the server closes the stream, or fn returns an error.
func (a Api) Events(ctx context.Context, prefixes []string, fn func(events.Event) error) error {
	q := url.Values{}
	for _, p := range prefixes {
		q.Add("prefix", p)
	}
	endpoint := "ws" + strings.TrimPrefix(a.URL, "http") + "/v1/events"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	opts := &websocket.DialOptions{HTTPClient: a.Client}
	if a.Token != "" {
		opts.HTTPHeader = http.Header{"Authorization": []string{"Bearer " + a.Token}}
	}
	conn, _, err := websocket.Dial(ctx, endpoint, opts)
	if err != nil {
		return err
	}
	defer func() { _ = conn.CloseNow() }()

	for {
		var evt events.Event
		if err := wsjson.Read(ctx, conn, &evt); err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if err := fn(evt); err != nil {
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return err
		}
	}
}
