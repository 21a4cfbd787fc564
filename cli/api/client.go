// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/foundriesio/dg-shadow/cli/config"
)

type Api struct {
	URL   string
	Token string

	Client *http.Client
}

func NewClient(appCtx config.Context) *Api {
	var transport http.RoundTripper = http.DefaultTransport
	if appCtx.Token != "" {
		transport = &authTransport{Token: appCtx.Token, Transport: transport}
	}
	return &Api{
		URL:   strings.TrimSuffix(appCtx.URL, "/"),
		Token: appCtx.Token,

		Client: &http.Client{Transport: transport},
	}
}

type authTransport struct {
	Token     string
	Transport http.RoundTripper
}

// RoundTrip implements the http.RoundTripper interface in a way which adds
// the Authorization header to each request.
func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	reqBodyClosed := false
	if req.Body != nil {
		defer func() {
			if !reqBodyClosed {
				if err := req.Body.Close(); err != nil {
					slog.Error("failed to close request body", "error", err)
				}
			}
		}()
	}

	req2 := req.Clone(req.Context())
	req2.Header.Set("Authorization", "Bearer "+t.Token)

	// req.Body is assumed to be closed by the base RoundTripper.
	reqBodyClosed = true
	return t.Transport.RoundTrip(req2)
}
