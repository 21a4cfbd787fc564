// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

func (a Api) Get(resource string, result any) error {
	return a.Do(http.MethodGet, resource, nil, result)
}

func (a Api) Post(resource string, body, result any) error {
	return a.Do(http.MethodPost, resource, body, result)
}

func (a Api) Put(resource string, body, result any) error {
	return a.Do(http.MethodPut, resource, body, result)
}

func (a Api) Delete(resource string) error {
	return a.Do(http.MethodDelete, resource, nil, nil)
}

// Do sends body as JSON and decodes a JSON response into result. A nil
// result discards the response body.
func (a Api) Do(method, resource string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, a.URL+resource, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.Client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			fmt.Printf("warning: failed to close response body: %v\n", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		buf, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("API request failed with status %d and unreadable body", resp.StatusCode)
		}
		rid := resp.Header.Get("X-Request-ID")
		return &HttpError{RequestId: rid, Status: resp.StatusCode, Body: string(buf)}
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(result)
}

type HttpError struct {
	RequestId string
	Status    int
	Body      string
}

func (e HttpError) Error() string {
	return fmt.Sprintf("API request (id=%s) failed with status %d: %s", e.RequestId, e.Status, e.Body)
}
