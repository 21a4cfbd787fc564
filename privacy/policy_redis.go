// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package privacy

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/foundriesio/dg-shadow/context"
)

const defaultPolicyTtlSeconds = 300

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	Timeout  time.Duration
}

// RedisPolicySource reads consent decisions published by the policy service as
// JSON documents under "<prefix>:<device id>".
type RedisPolicySource struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisPolicySource(o RedisOptions) *RedisPolicySource {
	if o.Timeout <= 0 {
		o.Timeout = 2 * time.Second
	}
	if o.Prefix == "" {
		o.Prefix = "consent"
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         o.Addr,
		Password:     o.Password,
		DB:           o.DB,
		DialTimeout:  o.Timeout,
		ReadTimeout:  o.Timeout,
		WriteTimeout: o.Timeout,
		MaxRetries:   1,
	})
	return &RedisPolicySource{rdb: rdb, prefix: o.Prefix}
}

func (r *RedisPolicySource) key(deviceId string) string {
	return fmt.Sprintf("%s:%s", r.prefix, deviceId)
}

func (r *RedisPolicySource) Fetch(ctx context.Context, deviceId string) (ConsentDecision, error) {
	val, err := r.rdb.Get(ctx, r.key(deviceId)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ConsentDecision{
			Allowed: false, PolicyVersion: PolicyVersionNone, Reason: ReasonNoConsentRecord, TtlSeconds: 60,
		}, nil
	} else if err != nil {
		return ConsentDecision{}, fmt.Errorf("unable to read consent for device %s: %w", deviceId, err)
	}

	var d ConsentDecision
	if err = json.Unmarshal(val, &d); err != nil {
		return ConsentDecision{}, fmt.Errorf("malformed consent record for device %s: %w", deviceId, err)
	}
	if d.TtlSeconds <= 0 {
		d.TtlSeconds = defaultPolicyTtlSeconds
	}
	return d, nil
}

func (r *RedisPolicySource) Close() error {
	return r.rdb.Close()
}
