// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package privacy

import (
	"time"

	cache "github.com/go-pkgz/expirable-cache/v3"

	"github.com/foundriesio/dg-shadow/context"
)

const (
	ReasonDenied          = "denied"
	ReasonLocalOnly       = "local_only_mode"
	ReasonNoPolicy        = "default_deny_no_policy"
	ReasonNoConsentRecord = "no_consent_record"
	ReasonUnavailable     = "privacy_service_unavailable"

	// PolicyVersionNone marks decisions synthesized locally rather than issued
	// by a policy backend.
	PolicyVersionNone = "none"
)

type ConsentDecision struct {
	Allowed       bool   `json:"allowed"`
	PolicyVersion string `json:"policyVersion"`
	Reason        string `json:"reason,omitempty"`
	TtlSeconds    int    `json:"ttlSeconds"`
}

func (d ConsentDecision) ttl() time.Duration {
	return time.Duration(d.TtlSeconds) * time.Second
}

// Absence of policy information is never permission.
var (
	decisionNoPolicy = ConsentDecision{
		Allowed: false, PolicyVersion: PolicyVersionNone, Reason: ReasonNoPolicy, TtlSeconds: 60,
	}
	decisionUnavailable = ConsentDecision{
		Allowed: false, PolicyVersion: PolicyVersionNone, Reason: ReasonUnavailable, TtlSeconds: 30,
	}
)

// PolicySource is a remote consent/policy service.
type PolicySource interface {
	Fetch(ctx context.Context, deviceId string) (ConsentDecision, error)
}

// ConsentCache holds per-device consent decisions until their TTL runs out.
// A nil source means no policy backend is wired and every refresh denies.
type ConsentCache struct {
	decisions    cache.Cache[string, ConsentDecision]
	source       PolicySource
	fetchTimeout time.Duration
}

func NewConsentCache(source PolicySource, maxDevices int) *ConsentCache {
	c := cache.NewCache[string, ConsentDecision]().WithLRU()
	if maxDevices > 0 {
		c = c.WithMaxKeys(maxDevices)
	}
	return &ConsentCache{decisions: c, source: source, fetchTimeout: 5 * time.Second}
}

// Get never touches the network. Expired decisions are reported as absent.
func (c *ConsentCache) Get(deviceId string) (ConsentDecision, bool) {
	return c.decisions.Get(deviceId)
}

// Put caches the decision for TtlSeconds. A decision without a positive TTL
// is already expired and is not stored.
func (c *ConsentCache) Put(deviceId string, decision ConsentDecision) {
	if decision.TtlSeconds <= 0 {
		c.decisions.Invalidate(deviceId)
		return
	}
	c.decisions.Set(deviceId, decision, decision.ttl())
}

func (c *ConsentCache) Invalidate(deviceId string) {
	c.decisions.Invalidate(deviceId)
}

// FetchAndCache refreshes the decision from the policy source. It cannot fail:
// any problem resolves to a conservative deny that is cached like any other
// decision, so an outage does not hammer the backend on every event.
func (c *ConsentCache) FetchAndCache(ctx context.Context, deviceId string) ConsentDecision {
	decision := decisionNoPolicy
	if c.source != nil {
		fetchCtx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
		defer cancel()
		var err error
		if decision, err = c.source.Fetch(fetchCtx, deviceId); err != nil {
			context.CtxGetLog(ctx).Warn("consent policy fetch failed - denying", "device", deviceId, "error", err)
			decision = decisionUnavailable
		}
	}
	c.Put(deviceId, decision)
	return decision
}
