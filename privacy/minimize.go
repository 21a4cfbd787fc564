// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package privacy

import (
	"encoding/json"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

// TruncatedSentinel replaces a payload that is too large and cannot be cut
// without producing malformed data.
const TruncatedSentinel = "[truncated]"

var blockedKeys = map[string]struct{}{
	"id":       {},
	"deviceid": {},
	"serial":   {},
	"mac":      {},
	"uuid":     {},
	"imei":     {},
}

// MinimizeOptions toggles the independent reduction steps. Zero values disable
// the numeric steps.
type MinimizeOptions struct {
	StripIdentifiers     bool
	NumericBucket        float64
	TruncatePayloadBytes int
}

// Minimize applies, in order: identifier stripping, numeric bucketing and
// payload truncation. The input value is never modified.
func Minimize(value any, opts MinimizeOptions) any {
	if opts.StripIdentifiers {
		value = StripIdentifiers(value)
	}
	if opts.NumericBucket > 0 {
		if _, isObject := value.(map[string]any); isObject {
			value = bucketNumbers(value, opts.NumericBucket)
		}
	}
	if opts.TruncatePayloadBytes > 0 {
		value = truncate(value, opts.TruncatePayloadBytes)
	}
	return value
}

// StripIdentifiers removes identifier-like keys (case-insensitive) from nested
// objects and arrays. Primitives are returned unchanged.
func StripIdentifiers(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			if _, blocked := blockedKeys[strings.ToLower(k)]; blocked {
				continue
			}
			out[k] = StripIdentifiers(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = StripIdentifiers(item)
		}
		return out
	default:
		return value
	}
}

func bucketNumbers(value any, step float64) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = bucketNumbers(item, step)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = bucketNumbers(item, step)
		}
		return out
	default:
		if f, ok := toFloat(value); ok {
			return math.Round(f/step) * step
		}
		return value
	}
}

func toFloat(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func truncate(value any, limit int) any {
	data, err := json.Marshal(value)
	if err != nil {
		return TruncatedSentinel
	}
	if len(data) <= limit {
		return value
	}
	if s, ok := value.(string); ok {
		return truncateString(s, limit)
	}
	return TruncatedSentinel
}

// truncateString cuts s to at most limit bytes without splitting a rune.
func truncateString(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// RoundTimestampMs rounds a unix millisecond timestamp to the nearest multiple of stepMs.
func RoundTimestampMs(ts, stepMs int64) int64 {
	if stepMs <= 0 {
		return ts
	}
	return int64(math.Round(float64(ts)/float64(stepMs))) * stepMs
}

func RoundTimestamp(ts time.Time, step time.Duration) time.Time {
	ms := RoundTimestampMs(ts.UnixMilli(), step.Milliseconds())
	return time.UnixMilli(ms).UTC()
}
