// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package privacy

import "strings"

type DataClass string

const (
	ClassTelemetry  DataClass = "telemetry"
	ClassState      DataClass = "state"
	ClassDiagnostic DataClass = "diagnostic"
	ClassIdentifier DataClass = "identifier"
	ClassLocation   DataClass = "location"
)

type Purpose string

const (
	PurposeAutomation      Purpose = "automation"
	PurposeTroubleshooting Purpose = "troubleshooting"
	PurposeAnalytics       Purpose = "analytics"
)

type ClassifiedEvent struct {
	Capability string    `json:"capability"`
	DataClass  DataClass `json:"dataClass"`
	Purpose    Purpose   `json:"purpose"`
	Value      any       `json:"value"`
}

// Rules are matched in order and the first hit wins: a name like "health_id"
// is an identifier, not a diagnostic.
var classRules = []struct {
	class    DataClass
	keywords []string
}{
	{ClassIdentifier, []string{"id", "mac", "serial"}},
	{ClassLocation, []string{"gps", "geo", "location"}},
	{ClassState, []string{"state", "mode"}},
	{ClassDiagnostic, []string{"diag", "health"}},
}

var troubleshootingKeywords = []string{"health", "diag"}

// Classify derives the data class and purpose of a capability value from the
// capability name alone. It is pure and total.
func Classify(capability string, value any) ClassifiedEvent {
	name := strings.ToLower(capability)
	return ClassifiedEvent{
		Capability: capability,
		DataClass:  classOf(name),
		Purpose:    purposeOf(name),
		Value:      value,
	}
}

func classOf(name string) DataClass {
	for _, rule := range classRules {
		if containsAny(name, rule.keywords) {
			return rule.class
		}
	}
	return ClassTelemetry
}

func purposeOf(name string) Purpose {
	if containsAny(name, troubleshootingKeywords) {
		return PurposeTroubleshooting
	}
	return PurposeAutomation
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
