// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package storage

import (
	"iter"
	"time"
)

// Audit logs are per device JSON-lines files, one file per prefix and UTC day.
const (
	AuditPrivacyPrefix  = "privacy"
	AuditSecurityPrefix = "security"
)

func AuditFileName(prefix string, at time.Time) string {
	return prefix + "-" + at.UTC().Format(time.DateOnly)
}

// AppendAudit adds one record to the device's audit file for the day of at,
// keeping at most maxFiles days of that prefix.
func (s DevicesFsHandle) AppendAudit(uuid, prefix string, at time.Time, record []byte, maxFiles int) error {
	name := AuditFileName(prefix, at)
	if err := s.AppendFile(uuid, name, string(record)+"\n"); err != nil {
		return err
	}
	return s.RolloverFiles(uuid, prefix+"-", maxFiles)
}

// ReadAudit yields the device's audit records of a prefix, oldest file first.
func (s DevicesFsHandle) ReadAudit(uuid, prefix string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		names, err := s.ListFiles(uuid, prefix+"-", false)
		if err != nil {
			yield("", err)
			return
		}
		for _, name := range names {
			for line, err := range s.ReadFileLines(uuid, name) {
				if !yield(line, err) || err != nil {
					return
				}
			}
		}
	}
}
