// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/foundriesio/dg-shadow/context"
)

type Priority string

const (
	PriorityEmergency  Priority = "emergency"
	PriorityRoutine    Priority = "routine"
	PriorityBackground Priority = "background"
)

// Tiers in dequeue order.
var tiers = []Priority{PriorityEmergency, PriorityRoutine, PriorityBackground}

func ParsePriority(s string) (Priority, error) {
	switch p := Priority(s); p {
	case PriorityEmergency, PriorityRoutine, PriorityBackground:
		return p, nil
	case "":
		return PriorityRoutine, nil
	default:
		return "", fmt.Errorf("%w: unknown priority %q", ErrInvalidSubmission, s)
	}
}

func (p Priority) tier() int {
	for i, t := range tiers {
		if t == p {
			return i
		}
	}
	return -1
}

type Status string

const (
	StatusQueued     Status = "queued"
	StatusDelivering Status = "delivering"
	StatusApplied    Status = "applied"
	StatusFailed     Status = "failed"
	StatusExpired    Status = "expired"
)

// Terminal statuses end a command's lifecycle.
func (s Status) Terminal() bool {
	return s == StatusApplied || s == StatusFailed || s == StatusExpired
}

type Command struct {
	Id             string          `json:"id"`
	DeviceId       string          `json:"deviceId"`
	Capability     string          `json:"capability"`
	Params         json.RawMessage `json:"params"`
	Priority       Priority        `json:"priority"`
	Deadline       *time.Time      `json:"deadline,omitempty"`
	IdempotencyKey string          `json:"idempotencyKey"`
	EnqueuedAt     time.Time       `json:"enqueuedAt"`
}

// Expired reports whether the command missed its deadline at now.
func (c Command) Expired(now time.Time) bool {
	return c.Deadline != nil && now.After(*c.Deadline)
}

// Submission is an operator request to send a command to one device.
type Submission struct {
	Capability     string          `json:"capability"`
	Params         json.RawMessage `json:"params,omitempty"`
	Priority       string          `json:"priority"`
	IdempotencyKey string          `json:"idempotencyKey"`
	Deadline       *time.Time      `json:"deadline,omitempty"`
}

var (
	ErrDuplicateCommand  = errors.New("duplicate command")
	ErrInvalidSubmission = errors.New("invalid command submission")
)

// Log is the persisted record of commands, owned outside the delivery core.
type Log interface {
	Create(ctx context.Context, cmd Command) error
	SetStatus(ctx context.Context, commandId string, status Status, detail string) error
}
