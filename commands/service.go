// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/foundriesio/dg-shadow/context"
)

// Service is the command submission surface: it gates on idempotency, records
// the command and hands it to the delivery queue.
type Service struct {
	queue   *Queue
	tracker *Tracker
	log     Log
	now     func() time.Time
}

// NewService creates a submission service. log may be nil when commands are
// not persisted.
func NewService(queue *Queue, tracker *Tracker, log Log) *Service {
	return &Service{queue: queue, tracker: tracker, log: log, now: time.Now}
}

func (s *Service) Submit(ctx context.Context, deviceId string, sub Submission) (Command, error) {
	priority, err := validate(deviceId, sub)
	if err != nil {
		return Command{}, err
	}
	if !s.tracker.CheckAndRecord(deviceId, sub.IdempotencyKey) {
		return Command{}, fmt.Errorf("%w: key %q already used for device %s", ErrDuplicateCommand, sub.IdempotencyKey, deviceId)
	}

	params := sub.Params
	if len(params) == 0 {
		params = json.RawMessage("{}")
	}
	cmd := Command{
		Id:             uuid.New().String(),
		DeviceId:       deviceId,
		Capability:     sub.Capability,
		Params:         params,
		Priority:       priority,
		Deadline:       sub.Deadline,
		IdempotencyKey: sub.IdempotencyKey,
		EnqueuedAt:     s.now().UTC(),
	}

	if s.log != nil {
		if err = s.log.Create(ctx, cmd); err != nil {
			// The command was never accepted - let the caller retry with the same key.
			s.tracker.Forget(deviceId, sub.IdempotencyKey)
			return Command{}, fmt.Errorf("unable to record command for device %s: %w", deviceId, err)
		}
	}
	if err = s.queue.Enqueue(cmd); err != nil {
		s.tracker.Forget(deviceId, sub.IdempotencyKey)
		return Command{}, err
	}
	context.CtxGetLog(ctx).Info("command queued",
		"device", deviceId, "command", cmd.Id, "capability", cmd.Capability, "priority", cmd.Priority)
	return cmd, nil
}

func validate(deviceId string, sub Submission) (Priority, error) {
	var errs []error
	if strings.TrimSpace(deviceId) == "" {
		errs = append(errs, errors.New("device id is required"))
	}
	if strings.TrimSpace(sub.Capability) == "" {
		errs = append(errs, errors.New("capability is required"))
	}
	if strings.TrimSpace(sub.IdempotencyKey) == "" {
		errs = append(errs, errors.New("idempotency key is required"))
	}
	if len(sub.Params) > 0 && !json.Valid(sub.Params) {
		errs = append(errs, errors.New("params must be valid JSON"))
	}
	priority, err := ParsePriority(sub.Priority)
	if err != nil {
		return "", err
	}
	if len(errs) > 0 {
		return "", fmt.Errorf("%w: %w", ErrInvalidSubmission, errors.Join(errs...))
	}
	return priority, nil
}
