// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package commands

import (
	"fmt"
	"time"

	"github.com/foundriesio/dg-shadow/context"
	"github.com/foundriesio/dg-shadow/events"
)

const DefaultIdleInterval = 100 * time.Millisecond

// Worker drains a Queue one command at a time.
type Worker struct {
	queue      *Queue
	dispatcher Dispatcher
	bus        events.Publisher
	log        Log
	idle       time.Duration
	now        func() time.Time
}

type WorkerOption func(*Worker)

func WithIdleInterval(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.idle = d
		}
	}
}

// WithLog makes the worker record status transitions in the command log.
func WithLog(log Log) WorkerOption {
	return func(w *Worker) { w.log = log }
}

func WithClock(now func() time.Time) WorkerOption {
	return func(w *Worker) { w.now = now }
}

func NewWorker(queue *Queue, dispatcher Dispatcher, bus events.Publisher, opts ...WorkerOption) *Worker {
	w := &Worker{
		queue:      queue,
		dispatcher: dispatcher,
		bus:        bus,
		idle:       DefaultIdleInterval,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run delivers commands until ctx is cancelled. A delivery that already
// started is allowed to finish.
func (w *Worker) Run(ctx context.Context) {
	log := context.CtxGetLog(ctx)
	log.Info("command worker started")
	defer log.Info("command worker stopped")

	timer := time.NewTimer(w.idle)
	defer timer.Stop()
	for {
		if ctx.Err() != nil {
			return
		}
		if cmd, ok := w.queue.Dequeue(); ok {
			w.Deliver(ctx, cmd)
			continue
		}
		timer.Reset(w.idle)
		select {
		case <-ctx.Done():
			return
		case <-w.queue.Wake():
		case <-timer.C:
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
	}
}

// Deliver runs one command through expiry check and dispatch, returning its
// terminal status.
func (w *Worker) Deliver(ctx context.Context, cmd Command) Status {
	ctx = context.CtxWithDeviceLog(ctx, cmd.DeviceId)
	log := context.CtxGetLog(ctx).With("command", cmd.Id, "capability", cmd.Capability)

	if cmd.Expired(w.now()) {
		log.Info("command expired before delivery", "deadline", cmd.Deadline)
		w.transition(ctx, cmd, StatusExpired, events.CommandExpired, "", map[string]any{
			"deadline": cmd.Deadline.UTC().Format(time.RFC3339Nano),
		})
		return StatusExpired
	}

	w.transition(ctx, cmd, StatusDelivering, events.CommandDelivering, "", map[string]any{
		"priority": string(cmd.Priority),
	})
	// Dispatch is not interrupted by a stop request.
	if err := w.send(context.WithoutCancel(ctx), cmd); err != nil {
		log.Warn("command delivery failed", "error", err)
		w.transition(ctx, cmd, StatusFailed, events.CommandFailed, err.Error(), map[string]any{
			"error": err.Error(),
		})
		return StatusFailed
	}
	log.Info("command applied")
	w.transition(ctx, cmd, StatusApplied, events.CommandApplied, "", nil)
	return StatusApplied
}

func (w *Worker) send(ctx context.Context, cmd Command) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatcher panic: %v", r)
		}
	}()
	return w.dispatcher.Send(ctx, cmd.DeviceId, cmd.Capability, cmd.Params)
}

func (w *Worker) transition(ctx context.Context, cmd Command, status Status, evtType events.Type, detail string, extra map[string]any) {
	if w.log != nil {
		if err := w.log.SetStatus(context.WithoutCancel(ctx), cmd.Id, status, detail); err != nil {
			context.CtxGetLog(ctx).Error("unable to record command status", "command", cmd.Id, "status", status, "error", err)
		}
	}
	payload := map[string]any{
		"commandId":  cmd.Id,
		"capability": cmd.Capability,
	}
	for k, v := range extra {
		payload[k] = v
	}
	w.bus.Publish(ctx, events.New(evtType, cmd.DeviceId, payload))
}
