// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package commands

import (
	"fmt"
	"sync"
)

// Queue holds pending commands in three FIFO tiers. Dequeue always drains a
// higher tier first, so a steady stream of emergency commands starves the
// background tier; that is the intended priority semantics.
type Queue struct {
	mu    sync.Mutex
	tiers [3][]Command
	wake  chan struct{}
}

func NewQueue() *Queue {
	return &Queue{wake: make(chan struct{}, 1)}
}

func (q *Queue) Enqueue(cmd Command) error {
	i := cmd.Priority.tier()
	if i < 0 {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidSubmission, cmd.Priority)
	}
	q.mu.Lock()
	q.tiers[i] = append(q.tiers[i], cmd)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

func (q *Queue) Dequeue() (Command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.tiers {
		if len(q.tiers[i]) == 0 {
			continue
		}
		cmd := q.tiers[i][0]
		q.tiers[i][0] = Command{}
		q.tiers[i] = q.tiers[i][1:]
		return cmd, true
	}
	return Command{}, false
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tiers[0]) + len(q.tiers[1]) + len(q.tiers[2])
}

// Wake is signalled after an enqueue so an idle consumer can stop waiting early.
func (q *Queue) Wake() <-chan struct{} {
	return q.wake
}
