// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

// Package engine assembles the device-state core: the event bus, the privacy
// egress guard, the shadow service, the command pipeline and the health monitor.
package engine

import (
	"time"

	"github.com/foundriesio/dg-shadow/commands"
	"github.com/foundriesio/dg-shadow/events"
	"github.com/foundriesio/dg-shadow/health"
	"github.com/foundriesio/dg-shadow/privacy"
	"github.com/foundriesio/dg-shadow/shadow"
)

type Options struct {
	// Backends; nil selects the in-process default.
	ShadowStore  shadow.Store
	PolicySource privacy.PolicySource
	CommandLog   commands.Log
	Dispatcher   commands.Dispatcher

	LocalOnly         bool
	ConsentCacheSize  int
	IdempotencyTtl    time.Duration
	IdempotencyKeys   int
	WorkerIdle        time.Duration
	HealthThresholds  health.Thresholds
	DispatcherLatency time.Duration
}

type Engine struct {
	Bus       *events.Bus
	LocalOnly *privacy.LocalOnlyMode
	Consent   *privacy.ConsentCache
	Guard     *privacy.Guard
	Shadows   *shadow.Service
	Queue     *commands.Queue
	Commands  *commands.Service
	Worker    *commands.Worker
	Monitor   *health.Monitor
}

func New(opts Options) *Engine {
	bus := events.NewBus()

	localOnly := &privacy.LocalOnlyMode{}
	localOnly.Set(opts.LocalOnly)
	consent := privacy.NewConsentCache(opts.PolicySource, opts.ConsentCacheSize)

	store := opts.ShadowStore
	if store == nil {
		store = shadow.NewMemoryStore()
	}

	dispatcher := opts.Dispatcher
	if dispatcher == nil {
		dispatcher = commands.SimulatedDispatcher{Latency: opts.DispatcherLatency}
	}
	queue := commands.NewQueue()
	tracker := commands.NewTracker(opts.IdempotencyTtl, opts.IdempotencyKeys)
	workerOpts := []commands.WorkerOption{commands.WithIdleInterval(opts.WorkerIdle)}
	if opts.CommandLog != nil {
		workerOpts = append(workerOpts, commands.WithLog(opts.CommandLog))
	}

	return &Engine{
		Bus:       bus,
		LocalOnly: localOnly,
		Consent:   consent,
		Guard:     privacy.NewGuard(consent, localOnly, bus),
		Shadows:   shadow.NewService(store, bus),
		Queue:     queue,
		Commands:  commands.NewService(queue, tracker, opts.CommandLog),
		Worker:    commands.NewWorker(queue, dispatcher, bus, workerOpts...),
		Monitor:   health.NewMonitor(bus, opts.HealthThresholds),
	}
}
