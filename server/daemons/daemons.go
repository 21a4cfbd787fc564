// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package daemons

import (
	"sync"

	"github.com/foundriesio/dg-shadow/context"
	"github.com/foundriesio/dg-shadow/engine"
	"github.com/foundriesio/dg-shadow/events"
	storage "github.com/foundriesio/dg-shadow/storage/gateway"
)

type daemonFunc func(stop chan bool)

type Option func(*daemons)

type daemons struct {
	context context.Context
	engine  *engine.Engine
	storage *storage.Storage
	daemons []daemonFunc
	stops   []chan bool
	wg      sync.WaitGroup

	auditBuffer int
	exporter    *events.KafkaExporter
}

// WithAuditBuffer sets how many events the audit recorder may lag behind the bus.
func WithAuditBuffer(size int) Option {
	return func(d *daemons) {
		d.auditBuffer = size
	}
}

// WithKafkaExporter mirrors every bus event into Kafka.
func WithKafkaExporter(exporter *events.KafkaExporter) Option {
	return func(d *daemons) {
		d.exporter = exporter
	}
}

func New(context context.Context, engine *engine.Engine, storage *storage.Storage, opts ...Option) *daemons {
	d := &daemons{context: context, engine: engine, storage: storage, auditBuffer: 256}
	for _, opt := range opts {
		opt(d)
	}

	// Subscriptions are taken here so that nothing published between New and Start is lost.
	d.daemons = []daemonFunc{
		d.commandWorker(),
		d.auditRecorder(),
	}
	if d.exporter != nil {
		d.daemons = append(d.daemons, d.kafkaExporter())
	}
	return d
}

func (d *daemons) Start() {
	for _, f := range d.daemons {
		stop := make(chan bool)
		d.stops = append(d.stops, stop)
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			f(stop)
		}()
	}
}

func (d *daemons) Shutdown() {
	for _, s := range d.stops {
		s <- true
	}
	d.wg.Wait()
}

// runUntilStop runs fn with a context that is cancelled once stop fires, and
// returns after fn does.
func (d *daemons) runUntilStop(stop chan bool, fn func(ctx context.Context)) {
	ctx, cancel := context.WithCancel(d.context)
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn(ctx)
	}()
	select {
	case <-stop:
	case <-done:
		// Keep the stop channel drained so Shutdown does not block.
		<-stop
	}
	cancel()
	<-done
}
