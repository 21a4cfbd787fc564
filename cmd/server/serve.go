// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/foundriesio/dg-shadow/commands"
	"github.com/foundriesio/dg-shadow/context"
	"github.com/foundriesio/dg-shadow/engine"
	"github.com/foundriesio/dg-shadow/events"
	"github.com/foundriesio/dg-shadow/health"
	"github.com/foundriesio/dg-shadow/privacy"
	"github.com/foundriesio/dg-shadow/server"
	"github.com/foundriesio/dg-shadow/server/api"
	"github.com/foundriesio/dg-shadow/server/daemons"
	"github.com/foundriesio/dg-shadow/server/gateway"
	"github.com/foundriesio/dg-shadow/storage"
	apiStorage "github.com/foundriesio/dg-shadow/storage/api"
	gatewayStorage "github.com/foundriesio/dg-shadow/storage/gateway"
)

type ServeCmd struct {
	startedCb func(apiAddress, gatewayAddress string)

	ApiPort     uint16 `arg:"env:DG_API_PORT" default:"8080" help:"Operator REST API port"`
	GatewayPort uint16 `arg:"env:DG_GATEWAY_PORT" default:"8443" help:"Device gateway port"`

	MemoryShadows bool `arg:"env:DG_MEMORY_SHADOWS" help:"Keep device shadows in memory instead of the database"`
	LocalOnly     bool `arg:"env:DG_LOCAL_ONLY" help:"Start with all telemetry egress blocked"`

	RedisAddr     string `arg:"env:DG_REDIS_ADDR" help:"Consent policy service (redis host:port); unset denies by default"`
	RedisPassword string `arg:"env:DG_REDIS_PASSWORD"`
	RedisDb       int    `arg:"env:DG_REDIS_DB" default:"0"`
	RedisPrefix   string `arg:"env:DG_REDIS_PREFIX" default:"consent"`
	ConsentCache  int    `arg:"env:DG_CONSENT_CACHE" default:"100000" help:"Maximum devices with a cached consent decision"`

	KafkaBrokers []string `arg:"--kafka-broker,separate,env:DG_KAFKA_BROKERS" help:"Mirror bus events to Kafka"`
	KafkaTopic   string   `arg:"env:DG_KAFKA_TOPIC" default:"dg-shadow-events"`

	IdempotencyTtl  time.Duration `arg:"env:DG_IDEMPOTENCY_TTL" default:"24h" help:"How long a command idempotency key is remembered"`
	IdempotencyKeys int           `arg:"env:DG_IDEMPOTENCY_KEYS" default:"100000" help:"Maximum remembered idempotency keys"`
	DispatchLatency time.Duration `arg:"env:DG_DISPATCH_LATENCY" default:"0s" help:"Simulated command delivery latency"`

	HeartbeatGap  time.Duration `arg:"env:DG_HEARTBEAT_GAP" default:"2m" help:"Heartbeat gap that signals a breakdown"`
	PacketLossPct float64       `arg:"env:DG_PACKET_LOSS_PCT" default:"50" help:"Packet loss that signals a breakdown"`
}

func (c *ServeCmd) Run(args CommonArgs) error {
	log := context.CtxGetLog(args.ctx)
	fs, err := storage.NewFs(args.DataDir)
	if err != nil {
		return fmt.Errorf("failed to load filesystem: %w", err)
	}
	db, err := storage.NewDb(fs.Config.DbFile())
	if err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("failed to close database", "error", err)
		}
	}()

	opts, closers, err := c.engineOptions(db, fs)
	if err != nil {
		return err
	}
	defer func() {
		for _, fn := range closers {
			if err := fn(); err != nil {
				log.Error("failed to close backend", "error", err)
			}
		}
	}()
	eng := engine.New(opts)

	var daemonOpts []daemons.Option
	if len(c.KafkaBrokers) > 0 {
		log.Info("Mirroring events to kafka", "brokers", c.KafkaBrokers, "topic", c.KafkaTopic)
		daemonOpts = append(daemonOpts, daemons.WithKafkaExporter(events.NewKafkaExporter(c.KafkaBrokers, c.KafkaTopic)))
	}

	apiServer, err := api.NewServer(args.ctx, db, fs, eng, c.ApiPort, daemonOpts...)
	if err != nil {
		return err
	}
	gtwServer, err := gateway.NewServer(args.ctx, db, fs, eng, c.GatewayPort)
	if err != nil {
		return err
	}

	// setup channel to gracefully terminate server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(quit)

	quitErr := make(chan error, 2)
	apiServer.Start(quitErr)
	gtwServer.Start(quitErr)

	if c.startedCb != nil {
		// Testing code, see serve_test.go
		time.Sleep(time.Millisecond * 2)
		c.startedCb(apiServer.GetAddress(), gtwServer.GetAddress())
	}

	select {
	case err = <-quitErr:
	case <-quit:
		break
	}

	var wg sync.WaitGroup
	wg.Add(2)
	for _, srv := range []server.Server{apiServer, gtwServer} {
		go func() {
			srv.Shutdown(time.Minute)
			wg.Done()
		}()
	}
	wg.Wait()

	return err
}

// engineOptions picks the engine backends from the flags. The returned
// closers release backend connections once the servers are down.
func (c *ServeCmd) engineOptions(db *storage.DbHandle, fs *storage.FsHandle) (engine.Options, []func() error, error) {
	var closers []func() error
	opts := engine.Options{
		LocalOnly:        c.LocalOnly,
		ConsentCacheSize: c.ConsentCache,
		IdempotencyTtl:   c.IdempotencyTtl,
		IdempotencyKeys:  c.IdempotencyKeys,
		HealthThresholds: health.Thresholds{MaxGap: c.HeartbeatGap, MaxPacketLoss: c.PacketLossPct},
		Dispatcher:       commands.SimulatedDispatcher{Latency: c.DispatchLatency},
	}
	if c.IdempotencyTtl < 0 || c.IdempotencyKeys < 0 || c.ConsentCache < 0 {
		return opts, nil, errors.New("cache sizes and ttl must not be negative")
	}

	if !c.MemoryShadows {
		shadows, err := gatewayStorage.NewShadowStore(db)
		if err != nil {
			return opts, nil, fmt.Errorf("failed to load shadow storage: %w", err)
		}
		opts.ShadowStore = shadows
	}

	apiS, err := apiStorage.NewStorage(db, fs)
	if err != nil {
		return opts, nil, fmt.Errorf("failed to load command storage: %w", err)
	}
	opts.CommandLog = apiS.CommandLog()

	if len(c.RedisAddr) > 0 {
		src := privacy.NewRedisPolicySource(privacy.RedisOptions{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDb,
			Prefix:   c.RedisPrefix,
		})
		opts.PolicySource = src
		closers = append(closers, src.Close)
	}
	return opts, closers, nil
}
