// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package api

import (
	"fmt"
	"time"

	"github.com/foundriesio/dg-shadow/engine"
	"github.com/foundriesio/dg-shadow/server"
	"github.com/foundriesio/dg-shadow/server/daemons"
	"github.com/foundriesio/dg-shadow/storage"
	"github.com/foundriesio/dg-shadow/storage/api"
	"github.com/foundriesio/dg-shadow/storage/gateway"
)

const serverName = "rest-api"

type daemon interface {
	Start()
	Shutdown()
}

func NewServer(ctx Context, db *storage.DbHandle, fs *storage.FsHandle, engine *engine.Engine, port uint16, opts ...daemons.Option) (server.Server, error) {
	strg, err := api.NewStorage(db, fs)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s storage: %w", serverName, err)
	}
	registrar, err := gateway.NewStorage(db, fs)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s device registry: %w", serverName, err)
	}
	e := server.NewEchoServer()
	srv := server.NewServer(ctx, e, serverName, port)
	RegisterHandlers(e, strg, registrar, engine)
	return &apiServer{server: srv, daemons: daemons.New(ctx, engine, registrar, opts...)}, nil
}

type apiServer struct {
	server  server.Server
	daemons daemon
}

func (s apiServer) Start(quit chan error) {
	s.daemons.Start()
	s.server.Start(quit)
}

func (s apiServer) Shutdown(timeout time.Duration) {
	// Stop taking requests before the worker goes away.
	s.server.Shutdown(timeout)
	s.daemons.Shutdown()
}

func (s apiServer) GetAddress() string {
	return s.server.GetAddress()
}
