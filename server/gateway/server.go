// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package gateway

import (
	"fmt"

	"github.com/foundriesio/dg-shadow/context"
	"github.com/foundriesio/dg-shadow/engine"
	"github.com/foundriesio/dg-shadow/server"
	storage "github.com/foundriesio/dg-shadow/storage/gateway"
)

const serverName = "gateway-api"

func NewServer(ctx context.Context, db *storage.DbHandle, fs *storage.FsHandle, engine *engine.Engine, port uint16) (server.Server, error) {
	strg, err := storage.NewStorage(db, fs)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s storage: %w", serverName, err)
	}
	e := server.NewEchoServer()
	srv := server.NewServer(ctx, e, serverName, port)
	RegisterHandlers(e, strg, engine)
	return srv, nil
}
