// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package main

import (
	"fmt"
	"os"

	"github.com/alexflint/go-arg"
	"github.com/joho/godotenv"

	"github.com/foundriesio/dg-shadow/context"
)

type CommonArgs struct {
	DataDir  string `arg:"required,env:DG_DATA_DIR" help:"Directory to store data"`
	LogLevel string `arg:"env:DG_LOG_LEVEL" default:"info" help:"debug, info, warn or error"`

	Serve *ServeCmd `arg:"subcommand:serve" help:"Run the REST API and device-gateway services"`

	ctx context.Context
}

func main() {
	// A missing .env file is normal; the environment and flags still apply.
	_ = godotenv.Load()

	var args CommonArgs
	p := arg.MustParse(&args)

	log, err := context.InitLogger(args.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		os.Exit(1)
		return
	}
	args.ctx = context.CtxWithLog(context.Background(), log)

	switch {
	case args.Serve != nil:
		err = args.Serve.Run(args)
	default:
		p.Fail("missing required subcommand")
	}
	if err != nil {
		log.Error("command failed", "error", err)
		os.Exit(1)
	}
}
