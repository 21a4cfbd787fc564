// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package api

import "context"

type apiContextKey int

const (
	clientKey apiContextKey = iota
)

// CtxGetApi returns the client the root command configured from the active
// context. Subcommands that skip configuration must not call it.
func CtxGetApi(ctx context.Context) *Api {
	a, ok := ctx.Value(clientKey).(*Api)
	if !ok {
		panic("dgctl: no server context configured for this command")
	}
	return a
}

func CtxWithApi(ctx context.Context, api *Api) context.Context {
	return context.WithValue(ctx, clientKey, api)
}
