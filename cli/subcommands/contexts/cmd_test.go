// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package contexts

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foundriesio/dg-shadow/cli/config"
)

func TestAddContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dgctl.yaml")

	require.Nil(t, addContext("lab", "http://lab:8080", "", path, true))
	require.Nil(t, addContext("prod", "https://prod", "tok", path, false))

	cfg, err := config.LoadConfig(path)
	require.Nil(t, err)
	assert.Equal(t, "lab", cfg.ActiveContext)
	assert.Len(t, cfg.Contexts, 2)
	assert.Equal(t, "tok", cfg.Contexts["prod"].Token)

	require.Nil(t, addContext("prod", "https://prod2", "", path, true))
	cfg, err = config.LoadConfig(path)
	require.Nil(t, err)
	assert.Equal(t, "prod", cfg.ActiveContext)
	assert.Equal(t, "https://prod2", cfg.Contexts["prod"].URL)

	require.NotNil(t, addContext("bad", "lab:8080", "", path, true))
	require.NotNil(t, addContext("bad", "ftp://lab", "", path, true))
	cfg, err = config.LoadConfig(path)
	require.Nil(t, err)
	assert.Equal(t, []string{"lab", "prod"}, cfg.Names())
	assert.Equal(t, "prod", cfg.ActiveContext)
}
