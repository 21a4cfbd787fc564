// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "dgctl.yaml")

	_, err := LoadConfig(path)
	require.True(t, errors.Is(err, ErrNoConfig))

	cfg := &Config{
		ActiveContext: "lab",
		Contexts: map[string]Context{
			"lab":  {URL: "http://lab:8080"},
			"prod": {URL: "https://prod", Token: "secret"},
		},
	}
	require.Nil(t, cfg.Save(path))

	loaded, err := LoadConfig(path)
	require.Nil(t, err)
	ctx, err := loaded.GetContext("")
	require.Nil(t, err)
	assert.Equal(t, "http://lab:8080", ctx.URL)
	assert.Empty(t, ctx.Token)

	ctx, err = loaded.GetContext("prod")
	require.Nil(t, err)
	assert.Equal(t, "secret", ctx.Token)

	_, err = loaded.GetContext("nope")
	require.NotNil(t, err)
	assert.Equal(t, []string{"lab", "prod"}, loaded.Names())

	info, err := os.Stat(path)
	require.Nil(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSetContext(t *testing.T) {
	cfg, err := LoadOrNew(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Nil(t, err)

	// The first context becomes active even when not asked to.
	require.Nil(t, cfg.SetContext("lab", Context{URL: "http://lab:8080"}, false))
	assert.Equal(t, "lab", cfg.ActiveContext)
	require.Nil(t, cfg.SetContext("prod", Context{URL: "https://prod"}, false))
	assert.Equal(t, "lab", cfg.ActiveContext)

	for _, u := range []string{"", "lab:8080", "ftp://lab", "http://", "://x"} {
		assert.NotNil(t, cfg.SetContext("bad", Context{URL: u}, true), u)
	}
	assert.NotNil(t, cfg.SetContext("", Context{URL: "http://lab"}, true))
	assert.Equal(t, []string{"lab", "prod"}, cfg.Names())
	assert.Equal(t, "lab", cfg.ActiveContext)
}

func TestConfigErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dgctl.yaml")
	require.Nil(t, os.WriteFile(path, []byte("contexts: [not, a, map"), 0o600))
	_, err := LoadConfig(path)
	require.NotNil(t, err)

	cfg := Config{Contexts: map[string]Context{"empty": {}}}
	_, err = cfg.GetContext("")
	require.NotNil(t, err)
	_, err = cfg.GetContext("empty")
	require.NotNil(t, err)
}
