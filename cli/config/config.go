// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package config

import (
	"errors"
	"fmt"
	"maps"
	"net/url"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

var ErrNoConfig = errors.New("config file not found")

// Config is the dgctl configuration: named server contexts and the one used
// when --context is not given.
type Config struct {
	ActiveContext string `yaml:"active_context"`
	Contexts      map[string]Context
}

type Context struct {
	URL string
	// Token is optional; it is sent as a bearer token for servers behind an
	// authenticating proxy.
	Token string `yaml:",omitempty"`
}

// LoadConfig reads the config at path, or at ~/.config/dgctl.yaml when path
// is empty. A missing file is reported as ErrNoConfig.
func LoadConfig(path string) (*Config, error) {
	path, err := resolvePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w at %s", ErrNoConfig, path)
	} else if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadOrNew is LoadConfig that starts from an empty config when none exists yet.
func LoadOrNew(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if errors.Is(err, ErrNoConfig) {
		return &Config{}, nil
	}
	return cfg, err
}

// Save writes the config with owner-only permissions since contexts may hold tokens.
func (c *Config) Save(path string) error {
	path, err := resolvePath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GetContext returns the named context, or the active one when name is empty.
func (c *Config) GetContext(name string) (*Context, error) {
	if name == "" {
		if name = c.ActiveContext; name == "" {
			return nil, errors.New("no default context set")
		}
	}
	ctx, ok := c.Contexts[name]
	if !ok {
		return nil, fmt.Errorf("context '%s' not found", name)
	} else if ctx.URL == "" {
		return nil, fmt.Errorf("context '%s' has no URL configured", name)
	}
	return &ctx, nil
}

// SetContext adds or replaces a context. The server URL must be absolute http(s).
func (c *Config) SetContext(name string, ctx Context, makeActive bool) error {
	if name == "" {
		return errors.New("context name is required")
	}
	u, err := url.Parse(ctx.URL)
	if err != nil {
		return fmt.Errorf("invalid server url: %w", err)
	} else if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid server url %q: expected http(s)://host[:port]", ctx.URL)
	}
	if c.Contexts == nil {
		c.Contexts = make(map[string]Context)
	}
	c.Contexts[name] = ctx
	if makeActive || c.ActiveContext == "" {
		c.ActiveContext = name
	}
	return nil
}

// Names lists the context names in order.
func (c *Config) Names() []string {
	return slices.Sorted(maps.Keys(c.Contexts))
}

func resolvePath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config path: %w", err)
	}
	return filepath.Join(home, ".config", "dgctl.yaml"), nil
}
