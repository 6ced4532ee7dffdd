// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads service configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig indicates a configuration value failed validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	// Host to bind. Default "0.0.0.0".
	Host string `yaml:"host"`

	// Port to listen on. Default 8093.
	Port int `yaml:"port"`
}

// ScanConfig configures project scanning.
type ScanConfig struct {
	// Include holds glob patterns selecting source files. Empty means
	// the built-in Python defaults.
	Include []string `yaml:"include"`

	// Ignore holds gitignore-syntax exclusion rules applied on top of
	// the project's own .gitignore.
	Ignore []string `yaml:"ignore"`

	// Workers bounds the parse worker pool. Default GOMAXPROCS.
	Workers int `yaml:"workers"`

	// MaxFileSize caps individual source files in bytes. 0 keeps the
	// parser default.
	MaxFileSize int `yaml:"max_file_size"`

	// MaxNodes and MaxEdges cap graph size. 0 keeps defaults.
	MaxNodes int `yaml:"max_nodes"`
	MaxEdges int `yaml:"max_edges"`
}

// SnapshotConfig configures graph persistence.
type SnapshotConfig struct {
	// Enabled turns snapshot persistence on.
	Enabled bool `yaml:"enabled"`

	// Path is the BadgerDB directory. Required when Enabled.
	Path string `yaml:"path"`
}

// WatchConfig configures filesystem watching.
type WatchConfig struct {
	// Enabled turns on automatic rescans on file changes.
	Enabled bool `yaml:"enabled"`

	// DebounceMillis is the quiet period after the last change before
	// a rescan fires. Default 500.
	DebounceMillis int `yaml:"debounce_millis"`
}

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig   `yaml:"server"`
	Scan      ScanConfig     `yaml:"scan"`
	Snapshots SnapshotConfig `yaml:"snapshots"`
	Watch     WatchConfig    `yaml:"watch"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8093,
		},
		Scan: ScanConfig{
			Workers: runtime.GOMAXPROCS(0),
		},
		Watch: WatchConfig{
			DebounceMillis: 500,
		},
	}
}

// Load reads a YAML config file and applies defaults for absent values.
//
// Outputs:
//
//	Config - merged configuration.
//	error  - read failure, YAML syntax error, or validation failure.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.Server.Host == "" {
		c.Server.Host = def.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = def.Server.Port
	}
	if c.Scan.Workers <= 0 {
		c.Scan.Workers = def.Scan.Workers
	}
	if c.Watch.DebounceMillis <= 0 {
		c.Watch.DebounceMillis = def.Watch.DebounceMillis
	}
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	if c.Scan.MaxFileSize < 0 {
		return fmt.Errorf("%w: max_file_size must be non-negative", ErrInvalidConfig)
	}
	if c.Scan.MaxNodes < 0 || c.Scan.MaxEdges < 0 {
		return fmt.Errorf("%w: graph caps must be non-negative", ErrInvalidConfig)
	}
	if c.Snapshots.Enabled && c.Snapshots.Path == "" {
		return fmt.Errorf("%w: snapshots.path is required when snapshots are enabled", ErrInvalidConfig)
	}
	return nil
}

// Addr returns the server bind address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
