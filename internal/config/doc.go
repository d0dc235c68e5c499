// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for medchat.
//
// Supports TOML, JSON and YAML configuration formats, with sensible defaults,
// environment variable overrides, validation and live reload.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - BackendConfig: Backend origin and timeouts
//   - ProgressConfig, RevealConfig: Poll cadence and answer animation
//   - Watcher: fsnotify-based reload of a config file
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (MEDCHAT_*)
//   - ~/.medchat/config.toml
//   - ~/.medchat/config.json
//   - ~/.medchat/config.yaml
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Access settings:
//
//	client := backend.NewClientWithConfig(&backend.ClientConfig{
//	    BaseURL:      cfg.Backend.URL,
//	    QueryTimeout: cfg.QueryTimeout(),
//	})
package config
