// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// TestConfig_ConcurrentAccess tests that Global() and SetGlobal() can be
// safely called concurrently.
// Run with: go test -race -v ./internal/config/
func TestConfig_ConcurrentAccess(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)

		go func() {
			defer wg.Done()
			c := Default()
			c.Backend.URL = "http://backend.test:8000"
			SetGlobal(c)
		}()

		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
	}
	wg.Wait()
}

// TestConfig_Default tests that Default() returns a valid config.
func TestConfig_Default(t *testing.T) {
	cfg := Default()

	if cfg.Backend.URL != "http://localhost:8000" {
		t.Errorf("Backend.URL = %q, want http://localhost:8000", cfg.Backend.URL)
	}
	if cfg.PollInterval() != 2*time.Second {
		t.Errorf("PollInterval() = %v, want 2s", cfg.PollInterval())
	}
	if cfg.RevealStep() != 75*time.Millisecond {
		t.Errorf("RevealStep() = %v, want 75ms", cfg.RevealStep())
	}
	if cfg.QueryTimeout() != 0 {
		t.Errorf("QueryTimeout() = %v, want 0", cfg.QueryTimeout())
	}
	if cfg.Voice.Language != "en-US" {
		t.Errorf("Voice.Language = %q, want en-US", cfg.Voice.Language)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
}

// TestConfig_Validate tests configuration validation.
func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		field   string
		wantErr bool
	}{
		{"valid default config", func(c *Config) {}, "", false},
		{"relative backend url", func(c *Config) { c.Backend.URL = "localhost:8000" }, "backend.url", true},
		{"ftp backend url", func(c *Config) { c.Backend.URL = "ftp://host" }, "backend.url", true},
		{"https backend url", func(c *Config) { c.Backend.URL = "https://imaging.example.org" }, "", false},
		{"negative query timeout", func(c *Config) { c.Backend.QueryTimeoutSecs = -1 }, "backend.query_timeout_secs", true},
		{"interval too short", func(c *Config) { c.Progress.IntervalMs = 10 }, "progress.interval_ms", true},
		{"reveal step zero", func(c *Config) { c.Reveal.StepMs = 0 }, "", false},
		{"reveal step too long", func(c *Config) { c.Reveal.StepMs = 5000 }, "reveal.step_ms", true},
		{"invalid theme", func(c *Config) { c.UI.Theme = "neon" }, "ui.theme", true},
		{"invalid log level", func(c *Config) { c.Log.Level = "verbose" }, "log.level", true},
		{"empty voice language", func(c *Config) { c.Voice.Language = "" }, "voice.language", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}
			errs, ok := err.(ValidateErrors)
			if !ok {
				t.Fatalf("expected ValidateErrors, got %T", err)
			}
			if errs[0].Field != tt.field {
				t.Errorf("Field = %q, want %q", errs[0].Field, tt.field)
			}
		})
	}
}

// TestConfig_LoadFromPath tests loading each supported format.
func TestConfig_LoadFromPath(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"config.toml": "[backend]\nurl = \"http://toml.test:9000/\"\n\n[progress]\ninterval_ms = 500\n",
		"config.json": `{"backend": {"url": "http://json.test:9000"}, "progress": {"interval_ms": 500}}`,
		"config.yaml": "backend:\n  url: http://yaml.test:9000\nprogress:\n  interval_ms: 500\n",
	}

	for name, body := range files {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := os.WriteFile(path, []byte(body), 0600); err != nil {
				t.Fatal(err)
			}

			cfg, err := LoadFromPath(path)
			if err != nil {
				t.Fatalf("LoadFromPath failed: %v", err)
			}
			if cfg.Progress.IntervalMs != 500 {
				t.Errorf("IntervalMs = %d, want 500", cfg.Progress.IntervalMs)
			}
			if cfg.Backend.URL[len(cfg.Backend.URL)-1] == '/' {
				t.Errorf("trailing slash not trimmed: %q", cfg.Backend.URL)
			}
			// Keys absent from the file keep their defaults
			if cfg.Reveal.StepMs != 75 || !cfg.Reveal.Animate {
				t.Errorf("reveal defaults lost: %+v", cfg.Reveal)
			}
		})
	}
}

// TestConfig_LoadFromPath_Invalid tests that invalid files are rejected.
func TestConfig_LoadFromPath_Invalid(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.toml")
	os.WriteFile(bad, []byte("this is = = not toml"), 0600)
	if _, err := LoadFromPath(bad); err == nil {
		t.Error("expected error for malformed TOML")
	}

	invalid := filepath.Join(dir, "invalid.toml")
	os.WriteFile(invalid, []byte("[ui]\ntheme = \"neon\"\n"), 0600)
	if _, err := LoadFromPath(invalid); err == nil {
		t.Error("expected validation error for invalid theme")
	}
}

// TestConfig_Load_Defaults tests Load without any config file.
func TestConfig_Load_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("USERPROFILE", os.Getenv("HOME"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Backend.URL != Default().Backend.URL {
		t.Errorf("Backend.URL = %q", cfg.Backend.URL)
	}
}

// TestConfig_EnvOverrides tests environment variable overrides.
func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("MEDCHAT_BACKEND_URL", "http://imaging.internal:8080")
	t.Setenv("MEDCHAT_POLL_INTERVAL_MS", "750")
	t.Setenv("MEDCHAT_LOG_LEVEL", "debug")
	t.Setenv("MEDCHAT_DOWNLOAD_DIR", "/tmp/informes")
	t.Setenv("MEDCHAT_VOICE_LANG", "es-ES")
	t.Setenv("MEDCHAT_NO_ANIM", "true")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Backend.URL != "http://imaging.internal:8080" {
		t.Errorf("Backend.URL = %q", cfg.Backend.URL)
	}
	if cfg.Progress.IntervalMs != 750 {
		t.Errorf("IntervalMs = %d", cfg.Progress.IntervalMs)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
	if cfg.Downloads.Dir != "/tmp/informes" {
		t.Errorf("Downloads.Dir = %q", cfg.Downloads.Dir)
	}
	if cfg.Voice.Language != "es-ES" {
		t.Errorf("Voice.Language = %q", cfg.Voice.Language)
	}
	if cfg.Reveal.Animate {
		t.Error("Reveal.Animate should be disabled")
	}
}

// TestConfig_EnvOverrides_BadNumber tests that malformed numbers are ignored.
func TestConfig_EnvOverrides_BadNumber(t *testing.T) {
	t.Setenv("MEDCHAT_POLL_INTERVAL_MS", "fast")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	if cfg.Progress.IntervalMs != 2000 {
		t.Errorf("IntervalMs = %d, want 2000", cfg.Progress.IntervalMs)
	}
}

// TestConfig_GetSet tests the Get and Set methods.
func TestConfig_GetSet(t *testing.T) {
	cfg := Default()

	if err := cfg.Set("progress.interval_ms", "1500"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	val, err := cfg.Get("progress.interval_ms")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != 1500 {
		t.Errorf("Get() = %v, want 1500", val)
	}

	if err := cfg.Set("reveal.animate", "false"); err != nil {
		t.Fatalf("Set bool failed: %v", err)
	}
	if cfg.Reveal.Animate {
		t.Error("reveal.animate should be false")
	}

	if err := cfg.Set("backend.url", "http://x.test"); err != nil {
		t.Fatalf("Set url failed: %v", err)
	}
	if cfg.Backend.URL != "http://x.test" {
		t.Errorf("Backend.URL = %q", cfg.Backend.URL)
	}

	if _, err := cfg.Get("nonexistent.key"); err == nil {
		t.Error("expected error for nonexistent key")
	}
	if err := cfg.Set("backend", "x"); err == nil {
		t.Error("expected error assigning string to struct")
	}
}

// TestConfig_AllKeysResolvable tests that every listed key resolves.
func TestConfig_AllKeysResolvable(t *testing.T) {
	cfg := Default()
	for _, key := range GetAllKeys() {
		if _, err := cfg.Get(key); err != nil {
			t.Errorf("Get(%q) failed: %v", key, err)
		}
	}
}

// TestConfig_SaveRoundTrip tests that a saved TOML file loads back.
func TestConfig_SaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Backend.URL = "http://saved.test:8000"
	cfg.Voice.Command = "termux-speech-to-text"
	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 && os.PathSeparator == '/' {
		t.Errorf("permissions = %o, want 0600", info.Mode().Perm())
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if loaded.Backend.URL != cfg.Backend.URL || loaded.Voice.Command != cfg.Voice.Command {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}

// TestConfig_Clone tests that Clone returns an independent copy.
func TestConfig_Clone(t *testing.T) {
	cfg := Default()
	clone := cfg.Clone()
	clone.Backend.URL = "http://other.test"

	if cfg.Backend.URL == clone.Backend.URL {
		t.Error("Clone shares state with original")
	}
}
