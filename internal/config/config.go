// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for medchat.
//
// Supports TOML, JSON and YAML configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.medchat/config.toml
//   - ~/.medchat/config.json
//   - ~/.medchat/config.yaml
//   - Built-in defaults
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/jeranaias/medchat-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete medchat configuration.
type Config struct {
	Version string `toml:"version" json:"version" yaml:"version"`

	// Backend connection
	Backend BackendConfig `toml:"backend" json:"backend" yaml:"backend"`

	// Progress log polling
	Progress ProgressConfig `toml:"progress" json:"progress" yaml:"progress"`

	// Word-by-word answer reveal
	Reveal RevealConfig `toml:"reveal" json:"reveal" yaml:"reveal"`

	// Speech input
	Voice VoiceConfig `toml:"voice" json:"voice" yaml:"voice"`

	// Speech output
	Audio AudioConfig `toml:"audio" json:"audio" yaml:"audio"`

	// Report downloads
	Downloads DownloadsConfig `toml:"downloads" json:"downloads" yaml:"downloads"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui" yaml:"ui"`

	// Logging
	Log LogConfig `toml:"log" json:"log" yaml:"log"`
}

// BackendConfig contains backend connection settings.
type BackendConfig struct {
	// URL is the backend origin
	URL string `toml:"url" json:"url" yaml:"url"`
	// QueryTimeoutSecs bounds a chat query (0 = no timeout)
	QueryTimeoutSecs int `toml:"query_timeout_secs" json:"query_timeout_secs" yaml:"query_timeout_secs"`
	// ProgressTimeoutSecs bounds a progress fetch
	ProgressTimeoutSecs int `toml:"progress_timeout_secs" json:"progress_timeout_secs" yaml:"progress_timeout_secs"`
}

// ProgressConfig contains progress polling settings.
type ProgressConfig struct {
	// IntervalMs is the time between polls in milliseconds
	IntervalMs int `toml:"interval_ms" json:"interval_ms" yaml:"interval_ms"`
	// LogLines is how many of the newest log lines the panel shows
	LogLines int `toml:"log_lines" json:"log_lines" yaml:"log_lines"`
}

// RevealConfig contains answer reveal settings.
type RevealConfig struct {
	// Animate enables the word-by-word reveal
	Animate bool `toml:"animate" json:"animate" yaml:"animate"`
	// StepMs is the delay between words in milliseconds
	StepMs int `toml:"step_ms" json:"step_ms" yaml:"step_ms"`
}

// VoiceConfig contains speech recognition settings.
type VoiceConfig struct {
	// Command is the recognizer command line ("{lang}" is substituted).
	// Empty means auto-detect.
	Command string `toml:"command" json:"command" yaml:"command"`
	// Language is the recognition language
	Language string `toml:"language" json:"language" yaml:"language"`
	// TimeoutSecs bounds one capture
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs" yaml:"timeout_secs"`
}

// AudioConfig contains speech playback settings.
type AudioConfig struct {
	// Player is the audio player command line. Empty means auto-detect.
	Player string `toml:"player" json:"player" yaml:"player"`
}

// DownloadsConfig contains report download settings.
type DownloadsConfig struct {
	// Dir is where reports are saved (empty = ~/Downloads or cwd)
	Dir string `toml:"dir" json:"dir" yaml:"dir"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme" json:"theme" yaml:"theme"`
	// ShowProgress displays the progress panel under answers
	ShowProgress bool `toml:"show_progress" json:"show_progress" yaml:"show_progress"`
	// ShowLatency displays response times next to answers
	ShowLatency bool `toml:"show_latency" json:"show_latency" yaml:"show_latency"`
}

// LogConfig contains log file settings.
type LogConfig struct {
	// Level is the minimum level: trace, debug, info, warn, error
	Level string `toml:"level" json:"level" yaml:"level"`
	// File is the log file path (empty = ~/.medchat/logs/medchat.log)
	File string `toml:"file" json:"file" yaml:"file"`
	// MaxSizeMB is the size at which the log is rotated
	MaxSizeMB int `toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`
	// MaxBackups is how many rotated files are kept
	MaxBackups int `toml:"max_backups" json:"max_backups" yaml:"max_backups"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Backend: BackendConfig{
			URL:                 "http://localhost:8000",
			QueryTimeoutSecs:    0, // the pipeline can run for minutes
			ProgressTimeoutSecs: 10,
		},

		Progress: ProgressConfig{
			IntervalMs: 2000,
			LogLines:   8,
		},

		Reveal: RevealConfig{
			Animate: true,
			StepMs:  75,
		},

		Voice: VoiceConfig{
			Language:    "en-US",
			TimeoutSecs: 30,
		},

		UI: UIConfig{
			Theme:        "auto",
			ShowProgress: true,
			ShowLatency:  true,
		},

		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the medchat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "could not determine home directory")
	}
	return filepath.Join(home, ".medchat"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	return configPath("config.toml")
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	return configPath("config.json")
}

// ConfigPathYAML returns the path to the YAML config file.
func ConfigPathYAML() (string, error) {
	return configPath("config.yaml")
}

func configPath(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML, then JSON, then YAML, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	var loadErr error

	candidates := []func() (string, error){ConfigPathTOML, ConfigPathJSON, ConfigPathYAML}
	for _, pathFn := range candidates {
		path, err := pathFn()
		if err != nil {
			continue
		}
		if _, statErr := os.Stat(path); statErr != nil {
			continue
		}
		cfg, err := LoadFromPath(path)
		if err != nil {
			loadErr = err
			continue
		}
		return cfg, nil
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	// Defaults, with any load error for informational purposes
	return cfg, loadErr
}

// LoadTOML loads configuration from a TOML file into cfg.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return errors.Wrap(err, "failed to decode TOML file")
	}
	return nil
}

// LoadJSON loads configuration from a JSON file into cfg.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "failed to read JSON file")
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return errors.Wrap(err, "failed to decode JSON file")
	}
	return nil
}

// LoadYAML loads configuration from a YAML file into cfg.
func LoadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "failed to read YAML file")
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.Wrap(err, "failed to decode YAML file")
	}
	return nil
}

// LoadFromPath loads configuration from a specific file path with full
// validation. The format follows the file extension; anything that is not
// .json, .yaml or .yml is read as TOML. Keys missing from the file keep
// their default values.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = LoadJSON(cfg, path)
	case ".yaml", ".yml":
		err = LoadYAML(cfg, path)
	default:
		err = LoadTOML(cfg, path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load config from %s", path)
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
// RELIABILITY: Atomic write with fsync prevents a half-written config
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# medchat configuration file")
	fmt.Fprintln(&buf, "# Generated by medchat - edit with care")
	fmt.Fprintln(&buf, "")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return errors.Wrap(err, "failed to encode config")
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode config")
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	// Backend
	if u, err := url.Parse(c.Backend.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "backend.url",
			Message: fmt.Sprintf("invalid URL '%s', must be an absolute http(s) URL", c.Backend.URL),
		})
	}
	if c.Backend.QueryTimeoutSecs < 0 {
		errs = append(errs, ValidationError{Field: "backend.query_timeout_secs", Message: "must not be negative"})
	}
	if c.Backend.ProgressTimeoutSecs < 1 {
		errs = append(errs, ValidationError{Field: "backend.progress_timeout_secs", Message: "must be at least 1"})
	}

	// Progress
	if c.Progress.IntervalMs < 100 {
		errs = append(errs, ValidationError{
			Field:   "progress.interval_ms",
			Message: fmt.Sprintf("interval %dms is too short, minimum is 100ms", c.Progress.IntervalMs),
		})
	}
	if c.Progress.LogLines < 1 || c.Progress.LogLines > 100 {
		errs = append(errs, ValidationError{Field: "progress.log_lines", Message: "must be between 1 and 100"})
	}

	// Reveal
	if c.Reveal.StepMs < 0 || c.Reveal.StepMs > 2000 {
		errs = append(errs, ValidationError{Field: "reveal.step_ms", Message: "must be between 0 and 2000"})
	}

	// Voice
	if c.Voice.TimeoutSecs < 1 {
		errs = append(errs, ValidationError{Field: "voice.timeout_secs", Message: "must be at least 1"})
	}
	if c.Voice.Language == "" {
		errs = append(errs, ValidationError{Field: "voice.language", Message: "must not be empty"})
	}

	// UI
	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	// Log
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true, "disabled": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: trace, debug, info, warn, error, disabled", c.Log.Level),
		})
	}
	if c.Log.MaxSizeMB < 1 {
		errs = append(errs, ValidationError{Field: "log.max_size_mb", Message: "must be at least 1"})
	}
	if c.Log.MaxBackups < 0 {
		errs = append(errs, ValidationError{Field: "log.max_backups", Message: "must not be negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults sets default values for any missing or zero-value fields.
// Zero is a meaningful value for the query timeout and the reveal step,
// so those are left alone.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.Backend.URL == "" {
		c.Backend.URL = defaults.Backend.URL
	}
	c.Backend.URL = strings.TrimRight(c.Backend.URL, "/")
	if c.Backend.ProgressTimeoutSecs == 0 {
		c.Backend.ProgressTimeoutSecs = defaults.Backend.ProgressTimeoutSecs
	}
	if c.Progress.IntervalMs == 0 {
		c.Progress.IntervalMs = defaults.Progress.IntervalMs
	}
	if c.Progress.LogLines == 0 {
		c.Progress.LogLines = defaults.Progress.LogLines
	}
	if c.Voice.Language == "" {
		c.Voice.Language = defaults.Voice.Language
	}
	if c.Voice.TimeoutSecs == 0 {
		c.Voice.TimeoutSecs = defaults.Voice.TimeoutSecs
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = defaults.Log.MaxSizeMB
	}
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

// QueryTimeout returns the chat query timeout (0 = none).
func (c *Config) QueryTimeout() time.Duration {
	return time.Duration(c.Backend.QueryTimeoutSecs) * time.Second
}

// ProgressTimeout returns the progress fetch timeout.
func (c *Config) ProgressTimeout() time.Duration {
	return time.Duration(c.Backend.ProgressTimeoutSecs) * time.Second
}

// PollInterval returns the time between progress polls.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Progress.IntervalMs) * time.Millisecond
}

// RevealStep returns the delay between revealed words.
func (c *Config) RevealStep() time.Duration {
	return time.Duration(c.Reveal.StepMs) * time.Millisecond
}

// VoiceTimeout returns the maximum length of one capture.
func (c *Config) VoiceTimeout() time.Duration {
	return time.Duration(c.Voice.TimeoutSecs) * time.Second
}

// LogFile returns the log file path, resolving the default location.
func (c *Config) LogFile() string {
	if c.Log.File != "" {
		return c.Log.File
	}
	dir, err := ConfigDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "medchat.log")
	}
	return filepath.Join(dir, "logs", "medchat.log")
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
// Malformed numeric values are ignored.
//
// Supported environment variables:
//   - MEDCHAT_BACKEND_URL: overrides backend.url
//   - MEDCHAT_POLL_INTERVAL_MS: overrides progress.interval_ms
//   - MEDCHAT_LOG_LEVEL: overrides log.level
//   - MEDCHAT_DOWNLOAD_DIR: overrides downloads.dir
//   - MEDCHAT_VOICE_LANG: overrides voice.language
//   - MEDCHAT_NO_ANIM: set to "1" or "true" to disable the reveal animation
func (c *Config) ApplyEnvOverrides() {
	if u := os.Getenv("MEDCHAT_BACKEND_URL"); u != "" {
		c.Backend.URL = u
	}

	if v := os.Getenv("MEDCHAT_POLL_INTERVAL_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			c.Progress.IntervalMs = ms
		}
	}

	if level := os.Getenv("MEDCHAT_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}

	if dir := os.Getenv("MEDCHAT_DOWNLOAD_DIR"); dir != "" {
		c.Downloads.Dir = dir
	}

	if lang := os.Getenv("MEDCHAT_VOICE_LANG"); lang != "" {
		c.Voice.Language = lang
	}

	if noAnim := os.Getenv("MEDCHAT_NO_ANIM"); noAnim != "" {
		c.Reveal.Animate = !(noAnim == "1" || strings.ToLower(noAnim) == "true")
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "backend.url").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation (e.g., "progress.interval_ms").
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return errors.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

// lookup resolves a dotted key to its struct field.
func (c *Config) lookup(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, errors.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, errors.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, errors.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return errors.Wrap(err, "invalid integer value")
			}
			field.SetInt(intVal)
			return nil
		case reflect.Bool:
			lower := strings.ToLower(strVal)
			field.SetBool(lower == "1" || lower == "true" || lower == "yes")
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return errors.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) && val.Kind() != reflect.String {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return errors.Errorf("cannot assign %T to %s", value, field.Type())
}

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"version",
		"backend.url",
		"backend.query_timeout_secs",
		"backend.progress_timeout_secs",
		"progress.interval_ms",
		"progress.log_lines",
		"reveal.animate",
		"reveal.step_ms",
		"voice.command",
		"voice.language",
		"voice.timeout_secs",
		"audio.player",
		"downloads.dir",
		"ui.theme",
		"ui.show_progress",
		"ui.show_latency",
		"log.level",
		"log.file",
		"log.max_size_mb",
		"log.max_backups",
	}
}

// Clone creates a copy of the configuration. Config holds only value types.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns an indented JSON representation for display.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		}
		if cfg == nil {
			cfg = Default()
		}
		globalConfigMu.Lock()
		globalConfig = cfg
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigOnce.Do(func() {})
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
