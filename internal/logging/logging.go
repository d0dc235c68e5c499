// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures the process-wide zerolog logger.
//
// The TUI owns the terminal, so log output goes to a rotated file instead
// of stderr. One-shot CLI commands may additionally log to the console.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where and how much is logged.
type Options struct {
	// Level is the minimum level name (default: info).
	Level string
	// File is the log file path. Empty disables file logging.
	File string
	// MaxSizeMB rotates the file once it grows past this size.
	MaxSizeMB int
	// MaxBackups is how many rotated files are kept.
	MaxBackups int
	// Console also writes human-readable output to this writer.
	Console io.Writer
}

// ParseLevel converts a level name into a zerolog.Level with a safe default.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Setup installs the global logger. The returned closer flushes and closes
// the log file; call it on exit.
func Setup(opts Options) (io.Closer, error) {
	var writers []io.Writer
	var closer io.Closer = nopCloser{}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return nil, err
		}
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			Compress:   false,
		}
		writers = append(writers, rotator)
		closer = rotator
	}

	if opts.Console != nil {
		writers = append(writers, zerolog.ConsoleWriter{Out: opts.Console, TimeFormat: time.Kitchen})
	}

	var out io.Writer = io.Discard
	switch len(writers) {
	case 0:
	case 1:
		out = writers[0]
	default:
		out = zerolog.MultiLevelWriter(writers...)
	}

	level := ParseLevel(opts.Level)
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(out).With().Timestamp().Logger()

	log.Debug().Str("level", level.String()).Str("file", opts.File).Msg("logging initialized")
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
