// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"DEBUG":   zerolog.DebugLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"off":     zerolog.Disabled,
		"":        zerolog.InfoLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestSetup_File(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	path := filepath.Join(t.TempDir(), "logs", "medchat.log")
	closer, err := Setup(Options{Level: "info", File: path, MaxSizeMB: 1})
	require.NoError(t, err)

	log.Debug().Msg("hidden")
	log.Info().Str("component", "test").Msg("visible")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"visible"`)
	assert.Contains(t, string(data), `"component":"test"`)
	assert.NotContains(t, string(data), "hidden")
}

func TestSetup_NoOutputs(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	closer, err := Setup(Options{Level: "debug"})
	require.NoError(t, err)
	assert.NoError(t, closer.Close())
}
