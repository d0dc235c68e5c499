// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package audio plays synthesized speech through a local command-line
// player.
package audio

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/medchat-tui/internal/backend"
)

// ErrNoPlayer is returned when no audio player is configured or installed.
var ErrNoPlayer = errors.New("no audio player available")

// Player plays an audio payload to completion.
type Player interface {
	Play(ctx context.Context, audio *backend.Audio) error
}

// candidate is a known player and the flags that make it play one file
// and exit without a window.
type candidate struct {
	name string
	args []string
}

var knownPlayers = []candidate{
	{"ffplay", []string{"-nodisp", "-autoexit", "-loglevel", "quiet"}},
	{"mpv", []string{"--no-video", "--really-quiet"}},
	{"mpg123", []string{"-q"}},
	{"afplay", nil},
	{"paplay", nil},
}

// =============================================================================
// COMMAND PLAYER
// =============================================================================

// CommandPlayer writes the payload to a temporary file and runs an external
// player on it.
type CommandPlayer struct {
	path string
	args []string
}

// NewCommandPlayer resolves command on PATH. The command line may carry
// extra flags; the audio file is appended as the last argument.
func NewCommandPlayer(command string) (*CommandPlayer, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, ErrNoPlayer
	}
	path, err := exec.LookPath(fields[0])
	if err != nil {
		return nil, errors.Wrapf(ErrNoPlayer, "%s not found", fields[0])
	}
	return &CommandPlayer{path: path, args: fields[1:]}, nil
}

// Detect returns the configured player, or the first known one on PATH.
func Detect(command string) (Player, error) {
	if command != "" {
		p, err := NewCommandPlayer(command)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	for _, c := range knownPlayers {
		if path, err := exec.LookPath(c.name); err == nil {
			return &CommandPlayer{path: path, args: c.args}, nil
		}
	}
	return nil, ErrNoPlayer
}

// Play blocks until playback finishes or ctx is done.
func (p *CommandPlayer) Play(ctx context.Context, audio *backend.Audio) error {
	if audio == nil || len(audio.Data) == 0 {
		return errors.New("empty audio payload")
	}

	f, err := os.CreateTemp("", "medchat-speech-*"+Extension(audio.ContentType))
	if err != nil {
		return errors.Wrap(err, "create audio file")
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(audio.Data); err != nil {
		f.Close()
		return errors.Wrap(err, "write audio file")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "close audio file")
	}

	var stderr bytes.Buffer
	args := append(append([]string(nil), p.args...), f.Name())
	cmd := exec.CommandContext(ctx, p.path, args...)
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return errors.Wrap(ctx.Err(), "playback")
		}
		return errors.Wrapf(err, "player failed: %s", strings.TrimSpace(stderr.String()))
	}

	log.Debug().
		Str("player", p.path).
		Int("bytes", len(audio.Data)).
		Dur("elapsed", time.Since(start)).
		Msg("speech played")
	return nil
}

// Extension returns the file extension for an audio content type. MP3 is
// assumed when the type is missing or unknown.
func Extension(contentType string) string {
	ct := strings.ToLower(contentType)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	switch strings.TrimSpace(ct) {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/ogg":
		return ".ogg"
	case "audio/flac":
		return ".flac"
	default:
		return ".mp3"
	}
}
