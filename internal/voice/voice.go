// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package voice captures a spoken question through an external speech
// recognizer and returns it as a single final transcript.
package voice

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultLanguage is the recognition language.
	DefaultLanguage = "en-US"

	// DefaultTimeout bounds a single capture.
	DefaultTimeout = 30 * time.Second

	// LanguagePlaceholder in a command line is replaced with the language.
	LanguagePlaceholder = "{lang}"
)

// ErrUnavailable is returned when no recognizer is configured or installed.
var ErrUnavailable = errors.New("speech recognition is not available")

// ErrNoSpeech is returned when the recognizer produced no transcript.
var ErrNoSpeech = errors.New("no speech recognized")

// knownRecognizers are commands tried in order when none is configured.
// Each must print the final transcript on stdout.
var knownRecognizers = []string{
	"termux-speech-to-text",
}

// Recognizer captures one utterance and returns its transcript.
type Recognizer interface {
	Listen(ctx context.Context) (string, error)
}

// Config holds recognizer options.
type Config struct {
	// Command is the recognizer command line. "{lang}" is replaced with
	// Language. Empty means auto-detect.
	Command string

	// Language is the recognition language (default: en-US).
	Language string

	// Timeout bounds a capture (default: 30s).
	Timeout time.Duration
}

// =============================================================================
// COMMAND RECOGNIZER
// =============================================================================

// CommandRecognizer runs an external program that records one utterance
// and prints the transcript. Only the last non-empty output line is used,
// so tools that print interim results still yield a single final one.
type CommandRecognizer struct {
	path     string
	args     []string
	language string
	timeout  time.Duration
}

// NewCommandRecognizer resolves command on PATH.
func NewCommandRecognizer(command string, config Config) (*CommandRecognizer, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, ErrUnavailable
	}
	path, err := exec.LookPath(fields[0])
	if err != nil {
		return nil, errors.Wrapf(ErrUnavailable, "%s not found", fields[0])
	}

	lang := config.Language
	if lang == "" {
		lang = DefaultLanguage
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	args := make([]string, 0, len(fields)-1)
	for _, f := range fields[1:] {
		args = append(args, strings.ReplaceAll(f, LanguagePlaceholder, lang))
	}

	return &CommandRecognizer{path: path, args: args, language: lang, timeout: timeout}, nil
}

// Listen runs the recognizer and returns the normalized transcript.
func (r *CommandRecognizer) Listen(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.path, r.args...)
	cmd.Env = append(os.Environ(), "MEDCHAT_VOICE_LANG="+r.language)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	log.Debug().Str("command", r.path).Str("language", r.language).Msg("listening")

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", errors.Wrap(ctx.Err(), "speech capture")
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", errors.Wrapf(err, "recognizer failed: %s", msg)
		}
		return "", errors.Wrap(err, "recognizer failed")
	}

	transcript := Normalize(lastLine(stdout.String()))
	if transcript == "" {
		return "", ErrNoSpeech
	}
	return transcript, nil
}

// Language returns the recognition language.
func (r *CommandRecognizer) Language() string {
	return r.language
}

// =============================================================================
// DETECTION
// =============================================================================

// Detect returns the configured recognizer, or the first known one found on
// PATH. It returns ErrUnavailable when there is none.
func Detect(config Config) (Recognizer, error) {
	if config.Command != "" {
		r, err := NewCommandRecognizer(config.Command, config)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
	for _, name := range knownRecognizers {
		if r, err := NewCommandRecognizer(name, config); err == nil {
			return r, nil
		}
	}
	return nil, ErrUnavailable
}

// Normalize composes the transcript to NFC and collapses whitespace.
func Normalize(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
