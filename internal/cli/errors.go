// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/jeranaias/medchat-tui/internal/backend"
	"github.com/jeranaias/medchat-tui/internal/config"
	"github.com/jeranaias/medchat-tui/internal/report"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitNetworkError indicates the backend could not be reached
	ExitNetworkError = 5
	// ExitNotFoundError indicates a resource was not found
	ExitNotFoundError = 7
	// ExitTimeoutError indicates an operation timed out
	ExitTimeoutError = 8
	// ExitInterrupted indicates the user cancelled the operation
	ExitInterrupted = 130
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError reports a command invoked with bad arguments.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

// usageErrorf builds a UsageError.
func usageErrorf(format string, args ...interface{}) error {
	return &UsageError{Message: fmt.Sprintf(format, args...)}
}

// ConfigError wraps a failure to load or save configuration.
type ConfigError struct {
	Cause error
}

func (e *ConfigError) Error() string {
	return "config: " + e.Cause.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// ExitCode maps an error returned by a command to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usage *UsageError
	var cfgErr *ConfigError
	var invalid config.ValidateErrors

	switch {
	case errors.As(err, &usage), errors.Is(err, report.ErrInvalidName):
		return ExitUsageError
	case errors.As(err, &cfgErr), errors.As(err, &invalid):
		return ExitConfigError
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case backend.IsTimeout(err), errors.Is(err, context.DeadlineExceeded):
		return ExitTimeoutError
	case backend.IsNotFound(err):
		return ExitNotFoundError
	case backend.IsUnreachable(err):
		return ExitNetworkError
	}
	return ExitGeneralError
}
