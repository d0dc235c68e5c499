// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jeranaias/medchat-tui/internal/backend"
	"github.com/jeranaias/medchat-tui/internal/config"
	"github.com/jeranaias/medchat-tui/internal/logging"
	"github.com/jeranaias/medchat-tui/internal/report"
)

// Build information, set with -ldflags at release time.
var (
	Version = "dev"
	Commit  = ""
)

// app carries what every command needs once flags are parsed.
type app struct {
	configPath string
	backendURL string
	logLevel   string
	verbose    bool

	cfg       *config.Config
	logCloser io.Closer
}

// NewRootCommand builds the medchat command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "medchat",
		Short: "Terminal client for the medical imaging assistant",
		Long: "medchat talks to the imaging-assistant backend: ask questions, follow\n" +
			"the diagnosis progress log and download the generated PDF report.\n\n" +
			"Run without arguments to open the interactive chat.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "config file (default ~/.medchat/config.toml)")
	flags.StringVar(&a.backendURL, "backend", "", "backend origin, overrides backend.url")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "also log to stderr")

	root.AddCommand(
		askCmd(a),
		chatCmd(a),
		progressCmd(a),
		downloadCmd(a),
		speakCmd(a),
		configCmd(a),
		versionCmd(),
	)
	return root
}

// Execute runs the command tree and returns the process exit code.
func Execute() int {
	root := NewRootCommand()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, paint(ErrorStyle, "Error:", ColorsEnabled()), err)
		return ExitCode(err)
	}
	return ExitSuccess
}

// =============================================================================
// SETUP
// =============================================================================

// loadConfig resolves the configuration from --config or the default
// locations and applies flag overrides.
func (a *app) loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if a.configPath != "" {
		cfg, err = config.LoadFromPath(a.configPath)
		if err != nil {
			return nil, &ConfigError{Cause: err}
		}
	} else {
		cfg, err = config.Load()
		if cfg == nil {
			return nil, &ConfigError{Cause: err}
		}
		if err != nil {
			// A broken file was skipped in favour of defaults
			log.Warn().Err(err).Msg("config file ignored")
		}
	}

	if a.backendURL != "" {
		cfg.Backend.URL = a.backendURL
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, &ConfigError{Cause: err}
	}
	return cfg, nil
}

// setup loads the configuration and installs the logger.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	a.cfg = cfg
	config.SetGlobal(cfg)

	opts := logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.LogFile(),
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	}
	if a.verbose {
		opts.Console = cmd.ErrOrStderr()
	}
	closer, err := logging.Setup(opts)
	if err != nil {
		return errors.Wrap(err, "logging")
	}
	a.logCloser = closer

	log.Debug().
		Str("command", cmd.CommandPath()).
		Str("backend", cfg.Backend.URL).
		Msg("starting")
	return nil
}

func (a *app) close() {
	if a.logCloser != nil {
		a.logCloser.Close()
		a.logCloser = nil
	}
}

// client builds a backend client from the loaded configuration.
func (a *app) client() *backend.Client {
	return backend.NewClientWithConfig(&backend.ClientConfig{
		BaseURL:         a.cfg.Backend.URL,
		QueryTimeout:    a.cfg.QueryTimeout(),
		ProgressTimeout: a.cfg.ProgressTimeout(),
	})
}

// downloadDir returns where reports are saved.
func (a *app) downloadDir() string {
	if a.cfg.Downloads.Dir != "" {
		return a.cfg.Downloads.Dir
	}
	return report.DefaultDir()
}
