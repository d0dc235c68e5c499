// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jeranaias/medchat-tui/internal/config"
	"github.com/jeranaias/medchat-tui/internal/util"
)

func configCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or edit the configuration",
		// Subcommands load the file themselves so a broken config can
		// still be inspected and rewritten.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
	}
	cmd.AddCommand(
		configShowCmd(a),
		configPathCmd(a),
		configInitCmd(a),
		configGetCmd(a),
		configSetCmd(a),
	)
	return cmd
}

// filePath is the config file the config subcommands operate on.
func (a *app) filePath() (string, error) {
	if a.configPath != "" {
		return a.configPath, nil
	}
	return config.ConfigPathTOML()
}

func configShowCmd(a *app) *cobra.Command {
	var outFormat string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			switch strings.ToLower(outFormat) {
			case "toml", "":
				return toml.NewEncoder(out).Encode(cfg)
			case "json":
				_, err := fmt.Fprintln(out, cfg.String())
				return err
			case "yaml", "yml":
				data, err := yaml.Marshal(cfg)
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			default:
				return usageErrorf("unknown format %q (toml, json, yaml)", outFormat)
			}
		},
	}
	cmd.Flags().StringVarP(&outFormat, "format", "f", "toml", "output format: toml, json, yaml")
	return cmd
}

func configPathCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.filePath()
			if err != nil {
				return &ConfigError{Cause: err}
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			if _, err := os.Stat(path); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), paint(DimStyle, "(not created yet, run 'medchat config init')", useColor(cmd.ErrOrStderr())))
			}
			return nil
		},
	}
}

func configInitCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.filePath()
			if err != nil {
				return &ConfigError{Cause: err}
			}
			if _, err := os.Stat(path); err == nil && !force {
				return usageErrorf("%s already exists (use --force to overwrite)", path)
			}
			if err := writeConfigFile(config.Default(), path); err != nil {
				return &ConfigError{Cause: err}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Configuración creada en %s\n",
				paint(SuccessStyle, "[OK]", useColor(cmd.OutOrStdout())), path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func configGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "get KEY",
		Short:     "Print one setting (dot notation, e.g. backend.url)",
		Args:      cobra.ExactArgs(1),
		ValidArgs: config.GetAllKeys(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			val, err := cfg.Get(args[0])
			if err != nil {
				return usageErrorf("%v", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), val)
			return nil
		},
	}
}

func configSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Change one setting in the config file",
		Long: "Change one setting in the config file. Environment overrides are not\n" +
			"written back. A running chat UI picks the change up immediately.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.filePath()
			if err != nil {
				return &ConfigError{Cause: err}
			}
			cfg, err := readConfigFile(path)
			if err != nil {
				return &ConfigError{Cause: err}
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return usageErrorf("%v", err)
			}
			cfg.SetDefaults()
			if err := cfg.Validate(); err != nil {
				return &ConfigError{Cause: err}
			}
			if err := writeConfigFile(cfg, path); err != nil {
				return &ConfigError{Cause: err}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %s\n",
				paint(SuccessStyle, "[OK]", useColor(cmd.OutOrStdout())), args[0], args[1])
			return nil
		},
	}
}

// =============================================================================
// FILE HELPERS
// =============================================================================

// readConfigFile loads path over the defaults without environment
// overrides. A missing file yields the defaults.
func readConfigFile(path string) (*config.Config, error) {
	cfg := config.Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = config.LoadJSON(cfg, path)
	case ".yaml", ".yml":
		err = config.LoadYAML(cfg, path)
	default:
		err = config.LoadTOML(cfg, path)
	}
	return cfg, err
}

// writeConfigFile saves cfg in the format the extension of path names.
func writeConfigFile(cfg *config.Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errors.Wrap(err, "create config dir")
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return config.SaveJSON(cfg, path)
	case ".yaml", ".yml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return errors.Wrap(err, "encode YAML")
		}
		return util.AtomicWriteFile(path, data, 0600)
	default:
		return config.SaveTOML(cfg, path)
	}
}
