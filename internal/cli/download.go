// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/jeranaias/medchat-tui/internal/report"
)

func downloadCmd(a *app) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "download NAME",
		Short: "Download a generated PDF report",
		Example: `  medchat download reporte_P001.pdf
  medchat download report_brain_mri.pdf --dir ./informes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			if dir == "" {
				dir = a.downloadDir()
			}
			res, err := report.Save(ctx, a.client(), args[0], dir)
			if err != nil {
				return err
			}
			printSaved(cmd.OutOrStdout(), res, useColor(cmd.OutOrStdout()))
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "directory to save into (default downloads.dir)")
	return cmd
}
