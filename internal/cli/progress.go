// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/jeranaias/medchat-tui/internal/progress"
	"github.com/jeranaias/medchat-tui/internal/util"
)

func progressCmd(a *app) *cobra.Command {
	var once, untilReport bool
	var lines int

	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Follow the diagnosis progress log",
		Long: "Print the backend progress log as it grows. Stops on Ctrl+C, or when\n" +
			"a report is announced with --until-report.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			out := cmd.OutOrStdout()
			client := a.client()
			if lines <= 0 {
				lines = a.cfg.Progress.LogLines
			}

			if once {
				text, err := client.Progress(ctx)
				if err != nil {
					return err
				}
				printProgress(out, text, lines)
				return nil
			}

			tail := newLogTail(out)
			name := followProgress(ctx, client, followOptions{
				interval:    a.cfg.PollInterval(),
				immediate:   true,
				untilReport: untilReport,
				onLog:       tail.update,
			})
			if name != "" {
				printReportReady(out, name)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVar(&once, "once", false, "fetch the log once and exit")
	f.BoolVar(&untilReport, "until-report", false, "exit as soon as a report is announced")
	f.IntVarP(&lines, "lines", "n", 0, "lines shown with --once (default progress.log_lines)")
	return cmd
}

// printProgress prints the newest lines of a progress log and the report it
// announces.
func printProgress(out io.Writer, text string, lines int) {
	color := useColor(out)
	tail := util.TailLines(text, lines, GetTerminalWidth())
	if len(tail) == 0 {
		fmt.Fprintln(out, paint(DimStyle, "Esperando progreso...", color))
		return
	}
	for _, l := range tail {
		fmt.Fprintln(out, l)
	}
	if name, ok := progress.ExtractReportName(text); ok {
		printReportReady(out, name)
	}
}

func printReportReady(out io.Writer, name string) {
	fmt.Fprintf(out, "%s %s\n", paint(SuccessStyle, "Informe disponible:", useColor(out)), name)
}
