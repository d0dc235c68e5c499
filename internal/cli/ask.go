// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/muesli/termenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/medchat-tui/internal/backend"
	"github.com/jeranaias/medchat-tui/internal/conversation"
	"github.com/jeranaias/medchat-tui/internal/report"
)

// askOptions holds the flags of the ask command.
type askOptions struct {
	raw        bool
	noAnim     bool
	waitReport bool
}

func askCmd(a *app) *cobra.Command {
	var opts askOptions

	cmd := &cobra.Command{
		Use:   "ask QUESTION...",
		Short: "Send one question and print the answer",
		Long: "Send one question to the backend and print the formatted answer.\n\n" +
			"With --wait-report the progress log is followed while the backend\n" +
			"works and the generated PDF is downloaded once the answer arrives.",
		Example: `  medchat ask "¿Cuál es el diagnóstico del paciente P001?"
  medchat ask --raw "Resume el último estudio"
  medchat ask --wait-report "Genera el informe del paciente P001"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return a.ask(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), strings.Join(args, " "), opts)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.raw, "raw", false, "print the backend response body instead of the formatted answer")
	f.BoolVar(&opts.noAnim, "no-anim", false, "print the answer at once instead of word by word")
	f.BoolVar(&opts.waitReport, "wait-report", false, "follow progress and download the report when it is ready")
	cmd.MarkFlagsMutuallyExclusive("raw", "wait-report")
	return cmd
}

// ask runs one question. Backend failures are printed as the fallback
// answer and do not fail the command.
func (a *app) ask(ctx context.Context, out, errOut io.Writer, question string, opts askOptions) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return usageErrorf("the question is empty")
	}

	client := a.client()
	if opts.raw {
		return askRaw(ctx, out, client, question)
	}

	store := conversation.NewStore(client, conversation.Config{
		RevealStep: a.cfg.RevealStep(),
		ReportLink: client.DownloadURL,
	})

	var announced string
	var err error
	if opts.waitReport {
		announced, err = a.askAndFollow(ctx, errOut, client, store, question)
	} else {
		_, err = store.Submit(ctx, question)
	}
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	answer := store.LastAnswer()
	if err := a.newAnswerWriter(out, opts.noAnim).write(ctx, answer); err != nil {
		return err
	}
	if !opts.waitReport {
		return nil
	}

	// The answer names the report of this run; the progress log may still
	// mention an older one.
	name := announced
	if answer != nil && answer.ReportName != "" {
		name = answer.ReportName
	}
	color := useColor(out)
	if name == "" {
		fmt.Fprintln(errOut, paint(WarningStyle, "[!] No se generó ningún informe", useColor(errOut)))
		return nil
	}

	res, err := report.Save(ctx, client, name, a.downloadDir())
	if err != nil {
		return err
	}
	printSaved(out, res, color)
	return nil
}

// askAndFollow submits question while following the progress log on
// errOut. It returns the report name the log announced, if any.
func (a *app) askAndFollow(ctx context.Context, errOut io.Writer, client *backend.Client, store *conversation.Store, question string) (string, error) {
	g, gctx := errgroup.WithContext(ctx)
	answered := make(chan struct{})
	tail := newLogTail(errOut)
	var name string

	g.Go(func() error {
		defer close(answered)
		_, err := store.Submit(gctx, question)
		return err
	})
	g.Go(func() error {
		name = followProgress(gctx, client, followOptions{
			interval: a.cfg.PollInterval(),
			done:     answered,
			onLog:    tail.update,
		})
		return nil
	})

	if err := g.Wait(); err != nil {
		return "", err
	}
	log.Debug().Str("report", name).Msg("progress follow finished")
	return name, nil
}

// askRaw prints the undecoded response body, highlighted when it is JSON
// and stdout takes colors.
func askRaw(ctx context.Context, out io.Writer, client *backend.Client, question string) error {
	res, err := client.Query(ctx, question)
	if err != nil {
		return err
	}

	body, lang := string(res.Raw), "text"
	if pretty, ok := prettyJSON(res.Raw); ok {
		body, lang = pretty, "json"
	}

	profile := termenv.Ascii
	if useColor(out) {
		profile = outputProfile()
	}
	fmt.Fprintln(out, strings.TrimRight(highlight(body, lang, profile), "\n"))
	return nil
}
