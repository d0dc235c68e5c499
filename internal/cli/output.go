// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/medchat-tui/internal/format"
	"github.com/jeranaias/medchat-tui/internal/model"
	"github.com/jeranaias/medchat-tui/internal/progress"
	"github.com/jeranaias/medchat-tui/internal/report"
	"github.com/jeranaias/medchat-tui/internal/reveal"
	"github.com/jeranaias/medchat-tui/internal/util"
)

// =============================================================================
// ANSWERS
// =============================================================================

// answerWriter prints assistant answers for the line-mode commands.
type answerWriter struct {
	out     io.Writer
	color   bool
	animate bool
	step    time.Duration
}

func (a *app) newAnswerWriter(out io.Writer, noAnim bool) answerWriter {
	return answerWriter{
		out:     out,
		color:   useColor(out),
		animate: a.cfg.Reveal.Animate && !noAnim && isTerminal(out),
		step:    a.cfg.RevealStep(),
	}
}

// write prints msg under the assistant label. Animated output reveals the
// plain text word by word; otherwise the styled markup is printed at once.
// A report link is repeated as a full URL so it can be opened or scripted.
func (w answerWriter) write(ctx context.Context, msg *model.Message) error {
	if msg == nil {
		return nil
	}

	label := model.RoleAssistant.DisplayName() + ":"
	if stats := msg.FormatStats(); stats != "" {
		label += " " + paint(DimStyle, "("+stats+")", w.color)
	}
	fmt.Fprintln(w.out, paint(LabelStyle, label, w.color))

	if w.animate {
		events := reveal.Plan(1, format.Plain(msg.Content), w.step)
		if err := reveal.Play(ctx, w.out, events); err != nil {
			fmt.Fprintln(w.out)
			return err
		}
		fmt.Fprintln(w.out)
	} else {
		fmt.Fprintln(w.out, format.Render(msg.Content, answerStyle(w.color)))
	}

	if href, ok := format.ReportHref(msg.Content); ok {
		fmt.Fprintln(w.out, paint(DimStyle, format.DownloadLabel+": "+href, w.color))
	}
	return nil
}

// printSaved reports a downloaded file.
func printSaved(out io.Writer, res *report.Result, color bool) {
	fmt.Fprintf(out, "%s Informe guardado en %s (%d bytes)\n",
		paint(SuccessStyle, "[OK]", color), res.Path, res.Bytes)
	fmt.Fprintf(out, "%s\n", paint(DimStyle, "blake2b-256 "+res.Digest, color))
}

// =============================================================================
// PROGRESS LOG
// =============================================================================

// logTail prints the lines of a progress log that have not been printed
// yet. The backend replaces the log wholesale, so a log that shrinks is
// treated as a new run and printed from the top.
type logTail struct {
	out   io.Writer
	color bool
	width int
	seen  int
}

func newLogTail(out io.Writer) *logTail {
	return &logTail{out: out, color: useColor(out), width: GetTerminalWidth()}
}

func (t *logTail) update(text string) {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		t.seen = 0
		return
	}
	lines := strings.Split(text, "\n")
	if len(lines) < t.seen {
		t.seen = 0
	}
	for _, line := range lines[t.seen:] {
		line = util.TruncateWidth(strings.TrimRight(line, "\r"), t.width)
		fmt.Fprintln(t.out, paint(DimStyle, line, t.color))
	}
	t.seen = len(lines)
}

// followOptions controls followProgress.
type followOptions struct {
	interval time.Duration
	// immediate fetches once before the first tick.
	immediate bool
	// done stops following after one final fetch once it is closed.
	done <-chan struct{}
	// untilReport stops as soon as a report name appears.
	untilReport bool
	onLog       func(string)
}

// followProgress polls src until ctx ends, done closes or (optionally) a
// report is announced. It returns the last report name seen, if any.
// Fetch failures are logged and skipped.
func followProgress(ctx context.Context, src progress.Source, opts followOptions) string {
	if opts.interval <= 0 {
		opts.interval = progress.DefaultInterval
	}

	var name string
	fetch := func() bool {
		text, err := src.Progress(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Debug().Err(err).Msg("progress fetch failed")
			}
			return false
		}
		if opts.onLog != nil {
			opts.onLog(text)
		}
		if n, ok := progress.ExtractReportName(text); ok {
			name = n
			return true
		}
		return false
	}

	if opts.immediate && fetch() && opts.untilReport {
		return name
	}

	ticker := time.NewTicker(opts.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return name
		case <-opts.done:
			fetch()
			return name
		case <-ticker.C:
			if fetch() && opts.untilReport {
				return name
			}
		}
	}
}
