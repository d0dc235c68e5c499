// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/peterh/liner"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jeranaias/medchat-tui/internal/audio"
	"github.com/jeranaias/medchat-tui/internal/backend"
	"github.com/jeranaias/medchat-tui/internal/config"
	"github.com/jeranaias/medchat-tui/internal/conversation"
	"github.com/jeranaias/medchat-tui/internal/export"
	"github.com/jeranaias/medchat-tui/internal/progress"
	"github.com/jeranaias/medchat-tui/internal/report"
	"github.com/jeranaias/medchat-tui/internal/util"
)

// =============================================================================
// LINE EDITOR
// =============================================================================

// lineReader reads one line of user input.
type lineReader interface {
	ReadLine(prompt string) (string, error)
}

// LineEditor provides input history and line editing for the chat REPL.
type LineEditor struct {
	line        *liner.State
	historyFile string
}

// NewLineEditor creates a LineEditor and loads the history saved in the
// config directory.
func NewLineEditor() *LineEditor {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	e := &LineEditor{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	if f, err := os.Open(e.historyFile); err == nil {
		e.line.ReadHistory(f)
		f.Close()
	}
	return e
}

// ReadLine reads a line of input with the given prompt. Non-blank lines
// are added to the history.
func (e *LineEditor) ReadLine(prompt string) (string, error) {
	input, err := e.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		e.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves the history with owner-only permissions and restores the
// terminal.
func (e *LineEditor) Close() error {
	if err := config.EnsureConfigDir(); err == nil {
		if f, err := os.OpenFile(e.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			e.line.WriteHistory(f)
			f.Close()
		}
	}
	return e.line.Close()
}

// =============================================================================
// COMMAND
// =============================================================================

func chatCmd(a *app) *cobra.Command {
	var noAnim bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Line-mode chat with history and editing",
		Long: "Chat with the assistant one line at a time. Arrow keys browse the\n" +
			"input history. Type /ayuda for the list of commands.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			editor := NewLineEditor()
			defer editor.Close()
			return a.newSession(cmd.OutOrStdout(), noAnim).run(cmd.Context(), editor)
		},
	}
	cmd.Flags().BoolVar(&noAnim, "no-anim", false, "print answers at once instead of word by word")
	return cmd
}

// =============================================================================
// SESSION
// =============================================================================

// session is one line-mode conversation.
type session struct {
	cfg     *config.Config
	client  *backend.Client
	store   *conversation.Store
	out     io.Writer
	color   bool
	answers answerWriter
	dir     string

	copyText   func(string) error
	findPlayer func() (audio.Player, error)
}

func (a *app) newSession(out io.Writer, noAnim bool) *session {
	client := a.client()
	cfg := a.cfg
	return &session{
		cfg:    cfg,
		client: client,
		store: conversation.NewStore(client, conversation.Config{
			RevealStep: cfg.RevealStep(),
			ReportLink: client.DownloadURL,
		}),
		out:      out,
		color:    useColor(out),
		answers:  a.newAnswerWriter(out, noAnim),
		dir:      a.downloadDir(),
		copyText: clipboard.WriteAll,
		findPlayer: func() (audio.Player, error) {
			return audio.Detect(cfg.Audio.Player)
		},
	}
}

const chatHelp = `Comandos:
  /nuevo              empieza un chat nuevo
  /progreso           muestra el progreso del diagnóstico
  /informe [NOMBRE]   descarga el informe PDF
  /copiar             copia la última respuesta
  /hablar             lee en voz alta la última respuesta
  /exportar [md|json] guarda la conversación en un archivo
  /historial          lista la conversación
  /ayuda              muestra esta ayuda
  /salir              termina la sesión`

// run is the read-eval-print loop. It returns when input ends or the user
// quits. Ctrl+C at the prompt quits; during a query it cancels the query.
func (s *session) run(ctx context.Context, in lineReader) error {
	fmt.Fprintln(s.out, paint(TitleStyle, "Hola Doctor, ¿cómo puedo ayudarte?", s.color))
	fmt.Fprintln(s.out, paint(DimStyle, "Escribe /ayuda para ver los comandos.", s.color))

	for {
		line, err := in.ReadLine(paint(PromptStyle, "medchat> ", s.color))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(s.out)
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := s.command(ctx, line)
			if err != nil {
				fmt.Fprintln(s.out, paint(ErrorStyle, "[X]", s.color), err)
			}
			if quit {
				return nil
			}
			continue
		}

		if err := s.ask(ctx, line); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintln(s.out, paint(ErrorStyle, "[X]", s.color), err)
		}
	}
}

// ask submits one question. Ctrl+C cancels it without ending the session.
func (s *session) ask(ctx context.Context, question string) error {
	qctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	fmt.Fprintln(s.out, paint(DimStyle, "Analizando la consulta...", s.color))
	if _, err := s.store.Submit(qctx, question); err != nil {
		return err
	}
	if qctx.Err() != nil {
		fmt.Fprintln(s.out, paint(WarningStyle, "[Cancelado]", s.color))
		return nil
	}

	if err := s.answers.write(qctx, s.store.LastAnswer()); err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() == nil {
			return nil
		}
		return err
	}
	return nil
}

// command runs a slash command and reports whether the session should end.
func (s *session) command(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	name, args := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "/salir", "/exit", "/quit":
		return true, nil

	case "/ayuda", "/help":
		fmt.Fprintln(s.out, chatHelp)

	case "/nuevo", "/new":
		s.store.ResetConversation()
		fmt.Fprintln(s.out, paint(SuccessStyle, "[OK] Nuevo chat", s.color))

	case "/progreso", "/progress":
		return false, s.showProgress(ctx)

	case "/informe", "/download":
		var requested string
		if len(args) > 0 {
			requested = args[0]
		}
		return false, s.download(ctx, requested)

	case "/copiar", "/copy":
		return false, s.copyLast()

	case "/hablar", "/speak":
		return false, s.speakLast(ctx)

	case "/historial", "/history":
		s.listHistory()

	case "/exportar", "/export":
		var kind string
		if len(args) > 0 {
			kind = args[0]
		}
		return false, s.exportTranscript(kind)

	default:
		return false, usageErrorf("comando desconocido %s (prueba /ayuda)", name)
	}
	return false, nil
}

func (s *session) showProgress(ctx context.Context) error {
	text, err := s.client.Progress(ctx)
	if err != nil {
		return err
	}
	lines := util.TailLines(text, s.cfg.Progress.LogLines, GetTerminalWidth())
	if len(lines) == 0 {
		fmt.Fprintln(s.out, paint(DimStyle, "Esperando progreso...", s.color))
		return nil
	}
	for _, l := range lines {
		fmt.Fprintln(s.out, paint(DimStyle, l, s.color))
	}
	if name, ok := progress.ExtractReportName(text); ok {
		fmt.Fprintf(s.out, "%s %s (/informe)\n", paint(SuccessStyle, "Informe disponible:", s.color), name)
	}
	return nil
}

// download saves the requested report, or the one named by the last answer,
// or the one the progress log announces.
func (s *session) download(ctx context.Context, name string) error {
	if name == "" {
		if last := s.store.LastAnswer(); last != nil {
			name = last.ReportName
		}
	}
	if name == "" {
		text, err := s.client.Progress(ctx)
		if err != nil {
			return err
		}
		name, _ = progress.ExtractReportName(text)
	}
	if name == "" {
		return errors.New("todavía no hay ningún informe")
	}

	res, err := report.Save(ctx, s.client, name, s.dir)
	if err != nil {
		return err
	}
	printSaved(s.out, res, s.color)
	return nil
}

func (s *session) copyLast() error {
	last := s.store.LastAnswer()
	if last == nil {
		return errors.New("no hay respuesta que copiar")
	}
	text := last.PlainText()
	if err := s.copyText(text); err != nil {
		return errors.Wrap(err, "clipboard")
	}
	fmt.Fprintf(s.out, "%s Copiado (%d caracteres)\n", paint(SuccessStyle, "[OK]", s.color), len([]rune(text)))
	return nil
}

func (s *session) speakLast(ctx context.Context) error {
	last := s.store.LastAnswer()
	if last == nil {
		return errors.New("no hay respuesta que leer")
	}
	player, err := s.findPlayer()
	if err != nil {
		return err
	}

	qctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	return speak(qctx, s.client, player, last.PlainText())
}

func (s *session) exportTranscript(kind string) error {
	opts := export.DefaultOptions()
	opts.OutputDir = s.dir
	exp, err := export.ForFormat(kind, opts)
	if err != nil {
		return usageErrorf("%v", err)
	}
	path, err := export.ExportToFile(s.store.Transcript(), exp, opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s Conversación exportada en %s\n", paint(SuccessStyle, "[OK]", s.color), path)
	return nil
}

func (s *session) listHistory() {
	history := s.store.History()
	if len(history) == 0 {
		fmt.Fprintln(s.out, paint(DimStyle, "La conversación está vacía.", s.color))
		return
	}
	width := GetTerminalWidth() - 16
	for _, msg := range history {
		fmt.Fprintf(s.out, "%s %s %s\n",
			paint(DimStyle, msg.Timestamp.Format("15:04"), s.color),
			paint(LabelStyle, msg.Role.DisplayName()+":", s.color),
			msg.Preview(width))
	}
	log.Debug().Int("messages", len(history)).Msg("history listed")
}
