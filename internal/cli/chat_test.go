// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/muesli/termenv"
	"github.com/peterh/liner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/medchat-tui/internal/audio"
	"github.com/jeranaias/medchat-tui/internal/backend"
	"github.com/jeranaias/medchat-tui/internal/config"
)

// scriptedInput replays lines, then reports end of input.
type scriptedInput struct {
	lines []string
	end   error
}

func (s *scriptedInput) ReadLine(prompt string) (string, error) {
	if len(s.lines) == 0 {
		if s.end != nil {
			return "", s.end
		}
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

type recordingPlayer struct {
	played []*backend.Audio
}

func (p *recordingPlayer) Play(ctx context.Context, a *backend.Audio) error {
	p.played = append(p.played, a)
	return nil
}

// newTestSession builds a REPL session against the test backend.
func newTestSession(t *testing.T, url string) (*session, *bytes.Buffer) {
	t.Helper()
	cfg := config.Default()
	cfg.Backend.URL = url
	cfg.Downloads.Dir = t.TempDir()

	var out bytes.Buffer
	a := &app{cfg: cfg}
	return a.newSession(&out, true), &out
}

// =============================================================================
// REPL TESTS
// =============================================================================

func TestSession_AskAndCommands(t *testing.T) {
	b, url, _ := testEnv(t)
	b.query = `{"response": "**Glioma** grado II"}`

	s, out := newTestSession(t, url)
	var copied string
	s.copyText = func(text string) error {
		copied = text
		return nil
	}

	in := &scriptedInput{lines: []string{
		"   ",
		"¿Qué muestra la resonancia?",
		"/historial",
		"/copiar",
		"/desconocido",
		"/nuevo",
		"/historial",
		"/salir",
		"never read",
	}}
	require.NoError(t, s.run(context.Background(), in))

	text := out.String()
	assert.Equal(t, []string{"¿Qué muestra la resonancia?"}, b.Queries())
	assert.Contains(t, text, "Glioma grado II")
	assert.Contains(t, text, "Doctor: ¿Qué muestra la resonancia?")
	assert.Equal(t, "Glioma grado II", copied)
	assert.Contains(t, text, "comando desconocido /desconocido")
	assert.Contains(t, text, "[OK] Nuevo chat")
	assert.Contains(t, text, "La conversación está vacía.")
	assert.Equal(t, []string{"never read"}, in.lines)
}

func TestSession_EndsOnAbortAndEOF(t *testing.T) {
	_, url, _ := testEnv(t)

	for _, end := range []error{io.EOF, liner.ErrPromptAborted} {
		s, _ := newTestSession(t, url)
		assert.NoError(t, s.run(context.Background(), &scriptedInput{end: end}))
	}

	s, _ := newTestSession(t, url)
	boom := errors.New("terminal gone")
	assert.ErrorIs(t, s.run(context.Background(), &scriptedInput{end: boom}), boom)
}

func TestSession_DownloadReport(t *testing.T) {
	b, url, _ := testEnv(t)
	b.query = `{"response": "Hecho", "report_path": "out/reporte_P9.pdf"}`
	b.reports["reporte_P9.pdf"] = []byte("%PDF-1.5")

	s, out := newTestSession(t, url)

	// Nothing to download before any answer or progress
	require.NoError(t, s.run(context.Background(), &scriptedInput{lines: []string{"/informe"}}))
	assert.Contains(t, out.String(), "todavía no hay ningún informe")

	require.NoError(t, s.run(context.Background(), &scriptedInput{lines: []string{"genera", "/informe"}}))
	assert.Contains(t, out.String(), "Informe guardado en")
	assert.FileExists(t, filepath.Join(s.dir, "reporte_P9.pdf"))
}

func TestSession_ProgressAndSpeak(t *testing.T) {
	b, url, _ := testEnv(t)
	b.query = `{"response": "Lectura lista"}`
	b.progress = "Cargando volumen\nreport_77.pdf escrito\n"

	s, out := newTestSession(t, url)
	player := &recordingPlayer{}
	s.findPlayer = func() (audio.Player, error) { return player, nil }

	require.NoError(t, s.run(context.Background(), &scriptedInput{lines: []string{
		"/hablar",
		"lee",
		"/hablar",
		"/progreso",
	}}))

	text := out.String()
	assert.Contains(t, text, "no hay respuesta que leer")
	require.Len(t, player.played, 1)
	assert.Equal(t, "ID3-fake-mp3", string(player.played[0].Data))
	assert.Equal(t, []string{"Lectura lista"}, b.spoken)
	assert.Contains(t, text, "Cargando volumen")
	assert.Contains(t, text, "Informe disponible: report_77.pdf")
}

func TestSession_Export(t *testing.T) {
	b, url, _ := testEnv(t)
	b.query = `{"response": "Sin **hallazgos**"}`

	s, out := newTestSession(t, url)
	require.NoError(t, s.run(context.Background(), &scriptedInput{lines: []string{
		"/exportar",
		"revisa la serie",
		"/exportar pdf",
		"/exportar json",
		"/exportar",
	}}))

	text := out.String()
	assert.Contains(t, text, "conversation has no messages")
	assert.Contains(t, text, "unknown export format")
	assert.Equal(t, 2, strings.Count(text, "Conversación exportada en"))

	md, err := filepath.Glob(filepath.Join(s.dir, "consulta_*.md"))
	require.NoError(t, err)
	assert.Len(t, md, 1)
	js, err := filepath.Glob(filepath.Join(s.dir, "consulta_*.json"))
	require.NoError(t, err)
	assert.Len(t, js, 1)
}

// =============================================================================
// OUTPUT HELPERS
// =============================================================================

func TestLogTail(t *testing.T) {
	var out bytes.Buffer
	tail := &logTail{out: &out, width: 80}

	tail.update("a\nb\n")
	tail.update("a\nb\nc\n")
	tail.update("a\nb\nc\n")
	assert.Equal(t, "a\nb\nc\n", out.String())

	// A shorter log is a new run
	out.Reset()
	tail.update("x\n")
	assert.Equal(t, "x\n", out.String())

	out.Reset()
	tail.update("")
	tail.update("y")
	assert.Equal(t, "y\n", out.String())
}

type countingSource struct {
	calls int
	text  string
}

func (s *countingSource) Progress(ctx context.Context) (string, error) {
	s.calls++
	return s.text, nil
}

func TestFollowProgress_FinalFetchOnDone(t *testing.T) {
	src := &countingSource{text: "paso\nreporte_Z.pdf\n"}
	done := make(chan struct{})
	close(done)

	var logs []string
	name := followProgress(context.Background(), src, followOptions{
		interval: time.Hour,
		done:     done,
		onLog:    func(s string) { logs = append(logs, s) },
	})
	assert.Equal(t, "reporte_Z.pdf", name)
	assert.Equal(t, 1, src.calls)
	assert.Len(t, logs, 1)
}

func TestFollowProgress_StopsOnContext(t *testing.T) {
	src := &countingSource{text: "sin informe"}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	name := followProgress(ctx, src, followOptions{interval: 10 * time.Millisecond})
	assert.Empty(t, name)
	assert.Greater(t, src.calls, 0)
}

func TestHighlight(t *testing.T) {
	code := `{"response": "hola"}`
	assert.Equal(t, code, highlight(code, "json", termenv.Ascii))

	colored := highlight(code, "json", termenv.ANSI256)
	assert.Contains(t, colored, "\x1b[")
	assert.Contains(t, colored, "hola")
}

func TestPrettyJSON(t *testing.T) {
	out, ok := prettyJSON([]byte(` {"a":1} `))
	assert.True(t, ok)
	assert.Equal(t, "{\n  \"a\": 1\n}", out)

	out, ok = prettyJSON([]byte("no json"))
	assert.False(t, ok)
	assert.Equal(t, "no json", out)
}

func TestAnswerWriter_Plain(t *testing.T) {
	var out bytes.Buffer
	w := answerWriter{out: &out}

	require.NoError(t, w.write(context.Background(), nil))
	assert.Empty(t, out.String())

	cfg := config.Default()
	a := &app{cfg: cfg}
	w = a.newAnswerWriter(&out, false)
	assert.False(t, w.animate, "buffers are not terminals")
	assert.False(t, strings.Contains(out.String(), "\x1b["))
}
