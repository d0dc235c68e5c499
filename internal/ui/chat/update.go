// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/medchat-tui/internal/config"
	"github.com/jeranaias/medchat-tui/internal/conversation"
	"github.com/jeranaias/medchat-tui/internal/export"
	"github.com/jeranaias/medchat-tui/internal/progress"
	"github.com/jeranaias/medchat-tui/internal/report"
	"github.com/jeranaias/medchat-tui/internal/reveal"
	"github.com/jeranaias/medchat-tui/internal/ui/styles"
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.greeting.invalidate()
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case QueryDoneMsg:
		return m.handleQueryDone(msg)

	case RevealMsg:
		if m.store.ApplyReveal(msg.Event) {
			m.refreshViewport()
		}
		return m, nil

	case ProgressMsg:
		return m.handleProgress(msg)

	case ConfigChangedMsg:
		return m.handleConfigChanged(msg)

	case VoiceMsg:
		return m.handleVoice(msg)

	case SpeakDoneMsg:
		m.speaking = false
		m.cancels.done(opSpeak)
		if msg.Err != nil && !errors.Is(msg.Err, context.Canceled) {
			log.Warn().Err(msg.Err).Msg("speech playback failed")
			return m.setError("No se pudo reproducir el audio: " + msg.Err.Error())
		}
		return m, nil

	case DownloadMsg:
		return m.handleDownload(msg)

	case clearStatusMsg:
		if msg.seq == m.statusSeq {
			m.status = ""
			m.statusErr = false
		}
		return m, nil

	case spinner.TickMsg:
		if m.store.Loading() || m.listening {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			m.refreshViewport()
			return m, cmd
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		m.Shutdown()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.NewChat):
		return m.newChat()

	case key.Matches(msg, m.keys.Voice):
		return m.startVoice()

	case key.Matches(msg, m.keys.Speak):
		return m.speakLastAnswer()

	case key.Matches(msg, m.keys.Download):
		return m.downloadReport()

	case key.Matches(msg, m.keys.Copy):
		return m.copyLastAnswer()

	case key.Matches(msg, m.keys.Export):
		return m.exportChat()

	case key.Matches(msg, m.keys.Refresh):
		return m.refreshProgress()

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keys.Suggest) && m.input.Value() == "":
		return m.fillSuggestion()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.store.SetInput(m.input.Value())
	return m, cmd
}

// =============================================================================
// SUBMISSION
// =============================================================================

// submit sends the input to the backend. Blank input is ignored.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	if strings.TrimSpace(text) == "" {
		return m, nil
	}

	p, err := m.store.Begin(text)
	switch {
	case errors.Is(err, conversation.ErrSubmissionPending):
		return m.setStatus("Espera a que termine la consulta en curso")
	case err != nil:
		return m, nil
	}

	m.pending = &p
	m.input.Reset()
	if m.poller != nil {
		m.poller.Start(m.ctx)
	}
	m.layout()

	return m, tea.Batch(m.queryCmd(p), m.spinner.Tick)
}

// queryCmd runs the backend call for p.
func (m Model) queryCmd(p conversation.Pending) tea.Cmd {
	ctx := m.cancels.start(m.ctx, opQuery)
	client := m.backend
	return func() tea.Msg {
		res, err := client.Query(ctx, p.Prompt)
		return QueryDoneMsg{Pending: p, Result: res, Err: err}
	}
}

func (m Model) handleQueryDone(msg QueryDoneMsg) (tea.Model, tea.Cmd) {
	if m.pending != nil && m.pending.Generation == msg.Pending.Generation {
		m.pending = nil
		m.cancels.done(opQuery)
	}

	events := m.store.Complete(msg.Pending, msg.Result, msg.Err)
	if len(events) == 0 {
		m.refreshViewport()
		return m, nil
	}

	if !m.cfg.Reveal.Animate {
		m.store.RevealAll()
		m.refreshViewport()
		return m, nil
	}

	m.refreshViewport()
	return m, revealCmds(events)
}

// revealCmds schedules every word independently, all measured from now.
func revealCmds(events []reveal.Event) tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(events))
	for _, ev := range events {
		ev := ev
		cmds = append(cmds, tea.Tick(ev.Delay, func(time.Time) tea.Msg {
			return RevealMsg{Event: ev}
		}))
	}
	return tea.Batch(cmds...)
}

// newChat resets the conversation and tears down the result view.
func (m Model) newChat() (tea.Model, tea.Cmd) {
	m.cancels.cancel(opQuery)
	m.pending = nil
	m.store.ResetConversation()
	if m.poller != nil {
		m.poller.Stop()
	}
	if m.snapshots != nil {
		m.snapshots.Drain()
	}
	m.snapshot = progress.Snapshot{}
	m.input.Reset()
	m.layout()
	m.viewport.GotoTop()
	return m.setStatus("Nuevo chat")
}

// fillSuggestion puts the next greeting card into the empty input.
func (m Model) fillSuggestion() (tea.Model, tea.Cmd) {
	if len(m.store.History()) > 0 || m.pending != nil {
		return m, nil
	}
	m.greeting.next = m.greeting.next % len(Suggestions)
	m.input.SetValue(Suggestions[m.greeting.next])
	m.input.CursorEnd()
	m.store.SetInput(m.input.Value())
	m.greeting.next++
	return m, nil
}

// =============================================================================
// BACKGROUND FEEDS
// =============================================================================

func (m Model) waitSnapshot() tea.Cmd {
	return wait(m.ctx, m.snapshots, func(s progress.Snapshot) tea.Msg { return ProgressMsg{Snapshot: s} })
}

func (m Model) waitReload() tea.Cmd {
	return wait(m.ctx, m.reloads, func(c *config.Config) tea.Msg { return ConfigChangedMsg{Config: c} })
}

func (m Model) handleProgress(msg ProgressMsg) (tea.Model, tea.Cmd) {
	// Snapshots fetched before a reset belong to a view that is gone
	if m.store.ShowResult() {
		hadReport := m.snapshot.HasReport()
		m.snapshot = msg.Snapshot
		if !hadReport && m.snapshot.HasReport() {
			log.Info().Str("report", m.snapshot.ReportFileName).Msg("report available")
		}
	}
	return m, m.waitSnapshot()
}

func (m Model) handleConfigChanged(msg ConfigChangedMsg) (tea.Model, tea.Cmd) {
	if msg.Config == nil {
		return m, m.waitReload()
	}
	themeChanged := msg.Config.UI.Theme != m.cfg.UI.Theme
	m.cfg = msg.Config
	if themeChanged {
		m.theme = styles.NewThemeForMode(m.cfg.UI.Theme)
		m.applyTheme()
	}
	m.layout()
	log.Info().Msg("configuration reloaded")
	return m, m.waitReload()
}

// =============================================================================
// VOICE, SPEECH AND DOWNLOADS
// =============================================================================

func (m Model) startVoice() (tea.Model, tea.Cmd) {
	if m.voice == nil {
		return m.setError("Reconocimiento de voz no disponible")
	}
	if m.listening {
		return m, nil
	}
	m.listening = true
	model, status := m.setStatus("Escuchando...")
	return model, tea.Batch(m.listenCmd(), status, m.spinner.Tick)
}

// listenCmd captures one utterance.
func (m Model) listenCmd() tea.Cmd {
	ctx := m.cancels.start(m.ctx, opVoice)
	rec := m.voice
	return func() tea.Msg {
		text, err := rec.Listen(ctx)
		return VoiceMsg{Text: text, Err: err}
	}
}

func (m Model) handleVoice(msg VoiceMsg) (tea.Model, tea.Cmd) {
	m.listening = false
	m.cancels.done(opVoice)
	if msg.Err != nil {
		if errors.Is(msg.Err, context.Canceled) {
			return m, nil
		}
		log.Warn().Err(msg.Err).Msg("voice capture failed")
		return m.setError("No se reconoció la voz: " + msg.Err.Error())
	}
	m.input.SetValue(msg.Text)
	m.input.CursorEnd()
	m.store.SetInput(msg.Text)
	return m.setStatus("Transcripción lista, pulsa Enter para enviar")
}

func (m Model) speakLastAnswer() (tea.Model, tea.Cmd) {
	last := m.store.LastAnswer()
	if last == nil || last.IsEmpty() {
		return m.setStatus("No hay respuesta para escuchar")
	}
	if m.player == nil {
		return m.setError("No hay reproductor de audio disponible")
	}
	if m.speaking {
		// SpeakDoneMsg clears the flag once playback has unwound
		m.cancels.cancel(opSpeak)
		return m.setStatus("Reproducción detenida")
	}

	m.speaking = true
	model, status := m.setStatus("Reproduciendo respuesta...")
	return model, tea.Batch(m.speakCmd(last.PlainText()), status)
}

// speakCmd synthesizes text on the backend and plays it.
func (m Model) speakCmd(text string) tea.Cmd {
	ctx := m.cancels.start(m.ctx, opSpeak)
	client, player := m.backend, m.player
	return func() tea.Msg {
		audio, err := client.Speak(ctx, text)
		if err != nil {
			return SpeakDoneMsg{Err: err}
		}
		return SpeakDoneMsg{Err: player.Play(ctx, audio)}
	}
}

// reportName returns the report to download: the one announced by the
// progress log, or the one attached to the last answer.
func (m Model) reportName() string {
	if m.snapshot.HasReport() {
		return m.snapshot.ReportFileName
	}
	if last := m.store.LastAnswer(); last != nil {
		return last.ReportName
	}
	return ""
}

func (m Model) downloadReport() (tea.Model, tea.Cmd) {
	name := m.reportName()
	if name == "" {
		return m.setStatus("Todavía no hay informe disponible")
	}
	if m.cancels.running(opDownload) {
		return m, nil
	}

	model, status := m.setStatus("Descargando " + name + "...")
	return model, tea.Batch(m.saveReportCmd(name), status)
}

// saveReportCmd downloads the report into the configured directory.
func (m Model) saveReportCmd(name string) tea.Cmd {
	dir := m.downloadDir()
	ctx := m.cancels.start(m.ctx, opDownload)
	client := m.backend
	return func() tea.Msg {
		res, err := report.Save(ctx, client, name, dir)
		return DownloadMsg{Name: name, Result: res, Err: err}
	}
}

// downloadDir is where reports and exports are written.
func (m Model) downloadDir() string {
	if m.cfg.Downloads.Dir != "" {
		return m.cfg.Downloads.Dir
	}
	return report.DefaultDir()
}

func (m Model) handleDownload(msg DownloadMsg) (tea.Model, tea.Cmd) {
	m.cancels.done(opDownload)
	if msg.Err != nil {
		return m.setError("Error descargando el informe: " + msg.Err.Error())
	}
	return m.setStatus(fmt.Sprintf("Informe guardado en %s", msg.Result.Path))
}

func (m Model) copyLastAnswer() (tea.Model, tea.Cmd) {
	last := m.store.LastAnswer()
	if last == nil || last.IsEmpty() {
		return m.setStatus("No hay respuesta para copiar")
	}

	text := last.PlainText()
	if err := m.copyText(text); err != nil {
		return m.setError("No se pudo copiar: " + err.Error())
	}
	return m.setStatus(fmt.Sprintf("Respuesta copiada (%s)", sizeInfo(len(text))))
}

// exportChat writes the conversation as Markdown next to the reports.
func (m Model) exportChat() (tea.Model, tea.Cmd) {
	transcript := m.store.Transcript()
	if transcript.IsEmpty() {
		return m.setStatus("No hay conversación para exportar")
	}
	opts := export.DefaultOptions()
	opts.OutputDir = m.downloadDir()
	path, err := export.ExportToFile(transcript, export.NewMarkdownExporter(opts), opts)
	if err != nil {
		return m.setError("No se pudo exportar: " + err.Error())
	}
	return m.setStatus("Conversación exportada en " + path)
}

func (m Model) refreshProgress() (tea.Model, tea.Cmd) {
	if m.poller == nil || !m.store.ShowResult() {
		return m.setStatus("No hay diagnóstico en curso")
	}
	if !m.poller.Refresh() {
		return m.setStatus("Actualización demasiado frecuente")
	}
	return m.setStatus("Actualizando progreso...")
}

// =============================================================================
// STATUS LINE
// =============================================================================

func (m Model) setStatus(text string) (tea.Model, tea.Cmd) {
	m.statusSeq++
	m.status = text
	m.statusErr = false
	seq := m.statusSeq
	return m, tea.Tick(statusTTL, func(time.Time) tea.Msg { return clearStatusMsg{seq: seq} })
}

func (m Model) setError(text string) (tea.Model, tea.Cmd) {
	model, cmd := m.setStatus(text)
	mm := model.(Model)
	mm.statusErr = true
	return mm, cmd
}
