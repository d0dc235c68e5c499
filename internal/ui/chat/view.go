// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/medchat-tui/internal/conversation"
	"github.com/jeranaias/medchat-tui/internal/format"
	"github.com/jeranaias/medchat-tui/internal/model"
	"github.com/jeranaias/medchat-tui/internal/util"
)

const (
	greetingTitle    = "Hola Doctor,"
	greetingSubtitle = "¿Cómo puedo ayudarte?"
	disclaimerText   = "Este asistente está en fase experimental. Consulta siempre con especialistas médicos."
	progressTitle    = "Progreso del diagnóstico"
)

// render assembles the full screen.
func (m Model) render() string {
	sections := []string{
		m.renderHeader(),
		m.viewport.View(),
	}
	if m.progressVisible() {
		sections = append(sections, m.renderProgress())
	}
	sections = append(sections,
		m.renderInput(),
		m.renderFooter(),
		m.renderDisclaimer(),
	)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// =============================================================================
// HEADER
// =============================================================================

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("medchat")
	sub := m.theme.HeaderSubtitle.Render(util.TruncateWidth(m.cfg.Backend.URL, m.width/2))

	gap := m.width - lipgloss.Width(title) - lipgloss.Width(sub) - 2
	if gap < 1 {
		gap = 1
	}
	return m.theme.Header.Width(m.width).Render(title + strings.Repeat(" ", gap) + sub)
}

// =============================================================================
// CONVERSATION
// =============================================================================

// renderConversation builds the viewport content: the greeting on an empty
// chat, otherwise the history followed by the in-flight submission.
func (m Model) renderConversation() string {
	history := m.store.History()
	if len(history) == 0 && m.pending == nil {
		return m.renderGreeting()
	}

	width := m.contentWidth()
	revealing := m.store.Phase() == conversation.PhaseRevealing
	lastAnswer := -1
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == model.RoleAssistant {
			lastAnswer = i
			break
		}
	}

	var b strings.Builder
	for i, msg := range history {
		content := msg.Content
		if i == lastAnswer && revealing {
			content = m.store.ResultData()
		}
		b.WriteString(m.renderMessage(msg, content, width, i == lastAnswer && revealing))
		b.WriteString("\n\n")
	}

	if m.pending != nil {
		b.WriteString(m.renderMessage(model.NewUserMessage(m.pending.Prompt), m.pending.Prompt, width, false))
		b.WriteString("\n\n")
		b.WriteString(m.theme.AssistantLabel.Render(model.RoleAssistant.DisplayName()))
		b.WriteString("\n")
		b.WriteString(m.spinner.View() + " " + m.theme.ThinkingText.Render("Analizando la consulta..."))
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

// renderMessage renders one message. Assistant content is markup; a
// partially revealed answer hides an incomplete report link.
func (m Model) renderMessage(msg *model.Message, content string, width int, partial bool) string {
	meta := formatTimestamp(msg.Timestamp)

	if msg.Role == model.RoleUser {
		label := m.theme.UserLabel.Render(msg.Role.DisplayName()) + " " + m.theme.MessageMeta.Render(meta)
		return label + "\n" + m.theme.UserBubble.Width(width).Render(content)
	}

	if m.cfg.UI.ShowLatency {
		if stats := msg.FormatStats(); stats != "" {
			meta += " · " + stats
		}
	}
	label := m.theme.AssistantLabel.Render(msg.Role.DisplayName()) + " " + m.theme.MessageMeta.Render(meta)

	var body string
	if partial {
		body = format.RenderPartial(content, m.theme.AnswerStyle())
	} else {
		body = format.Render(content, m.theme.AnswerStyle())
	}

	bubble := m.theme.AssistantBubble
	if msg.Failed {
		bubble = m.theme.FailedBubble
	}
	return label + "\n" + bubble.Width(width).Render(body)
}

// contentWidth is the wrap width for message bodies.
func (m Model) contentWidth() int {
	w := m.viewport.Width - 4
	if w < 10 {
		w = 10
	}
	return w
}

// =============================================================================
// GREETING
// =============================================================================

// greetingCache keeps the glamour rendering of the suggestion cards, which
// only changes with the width or the theme.
type greetingCache struct {
	width    int
	rendered string
	// next is the suggestion Tab fills in next
	next int
}

func (g *greetingCache) invalidate() {
	g.width = 0
	g.rendered = ""
}

func suggestionsMarkdown() string {
	var b strings.Builder
	for i, s := range Suggestions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}
	return b.String()
}

func (m Model) renderGreeting() string {
	width := m.contentWidth()

	if m.greeting.width != width || m.greeting.rendered == "" {
		m.greeting.width = width
		m.greeting.rendered = m.renderCards(width)
	}

	title := m.theme.GreetingTitle.Render(greetingTitle)
	subtitle := m.theme.GreetingSubtitle.Render(greetingSubtitle)
	hint := m.theme.MessageMeta.Render("Tab rellena la consulta con una sugerencia")

	return lipgloss.JoinVertical(lipgloss.Left,
		"",
		title,
		subtitle,
		m.greeting.rendered,
		hint,
	)
}

// renderCards renders the suggestions through glamour, falling back to
// bordered cards when glamour fails.
func (m Model) renderCards(width int) string {
	style := "light"
	if m.theme.IsDark {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err == nil {
		out, rerr := r.Render(suggestionsMarkdown())
		if rerr == nil {
			return strings.TrimRight(out, "\n")
		}
		err = rerr
	}
	log.Debug().Err(err).Msg("glamour rendering failed, using plain cards")

	cards := make([]string, len(Suggestions))
	for i, s := range Suggestions {
		cards[i] = m.theme.Card.Width(width).Render(m.theme.CardIndex.Render(fmt.Sprintf("%d ", i+1)) + s)
	}
	return lipgloss.JoinVertical(lipgloss.Left, cards...)
}

// =============================================================================
// PROGRESS PANEL
// =============================================================================

// renderProgress renders the tail of the progress log and, once a report
// has been announced, the download hint.
func (m Model) renderProgress() string {
	inner := m.width - 4
	if inner < 10 {
		inner = 10
	}
	n := m.cfg.Progress.LogLines

	lines := util.TailLines(m.snapshot.RawLog, n, inner)
	if m.snapshot.RawLog == "" {
		lines = []string{"Esperando progreso..."}
	}
	for len(lines) < n {
		lines = append(lines, "")
	}
	for i := range lines {
		lines[i] = m.theme.ProgressLine.Render(lines[i])
	}

	reportLine := ""
	if m.snapshot.HasReport() {
		reportLine = m.theme.ReportReady.Render(format.DownloadLabel) + " " +
			m.theme.LinkStyle.Render(m.snapshot.ReportFileName) + " " +
			m.theme.ShortcutDesc.Render("(C-d)")
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{m.theme.ProgressTitle.Render(progressTitle)}, append(lines, reportLine)...)...,
	)
	return m.theme.ProgressPanel.Width(m.width - 2).Render(body)
}

// =============================================================================
// INPUT AND FOOTER
// =============================================================================

func (m Model) renderInput() string {
	return m.theme.InputContainer.Width(m.width).Render(m.input.View())
}

// renderDisclaimer wraps the disclaimer on narrow terminals.
func (m Model) renderDisclaimer() string {
	return m.theme.Disclaimer.Width(m.width).Render(disclaimerText)
}

func (m Model) renderFooter() string {
	if m.status != "" {
		text := m.status
		if m.listening {
			text = m.spinner.View() + " " + text
		}
		style := m.theme.StatusMsg
		if m.statusErr {
			style = m.theme.ErrorStyle
		}
		inner := m.width - m.theme.StatusBar.GetHorizontalFrameSize()
		return m.theme.StatusBar.Width(m.width).Render(style.Render(util.TruncateWidth(text, inner)))
	}
	return m.help.View(m.keys)
}
