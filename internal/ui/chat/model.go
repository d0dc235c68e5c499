// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"io"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/medchat-tui/internal/audio"
	"github.com/jeranaias/medchat-tui/internal/backend"
	"github.com/jeranaias/medchat-tui/internal/config"
	"github.com/jeranaias/medchat-tui/internal/conversation"
	"github.com/jeranaias/medchat-tui/internal/progress"
	"github.com/jeranaias/medchat-tui/internal/ui/styles"
	"github.com/jeranaias/medchat-tui/internal/voice"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Backend is the part of the backend client the view calls.
type Backend interface {
	conversation.Querier
	Download(ctx context.Context, name string) (io.ReadCloser, error)
	Speak(ctx context.Context, text string) (*backend.Audio, error)
}

// Poller is the progress poller as seen by the view.
type Poller interface {
	Start(ctx context.Context)
	Stop()
	Refresh() bool
}

// Deps wires the view to the rest of the application. Store, Backend and
// Config are required; everything else is optional.
type Deps struct {
	Context context.Context
	Config  *config.Config
	Theme   *styles.Theme
	Store   *conversation.Store
	Backend Backend

	Poller    Poller
	Snapshots *Feed[progress.Snapshot]
	Reloads   *Feed[*config.Config]

	Voice  voice.Recognizer
	Player audio.Player

	// Clipboard defaults to the system clipboard.
	Clipboard func(string) error
}

// Suggestions are the greeting cards, in display order.
var Suggestions = []string{
	"Analiza una imagen de resonancia magnética y detecta zonas tumorales",
	"Explica cómo funciona el modelo DenseNet121 en este contexto clínico",
	"Realiza la segmentación del tumor utilizando UNet",
	"Resume el caso clínico a partir del análisis de la imagen",
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	ctx   context.Context
	stop  context.CancelFunc
	cfg   *config.Config
	theme *styles.Theme

	store     *conversation.Store
	backend   Backend
	poller    Poller
	snapshots *Feed[progress.Snapshot]
	reloads   *Feed[*config.Config]
	voice     voice.Recognizer
	player    audio.Player
	copyText  func(string) error
	cancels   *cancelSet

	// Dimensions
	width  int
	height int

	// UI Components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	help     help.Model
	keys     KeyMap
	greeting *greetingCache

	// Submission in flight, shown until the exchange lands in the history
	pending *conversation.Pending

	// Latest progress snapshot for the visible result
	snapshot progress.Snapshot

	// Status line
	status    string
	statusErr bool
	statusSeq int

	listening bool
	speaking  bool
	quitting  bool
}

// New creates the chat model.
func New(deps Deps) Model {
	ctx := deps.Context
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := context.WithCancel(ctx)
	cfg := deps.Config
	if cfg == nil {
		cfg = config.Default()
	}
	theme := deps.Theme
	if theme == nil {
		theme = styles.NewThemeForMode(cfg.UI.Theme)
	}
	copyText := deps.Clipboard
	if copyText == nil {
		copyText = clipboard.WriteAll
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Escribe tu consulta aquí..."
	ti.CharLimit = 4096
	ti.ShowSuggestions = true
	ti.SetSuggestions(Suggestions)
	ti.Focus()

	vp := viewport.New(80, 20)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		ctx:       ctx,
		stop:      stop,
		cfg:       cfg,
		theme:     theme,
		store:     deps.Store,
		backend:   deps.Backend,
		poller:    deps.Poller,
		snapshots: deps.Snapshots,
		reloads:   deps.Reloads,
		voice:     deps.Voice,
		player:    deps.Player,
		copyText:  copyText,
		cancels:   newCancelSet(),
		viewport:  vp,
		input:     ti,
		spinner:   sp,
		help:      help.New(),
		keys:      DefaultKeyMap(),
		greeting:  &greetingCache{},
		width:     80,
		height:    24,
	}
	m.applyTheme()
	m.layout()
	return m
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init starts the cursor blink and the background feed listeners.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.waitSnapshot(),
		m.waitReload(),
	)
}

// View renders the chat view.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return m.render()
}

// Shutdown stops background work owned by the view. It is safe to call
// more than once.
func (m Model) Shutdown() {
	m.stop()
	m.cancels.cancelAll()
	if m.poller != nil {
		m.poller.Stop()
	}
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Store returns the conversation store backing the view.
func (m Model) Store() *conversation.Store {
	return m.store
}

// Status returns the current status line text.
func (m Model) Status() string {
	return m.status
}

// Snapshot returns the progress snapshot on display.
func (m Model) Snapshot() progress.Snapshot {
	return m.snapshot
}

// InputValue returns the text in the input box.
func (m Model) InputValue() string {
	return m.input.Value()
}

// =============================================================================
// LAYOUT
// =============================================================================

// Fixed rows around the viewport: header, input (border + line) and key
// help. The disclaimer is measured since it wraps on narrow terminals.
const (
	headerHeight    = 1
	inputAreaHeight = 2
	helpHeight      = 1
)

// progressPanelHeight is the height of the progress panel, or zero when
// it is hidden.
func (m Model) progressPanelHeight() int {
	if !m.progressVisible() {
		return 0
	}
	// border (2) + title + log lines + report line
	return m.cfg.Progress.LogLines + 4
}

func (m Model) progressVisible() bool {
	return m.cfg.UI.ShowProgress && m.store.ShowResult()
}

// layout sizes the components for the current window.
func (m *Model) layout() {
	reserved := headerHeight + inputAreaHeight + helpHeight + m.progressPanelHeight()
	reserved += lipgloss.Height(m.renderDisclaimer())
	if m.help.ShowAll {
		reserved += fullHelpRows(m.keys) - helpHeight
	}

	vpHeight := m.height - reserved
	if vpHeight < 1 {
		vpHeight = 1
	}
	vpWidth := m.width
	if vpWidth < 1 {
		vpWidth = 1
	}
	m.viewport.Width = vpWidth
	m.viewport.Height = vpHeight

	const promptLen = 2 // "> "
	inputWidth := m.width - 2 - promptLen
	if inputWidth < 10 {
		inputWidth = 10
	}
	m.input.Width = inputWidth
	m.help.Width = m.width

	m.theme.SetSize(m.width, m.height)
	m.refreshViewport()
}

// applyTheme restyles the components that cache styles.
func (m *Model) applyTheme() {
	m.input.PromptStyle = m.theme.InputPrompt
	m.input.PlaceholderStyle = m.theme.InputPlaceholder
	m.spinner.Style = m.theme.Spinner
	m.help.Styles.ShortKey = m.theme.ShortcutKey
	m.help.Styles.ShortDesc = m.theme.ShortcutDesc
	m.help.Styles.FullKey = m.theme.ShortcutKey
	m.help.Styles.FullDesc = m.theme.ShortcutDesc
	m.greeting.invalidate()
}

// refreshViewport re-renders the history, following the bottom when the
// user has not scrolled up.
func (m *Model) refreshViewport() {
	follow := m.viewport.AtBottom() || m.viewport.TotalLineCount() == 0
	m.viewport.SetContent(m.renderConversation())
	if follow {
		m.viewport.GotoBottom()
	}
}

// fullHelpRows is the height of the expanded help, whose groups render as
// side-by-side columns.
func fullHelpRows(k KeyMap) int {
	rows := 0
	for _, group := range k.FullHelp() {
		if len(group) > rows {
			rows = len(group)
		}
	}
	return rows
}
