// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/jeranaias/medchat-tui/internal/format"
)

// Theme modes accepted by NewThemeForMode.
const (
	ModeAuto  = "auto"
	ModeDark  = "dark"
	ModeLight = "light"
)

// Theme holds the runtime styling state for the TUI.
type Theme struct {
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	Width  int
	Height int

	// ==========================================================================
	// HEADER
	// ==========================================================================
	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style

	// ==========================================================================
	// GREETING
	// ==========================================================================
	GreetingTitle    lipgloss.Style
	GreetingSubtitle lipgloss.Style
	Card             lipgloss.Style
	CardIndex        lipgloss.Style

	// ==========================================================================
	// MESSAGES
	// ==========================================================================
	UserLabel       lipgloss.Style
	UserBubble      lipgloss.Style
	AssistantLabel  lipgloss.Style
	AssistantBubble lipgloss.Style
	FailedBubble    lipgloss.Style
	MessageMeta     lipgloss.Style

	// ==========================================================================
	// INPUT AREA
	// ==========================================================================
	InputContainer   lipgloss.Style
	InputPrompt      lipgloss.Style
	InputPlaceholder lipgloss.Style

	// ==========================================================================
	// LOADING AND PROGRESS
	// ==========================================================================
	Spinner       lipgloss.Style
	ThinkingText  lipgloss.Style
	ProgressPanel lipgloss.Style
	ProgressTitle lipgloss.Style
	ProgressLine  lipgloss.Style
	ReportReady   lipgloss.Style

	// ==========================================================================
	// STATUS BAR AND FOOTER
	// ==========================================================================
	StatusBar    lipgloss.Style
	StatusMsg    lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style
	Disclaimer   lipgloss.Style

	// ==========================================================================
	// ANSWER MARKUP
	// ==========================================================================
	AnswerText lipgloss.Style
	AnswerBold lipgloss.Style
	LinkStyle  lipgloss.Style

	ErrorStyle lipgloss.Style
}

// NewTheme creates a theme using the terminal's detected background.
func NewTheme() *Theme {
	return NewThemeForMode(ModeAuto)
}

// NewThemeForMode creates a theme for mode ("auto", "dark" or "light").
// Unknown modes behave like "auto".
func NewThemeForMode(mode string) *Theme {
	colorProfile := termenv.ColorProfile()

	var isDark bool
	switch strings.ToLower(mode) {
	case ModeDark:
		isDark = true
	case ModeLight:
		isDark = false
	default:
		isDark = termenv.HasDarkBackground()
	}
	// AdaptiveColor resolution follows this flag
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{
		IsDark:       isDark,
		HasTrueColor: colorProfile == termenv.TrueColor,
		ColorProfile: colorProfile,
	}

	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	// Header
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Teal)

	t.HeaderSubtitle = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	// Greeting
	t.GreetingTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Teal)

	t.GreetingSubtitle = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.Card = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Foreground(TextPrimary).
		Padding(0, 1)

	t.CardIndex = lipgloss.NewStyle().
		Foreground(Teal).
		Bold(true)

	// Messages
	t.UserLabel = lipgloss.NewStyle().
		Foreground(UserBubbleBorder).
		Bold(true)

	t.UserBubble = lipgloss.NewStyle().
		Foreground(UserBubbleFg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(UserBubbleBorder).
		BorderLeft(true).
		PaddingLeft(1)

	t.AssistantLabel = lipgloss.NewStyle().
		Foreground(AssistantBubbleBorder).
		Bold(true)

	t.AssistantBubble = lipgloss.NewStyle().
		Foreground(AssistantBubbleFg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(AssistantBubbleBorder).
		BorderLeft(true).
		PaddingLeft(1)

	t.FailedBubble = t.AssistantBubble.
		BorderForeground(Rose)

	t.MessageMeta = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	// Input area
	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.InputPrompt = lipgloss.NewStyle().
		Foreground(Teal).
		Bold(true)

	t.InputPlaceholder = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	// Loading and progress
	t.Spinner = lipgloss.NewStyle().
		Foreground(Teal)

	t.ThinkingText = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.ProgressPanel = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.ProgressTitle = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Bold(true)

	t.ProgressLine = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.ReportReady = lipgloss.NewStyle().
		Foreground(Emerald).
		Bold(true)

	// Status bar and footer
	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)

	t.StatusMsg = lipgloss.NewStyle().
		Foreground(Teal)

	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(Teal).
		Bold(true)

	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.Disclaimer = lipgloss.NewStyle().
		Foreground(Amber).
		Italic(true).
		Align(lipgloss.Center)

	// Answer markup
	t.AnswerText = lipgloss.NewStyle()

	t.AnswerBold = lipgloss.NewStyle().
		Bold(true)

	t.LinkStyle = lipgloss.NewStyle().
		Foreground(LinkColor).
		Underline(true)

	t.ErrorStyle = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)
}

// AnswerStyle returns the style used to render assistant markup.
func (t *Theme) AnswerStyle() format.Style {
	return format.Style{
		Text: t.AnswerText,
		Bold: t.AnswerBold,
		Link: t.LinkStyle,
	}
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // > 100 columns
)
