// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/medchat-tui/internal/format"
)

// init configures the lipgloss color profile from terminal capabilities.
func init() {
	lipgloss.SetColorProfile(GetColorProfile())
}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// TitleStyle is used for command titles and headers
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("37")) // Teal

	// PromptStyle is the chat REPL prompt
	PromptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("37"))

	// LabelStyle prefixes assistant answers
	LabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("69")) // Blue

	// SuccessStyle is used for success messages
	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")) // Green

	// ErrorStyle is used for error messages
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")) // Red

	// WarningStyle is used for warnings
	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // Amber

	// DimStyle is used for secondary output such as progress lines
	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

// answerStyle returns the markup style for answers, or a plain one when
// colors are off.
func answerStyle(color bool) format.Style {
	if !color {
		return format.PlainStyle()
	}
	return format.DefaultStyle()
}

// paint renders text with st only when color is on.
func paint(st lipgloss.Style, text string, color bool) string {
	if !color {
		return text
	}
	return st.Render(text)
}
