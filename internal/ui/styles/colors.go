// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// PRIMARY ACCENT COLORS
// =============================================================================

// Teal - Brand color, header, assistant accents
var Teal = lipgloss.AdaptiveColor{Light: "#0F766E", Dark: "#2DD4BF"}

// Blue - Doctor messages, links
var Blue = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"}

// Emerald - Success states, report ready
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// =============================================================================
// SEMANTIC COLORS
// =============================================================================

// Rose - Errors, failed backend calls
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// Amber - Warnings, the experimental disclaimer
var Amber = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}

// =============================================================================
// SURFACE COLORS
// =============================================================================

// SurfaceDim - Headers and status bar
var SurfaceDim = lipgloss.AdaptiveColor{Light: "#F1F5F9", Dark: "#111827"}

// Overlay - Borders and separators
var Overlay = lipgloss.AdaptiveColor{Light: "#CBD5E1", Dark: "#374151"}

// =============================================================================
// TEXT COLORS
// =============================================================================

// TextPrimary - Main body text
var TextPrimary = lipgloss.AdaptiveColor{Light: "#0F172A", Dark: "#E5E7EB"}

// TextSecondary - Labels, less prominent text
var TextSecondary = lipgloss.AdaptiveColor{Light: "#475569", Dark: "#9CA3AF"}

// TextMuted - Hints, timestamps, progress log
var TextMuted = lipgloss.AdaptiveColor{Light: "#94A3B8", Dark: "#6B7280"}

// =============================================================================
// MESSAGE COLORS
// =============================================================================

var UserBubbleFg = lipgloss.AdaptiveColor{Light: "#1E3A8A", Dark: "#DBEAFE"}
var UserBubbleBorder = Blue

var AssistantBubbleFg = lipgloss.AdaptiveColor{Light: "#134E4A", Dark: "#CCFBF1"}
var AssistantBubbleBorder = Teal

// LinkColor - Report download links
var LinkColor = lipgloss.AdaptiveColor{Light: "#2563EB", Dark: "#60A5FA"}

// =============================================================================
// STATUS INDICATORS
// =============================================================================

// StatusIndicatorSet contains text indicators for status states, so state is
// readable without color.
type StatusIndicatorSet struct {
	Success string
	Error   string
	Warning string
	Info    string
}

// StatusIndicators are ASCII-only for maximum terminal compatibility.
var StatusIndicators = StatusIndicatorSet{
	Success: "[OK]",
	Error:   "[X]",
	Warning: "[!]",
	Info:    "[i]",
}

// RenderSuccess renders a success message with its indicator.
func RenderSuccess(message string) string {
	return lipgloss.NewStyle().Foreground(Emerald).Bold(true).
		Render(StatusIndicators.Success + " " + message)
}

// RenderError renders an error message with its indicator.
func RenderError(message string) string {
	return lipgloss.NewStyle().Foreground(Rose).Bold(true).
		Render(StatusIndicators.Error + " " + message)
}

// RenderWarning renders a warning message with its indicator.
func RenderWarning(message string) string {
	return lipgloss.NewStyle().Foreground(Amber).Bold(true).
		Render(StatusIndicators.Warning + " " + message)
}

// RenderInfo renders an informational message with its indicator.
func RenderInfo(message string) string {
	return lipgloss.NewStyle().Foreground(Blue).Bold(true).
		Render(StatusIndicators.Info + " " + message)
}
