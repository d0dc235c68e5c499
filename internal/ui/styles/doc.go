// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the medchat TUI.

All colors use Lip Gloss AdaptiveColor. The Theme decides which variant is
used: "auto" asks the terminal through termenv, while "dark" and "light"
force a variant regardless of what the terminal reports.

# Color System (colors.go)

  - Teal - Brand color, assistant accents
  - Blue - Doctor messages and links
  - Emerald - Report ready
  - Amber - Disclaimer and warnings
  - Rose - Errors

# Theme System (theme.go)

	theme := styles.NewThemeForMode(cfg.UI.Theme)
	answer := format.Render(markup, theme.AnswerStyle())
*/
package styles
