// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package format turns raw backend text into display markup and renders
// that markup for the terminal.
package format

import (
	"fmt"
	"html"
	"strings"
)

// =============================================================================
// MARKUP TOKENS
// =============================================================================

const (
	// BoldMarker delimits emphasised text in raw backend output.
	BoldMarker = "**"
	// BreakMarker is what remains of a marker after bold spans are resolved.
	BreakMarker = "*"

	BoldOpen  = "<b>"
	BoldClose = "</b>"
	Break     = "<br>"

	// DownloadLabel is the link text shown for a generated report.
	DownloadLabel = "Descargar informe PDF"
)

// =============================================================================
// FORMATTING
// =============================================================================

// Format converts raw backend text into markup. Text between "**" pairs is
// wrapped in a bold span, then every remaining "*" becomes a line break.
// Markers at the very end of the text produce no break.
//
// Unpaired markers are not repaired: a lone "**" wraps the rest of the text
// in a bold span, and stray "*" become breaks.
func Format(raw string) string {
	segments := strings.Split(raw, BoldMarker)

	var b strings.Builder
	b.Grow(len(raw) + 16)
	for i, seg := range segments {
		if i%2 == 1 {
			b.WriteString(BoldOpen)
			b.WriteString(seg)
			b.WriteString(BoldClose)
			continue
		}
		b.WriteString(seg)
	}

	lines := strings.Split(b.String(), BreakMarker)
	for len(lines) > 1 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, Break)
}

// FormatWithReport formats raw text and, when href is not empty, appends a
// download link fragment for the generated report.
func FormatWithReport(raw, href string) string {
	out := Format(raw)
	if href == "" {
		return out
	}
	if out != "" {
		out += Break
	}
	return out + ReportLink(href)
}

// ReportLink builds the anchor fragment used to offer a report download.
func ReportLink(href string) string {
	return fmt.Sprintf(`<a href="%s" download>%s</a>`, html.EscapeString(href), DownloadLabel)
}

// CountBold returns the number of bold spans opened in markup.
func CountBold(markup string) int {
	return strings.Count(markup, BoldOpen)
}

// hasMarkers reports whether raw text still contains emphasis markers.
func hasMarkers(s string) bool {
	return strings.Contains(s, BreakMarker)
}
