// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package format

import (
	"html"
	"path"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// tokenPattern matches every markup construct Format and ReportLink emit.
var tokenPattern = regexp.MustCompile(`<b>|</b>|<br>|<a href="([^"]*)"[^>]*>([^<]*)</a>`)

// Style controls how markup is rendered in the terminal.
type Style struct {
	Text lipgloss.Style
	Bold lipgloss.Style
	Link lipgloss.Style

	plain bool
}

// PlainStyle renders markup without any ANSI sequences.
func PlainStyle() Style {
	return Style{plain: true}
}

func (s Style) render(st lipgloss.Style, text string) string {
	if s.plain {
		return text
	}
	return st.Render(text)
}

// DefaultStyle renders bold spans bold and links underlined.
func DefaultStyle() Style {
	return Style{
		Text: lipgloss.NewStyle(),
		Bold: lipgloss.NewStyle().Bold(true),
		Link: lipgloss.NewStyle().Underline(true).Foreground(lipgloss.Color("39")),
	}
}

// Render converts markup into terminal text using style. Line breaks become
// newlines, bold spans are styled until the matching close tag (or the end
// of the text), and report links become a "[download: NAME]" label.
func Render(markup string, style Style) string {
	var out strings.Builder
	bold := false

	emit := func(text string) {
		if text == "" {
			return
		}
		if bold {
			out.WriteString(style.render(style.Bold, text))
			return
		}
		out.WriteString(style.render(style.Text, text))
	}

	pos := 0
	for _, loc := range tokenPattern.FindAllStringSubmatchIndex(markup, -1) {
		emit(markup[pos:loc[0]])
		pos = loc[1]

		switch tok := markup[loc[0]:loc[1]]; tok {
		case BoldOpen:
			bold = true
		case BoldClose:
			bold = false
		case Break:
			out.WriteString("\n")
		default:
			href := html.UnescapeString(markup[loc[2]:loc[3]])
			out.WriteString(style.render(style.Link, "[download: "+path.Base(href)+"]"))
		}
	}
	emit(markup[pos:])

	return out.String()
}

// RenderPartial renders a prefix of markup, such as a reveal buffer in
// progress. A report link that has not been fully revealed yet is hidden.
func RenderPartial(markup string, style Style) string {
	if i := strings.LastIndex(markup, "<a href="); i >= 0 && !strings.Contains(markup[i:], "</a>") {
		markup = markup[:i]
	}
	return Render(markup, style)
}

// Plain strips markup, keeping line breaks as newlines.
func Plain(markup string) string {
	return Render(markup, PlainStyle())
}

// ReportHref extracts the href of the first report link in markup.
func ReportHref(markup string) (string, bool) {
	for _, m := range tokenPattern.FindAllStringSubmatch(markup, -1) {
		if m[1] != "" {
			return html.UnescapeString(m[1]), true
		}
	}
	return "", false
}

// Markdown converts markup into Markdown: bold spans use "**", line breaks
// become hard breaks and report links become inline links.
func Markdown(markup string) string {
	var out strings.Builder
	pos := 0
	for _, loc := range tokenPattern.FindAllStringSubmatchIndex(markup, -1) {
		out.WriteString(markup[pos:loc[0]])
		pos = loc[1]

		switch tok := markup[loc[0]:loc[1]]; tok {
		case BoldOpen, BoldClose:
			out.WriteString(BoldMarker)
		case Break:
			out.WriteString("  \n")
		default:
			href := html.UnescapeString(markup[loc[2]:loc[3]])
			label := html.UnescapeString(markup[loc[4]:loc[5]])
			out.WriteString("[" + label + "](" + href + ")")
		}
	}
	out.WriteString(markup[pos:])
	return out.String()
}
