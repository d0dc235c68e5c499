// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/medchat-tui/internal/format"
	"github.com/jeranaias/medchat-tui/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// disclaimer closes every exported transcript, as it closes the chat view.
const disclaimer = "Este asistente está en fase experimental. Consulta siempre con especialistas médicos."

// MarkdownExporter exports transcripts to Markdown format.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a history to Markdown. Answers keep their bold spans and
// report links.
func (e *MarkdownExporter) Export(h *model.History) ([]byte, error) {
	if h == nil || h.IsEmpty() {
		return nil, ErrEmpty
	}

	var sb strings.Builder

	sb.WriteString("---\n")
	sb.WriteString(fmt.Sprintf("title: %s\n", escapeYAML(h.Title())))
	sb.WriteString(fmt.Sprintf("date: %s\n", h.CreatedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("messages: %d\n", h.Len()))
	sb.WriteString(fmt.Sprintf("exported: %s\n", e.options.clock().Format(time.RFC3339)))
	sb.WriteString("generator: medchat\n")
	sb.WriteString("---\n\n")

	sb.WriteString(fmt.Sprintf("# %s\n\n", escapeMarkdown(h.Title())))

	for _, msg := range h.Messages {
		sb.WriteString("### " + msg.Role.DisplayName())
		if e.options.IncludeTimestamps {
			sb.WriteString(" · " + formatShortTimestamp(msg.Timestamp))
		}
		if stats := msg.FormatStats(); stats != "" {
			sb.WriteString(" · " + stats)
		}
		sb.WriteString("\n\n")

		switch msg.Role {
		case model.RoleUser:
			sb.WriteString(quote(escapeMarkdown(msg.Content)))
		default:
			sb.WriteString(format.Markdown(msg.Content))
		}
		sb.WriteString("\n\n")
	}

	sb.WriteString("---\n\n")
	sb.WriteString(fmt.Sprintf("*%s*\n\n", disclaimer))
	sb.WriteString(fmt.Sprintf("*Exportado el %s*\n", formatTimestamp(e.options.clock())))

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// =============================================================================
// MARKDOWN HELPERS
// =============================================================================

// escapeMarkdown escapes characters that would start Markdown syntax.
func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		"*", `\*`,
		"_", `\_`,
		"`", "\\`",
		"[", `\[`,
		"]", `\]`,
		"#", `\#`,
	)
	return replacer.Replace(s)
}

// escapeYAML quotes a frontmatter value.
func escapeYAML(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// quote renders text as a Markdown block quote.
func quote(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "> " + l
	}
	return strings.Join(lines, "\n")
}
