// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"time"

	"github.com/jeranaias/medchat-tui/internal/model"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports transcripts to JSON. Each message carries both the
// display markup and its plain text.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

type jsonTranscript struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	CreatedAt  time.Time     `json:"created_at"`
	ExportedAt time.Time     `json:"exported_at"`
	Messages   []jsonMessage `json:"messages"`
}

type jsonMessage struct {
	*model.Message
	Text string `json:"text"`
}

// Export converts a history to indented JSON.
func (e *JSONExporter) Export(h *model.History) ([]byte, error) {
	if h == nil || h.IsEmpty() {
		return nil, ErrEmpty
	}

	out := jsonTranscript{
		ID:         h.ID,
		Title:      h.Title(),
		CreatedAt:  h.CreatedAt,
		ExportedAt: e.options.clock(),
		Messages:   make([]jsonMessage, len(h.Messages)),
	}
	for i, msg := range h.Messages {
		out.Messages[i] = jsonMessage{Message: msg, Text: msg.PlainText()}
	}
	return json.MarshalIndent(out, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}
