// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat messages.
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/medchat-tui/internal/format"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "Doctor"
	case RoleAssistant:
		return "Asistente"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is one entry of the chat history. Content holds display markup
// (see package format). Messages are never modified after they are
// appended to a history.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// Assistant messages only.
	Latency    time.Duration `json:"latency_ns,omitempty"`
	ReportName string        `json:"report_name,omitempty"`
	Failed     bool          `json:"failed,omitempty"`
}

// NewMessage creates a new message with a generated ID.
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) *Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates a new assistant message with formatted content.
func NewAssistantMessage(content string) *Message {
	return NewMessage(RoleAssistant, content)
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// PlainText returns the content with markup stripped.
func (m *Message) PlainText() string {
	return format.Plain(m.Content)
}

// Preview returns a truncated single-line preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m *Message) Preview(maxLen int) string {
	runes := []rune(m.PlainText())
	for i, r := range runes {
		if r == '\n' {
			runes[i] = ' '
		}
	}
	if len(runes) <= maxLen {
		return string(runes)
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// IsEmpty returns true if the message has no content.
func (m *Message) IsEmpty() bool {
	return len(m.Content) == 0
}

// FormatStats returns a short latency summary for assistant messages.
func (m *Message) FormatStats() string {
	if m.Role != RoleAssistant || m.Latency == 0 {
		return ""
	}
	return formatDuration(m.Latency)
}

// formatDuration formats a duration as "850ms" or "12.4s".
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
