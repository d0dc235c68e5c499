// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// HISTORY TYPE
// =============================================================================

// History is the ordered, append-only list of chat messages for one
// conversation. Entries come in user/assistant pairs.
type History struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Messages []*Message `json:"messages"`
}

// NewHistory creates an empty history with a generated ID.
func NewHistory() *History {
	now := time.Now()
	return &History{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  make([]*Message, 0),
	}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// AppendExchange appends a question and its answer as a single step.
func (h *History) AppendExchange(user, assistant *Message) {
	h.Messages = append(h.Messages, user, assistant)
	h.UpdatedAt = time.Now()
}

// Last returns the most recent message, or nil if empty.
func (h *History) Last() *Message {
	if len(h.Messages) == 0 {
		return nil
	}
	return h.Messages[len(h.Messages)-1]
}

// LastAssistant returns the most recent assistant message.
func (h *History) LastAssistant() *Message {
	for i := len(h.Messages) - 1; i >= 0; i-- {
		if h.Messages[i].Role == RoleAssistant {
			return h.Messages[i]
		}
	}
	return nil
}

// LastUser returns the most recent user message.
func (h *History) LastUser() *Message {
	for i := len(h.Messages) - 1; i >= 0; i-- {
		if h.Messages[i].Role == RoleUser {
			return h.Messages[i]
		}
	}
	return nil
}

// ByID returns a message by its ID.
func (h *History) ByID(id string) *Message {
	for _, msg := range h.Messages {
		if msg.ID == id {
			return msg
		}
	}
	return nil
}

// Len returns the number of messages.
func (h *History) Len() int {
	return len(h.Messages)
}

// IsEmpty returns true if there are no messages.
func (h *History) IsEmpty() bool {
	return len(h.Messages) == 0
}

// Title returns a short title derived from the first question.
func (h *History) Title() string {
	for _, msg := range h.Messages {
		if msg.Role == RoleUser {
			return msg.Preview(50)
		}
	}
	return "Nuevo chat"
}

// Clone creates a deep copy of the history.
func (h *History) Clone() *History {
	clone := &History{
		ID:        h.ID,
		CreatedAt: h.CreatedAt,
		UpdatedAt: h.UpdatedAt,
		Messages:  make([]*Message, len(h.Messages)),
	}
	for i, msg := range h.Messages {
		msgCopy := *msg
		clone.Messages[i] = &msgCopy
	}
	return clone
}
