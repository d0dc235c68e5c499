// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"testing"
	"time"
)

func TestNewUserMessage(t *testing.T) {
	msg := NewUserMessage("Hola")

	if msg.Role != RoleUser {
		t.Errorf("Role = %q, want 'user'", msg.Role)
	}
	if msg.Content != "Hola" {
		t.Errorf("Content = %q, want 'Hola'", msg.Content)
	}
	if msg.ID == "" {
		t.Error("ID should be generated")
	}
}

func TestMessageIDsAreUnique(t *testing.T) {
	a := NewAssistantMessage("x")
	b := NewAssistantMessage("x")
	if a.ID == b.ID {
		t.Errorf("expected distinct IDs, both were %q", a.ID)
	}
}

func TestRole_DisplayName(t *testing.T) {
	tests := []struct {
		role Role
		want string
	}{
		{RoleUser, "Doctor"},
		{RoleAssistant, "Asistente"},
		{Role("other"), "other"},
	}

	for _, tc := range tests {
		if got := tc.role.DisplayName(); got != tc.want {
			t.Errorf("%q.DisplayName() = %q, want %q", tc.role, got, tc.want)
		}
	}
}

func TestMessage_Preview(t *testing.T) {
	msg := NewAssistantMessage("<b>Diagnóstico</b><br>glioma de bajo grado")

	if got := msg.Preview(100); got != "Diagnóstico glioma de bajo grado" {
		t.Errorf("Preview(100) = %q", got)
	}
	if got := msg.Preview(10); got != "Diagnós..." {
		t.Errorf("Preview(10) = %q", got)
	}
}

func TestMessage_FormatStats(t *testing.T) {
	msg := NewAssistantMessage("ok")
	if got := msg.FormatStats(); got != "" {
		t.Errorf("FormatStats() with zero latency = %q, want empty", got)
	}

	msg.Latency = 850 * time.Millisecond
	if got := msg.FormatStats(); got != "850ms" {
		t.Errorf("FormatStats() = %q, want 850ms", got)
	}

	msg.Latency = 12400 * time.Millisecond
	if got := msg.FormatStats(); got != "12.4s" {
		t.Errorf("FormatStats() = %q, want 12.4s", got)
	}

	user := NewUserMessage("q")
	user.Latency = time.Second
	if got := user.FormatStats(); got != "" {
		t.Errorf("user FormatStats() = %q, want empty", got)
	}
}

func TestHistory_AppendExchange(t *testing.T) {
	h := NewHistory()
	if !h.IsEmpty() || h.Title() != "Nuevo chat" {
		t.Fatalf("new history should be empty, got %d messages", h.Len())
	}

	h.AppendExchange(NewUserMessage("¿Qué ves?"), NewAssistantMessage("Una <b>lesión</b>"))
	h.AppendExchange(NewUserMessage("Genera el informe"), NewAssistantMessage("Listo"))

	if h.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", h.Len())
	}
	if h.Messages[0].Role != RoleUser || h.Messages[1].Role != RoleAssistant {
		t.Errorf("exchange out of order: %s, %s", h.Messages[0].Role, h.Messages[1].Role)
	}
	if got := h.LastUser().Content; got != "Genera el informe" {
		t.Errorf("LastUser() = %q", got)
	}
	if got := h.LastAssistant().Content; got != "Listo" {
		t.Errorf("LastAssistant() = %q", got)
	}
	if h.Title() != "¿Qué ves?" {
		t.Errorf("Title() = %q", h.Title())
	}
	if h.ByID(h.Messages[1].ID) != h.Messages[1] {
		t.Error("ByID did not find the assistant message")
	}
}

func TestHistory_Clone(t *testing.T) {
	h := NewHistory()
	h.AppendExchange(NewUserMessage("a"), NewAssistantMessage("b"))

	clone := h.Clone()
	clone.Messages[0].Content = "changed"

	if h.Messages[0].Content != "a" {
		t.Error("Clone shares message pointers with the original")
	}
}
