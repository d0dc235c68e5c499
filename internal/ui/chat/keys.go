// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines all keyboard bindings for the chat view.
type KeyMap struct {
	Submit   key.Binding
	Suggest  key.Binding
	NewChat  key.Binding
	Voice    key.Binding
	Speak    key.Binding
	Download key.Binding
	Copy     key.Binding
	Export   key.Binding
	Refresh  key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Help     key.Binding
	Quit     key.Binding
}

// DefaultKeyMap returns the default key bindings for the chat view.
// Control keys are used throughout so plain letters always reach the input.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "enviar"),
		),
		Suggest: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("Tab", "sugerencia"),
		),
		NewChat: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("C-n", "nuevo chat"),
		),
		Voice: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("C-r", "voz"),
		),
		Speak: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("C-t", "escuchar"),
		),
		Download: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("C-d", "descargar informe"),
		),
		Copy: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("C-y", "copiar"),
		),
		Export: key.NewBinding(
			key.WithKeys("ctrl+e"),
			key.WithHelp("C-e", "exportar chat"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("ctrl+f"),
			key.WithHelp("C-f", "actualizar progreso"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "subir"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "bajar"),
		),
		Help: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("F1", "ayuda"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "esc"),
			key.WithHelp("Esc/C-c", "salir"),
		),
	}
}

// ShortHelp returns the bindings shown in the footer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.NewChat, k.Voice, k.Download, k.Help, k.Quit}
}

// FullHelp returns every binding, grouped for the expanded help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.Suggest, k.NewChat},
		{k.Voice, k.Speak, k.Copy},
		{k.Download, k.Export, k.Refresh},
		{k.PageUp, k.PageDown, k.Help, k.Quit},
	}
}
