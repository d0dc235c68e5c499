// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/medchat-tui/internal/audio"
	"github.com/jeranaias/medchat-tui/internal/config"
	"github.com/jeranaias/medchat-tui/internal/conversation"
	"github.com/jeranaias/medchat-tui/internal/progress"
	"github.com/jeranaias/medchat-tui/internal/ui/chat"
	"github.com/jeranaias/medchat-tui/internal/ui/styles"
	"github.com/jeranaias/medchat-tui/internal/voice"
)

// reloadDebounce coalesces editor save bursts into one config reload.
const reloadDebounce = 250 * time.Millisecond

// runTUI opens the full-screen chat.
func (a *app) runTUI(ctx context.Context) error {
	if !IsTTY() || !IsStdoutTTY() {
		return usageErrorf("the chat UI needs a terminal; use 'medchat ask' or 'medchat chat' instead")
	}

	cfg := a.cfg
	client := a.client()
	store := conversation.NewStore(client, conversation.Config{
		RevealStep: cfg.RevealStep(),
		ReportLink: client.DownloadURL,
	})

	snapshots := chat.NewFeed[progress.Snapshot]()
	poller := progress.NewPoller(client, progress.Config{
		Interval:   cfg.PollInterval(),
		OnSnapshot: snapshots.Publish,
	})

	reloads := chat.NewFeed[*config.Config]()
	if w := a.watchConfig(reloads.Publish); w != nil {
		defer w.Close()
	}

	recognizer, err := voice.Detect(voice.Config{
		Command:  cfg.Voice.Command,
		Language: cfg.Voice.Language,
		Timeout:  cfg.VoiceTimeout(),
	})
	if err != nil {
		log.Info().Err(err).Msg("voice input disabled")
	}
	player, err := audio.Detect(cfg.Audio.Player)
	if err != nil {
		log.Info().Err(err).Msg("speech playback disabled")
	}

	m := chat.New(chat.Deps{
		Context:   ctx,
		Config:    cfg,
		Theme:     styles.NewThemeForMode(cfg.UI.Theme),
		Store:     store,
		Backend:   client,
		Poller:    poller,
		Snapshots: snapshots,
		Reloads:   reloads,
		Voice:     recognizer,
		Player:    player,
	})

	log.Info().Str("backend", client.BaseURL()).Msg("chat UI started")

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if fm, ok := final.(chat.Model); ok {
		fm.Shutdown()
	} else {
		m.Shutdown()
	}
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return errors.Wrap(err, "chat UI")
	}

	log.Info().Msg("chat UI closed")
	return nil
}

// watchConfig starts a live-reload watcher on the active config file.
// It returns nil when watching is not possible; the UI then keeps the
// configuration it started with.
func (a *app) watchConfig(onChange func(*config.Config)) *config.Watcher {
	path := a.configPath
	if path == "" {
		if err := config.EnsureConfigDir(); err != nil {
			log.Warn().Err(err).Msg("config dir unavailable, live reload off")
			return nil
		}
		p, err := config.ConfigPathTOML()
		if err != nil {
			return nil
		}
		path = p
	}

	w, err := config.NewWatcher(path, reloadDebounce, onChange)
	if err != nil {
		log.Warn().Err(err).Msg("live reload off")
		return nil
	}
	if err := w.Watch(); err != nil {
		w.Close()
		log.Warn().Err(err).Msg("live reload off")
		return nil
	}
	log.Debug().Str("path", path).Msg("watching config")
	return w
}
