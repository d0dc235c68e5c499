// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/jeranaias/medchat-tui/internal/backend"
	"github.com/jeranaias/medchat-tui/internal/config"
	"github.com/jeranaias/medchat-tui/internal/conversation"
	"github.com/jeranaias/medchat-tui/internal/progress"
	"github.com/jeranaias/medchat-tui/internal/report"
	"github.com/jeranaias/medchat-tui/internal/reveal"
)

// =============================================================================
// QUERY MESSAGES
// =============================================================================

// QueryDoneMsg delivers the backend answer for a submission.
type QueryDoneMsg struct {
	Pending conversation.Pending
	Result  *backend.QueryResult
	Err     error
}

// RevealMsg delivers one scheduled word of the answer.
type RevealMsg struct {
	Event reveal.Event
}

// =============================================================================
// BACKGROUND FEEDS
// =============================================================================

// ProgressMsg delivers a fresh progress snapshot.
type ProgressMsg struct {
	Snapshot progress.Snapshot
}

// ConfigChangedMsg delivers a reloaded configuration.
type ConfigChangedMsg struct {
	Config *config.Config
}

// =============================================================================
// ACTION RESULTS
// =============================================================================

// VoiceMsg delivers a voice transcript.
type VoiceMsg struct {
	Text string
	Err  error
}

// SpeakDoneMsg signals the end of answer playback.
type SpeakDoneMsg struct {
	Err error
}

// DownloadMsg reports the outcome of a report download.
type DownloadMsg struct {
	Name   string
	Result *report.Result
	Err    error
}

// =============================================================================
// STATUS LINE
// =============================================================================

// statusTTL is how long a status message stays visible.
const statusTTL = 4 * time.Second

// clearStatusMsg clears the status line if it still shows message seq.
type clearStatusMsg struct {
	seq int
}
