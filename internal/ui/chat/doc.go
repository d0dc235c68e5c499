// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the chat view for the medchat TUI.

The view is a Bubble Tea model over a conversation.Store. It shows the
greeting with suggestion cards until the first exchange, then the history,
a loading spinner while a query is in flight, the diagnosis progress panel
and the input box.

# Key Components

## Model (model.go)

The Model owns the store for the lifetime of the program. Bubble Tea's
Update loop is the only writer, so the store never sees concurrent
submissions from the view.

## Update Loop (update.go)

Network calls run inside tea.Cmd goroutines and report back as messages:
QueryDoneMsg, VoiceMsg, SpeakDoneMsg and DownloadMsg. Every word of an
answer is scheduled as its own tea.Tick and arrives as a RevealMsg tagged
with the generation it belongs to; events from an older generation are
dropped by the store.

## Feeds (feed.go)

Background goroutines that outlive a single command (the progress poller
and the config watcher) publish into a Feed. The model re-arms a command
that waits on the feed after every delivery.

## View Rendering (view.go)

Header, greeting, history, progress panel, input, key help and the
disclaimer line.

# Keyboard Shortcuts

	Enter   - Submit the query
	Tab     - Fill the input with a suggestion
	Ctrl+N  - New chat
	Ctrl+R  - Voice capture
	Ctrl+T  - Speak the last answer
	Ctrl+D  - Download the report
	Ctrl+Y  - Copy the last answer
	Ctrl+E  - Export the conversation as Markdown
	Ctrl+F  - Refresh progress now
	Ctrl+C  - Quit (also Esc)
*/
package chat
