// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// Feed carries values from a background goroutine into the Update loop.
// It holds at most one value: publishing replaces a value that has not
// been consumed yet, so a slow UI only ever sees the latest state.
type Feed[T any] struct {
	ch chan T
}

// NewFeed creates an empty feed.
func NewFeed[T any]() *Feed[T] {
	return &Feed[T]{ch: make(chan T, 1)}
}

// Publish stores v, replacing any unconsumed value. It never blocks.
func (f *Feed[T]) Publish(v T) {
	for {
		select {
		case f.ch <- v:
			return
		default:
		}
		select {
		case <-f.ch:
		default:
		}
	}
}

// Drain discards an unconsumed value, if any.
func (f *Feed[T]) Drain() {
	select {
	case <-f.ch:
	default:
	}
}

// wait returns a command that blocks until the next value and wraps it
// into a message. The command returns nil once ctx is done. A nil feed
// yields a nil command.
func wait[T any](ctx context.Context, f *Feed[T], wrap func(T) tea.Msg) tea.Cmd {
	if f == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case v := <-f.ch:
			return wrap(v)
		case <-ctx.Done():
			return nil
		}
	}
}
