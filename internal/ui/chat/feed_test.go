// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestFeed_KeepsLatest(t *testing.T) {
	f := NewFeed[int]()
	f.Publish(1)
	f.Publish(2)
	f.Publish(3)

	msg := wait(context.Background(), f, func(v int) tea.Msg { return v })()
	assert.Equal(t, 3, msg)
}

func TestFeed_Drain(t *testing.T) {
	f := NewFeed[string]()
	f.Publish("viejo")
	f.Drain()
	f.Drain()

	select {
	case v := <-f.ch:
		t.Fatalf("unexpected value %q after Drain", v)
	default:
	}
}

func TestFeed_NilWait(t *testing.T) {
	var f *Feed[int]
	assert.Nil(t, wait(context.Background(), f, func(v int) tea.Msg { return v }))
}

func TestFeed_WaitEndsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := NewFeed[int]()
	cmd := wait(ctx, f, func(v int) tea.Msg { return v })

	got := make(chan tea.Msg, 1)
	go func() { got <- cmd() }()
	cancel()

	select {
	case msg := <-got:
		assert.Nil(t, msg)
	case <-time.After(time.Second):
		t.Fatal("wait did not return after cancel")
	}
}

func TestFeed_PublishNeverBlocks(t *testing.T) {
	f := NewFeed[int]()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			f.Publish(i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked")
	}
}

func TestCancelSet(t *testing.T) {
	c := newCancelSet()

	first := c.start(context.Background(), opQuery)
	second := c.start(context.Background(), opQuery)
	assert.Error(t, first.Err(), "restarting an operation cancels the previous context")
	assert.NoError(t, second.Err())
	assert.True(t, c.running(opQuery))

	voice := c.start(context.Background(), opVoice)
	c.cancelAll()
	assert.Error(t, second.Err())
	assert.Error(t, voice.Err())
	assert.False(t, c.running(opQuery))
	assert.False(t, c.running(opVoice))
}
