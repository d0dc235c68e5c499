// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reveal

import (
	"bytes"
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlan(t *testing.T) {
	events := Plan(3, "Hola Doctor <b>hecho</b>", DefaultStep)
	require.Len(t, events, 3)

	for i, ev := range events {
		assert.Equal(t, uint64(3), ev.Generation)
		assert.Equal(t, i, ev.Index)
		assert.Equal(t, time.Duration(i)*75*time.Millisecond, ev.Delay)
	}
	assert.Equal(t, "Hola ", events[0].Word)
	assert.Equal(t, "<b>hecho</b> ", events[2].Word)
}

func TestPlan_Empty(t *testing.T) {
	assert.Nil(t, Plan(1, "", DefaultStep))
}

func TestPlan_ConsecutiveSpaces(t *testing.T) {
	events := Plan(1, "a  b", DefaultStep)
	require.Len(t, events, 3)
	assert.Equal(t, " ", events[1].Word)
}

func TestSequencer_InOrder(t *testing.T) {
	events := Plan(1, "uno dos tres", DefaultStep)

	var seq Sequencer
	seq.Start(1, len(events))
	for _, ev := range events {
		_, ok := seq.Accept(ev)
		require.True(t, ok)
	}

	assert.True(t, seq.Done())
	assert.Equal(t, "uno dos tres ", seq.Text())
}

func TestSequencer_OutOfOrder(t *testing.T) {
	events := Plan(7, "el informe está listo para descargar", DefaultStep)
	shuffled := append([]Event(nil), events...)
	rand.New(rand.NewSource(42)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	var seq Sequencer
	seq.Start(7, len(events))
	for _, ev := range shuffled {
		seq.Accept(ev)
	}

	assert.True(t, seq.Done())
	assert.Equal(t, "el informe está listo para descargar ", seq.Text())
}

func TestSequencer_HoldsEarlyArrivals(t *testing.T) {
	events := Plan(1, "a b c", DefaultStep)

	var seq Sequencer
	seq.Start(1, len(events))

	text, ok := seq.Accept(events[2])
	assert.True(t, ok)
	assert.Empty(t, text)

	text, _ = seq.Accept(events[0])
	assert.Equal(t, "a ", text)

	text, _ = seq.Accept(events[1])
	assert.Equal(t, "b c ", text)
}

func TestSequencer_DropsStale(t *testing.T) {
	var r Revealer
	old := r.Next()
	stale := Plan(old, "respuesta vieja", DefaultStep)

	current := r.Next()
	fresh := Plan(current, "nueva", DefaultStep)

	var seq Sequencer
	seq.Start(current, len(fresh))

	for _, ev := range stale {
		_, ok := seq.Accept(ev)
		assert.False(t, ok)
	}
	seq.Accept(fresh[0])

	assert.False(t, r.IsCurrent(old))
	assert.Equal(t, "nueva ", seq.Text())
}

func TestSequencer_DropsDuplicates(t *testing.T) {
	events := Plan(1, "a b", DefaultStep)

	var seq Sequencer
	seq.Start(1, len(events))
	seq.Accept(events[0])

	_, ok := seq.Accept(events[0])
	assert.False(t, ok)
	assert.Equal(t, "a ", seq.Text())
}

func TestPlay(t *testing.T) {
	var buf bytes.Buffer
	err := Play(context.Background(), &buf, Plan(1, "hola doctor", time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, "hola doctor ", buf.String())
}

func TestPlay_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	err := Play(ctx, &buf, Plan(1, "a b c", time.Hour))
	assert.ErrorIs(t, err, context.Canceled)
}
