// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package reveal schedules the word-by-word display of a finished answer.
//
// A reveal is planned up front as a list of Events whose delays are all
// measured from a single origin. Every event carries the generation it was
// planned for; once a newer generation starts, older events are ignored.
package reveal

import (
	"context"
	"io"
	"strings"
	"sync/atomic"
	"time"
)

// DefaultStep is the delay between consecutive words.
const DefaultStep = 75 * time.Millisecond

// =============================================================================
// EVENTS
// =============================================================================

// Event is one scheduled append to the reveal buffer.
type Event struct {
	Generation uint64
	Index      int
	Word       string
	Delay      time.Duration
}

// Plan splits text on single spaces and returns one event per word. Event i
// carries word+" " and fires step*i after the origin. Empty text yields no
// events.
func Plan(gen uint64, text string, step time.Duration) []Event {
	if text == "" {
		return nil
	}
	if step < 0 {
		step = 0
	}

	words := strings.Split(text, " ")
	events := make([]Event, len(words))
	for i, w := range words {
		events[i] = Event{
			Generation: gen,
			Index:      i,
			Word:       w + " ",
			Delay:      step * time.Duration(i),
		}
	}
	return events
}

// =============================================================================
// GENERATION COUNTER
// =============================================================================

// Revealer hands out generations. Starting a new generation makes every
// event planned for an older one stale.
//
// Revealer is safe for concurrent use.
type Revealer struct {
	gen atomic.Uint64
}

// Next starts and returns a new generation.
func (r *Revealer) Next() uint64 {
	return r.gen.Add(1)
}

// Current returns the active generation.
func (r *Revealer) Current() uint64 {
	return r.gen.Load()
}

// IsCurrent reports whether gen is still the active generation.
func (r *Revealer) IsCurrent(gen uint64) bool {
	return r.gen.Load() == gen
}

// =============================================================================
// SEQUENCER
// =============================================================================

// Sequencer applies events in index order. Events that arrive early are
// held until their predecessors land; events from another generation are
// dropped.
//
// Sequencer is not safe for concurrent use; feed it from one goroutine.
type Sequencer struct {
	gen     uint64
	total   int
	next    int
	pending map[int]string
	buf     strings.Builder
}

// Start resets the sequencer for a new generation expecting total events.
func (s *Sequencer) Start(gen uint64, total int) {
	s.gen = gen
	s.total = total
	s.next = 0
	s.pending = make(map[int]string)
	s.buf.Reset()
}

// Accept applies ev and returns the text that became visible as a result.
// The boolean is false when the event was dropped.
func (s *Sequencer) Accept(ev Event) (string, bool) {
	if ev.Generation != s.gen || ev.Index < s.next || ev.Index >= s.total {
		return "", false
	}
	if _, dup := s.pending[ev.Index]; dup {
		return "", false
	}
	s.pending[ev.Index] = ev.Word

	var out strings.Builder
	for {
		word, ok := s.pending[s.next]
		if !ok {
			break
		}
		delete(s.pending, s.next)
		out.WriteString(word)
		s.next++
	}
	s.buf.WriteString(out.String())
	return out.String(), true
}

// Generation returns the generation being sequenced.
func (s *Sequencer) Generation() uint64 {
	return s.gen
}

// Text returns everything revealed so far.
func (s *Sequencer) Text() string {
	return s.buf.String()
}

// Done reports whether every event of the generation has been applied.
func (s *Sequencer) Done() bool {
	return s.next >= s.total
}

// =============================================================================
// PLAYBACK
// =============================================================================

// Play schedules every event on its own timer from a common origin and
// writes the revealed text to w in order. It returns when the last word is
// written or ctx is done, stopping any timers still pending.
func Play(ctx context.Context, w io.Writer, events []Event) error {
	if len(events) == 0 {
		return nil
	}

	var seq Sequencer
	seq.Start(events[0].Generation, len(events))

	fired := make(chan Event, len(events))
	timers := make([]*time.Timer, 0, len(events))
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for _, ev := range events {
		ev := ev
		timers = append(timers, time.AfterFunc(ev.Delay, func() {
			fired <- ev
		}))
	}

	for !seq.Done() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-fired:
			text, ok := seq.Accept(ev)
			if !ok || text == "" {
				continue
			}
			if _, err := io.WriteString(w, text); err != nil {
				return err
			}
		}
	}
	return nil
}
