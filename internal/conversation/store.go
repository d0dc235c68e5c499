// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation holds the chat session state and its actions.
package conversation

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/medchat-tui/internal/backend"
	"github.com/jeranaias/medchat-tui/internal/format"
	"github.com/jeranaias/medchat-tui/internal/model"
	"github.com/jeranaias/medchat-tui/internal/reveal"
)

// FallbackPrefix starts the assistant message shown when the backend call fails.
const FallbackPrefix = "Error conectando al backend: "

var (
	// ErrEmptyPrompt is returned when the prompt is blank. No request is made.
	ErrEmptyPrompt = errors.New("empty prompt")

	// ErrSubmissionPending is returned when a submission is already in flight.
	ErrSubmissionPending = errors.New("a submission is already pending")
)

// =============================================================================
// TYPES
// =============================================================================

// Querier sends a chat query to the backend.
type Querier interface {
	Query(ctx context.Context, text string) (*backend.QueryResult, error)
}

// Phase is the submission state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSending
	PhaseFormatting
	PhaseRevealing
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSending:
		return "sending"
	case PhaseFormatting:
		return "formatting"
	case PhaseRevealing:
		return "revealing"
	default:
		return "unknown"
	}
}

// Pending identifies an in-flight submission.
type Pending struct {
	Generation uint64
	Prompt     string
	Started    time.Time
}

// Config holds store options.
type Config struct {
	// RevealStep is the delay between revealed words (default: 75ms).
	RevealStep time.Duration

	// ReportLink maps a report file name to its download href. When nil,
	// report links are not appended to answers.
	ReportLink func(name string) string
}

// =============================================================================
// STORE
// =============================================================================

// Store owns the state of one chat session: the draft input, the history,
// the loading and result flags and the reveal buffer. Nothing is persisted.
//
// Store is safe for concurrent use, although the UI drives it from a single
// event loop.
type Store struct {
	mu     sync.Mutex
	client Querier
	config Config

	input      string
	history    *model.History
	loading    bool
	showResult bool
	resultData string
	phase      Phase
	pending    *Pending
	full       string

	revealer reveal.Revealer
	seq      reveal.Sequencer
}

// NewStore creates an empty store that sends queries through client.
func NewStore(client Querier, config Config) *Store {
	if config.RevealStep <= 0 {
		config.RevealStep = reveal.DefaultStep
	}
	return &Store{
		client:  client,
		config:  config,
		history: model.NewHistory(),
	}
}

// =============================================================================
// ACTIONS
// =============================================================================

// Begin starts a submission. A blank prompt falls back to the current
// input; if both are blank ErrEmptyPrompt is returned and nothing changes.
func (s *Store) Begin(prompt string) (Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(prompt) == "" {
		prompt = s.input
	}
	if strings.TrimSpace(prompt) == "" {
		return Pending{}, ErrEmptyPrompt
	}
	if s.loading {
		return Pending{}, ErrSubmissionPending
	}

	gen := s.revealer.Next()
	s.seq.Start(gen, 0)
	s.loading = true
	s.showResult = true
	s.resultData = ""
	s.full = ""
	s.phase = PhaseSending

	p := Pending{Generation: gen, Prompt: prompt, Started: time.Now()}
	s.pending = &p

	log.Debug().Uint64("generation", gen).Int("prompt_len", len(prompt)).Msg("submission started")
	return p, nil
}

// Complete records the outcome of the submission p. A failed call becomes
// the fallback answer. The exchange is appended to the history and the
// reveal plan for the answer is returned. Completions for a submission
// that was reset away are ignored and return nil.
func (s *Store) Complete(p Pending, res *backend.QueryResult, err error) []reveal.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil || s.pending.Generation != p.Generation || !s.revealer.IsCurrent(p.Generation) {
		log.Debug().Uint64("generation", p.Generation).Msg("dropping stale completion")
		return nil
	}
	s.phase = PhaseFormatting

	var text, reportName string
	failed := false
	switch {
	case err != nil:
		text = FallbackPrefix + err.Error()
		failed = true
		log.Warn().Err(err).Msg("query failed")
	case res == nil:
		text = ""
	default:
		text = res.Text
		failed = res.IsError
		reportName = res.ReportName()
	}

	formatted := format.Format(text)
	if reportName != "" && s.config.ReportLink != nil {
		formatted = format.FormatWithReport(text, s.config.ReportLink(reportName))
	}

	answer := model.NewAssistantMessage(formatted)
	answer.Latency = time.Since(p.Started)
	answer.ReportName = reportName
	answer.Failed = failed
	s.history.AppendExchange(model.NewUserMessage(p.Prompt), answer)

	s.loading = false
	s.input = ""
	s.pending = nil
	s.full = formatted

	events := reveal.Plan(p.Generation, formatted, s.config.RevealStep)
	s.seq.Start(p.Generation, len(events))
	if len(events) == 0 {
		s.phase = PhaseIdle
	} else {
		s.phase = PhaseRevealing
	}
	return events
}

// Submit runs a full submission against the backend and returns the reveal
// plan for the answer. Network failures do not surface as errors; they
// become the fallback answer.
func (s *Store) Submit(ctx context.Context, prompt string) ([]reveal.Event, error) {
	p, err := s.Begin(prompt)
	if err != nil {
		return nil, err
	}
	res, qerr := s.client.Query(ctx, p.Prompt)
	return s.Complete(p, res, qerr), nil
}

// ApplyReveal appends a scheduled word to the result buffer. It reports
// false when the event belongs to a superseded generation.
func (s *Store) ApplyReveal(ev reveal.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.revealer.IsCurrent(ev.Generation) {
		return false
	}
	text, ok := s.seq.Accept(ev)
	if !ok {
		return false
	}
	s.resultData += text
	if s.seq.Done() && s.phase == PhaseRevealing {
		s.phase = PhaseIdle
	}
	return true
}

// RevealAll skips the animation and shows the whole answer.
func (s *Store) RevealAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseRevealing {
		return
	}
	s.revealer.Next()
	s.resultData = s.full
	s.phase = PhaseIdle
}

// ResetConversation clears the history, the result buffer and the flags.
// Pending reveal events and in-flight completions become stale.
func (s *Store) ResetConversation() {
	s.mu.Lock()
	defer s.mu.Unlock()

	gen := s.revealer.Next()
	s.seq.Start(gen, 0)
	s.history = model.NewHistory()
	s.input = ""
	s.loading = false
	s.showResult = false
	s.resultData = ""
	s.full = ""
	s.pending = nil
	s.phase = PhaseIdle

	log.Debug().Uint64("generation", gen).Msg("conversation reset")
}

// SetInput replaces the draft input.
func (s *Store) SetInput(text string) {
	s.mu.Lock()
	s.input = text
	s.mu.Unlock()
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Input returns the draft input.
func (s *Store) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

// History returns a snapshot of the messages in order.
func (s *Store) History() []*model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Clone().Messages
}

// Transcript returns a copy of the whole conversation.
func (s *Store) Transcript() *model.History {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Clone()
}

// LastAnswer returns the most recent assistant message, or nil.
func (s *Store) LastAnswer() *model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg := s.history.LastAssistant(); msg != nil {
		c := *msg
		return &c
	}
	return nil
}

// Loading reports whether a submission is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// ShowResult reports whether the result view is active.
func (s *Store) ShowResult() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.showResult
}

// ResultData returns the part of the latest answer revealed so far.
func (s *Store) ResultData() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resultData
}

// Generation returns the current reveal generation.
func (s *Store) Generation() uint64 {
	return s.revealer.Current()
}

// Phase returns the submission state.
func (s *Store) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}
