// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package progress polls the backend progress log and detects the report
// file it announces.
package progress

import (
	"context"
	"regexp"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// DefaultInterval is the time between two progress fetches.
const DefaultInterval = 2000 * time.Millisecond

// reportPattern matches generated report file names in the log.
var reportPattern = regexp.MustCompile(`(?i)reporte?_\w+\.pdf`)

// ExtractReportName returns the first report file name found in log.
func ExtractReportName(log string) (string, bool) {
	name := reportPattern.FindString(log)
	return name, name != ""
}

// =============================================================================
// TYPES
// =============================================================================

// Snapshot is the latest known state of the progress log.
type Snapshot struct {
	RawLog         string
	ReportFileName string
	FetchedAt      time.Time
}

// HasReport reports whether a report file has been announced.
func (s Snapshot) HasReport() bool {
	return s.ReportFileName != ""
}

// Source fetches the raw progress log.
type Source interface {
	Progress(ctx context.Context) (string, error)
}

// Config holds poller options.
type Config struct {
	// Interval between fetches (default: 2s).
	Interval time.Duration

	// OnSnapshot is called from the polling goroutine after every
	// successful fetch.
	OnSnapshot func(Snapshot)
}

// =============================================================================
// POLLER
// =============================================================================

// Poller fetches the progress log on a fixed cadence. Each successful fetch
// replaces the snapshot wholesale. Failed fetches are logged and leave the
// snapshot unchanged.
//
// A Poller must be stopped with Stop once its view goes away.
type Poller struct {
	source     Source
	interval   time.Duration
	onSnapshot func(Snapshot)
	limiter    *rate.Limiter

	mu       sync.Mutex
	snapshot Snapshot
	running  bool
	cancel   context.CancelFunc
	refresh  chan struct{}
	wg       sync.WaitGroup
}

// NewPoller creates a stopped poller reading from source.
func NewPoller(source Source, config Config) *Poller {
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	return &Poller{
		source:     source,
		interval:   config.Interval,
		onSnapshot: config.OnSnapshot,
		limiter:    rate.NewLimiter(rate.Every(config.Interval/2), 1),
		refresh:    make(chan struct{}, 1),
	}
}

// Start begins polling with an empty snapshot. The first fetch happens one
// interval later. Calling Start on a running poller does nothing.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true
	p.snapshot = Snapshot{}

	p.wg.Add(1)
	go p.poll(ctx)

	log.Debug().Dur("interval", p.interval).Msg("progress poller started")
}

// Stop halts polling and waits for an in-flight fetch to finish. No fetch
// starts after Stop returns. Stop is safe to call more than once.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.cancel()
	p.mu.Unlock()

	p.wg.Wait()
	log.Debug().Msg("progress poller stopped")
}

// Running reports whether the poller is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Refresh asks for an immediate fetch. Requests beyond one per half
// interval are dropped. It reports whether the request was accepted.
func (p *Poller) Refresh() bool {
	if !p.Running() || !p.limiter.Allow() {
		return false
	}
	select {
	case p.refresh <- struct{}{}:
	default:
	}
	return true
}

// Snapshot returns the latest snapshot.
func (p *Poller) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot
}

func (p *Poller) poll(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			p.fetch(ctx)

		case <-p.refresh:
			p.fetch(ctx)
		}
	}
}

// fetch performs one poll and publishes the new snapshot.
func (p *Poller) fetch(ctx context.Context) {
	raw, err := p.source.Progress(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Warn().Err(err).Msg("error fetching progress")
		}
		return
	}

	p.mu.Lock()
	snap := Snapshot{
		RawLog:         raw,
		ReportFileName: p.snapshot.ReportFileName,
		FetchedAt:      time.Now(),
	}
	if name, ok := ExtractReportName(raw); ok {
		snap.ReportFileName = name
	}
	p.snapshot = snap
	p.mu.Unlock()

	if p.onSnapshot != nil && ctx.Err() == nil {
		p.onSnapshot(snap)
	}
}
