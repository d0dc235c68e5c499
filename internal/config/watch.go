// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 150 * time.Millisecond

// =============================================================================
// CONFIG WATCHER
// =============================================================================

// Watcher reloads a config file when it changes on disk and hands the new
// configuration to a callback. Invalid edits are logged and skipped.
//
// The parent directory is watched rather than the file itself so that
// editors that save by renaming a temp file are picked up.
type Watcher struct {
	path     string
	onChange func(*Config)
	debounce time.Duration
	watcher  *fsnotify.Watcher

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatcher creates a watcher for path. Call Watch to start it.
func NewWatcher(path string, debounce time.Duration, onChange func(*Config)) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, "resolve config path")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create file watcher")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		path:     abs,
		onChange: onChange,
		debounce: debounce,
		watcher:  fw,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Watch starts watching for changes.
func (w *Watcher) Watch() error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return errors.Wrapf(err, "watch %s", filepath.Dir(w.path))
	}

	w.wg.Add(1)
	go w.processEvents()
	return nil
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-w.ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			// Restart the debounce window on every write
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Str("path", w.path).Msg("config watcher error")
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := LoadFromPath(w.path)
	if err != nil {
		log.Warn().Err(err).Str("path", w.path).Msg("ignoring invalid config change")
		return
	}
	log.Info().Str("path", w.path).Msg("config reloaded")
	if w.onChange != nil {
		w.onChange(cfg)
	}
}
