// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"sync"
)

// =============================================================================
// CANCEL FUNCTION MANAGEMENT (THREAD-SAFE)
// =============================================================================

// operation names a cancellable background call.
type operation int

const (
	opQuery operation = iota
	opVoice
	opSpeak
	opDownload
)

// cancelSet tracks one cancel function per operation.
// It must be used as a pointer so Bubble Tea's model copies share it.
type cancelSet struct {
	mu    sync.Mutex
	funcs map[operation]context.CancelFunc
}

func newCancelSet() *cancelSet {
	return &cancelSet{funcs: make(map[operation]context.CancelFunc)}
}

// start derives a context for op, cancelling any previous one.
func (c *cancelSet) start(parent context.Context, op operation) context.Context {
	ctx, cancel := context.WithCancel(parent)

	c.mu.Lock()
	defer c.mu.Unlock()
	if prev := c.funcs[op]; prev != nil {
		prev()
	}
	c.funcs[op] = cancel
	return ctx
}

// done releases the context of op once its call has returned.
func (c *cancelSet) done(op operation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fn := c.funcs[op]; fn != nil {
		fn()
		delete(c.funcs, op)
	}
}

// cancel aborts op if it is running.
func (c *cancelSet) cancel(op operation) {
	c.done(op)
}

// cancelAll aborts every running operation.
func (c *cancelSet) cancelAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for op, fn := range c.funcs {
		fn()
		delete(c.funcs, op)
	}
}

// running reports whether op has an active context.
func (c *cancelSet) running(op operation) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.funcs[op] != nil
}
